package query

import "github.com/odingraph/odingraph/internal/node"

// writeScope is one open restrictive-write-mode scope: the owner of the
// node that opened it, and the set of public keys (by raw byte value)
// a writer license has admitted.
type writeScope struct {
	opener  []byte
	writers map[string]bool
	manager map[string]bool
}

// restrictiveStack tracks the nested scopes open along the current
// traversal path. A child is visible only if the innermost open scope
// admits the child's owner; outer scopes are not consulted.
type restrictiveStack struct {
	scopes []*writeScope
}

func newRestrictiveStack() *restrictiveStack { return &restrictiveStack{} }

// Enter pushes a new scope when parent opens restrictive-write mode,
// populating writers/managers from parent's already-fetched License
// children.
func (s *restrictiveStack) Enter(parent *node.Node, children []*node.Node) {
	if !parent.BeginsRestrictiveWriteMode() {
		return
	}
	scope := &writeScope{
		opener:  parent.Owner(),
		writers: make(map[string]bool),
		manager: make(map[string]bool),
	}
	parentID1 := parent.ID1()
	for _, c := range children {
		if c.Kind() != node.KindLicense {
			continue
		}
		if c.RefID() != parentID1 || string(c.Owner()) != string(parent.Owner()) {
			continue
		}
		target := string(c.LicenseTargetPublicKey())
		if c.RestrictiveModeWriter() {
			scope.writers[target] = true
		}
		if c.RestrictiveModeManager() {
			scope.manager[target] = true
		}
	}
	s.scopes = append(s.scopes, scope)
}

// Exit pops the innermost scope when parent ends restrictive-write mode.
// A non-owner closing the scope must hold a manager license from the
// scope's opener; the owner may always close its own scope.
func (s *restrictiveStack) Exit(parent *node.Node) {
	if !parent.EndsRestrictiveWriteMode() || len(s.scopes) == 0 {
		return
	}
	top := s.scopes[len(s.scopes)-1]
	if string(parent.Owner()) == string(top.opener) || top.manager[string(parent.Owner())] {
		s.scopes = s.scopes[:len(s.scopes)-1]
	}
}

// Admits reports whether publicKey may enter the innermost open scope.
// Ancestor scopes need not be rechecked: a node only reaches this call once
// it is itself already part of the traversal, which means every scope
// enclosing it was satisfied at the level where it was opened.
func (s *restrictiveStack) Admits(publicKey []byte) bool {
	if len(s.scopes) == 0 {
		return true
	}
	top := s.scopes[len(s.scopes)-1]
	return top.writers[string(publicKey)]
}

// Snapshot returns a copy of the stack's current scopes, used so sibling
// traversal branches don't share mutable scope state.
func (s *restrictiveStack) Snapshot() *restrictiveStack {
	cp := make([]*writeScope, len(s.scopes))
	copy(cp, s.scopes)
	return &restrictiveStack{scopes: cp}
}
