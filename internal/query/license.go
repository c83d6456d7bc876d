package query

import (
	"github.com/odingraph/odingraph/internal/hashing"
	"github.com/odingraph/odingraph/internal/node"
)

// LicenseEntry records one license node found while enumerating the path
// from the root of a traversal down to a licensed node.
type LicenseEntry struct {
	License  *node.Node
	Distance int
}

// licenseTree walks target's ancestor chain (root-to-parent, as visited
// during this traversal) looking for License nodes that grant
// targetPublicKey access to target, honoring the distance window target
// itself declares. Two forms are recognized:
//
//   - literal: a license sitting beside target, under target's own
//     immediate parent, whose RefID is target's own id1 — the common
//     case, at distance 0.
//   - transitive: a license attached to an ancestor at distance d whose
//     RefID is that ancestor's own id1 — the ancestor itself is the
//     licensed node, and the grant flows down to everything under it.
//
// ancestors is ordered root-first; ancestors[len-1] is target's immediate
// parent. childrenOf maps an id1 to every child already fetched during
// this traversal (license nodes included), which is how a license's
// siblings are found without a dedicated driver query.
func licenseTree(target *node.Node, ancestors []*node.Node, childrenOf map[[32]byte][]*node.Node, targetPublicKey []byte) []LicenseEntry {
	var entries []LicenseEntry
	minD, maxD := target.LicenseMinDistance(), target.LicenseMaxDistance()
	targetID1 := target.ID1()

	withinWindow := func(distance int) bool {
		return uint16(distance) >= minD && (maxD == 0 || uint16(distance) <= maxD)
	}

	admit := func(child *node.Node, distance int, pathOwners [][]byte) {
		if !withinWindow(distance) {
			return
		}
		if !child.GrantsTo(targetPublicKey) {
			return
		}
		if child.DisallowRetroLicensing() && child.CreationTime() > target.CreationTime() {
			return
		}
		if child.DisallowParentLicensing() && distance > 1 {
			return
		}
		if lock := child.LicenseParentPathHash(); distance > 0 && lock != ([32]byte{}) && lock != pathHash(pathOwners) {
			return
		}
		entries = append(entries, LicenseEntry{License: child, Distance: distance})
	}

	if len(ancestors) > 0 {
		parent := ancestors[len(ancestors)-1]
		for _, child := range childrenOf[parent.ID1()] {
			if child.Kind() != node.KindLicense || child.RefID() != targetID1 {
				continue
			}
			admit(child, 0, nil)
		}
	}

	for i := len(ancestors) - 1; i >= 0; i-- {
		ancestor := ancestors[i]
		distance := len(ancestors) - i
		ancestorID1 := ancestor.ID1()
		pathOwners := ownerPath(ancestors[i+1:], target)
		for _, child := range childrenOf[ancestorID1] {
			if child.Kind() != node.KindLicense || child.RefID() != ancestorID1 {
				continue
			}
			admit(child, distance, pathOwners)
		}
	}
	return entries
}

// ownerPath collects the owners of the nodes strictly between a license's
// ancestor anchor and target, inclusive of target, in root-to-leaf order
// — the sequence a path-locked license's LicenseParentPathHash commits
// to. For a literal (distance-0) license the path is empty: the license
// already names target directly via RefID, so there is nothing left to
// lock.
func ownerPath(between []*node.Node, target *node.Node) [][]byte {
	owners := make([][]byte, 0, len(between)+1)
	for _, n := range between {
		owners = append(owners, n.Owner())
	}
	owners = append(owners, target.Owner())
	return owners
}

// pathHash folds an ownership path into the single digest a path-locked
// license's LicenseParentPathHash must match.
func pathHash(owners [][]byte) [32]byte {
	args := make([]any, len(owners))
	for i, o := range owners {
		args[i] = o
	}
	return hashing.H(args...)
}

// isLicensed reports whether target is visible to targetPublicKey under
// any entry licenseTree finds.
func isLicensed(target *node.Node, ancestors []*node.Node, childrenOf map[[32]byte][]*node.Node, targetPublicKey []byte) bool {
	return len(licenseTree(target, ancestors, childrenOf, targetPublicKey)) > 0
}
