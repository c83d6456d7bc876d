// Package query implements the level-synchronous query processor: given a
// starting parent id, it walks the graph one breadth-first level at a
// time, applying privacy, licensing, and restrictive-write visibility
// rules before handing matched nodes to a caller-supplied emission
// callback.
package query

import "github.com/odingraph/odingraph/internal/node"

// Comparator is one of the comparison operators a filter clause may use.
type Comparator int

const (
	EQ Comparator = iota
	LT
	LE
	GT
	GE
	NE
)

// Filter narrows a Match to nodes whose named field compares against value
// per Cmp.
type Filter struct {
	Field string
	Cmp   Comparator
	Value any
}

// LimitField groups matched nodes by H(node.field) and stops matching once
// a group reaches its per-value limit.
type LimitField struct {
	Name  string
	Limit int
}

// Match is one clause a traversal evaluates against every candidate node
// at an applicable level.
type Match struct {
	// Level restricts this match to the given BFS levels; empty means any
	// level.
	Level []int
	// NodeTypePrefix restricts this match to nodes whose type tag prefix
	// equals the given bytes; empty means any type.
	NodeTypePrefix []byte
	Filters        []Filter
	Bottom         bool
	Discard        bool
	Limit          int
	LimitField     *LimitField
	CursorID1      *[32]byte
}

// IncludeLicenses controls whether and how license-extension embedding is
// attempted alongside a fetch.
type IncludeLicenses int

const (
	LicensesNone IncludeLicenses = iota
	LicensesInclude
	LicensesExtend
	LicensesIncludeExtend
)

// ReverseFetchMode controls whether the walk proceeds from children toward
// parents instead of the usual top-down direction.
type ReverseFetchMode int

const (
	ReverseOff ReverseFetchMode = iota
	ReverseOnlyLicensed
	ReverseAllParents
)

// Query describes one traversal request.
type Query struct {
	ParentID        [32]byte
	SourcePublicKey []byte
	TargetPublicKey []byte

	Match []Match
	Embed [][]byte // node type prefixes eligible for license-extension embedding

	Depth      int // 0 means unlimited
	Limit      int
	CutoffTime uint32

	Descending         bool
	OrderByStorageTime bool
	IgnoreOwn          bool
	IgnoreInactive     bool
	DiscardRoot        bool
	IncludeLicenses    IncludeLicenses

	Region       string
	Jurisdiction string

	ReverseFetch ReverseFetchMode

	AllowRightsByAssociation bool

	Now uint32 // validity/expiry reference time; never read from the wall clock
}

// FetchRequest wraps a Query as the processor's external entry point.
type FetchRequest struct {
	Query Query
}

// EmbedCandidate is an unsigned license-extension node the embedding pass
// produced; the caller must sign and store it.
type EmbedCandidate struct {
	Source *node.Node
	Node   *node.Node
}

// Reply is one batch handed to the emission callback. A final call with
// both slices empty signals completion.
type Reply struct {
	Nodes []*node.Node
	Embed []EmbedCandidate
}
