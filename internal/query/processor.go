package query

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/odingraph/odingraph/internal/geo"
	"github.com/odingraph/odingraph/internal/hashing"
	"github.com/odingraph/odingraph/internal/node"
	"github.com/odingraph/odingraph/internal/store"
)

// nodeTable is the only store partition the processor walks; certs travel
// embedded inside a node's cert slot rather than as graph members in their
// own right.
const nodeTable = "nodes"

// Processor runs level-synchronous BFS traversals against a Driver.
type Processor struct {
	Driver       store.Driver
	DestroyIndex DestroyIndex
}

func NewProcessor(driver store.Driver, idx DestroyIndex) *Processor {
	if idx == nil {
		idx = NewDestroyIndex(nil)
	}
	return &Processor{Driver: driver, DestroyIndex: idx}
}

// frontierItem is one node awaiting its children to be fetched at the next
// level, carrying the ancestor chain and restrictive-write scope state a
// visibility decision about its children will need.
type frontierItem struct {
	n         *node.Node
	ancestors []*node.Node
	restrict  *restrictiveStack
}

// Fetch runs q to completion, calling emit one or more times with batches
// of matched nodes and embed candidates. A final call with both slices
// empty signals completion, mirroring handleFetchReplyData.
func (p *Processor) Fetch(ctx context.Context, q Query, emit func(Reply) error) error {
	visited := make(map[[32]byte]bool)
	childrenOf := make(map[[32]byte][]*node.Node)
	embedded := make(map[[32]byte]bool)

	cursorPassed := make([]bool, len(q.Match))
	limitGroups := make([]map[string]int, len(q.Match))
	matchCounts := make([]int, len(q.Match))
	for i, m := range q.Match {
		if m.CursorID1 == nil {
			cursorPassed[i] = true
		}
		if m.LimitField != nil {
			limitGroups[i] = make(map[string]int)
		}
	}

	frontier := []frontierItem{{restrict: newRestrictiveStack()}}
	frontierIDs := [][32]byte{q.ParentID}

	totalEmitted := 0
	for level := 0; len(frontier) > 0; level++ {
		if q.Depth > 0 && level >= q.Depth {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		byParent, err := p.Driver.ByParents(ctx, nodeTable, frontierIDs, 0)
		if err != nil {
			return fmt.Errorf("query: fetch level %d: %w", level, err)
		}

		var levelNodes []*node.Node
		var levelEmbeds []EmbedCandidate
		var nextFrontier []frontierItem
		var nextIDs [][32]byte

		for _, pf := range frontier {
			var parentID [32]byte
			if pf.n != nil {
				parentID = pf.n.ID1()
			} else {
				parentID = q.ParentID
			}
			records := byParent[parentID]

			var children []*node.Node
			for _, rec := range records {
				c, err := node.Decode(rec.Image)
				if err != nil {
					continue // CertNotDecodable: excluded, never surfaced
				}
				children = append(children, c)
			}
			childrenOf[parentID] = append(childrenOf[parentID], children...)

			scope := pf.restrict.Snapshot()
			if pf.n != nil {
				scope.Enter(pf.n, children)
			}

			var ancestors []*node.Node
			if pf.n != nil {
				ancestors = append(append([]*node.Node(nil), pf.ancestors...), pf.n)
			}

			for _, c := range children {
				id1 := c.ID1()
				if visited[id1] {
					continue // cycle guard
				}
				visited[id1] = true

				if !geoAdmitted(&q, c) {
					continue
				}
				if q.CutoffTime > 0 && c.CreationTime() < q.CutoffTime {
					continue
				}
				if q.Now > 0 && c.ExpireTime() > 0 && c.ExpireTime() < q.Now {
					continue
				}
				if q.IgnoreInactive && !c.Online() {
					continue
				}
				if p.DestroyIndex.IsDestroyed(c.Owner(), id1) && !c.Indestructible() {
					continue
				}

				matchedAny, bottom, discard := matchFirst(&q, c, level, cursorPassed, limitGroups, matchCounts)

				restrictOK := scope.Admits(c.Owner())

				visible, canEmbed := visibility(&q, c, ancestors, childrenOf)

				if !restrictOK {
					visible = false
				}

				if visible && matchedAny && !discard && !(q.DiscardRoot && level == 0) {
					levelNodes = append(levelNodes, c)
					totalEmitted++
				}

				if canEmbed && q.TargetPublicKey != nil {
					if ext, ok := tryEmbed(&q, c, embedded); ok {
						levelEmbeds = append(levelEmbeds, EmbedCandidate{Source: c, Node: ext})
					}
				}

				if visible && !bottom && restrictOK {
					childScope := scope.Snapshot()
					childScope.Exit(c)
					nextFrontier = append(nextFrontier, frontierItem{n: c, ancestors: ancestors, restrict: childScope})
					nextIDs = append(nextIDs, id1)
				}

				if q.Limit > 0 && totalEmitted >= q.Limit {
					break
				}
			}
			if q.Limit > 0 && totalEmitted >= q.Limit {
				break
			}
		}

		orderNodes(&q, levelNodes)
		if len(levelNodes) > 0 || len(levelEmbeds) > 0 {
			if err := emit(Reply{Nodes: levelNodes, Embed: levelEmbeds}); err != nil {
				return err
			}
		}

		if q.Limit > 0 && totalEmitted >= q.Limit {
			break
		}

		frontier = nextFrontier
		frontierIDs = nextIDs
	}

	return emit(Reply{})
}

func geoAdmitted(q *Query, n *node.Node) bool {
	if q.Region != "" && !geo.Admits(q.Region, n.Jurisdiction()) {
		return false
	}
	if q.Jurisdiction != "" && n.Jurisdiction() != "" && n.Jurisdiction() != q.Jurisdiction &&
		!geo.Admits(q.Jurisdiction, n.Jurisdiction()) {
		return false
	}
	return true
}

// visibility implements the privacy filter (4.6-4/4.6-5): public nodes are
// always visible; owned nodes are visible to their own owner; otherwise a
// license path or rights-by-association grants visibility. canEmbed is set
// whenever a node that failed the ordinary visibility test is nonetheless
// the kind of thing an embed clause could act on.
func visibility(q *Query, n *node.Node, ancestors []*node.Node, childrenOf map[[32]byte][]*node.Node) (visible bool, canEmbed bool) {
	if !n.IsPrivate() {
		return true, false
	}
	if len(q.SourcePublicKey) > 0 && string(n.Owner()) == string(q.SourcePublicKey) && !q.IgnoreOwn {
		return true, false
	}
	if len(q.TargetPublicKey) > 0 && isLicensed(n, ancestors, childrenOf, q.TargetPublicKey) {
		return true, false
	}
	if q.AllowRightsByAssociation && !n.DisallowRightsByAssociation() && len(ancestors) > 0 {
		parentID := ancestors[len(ancestors)-1].ID1()
		for _, sib := range childrenOf[parentID] {
			if sib.ID1() == n.ID1() {
				continue
			}
			if string(sib.Owner()) == string(q.SourcePublicKey) && sib.RefID() == n.RefID() {
				return true, false
			}
		}
	}
	return false, n.Kind() == node.KindLicense
}

// tryEmbed implements the direct-target half of the embedding pass
// (4.6-10): a license privately held by another owner but targeting
// q.SourcePublicKey as an intermediary, with extensions remaining, yields
// an unsigned extension the caller may sign and store. The friend-cert
// mediated half (4.7) lives in ApplyFriendCerts, since it needs a pair of
// certs the caller must supply explicitly.
func tryEmbed(q *Query, n *node.Node, embedded map[[32]byte]bool) (*node.Node, bool) {
	if n.Kind() != node.KindLicense {
		return nil, false
	}
	if !matchesAnyPrefix(q.Embed, n) {
		return nil, false
	}
	if !n.GrantsTo(q.SourcePublicKey) {
		return nil, false
	}
	ext := n.LicenseExtensions()
	if len(ext) == 0 || ext[0] == 0 {
		return nil, false
	}
	id1 := n.ID1()
	if embedded[id1] {
		return nil, false
	}
	embedded[id1] = true

	out := node.NewLicenseNode()
	out.SetOwner(q.SourcePublicKey)
	out.SetParentID(n.ParentID())
	out.SetRefID(n.RefID())
	out.SetCreationTime(n.CreationTime())
	out.SetExpireTime(n.ExpireTime())
	out.SetLicenseTargetPublicKey(q.TargetPublicKey)
	out.SetLicenseFriendLevel(n.LicenseFriendLevel())
	out.SetLicenseExtensions([]byte{ext[0] - 1})
	return out, true
}

func matchesAnyPrefix(prefixes [][]byte, n *node.Node) bool {
	if len(prefixes) == 0 {
		return true
	}
	tag := n.Tag().Prefix()
	for _, p := range prefixes {
		if bytes.HasPrefix(tag[:], p) {
			return true
		}
	}
	return false
}

func orderNodes(q *Query, nodes []*node.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		ti, tj := nodes[i].CreationTime(), nodes[j].CreationTime()
		if ti != tj {
			if q.Descending {
				return ti > tj
			}
			return ti < tj
		}
		idi, idj := nodes[i].ID1(), nodes[j].ID1()
		c := bytes.Compare(idi[:], idj[:])
		if q.Descending {
			return c > 0
		}
		return c < 0
	})
}

// matchFirst evaluates every Match clause applicable at level against c,
// advancing cursor/limit-field bookkeeping in place. It reports whether any
// clause matched and whether any matching clause carried bottom or discard.
func matchFirst(q *Query, c *node.Node, level int, cursorPassed []bool, limitGroups []map[string]int, matchCounts []int) (matchedAny, bottom, discard bool) {
	if len(q.Match) == 0 {
		return true, false, false
	}
	for i := range q.Match {
		m := &q.Match[i]
		if len(m.Level) > 0 && !containsInt(m.Level, level) {
			continue
		}
		if len(m.NodeTypePrefix) > 0 {
			tag := c.Tag().Prefix()
			if !bytes.HasPrefix(tag[:], m.NodeTypePrefix) {
				continue
			}
		}
		if m.CursorID1 != nil && !cursorPassed[i] {
			if c.ID1() == *m.CursorID1 {
				cursorPassed[i] = true
			}
			continue
		}
		ok := true
		for _, f := range m.Filters {
			if !compareValues(f.Cmp, fieldValue(c, f.Field), f.Value) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if m.LimitField != nil {
			key := groupKey(c, m.LimitField.Name)
			if limitGroups[i][key] >= m.LimitField.Limit {
				continue
			}
			limitGroups[i][key]++
		}
		if m.Limit > 0 && matchCounts[i] >= m.Limit {
			continue
		}
		matchCounts[i]++
		matchedAny = true
		if m.Bottom {
			bottom = true
		}
		if m.Discard {
			discard = true
		}
	}
	return
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func groupKey(n *node.Node, field string) string {
	v := fieldValue(n, field)
	var h [32]byte
	switch x := v.(type) {
	case []byte:
		h = hashing.H(x)
	case string:
		h = hashing.H(x)
	case uint32:
		h = hashing.H(x)
	case uint16:
		h = hashing.H(x)
	case bool:
		h = hashing.H(x)
	default:
		h = hashing.H(nil)
	}
	return string(h[:])
}

// fieldValue reads a named field off c for filter/limitField evaluation.
// Only the base and license fields exposed as accessors are supported; an
// unknown name compares as nil against everything.
func fieldValue(n *node.Node, field string) any {
	switch field {
	case "parentId":
		v := n.ParentID()
		return v[:]
	case "owner":
		return n.Owner()
	case "refId":
		v := n.RefID()
		return v[:]
	case "creationTime":
		return n.CreationTime()
	case "expireTime":
		return n.ExpireTime()
	case "difficulty":
		return n.Difficulty()
	case "childMinDifficulty":
		return n.ChildMinDifficulty()
	case "region":
		return n.Region()
	case "jurisdiction":
		return n.Jurisdiction()
	case "network":
		return n.Network()
	case "licenseMinDistance":
		return n.LicenseMinDistance()
	case "licenseMaxDistance":
		return n.LicenseMaxDistance()
	case "config":
		return n.Config()
	case "blobHash":
		v := n.BlobHash()
		return v[:]
	case "data":
		return n.Data()
	case "id2":
		v := n.ID2()
		return v[:]
	case "isSpecial":
		return n.IsSpecial()
	case "isPrivate":
		return n.IsPrivate()
	default:
		if n.Kind() == node.KindLicense {
			switch field {
			case "licenseTargetPublicKey":
				return n.LicenseTargetPublicKey()
			case "licenseFriendLevel":
				return n.LicenseFriendLevel()
			}
		}
		return nil
	}
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case int:
		return int64(x), true
	}
	return 0, false
}

func applyOrdering(cmp Comparator, c int) bool {
	switch cmp {
	case EQ:
		return c == 0
	case NE:
		return c != 0
	case LT:
		return c < 0
	case LE:
		return c <= 0
	case GT:
		return c > 0
	case GE:
		return c >= 0
	}
	return false
}

func compareValues(cmp Comparator, got, want any) bool {
	if got == nil {
		return false
	}
	if gb, ok := got.([]byte); ok {
		wb, ok := want.([]byte)
		if !ok {
			return false
		}
		return applyOrdering(cmp, bytes.Compare(gb, wb))
	}
	if gs, ok := got.(string); ok {
		ws, _ := want.(string)
		return applyOrdering(cmp, strings.Compare(gs, ws))
	}
	if gbool, ok := got.(bool); ok {
		wbool, _ := want.(bool)
		switch cmp {
		case EQ:
			return gbool == wbool
		case NE:
			return gbool != wbool
		}
		return false
	}
	gi, ok1 := toInt64(got)
	wi, ok2 := toInt64(want)
	if ok1 && ok2 {
		switch {
		case gi < wi:
			return applyOrdering(cmp, -1)
		case gi > wi:
			return applyOrdering(cmp, 1)
		default:
			return applyOrdering(cmp, 0)
		}
	}
	return false
}
