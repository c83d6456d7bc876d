package node

// ConstraintFields implements cert.TargetFields: a node's lockable fields
// in the fixed declared order a governing certificate's lockedConfig
// bitmask indexes into.
func (n *Node) ConstraintFields() []any {
	id2, parentID, refID, blobHash := n.ID2(), n.ParentID(), n.RefID(), n.BlobHash()
	copiedParentID, copiedID1 := n.CopiedParentID(), n.CopiedID1()
	return []any{
		id2[:],
		parentID[:],
		n.Config(),
		n.Network(),
		n.Difficulty(),
		refID[:],
		n.Embedded(),
		n.LicenseMinDistance(),
		n.LicenseMaxDistance(),
		n.Region(),
		n.Jurisdiction(),
		n.ChildMinDifficulty(),
		blobHash[:],
		copiedParentID[:],
		copiedID1[:],
	}
}
