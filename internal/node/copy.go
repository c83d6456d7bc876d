package node

// Copy produces an unsigned copy of n re-parented under newParentID: the
// content fields are preserved, the original signature is cleared and
// preserved separately as provenance (copiedSignature/copiedParentId/
// copiedId1), and a fresh id2 distinguishes the copy from the original at
// the same parent should it ever be re-copied back. The result still needs
// Sign before it is a valid node.
func (n *Node) Copy(newParentID [32]byte, freshID2 [32]byte) *Node {
	copied := newNodeForCopy(n)

	originalParentID := n.ParentID()
	originalID1 := n.ID1()
	originalSignature := n.m.MustGetBytes("signature")

	copied.SetOwner(n.Owner())
	copied.SetRefID(n.RefID())
	copied.SetEmbedded(n.Embedded())
	copied.SetCertImage(n.CertImage())
	copied.SetCreationTime(n.CreationTime())
	copied.SetExpireTime(n.ExpireTime())
	copied.SetDifficulty(n.Difficulty())
	copied.SetChildMinDifficulty(n.ChildMinDifficulty())
	copied.SetRegion(n.Region())
	copied.SetJurisdiction(n.Jurisdiction())
	copied.SetNetwork(n.Network())
	copied.SetLicenseMinDistance(n.LicenseMinDistance())
	copied.SetLicenseMaxDistance(n.LicenseMaxDistance())
	copied.SetConfig(n.Config())
	copied.SetBlobHash(n.BlobHash())
	copied.SetData(n.Data())

	copied.SetParentID(newParentID)
	copied.SetID2(freshID2)
	copied.SetCopiedParentID(originalParentID)
	copied.SetCopiedID1(originalID1)
	copied.SetCopiedSignature(originalSignature)

	if n.kind == KindLicense {
		copied.SetLicenseTargetPublicKey(n.LicenseTargetPublicKey())
		copied.SetLicenseExtensions(n.LicenseExtensions())
		copied.SetLicenseFriendLevel(n.LicenseFriendLevel())
		copied.SetLicenseParentPathHash(n.LicenseParentPathHash())
		if n.DisallowRetroLicensing() {
			copied.SetDisallowRetroLicensing(true)
		}
		if n.RestrictiveModeWriter() {
			copied.SetRestrictiveModeWriter(true)
		}
		if n.RestrictiveModeManager() {
			copied.SetRestrictiveModeManager(true)
		}
		if n.DisallowParentLicensing() {
			copied.SetDisallowParentLicensing(true)
		}
	}

	return copied
}

func newNodeForCopy(n *Node) *Node {
	switch n.kind {
	case KindLicense:
		return NewLicenseNode()
	case KindDestroySpecial:
		return NewDestroySpecialNode()
	default:
		return NewDataNode()
	}
}

// CanSendEmbedded implements the embed rule: a private node may only be
// embedded into a node owned by the same public key, so that embedding
// can never leak a private node's content to a different owner's subtree.
func CanSendEmbedded(src, target *Node) bool {
	if !src.IsPrivate() {
		return true
	}
	return string(src.Owner()) == string(target.Owner())
}
