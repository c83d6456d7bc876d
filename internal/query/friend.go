package query

import (
	"fmt"

	"github.com/odingraph/odingraph/internal/cert"
	"github.com/odingraph/odingraph/internal/node"
)

// ApplyFriendCerts implements 4.7: given a license L owned by a and
// targeted at intermediary i, and a's/b's paired friend certificates,
// produces an unsigned license extension from i to b that the
// intermediary can sign and store without either party sharing their
// primary key with the other.
func ApplyFriendCerts(license *node.Node, certA, certB *cert.Cert, intermediary []byte, extensions uint8) (*node.Node, error) {
	if !cert.VerifyFriendPair(certA, certB) {
		return nil, fmt.Errorf("query: friend certs are not validly paired")
	}
	if okA, errA := certA.Verify(true); errA != nil || !okA {
		return nil, fmt.Errorf("query: friend cert A failed verification")
	}
	if okB, errB := certB.Verify(true); errB != nil || !okB {
		return nil, fmt.Errorf("query: friend cert B failed verification")
	}

	if !license.GrantsTo(intermediary) {
		return nil, fmt.Errorf("query: license does not target the intermediary")
	}

	minFriendLevel := certA.FriendLevel()
	if certB.FriendLevel() < minFriendLevel {
		minFriendLevel = certB.FriendLevel()
	}
	if license.LicenseFriendLevel() == 0 || license.LicenseFriendLevel() > minFriendLevel {
		return nil, fmt.Errorf("query: license friendLevel exceeds what the friend-cert pair allows")
	}

	minExpire := certA.LicenseMaxExpireTime()
	if certB.LicenseMaxExpireTime() < minExpire {
		minExpire = certB.LicenseMaxExpireTime()
	}
	if license.ExpireTime() > minExpire {
		return nil, fmt.Errorf("query: license expireTime exceeds what the friend-cert pair allows")
	}

	ext := node.NewLicenseNode()
	ext.SetOwner(intermediary)
	ext.SetParentID(license.ParentID())
	ext.SetRefID(license.RefID())
	ext.SetCreationTime(license.CreationTime())
	ext.SetExpireTime(license.ExpireTime())
	ext.SetConfig(0)
	ext.SetLicenseTargetPublicKey(certB.Owner())
	ext.SetLicenseFriendLevel(license.LicenseFriendLevel())
	if extensions > 0 {
		extensions--
	}
	ext.SetLicenseExtensions(append([]byte(nil), extensions))
	return ext, nil
}
