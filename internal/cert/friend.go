package cert

import (
	"bytes"

	"github.com/odingraph/odingraph/internal/hashing"
	"github.com/odingraph/odingraph/internal/model"
)

func friendCertSpecs() []model.FieldSpec {
	return []model.FieldSpec{
		{Name: "salt", Type: model.BYTES, Index: FieldSubtypeBase, MaxSize: 32},
		{Name: "friendLevel", Type: model.UINT8, Index: FieldSubtypeBase + 1},
		{Name: "licenseMaxExpireTime", Type: model.UINT32BE, Index: FieldSubtypeBase + 2},
	}
}

func (c *Cert) Salt() []byte { return c.m.MustGetBytes("salt") }
func (c *Cert) SetSalt(v []byte) { mustSet(c.m, "salt", v) }

func (c *Cert) FriendLevel() uint8 {
	v, _ := c.m.Get("friendLevel")
	u, _ := v.(uint8)
	return u
}
func (c *Cert) SetFriendLevel(v uint8) { mustSet(c.m, "friendLevel", v) }

func (c *Cert) LicenseMaxExpireTime() uint32 {
	v, _ := c.m.Get("licenseMaxExpireTime")
	u, _ := v.(uint32)
	return u
}
func (c *Cert) SetLicenseMaxExpireTime(v uint32) { mustSet(c.m, "licenseMaxExpireTime", v) }

func friendDigest(f *Cert) [32]byte {
	return hashing.H(f.Owner(), f.Salt(), f.FriendLevel(), f.LicenseMaxExpireTime())
}

// PairConstraints computes the symmetric constraints hash two paired
// friend certificates must both carry: the two per-cert digests are
// sorted lexicographically before hashing so that PairConstraints(a, b)
// == PairConstraints(b, a) regardless of call order.
func PairConstraints(a, b *Cert) [32]byte {
	da, db := friendDigest(a), friendDigest(b)
	first, second := da, db
	if bytes.Compare(db[:], da[:]) < 0 {
		first, second = db, da
	}
	return hashing.H(first[:], second[:])
}

// VerifyFriendPair reports whether a and b are validly paired: both carry
// the constraints hash PairConstraints(a, b) predicts.
func VerifyFriendPair(a, b *Cert) bool {
	want := PairConstraints(a, b)
	return a.Constraints() == want && b.Constraints() == want
}
