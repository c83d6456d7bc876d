package cert

import "github.com/odingraph/odingraph/internal/hashing"

// TargetFields is implemented by whatever a certificate governs — another
// certificate (the one that embeds it) or a node. ConstraintFields
// returns that object's lockable fields in the fixed declared order the
// owning certificate's lockedConfig bitmask indexes into.
type TargetFields interface {
	ConstraintFields() []any
}

// calcConstraintsOnTarget reproduces the constraints hash a certificate
// with the given lockedConfig bitmask should carry for target: for each
// field in target.ConstraintFields(), bit i of lockedConfig gates whether
// that field is hashed in or replaced with hashing.Undefined{}.
func calcConstraintsOnTarget(lockedConfig uint16, target TargetFields) [32]byte {
	fields := target.ConstraintFields()
	args := make([]any, len(fields))
	for i, f := range fields {
		if lockedConfig&(1<<uint(i)) != 0 {
			args[i] = f
		} else {
			args[i] = hashing.Undefined{}
		}
	}
	return hashing.H(args...)
}

// ConstraintFields implements TargetFields for a certificate acting as
// the target of one it embeds: the certificate's own declared fields, in
// the order lockedConfig bits index into.
func (c *Cert) ConstraintFields() []any {
	return []any{
		c.Owner(),
		c.m.MustGetBytes("targetPublicKeys"),
		c.Config(),
		c.TargetType(),
		c.MaxChainLength(),
		c.RawMultiSigThreshold(),
		c.TargetMaxExpireTime(),
	}
}

// SetConstraintsFor computes and stores c's constraints hash against
// target.
func (c *Cert) SetConstraintsFor(target TargetFields) {
	c.SetConstraints(calcConstraintsOnTarget(c.LockedConfig(), target))
}

// ConstraintsMatch reports whether c's stored constraints hash matches
// the one freshly computed against target.
func (c *Cert) ConstraintsMatch(target TargetFields) bool {
	return calcConstraintsOnTarget(c.LockedConfig(), target) == c.Constraints()
}
