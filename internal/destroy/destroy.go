// Package destroy implements the "Achilles hash" subsystem: every
// destructible node or certificate can be torn down by publishing a
// special data node that names a destroy topic and references a hash
// derived from the target's owner (and, for single-entity destruction,
// its id1). The query processor consults this package to decide whether a
// candidate it is about to emit has been destroyed.
package destroy

import "github.com/odingraph/odingraph/internal/hashing"

// Topic is one of the fixed ASCII destroy-request topics. A destroy node
// carries its topic as raw ASCII bytes in its data field.
type Topic string

const (
	SelfTotalDestruct                     Topic = "special/destroy/selfTotalDestruct"
	DestroyNode                           Topic = "special/destroy/destroyNode"
	DestroyCert                           Topic = "special/destroy/destroyCert"
	DestroyFriendCert                     Topic = "special/destroy/destroyFriendCert"
	DestroyLicensesForNode                Topic = "special/destroy/destroyLicensesForNode"
	DestroyLicensesForTargetPublicKey     Topic = "special/destroy/destroyLicensesForTargetPublicKey"
	DestroyLicensesForTargetPublicKeyNode Topic = "special/destroy/destroyLicensesForTargetPublicKeyAndNode"
)

// MinDifficultyTotalDestruction is the minimum proof-of-work difficulty a
// selfTotalDestruct request must carry before it is honored — a cheap
// destroy node cannot take down an entire owner's graph.
const MinDifficultyTotalDestruction = 2

// InnerHash computes H(topic, owner, extra...), the value a destroy
// request node stores as its refId. extra is empty for selfTotalDestruct
// and carries the target id1 for the per-entity topics (destroyNode,
// destroyCert, ...).
func InnerHash(topic Topic, owner []byte, extra ...any) [32]byte {
	args := make([]any, 0, 2+len(extra))
	args = append(args, []byte(topic), owner)
	args = append(args, extra...)
	return hashing.H(args...)
}

// OuterHash computes H(topic, owner, InnerHash(topic, owner, extra...)),
// the "Achilles hash" a destructible entity advertises per 4.4/4.5. It
// wraps the inner hash so that the advertised value is never itself
// presentable as a valid destroy-request refId (which is always the bare
// inner hash), preventing a leaked advertisement from being replayed as a
// request.
func OuterHash(topic Topic, owner []byte, extra ...any) [32]byte {
	inner := InnerHash(topic, owner, extra...)
	return hashing.H([]byte(topic), owner, inner[:])
}

// SelfHash is OuterHash(SelfTotalDestruct, owner) — the hash a
// destructible entity's owner must match with a sufficiently hard
// selfTotalDestruct request to tear down every destructible entity they
// own.
func SelfHash(owner []byte) [32]byte {
	return OuterHash(SelfTotalDestruct, owner)
}

// CertHash is OuterHash(DestroyCert, owner, id1) — the per-certificate
// destroy hash. NodeHash is its node-layer equivalent.
func CertHash(owner []byte, id1 [32]byte) [32]byte {
	return OuterHash(DestroyCert, owner, id1[:])
}

func NodeHash(owner []byte, id1 [32]byte) [32]byte {
	return OuterHash(DestroyNode, owner, id1[:])
}

// Request is a decoded destroy data node: a topic, the refId it
// references (an InnerHash value), and the proof-of-work difficulty it
// carried.
type Request struct {
	Topic      Topic
	RefID      [32]byte
	Difficulty uint32
}

// MatchesSelfTotal reports whether any of requests authorizes total
// destruction of everything owned by owner: a selfTotalDestruct request
// whose RefID equals InnerHash(SelfTotalDestruct, owner) and whose
// difficulty clears MinDifficultyTotalDestruction.
func MatchesSelfTotal(requests []Request, owner []byte) bool {
	want := InnerHash(SelfTotalDestruct, owner)
	for _, r := range requests {
		if r.Topic == SelfTotalDestruct && r.RefID == want && r.Difficulty >= MinDifficultyTotalDestruction {
			return true
		}
	}
	return false
}

// MatchesEntity reports whether any of requests destroys the single
// entity (owner, id1) under the given per-entity topic (DestroyNode or
// DestroyCert).
func MatchesEntity(requests []Request, topic Topic, owner []byte, id1 [32]byte) bool {
	want := InnerHash(topic, owner, id1[:])
	for _, r := range requests {
		if r.Topic == topic && r.RefID == want {
			return true
		}
	}
	return false
}
