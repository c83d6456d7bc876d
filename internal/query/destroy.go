package query

import "github.com/odingraph/odingraph/internal/destroy"

// DestroyIndex answers whether a given owner/id1 has been torn down by a
// previously stored destroy request. The processor consults it once per
// candidate before privacy/licensing filtering so a destroyed node never
// reaches a match clause.
type DestroyIndex interface {
	IsDestroyed(owner []byte, id1 [32]byte) bool
}

type memDestroyIndex struct {
	requests []destroy.Request
}

// NewDestroyIndex builds a DestroyIndex from the destroy-request nodes a
// caller has already fetched (typically every isSpecial data node matching
// one of the destroy topics).
func NewDestroyIndex(requests []destroy.Request) DestroyIndex {
	return &memDestroyIndex{requests: requests}
}

func (d *memDestroyIndex) IsDestroyed(owner []byte, id1 [32]byte) bool {
	if destroy.MatchesSelfTotal(d.requests, owner) {
		return true
	}
	return destroy.MatchesEntity(d.requests, destroy.DestroyNode, owner, id1)
}
