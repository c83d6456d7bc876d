package cert

import "github.com/odingraph/odingraph/internal/destroy"

// DestroyHashes returns the set of Achilles hashes a destructible
// certificate and its embedded descendants advertise. Certificates have
// no id1 of their own (3.Entities: "Identified at runtime"); the
// per-certificate destroy hash is instead anchored to the id1 of the node
// that hosts this certificate in its cert slot.
func (c *Cert) DestroyHashes(hostID1 [32]byte) [][32]byte {
	owner, err := c.Issuer()
	if err != nil {
		return nil
	}
	hashes := [][32]byte{
		destroy.SelfHash(owner),
		destroy.CertHash(owner, hostID1),
	}
	child, cerr := c.EmbeddedCert()
	if cerr != nil || child == nil {
		return hashes
	}
	return append(hashes, child.DestroyHashes(hostID1)...)
}
