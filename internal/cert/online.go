package cert

// Online/dynamic status bits. The later ONLINE_* semantics (validated vs.
// revoked) are authoritative per the design notes' resolved open
// question; the earlier DYNAMIC_* naming from older cert variants does
// not appear in this implementation.

func (c *Cert) onlineBits() uint16 {
	v, ok := c.m.Get("onlineBits")
	if !ok {
		return 0
	}
	u, _ := v.(uint16)
	return u
}

func (c *Cert) setOnlineBit(bit uint16, on bool) {
	cur := c.onlineBits()
	if on {
		cur |= bit
	} else {
		cur &^= bit
	}
	mustSet(c.m, "onlineBits", cur)
}

func (c *Cert) HasOnlineValidation() bool { return c.onlineBits()&bitHasOnlineValidation != 0 }
func (c *Cert) SetHasOnlineValidation(v bool) { c.setOnlineBit(bitHasOnlineValidation, v) }

func (c *Cert) OnlineValidated() bool     { return c.onlineBits()&bitOnlineValidated != 0 }
func (c *Cert) SetOnlineValidated(v bool) { c.setOnlineBit(bitOnlineValidated, v) }

func (c *Cert) HasOnlineCert() bool     { return c.onlineBits()&bitHasOnlineCert != 0 }
func (c *Cert) SetHasOnlineCert(v bool) { c.setOnlineBit(bitHasOnlineCert, v) }

func (c *Cert) OnlineCertOnline() bool     { return c.onlineBits()&bitOnlineCertOnline != 0 }
func (c *Cert) SetOnlineCertOnline(v bool) { c.setOnlineBit(bitOnlineCertOnline, v) }

// OnlineRevoked reports whether c has been irreversibly revoked, either
// directly or by inheritance from an embedded cert via UpdateOnlineStatus.
func (c *Cert) OnlineRevoked() bool { return c.onlineBits()&bitOnlineRevoked != 0 }

// MarkOnlineRevoked sets the revoked bit. There is deliberately no way to
// clear it: revocation is irreversible for the lifetime of the decoded
// certificate.
func (c *Cert) MarkOnlineRevoked() { c.setOnlineBit(bitOnlineRevoked, true) }

// IsOnline computes the composite online predicate: a cert with online
// validation enabled must have been validated, and a cert with an online
// cert check enabled must report that cert as online.
func (c *Cert) IsOnline() bool {
	if c.HasOnlineValidation() && !c.OnlineValidated() {
		return false
	}
	if c.HasOnlineCert() && !c.OnlineCertOnline() {
		return false
	}
	return true
}

// UpdateOnlineStatus recurses into c's embedded cert (if any) and, if it
// is revoked, irreversibly revokes c as well. Call this bottom-up before
// consulting IsOnline.
func (c *Cert) UpdateOnlineStatus() error {
	child, err := c.EmbeddedCert()
	if err != nil {
		return err
	}
	if child == nil {
		return nil
	}
	if err := child.UpdateOnlineStatus(); err != nil {
		return err
	}
	if child.OnlineRevoked() {
		c.MarkOnlineRevoked()
	}
	return nil
}
