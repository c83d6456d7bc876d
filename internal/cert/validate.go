package cert

import (
	"bytes"
	"fmt"

	"github.com/odingraph/odingraph/internal/signing"
	"github.com/odingraph/odingraph/internal/typetag"
)

// Validate checks c against the certificate layer's structural and
// temporal rules, returning (true, "") on success or (false, reason) for
// the first failing rule. deepValidate controls recursion into the
// embedded cert: 0 checks only c itself; 1 and 2 additionally recurse.
// deepValidate == 2 additionally skips the signature-completeness check,
// for use while a multi-signature bundle is still being assembled.
func (c *Cert) Validate(deepValidate int, atTimeMs *int64) (bool, string) {
	hasOwner := c.IsRoot()
	_, hasEmbedded := c.m.Get("embeddedCert")
	if hasOwner == hasEmbedded {
		return false, "cert: exactly one of {owner, embedded cert} must be set"
	}

	ctVal, okCT := c.m.Get("creationTime")
	etVal, okET := c.m.Get("expireTime")
	if !okCT || !okET {
		return false, "cert: missing creation/expire time"
	}
	creation, _ := ctVal.(uint32)
	expire, _ := etVal.(uint32)
	if creation > expire {
		return false, "cert: creationTime after expireTime"
	}
	if atTimeMs != nil {
		now := *atTimeMs
		if now < int64(creation)*1000 || now > int64(expire)*1000 {
			return false, "cert: outside validity window"
		}
	}

	if _, ok := c.m.Get("config"); !ok {
		return false, "cert: config bits not set"
	}

	keys := c.TargetPublicKeys()
	if len(keys) == 0 {
		return false, "cert: targetPublicKeys must be non-empty"
	}

	threshold := c.RawMultiSigThreshold()
	if threshold == 1 {
		return false, "cert: multiSigThreshold must not be explicitly 1 (unset means single-signer)"
	}
	if threshold > 0 && int(threshold) > len(keys) {
		return false, "cert: multiSigThreshold exceeds eligible signer count"
	}

	if c.HasOnlineCert() && !hasEmbedded {
		return false, "cert: hasOnlineCert set without an embedded cert to track"
	}

	if deepValidate != 2 {
		if c.SignState() != signing.Signed {
			return false, "cert: signature bundle incomplete"
		}
	}

	if root, err := c.Root(); err == nil {
		if length, lerr := c.ChainLength(); lerr == nil && length > int(root.MaxChainLength()) {
			return false, "cert: chain length exceeds declared maxChainLength"
		}
	}

	if deepValidate >= 1 && hasEmbedded {
		child, err := c.EmbeddedCert()
		if err != nil {
			return false, fmt.Sprintf("cert: embedded cert undecodable: %v", err)
		}
		if !isTargetTypeAccepted(c.TargetType(), child.Tag()) {
			return false, "cert: embedded cert type not accepted by targetType"
		}
		if !child.ConstraintsMatch(c) {
			return false, "cert: embedded cert constraints do not match this cert"
		}
		if ok, msg := child.Validate(deepValidate, atTimeMs); !ok {
			return false, msg
		}
	}

	return true, ""
}

// isTargetTypeAccepted implements isCertTypeAccepted: an empty prefix
// accepts any type; otherwise prefix must match the leading bytes of
// candidate's 6-byte tag.
func isTargetTypeAccepted(prefix []byte, candidate typetag.Tag) bool {
	if len(prefix) == 0 {
		return true
	}
	full := candidate.Bytes()
	if len(prefix) > len(full) {
		return false
	}
	return bytes.Equal(prefix, full[:len(prefix)])
}
