package entitlement

import (
	"encoding/hex"
	"net"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	// AnonymousKey is used when a request carries no usable identity.
	AnonymousKey = "anon"

	KeyPrefixLicense  = "lic:"
	KeyPrefixInstance = "cid:"
	KeyPrefixAddress  = "ip:"

	maxInstanceIDLen = 64
	digestLen        = 32
)

// ClientMetadata is the identity-bearing part of an inbound request.
type ClientMetadata struct {
	ForwardedFor string // X-Forwarded-For chain, first entry is the client
	PeerAddress  string // direct peer, host or host:port
	InstanceID   string // client generated install id
	LicenseToken string // only set when the token is a valid license
}

// KeyDeriver computes ClientKeys. It is safe for concurrent use.
//
// Precedence is license, then instance id, then network address. The instance
// id is trusted as the primary discriminator even though a caller can mint new
// ids at will; address keying is only used when no id is sent.
type KeyDeriver struct {
	hash bool
	salt []byte
}

// NewKeyDeriver returns a deriver. When hashKeys is set, identities are
// replaced by a keyed BLAKE2b digest so raw addresses and licenses never reach
// the store.
func NewKeyDeriver(hashKeys bool, salt string) *KeyDeriver {
	s := []byte(salt)
	if len(s) > blake2b.Size {
		sum := blake2b.Sum256(s)
		s = sum[:]
	}
	return &KeyDeriver{hash: hashKeys, salt: s}
}

// Derive returns the ClientKey for meta. It never fails.
func (d *KeyDeriver) Derive(meta ClientMetadata) string {
	if lic := strings.TrimSpace(meta.LicenseToken); lic != "" {
		return KeyPrefixLicense + d.digest("lic|"+lic, sanitizeID(lic))
	}
	if id := sanitizeID(meta.InstanceID); id != "" {
		return KeyPrefixInstance + d.digest("cid|"+id, id)
	}
	if addr := resolveAddress(meta.ForwardedFor, meta.PeerAddress); addr != "" {
		return KeyPrefixAddress + d.digest("ip|"+addr, addr)
	}
	return AnonymousKey
}

func (d *KeyDeriver) digest(composite, raw string) string {
	if !d.hash {
		return raw
	}
	// New256 only fails for keys longer than 64 bytes, ruled out above.
	h, err := blake2b.New256(d.salt)
	if err != nil {
		sum := blake2b.Sum256([]byte(composite))
		return hex.EncodeToString(sum[:])[:digestLen]
	}
	h.Write([]byte(composite))
	return hex.EncodeToString(h.Sum(nil))[:digestLen]
}

// sanitizeID keeps [A-Za-z0-9_-] and caps the length.
func sanitizeID(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if b.Len() >= maxInstanceIDLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// resolveAddress picks the first forwarded hop, falling back to the peer.
func resolveAddress(forwardedFor, peer string) string {
	for _, hop := range strings.Split(forwardedFor, ",") {
		if addr := normalizeAddress(hop); addr != "" {
			return addr
		}
	}
	return normalizeAddress(peer)
}

func normalizeAddress(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.Trim(s, "[]")
	if ip := net.ParseIP(s); ip != nil {
		return ip.String()
	}
	// Not an IP literal; keep a bounded, printable form.
	var b strings.Builder
	for _, r := range s {
		if b.Len() >= maxInstanceIDLen {
			break
		}
		if r > ' ' && r < 0x7f {
			b.WriteRune(r)
		}
	}
	return b.String()
}
