// Package identity derives a pseudonymous guest identity from a connection's
// request metadata. The identity is used only for rate limiting and edit
// attribution; nothing is ever persisted about the guest beyond the derived
// string itself.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// digestLen is the number of hex characters kept from the fingerprint hash.
// Collisions are accepted: two guests with identical fingerprints share a
// rate-limit bucket.
const digestLen = 10

// Fingerprint is the canonical set of connection attributes a guest identity
// is derived from. Absent headers are empty strings, so "no headers" is
// still a valid, stable fingerprint.
type Fingerprint struct {
	UserAgent      string `json:"userAgent"`
	IP             string `json:"ip"`
	Accept         string `json:"accept"`
	AcceptEncoding string `json:"acceptEncoding"`
	AcceptLanguage string `json:"acceptLanguage"`
	Connection     string `json:"connection"`
}

// FromRequest builds a Fingerprint from the request's address and headers.
func FromRequest(r *http.Request) Fingerprint {
	return Fingerprint{
		UserAgent:      r.Header.Get("User-Agent"),
		IP:             ClientIP(r),
		Accept:         r.Header.Get("Accept"),
		AcceptEncoding: r.Header.Get("Accept-Encoding"),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		Connection:     r.Header.Get("Connection"),
	}
}

// Guest returns the pseudonymous identity string for the fingerprint,
// "Guest#" followed by the first 10 hex characters of the SHA-256 digest of
// the fingerprint's canonical JSON serialization. Deterministic for
// identical input.
func (f Fingerprint) Guest() string {
	// encoding/json serializes struct fields in declaration order, which is
	// the canonical order here.
	raw, err := json.Marshal(f)
	if err != nil {
		// Marshalling a struct of strings cannot fail.
		panic("identity: marshal fingerprint: " + err.Error())
	}
	sum := sha256.Sum256(raw)
	return "Guest#" + hex.EncodeToString(sum[:])[:digestLen]
}

// ClientIP returns the client address for a request, preferring
// CF-Connecting-IP, then the first X-Forwarded-For entry, then the
// RemoteAddr host.
func ClientIP(r *http.Request) string {
	if cf := r.Header.Get("CF-Connecting-IP"); cf != "" {
		return strings.TrimSpace(cf)
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
