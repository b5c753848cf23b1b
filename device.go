package authcore

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintHexLen is the fixed prefix length of the hex digest kept as the
// device fingerprint. 32 hex characters preserve 128 bits of the hash.
const fingerprintHexLen = 32

// Fingerprint derives a stable device fingerprint from client-reported
// signals. The same DeviceInfo always yields the same fingerprint, so a
// browser that logs in twice occupies one device slot, not two.
//
// Each field is trimmed and lowercased before hashing so cosmetic variation
// in the reported values does not split a device across slots. The IP
// address deliberately does not participate: mobile clients change networks
// without changing device.
func Fingerprint(d DeviceInfo) string {
	var b strings.Builder
	for i, part := range []string{d.UserAgent, d.Platform, d.Locale, d.Resolution, d.Timezone} {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.ToLower(strings.TrimSpace(part)))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:fingerprintHexLen]
}
