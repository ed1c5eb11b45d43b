// Package token issues the single-use capability tokens that gate the
// accept-loan and document-upload actions. A token is an opaque random
// string with no embedded structure or expiry; whether it is usable is
// decided entirely by the owning application's current workflow fields.
package token

import (
	"crypto/rand"
	"encoding/hex"
)

// Size is the number of random bytes behind each token.
const Size = 32

// New returns a fresh unguessable token. Tokens are never reused: minting
// a replacement silently orphans the previous value, and verification only
// ever matches the value currently stored on the application.
func New() string {
	var b [Size]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing means the process cannot operate safely.
		panic("token: entropy source unavailable: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}
