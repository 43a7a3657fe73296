package core

import "time"

// PayloadSize is the number of random bytes in a challenge payload.
// 64 bytes is far beyond the guessing margin any downstream signature
// scheme needs.
const PayloadSize = 64

// Challenge is a one-time random value the server issues and a client
// must sign to prove key possession.
type Challenge struct {
	ID         string     // Unique identifier for the challenge
	Subject    string     // Optional account the challenge was issued for
	Payload    []byte     // Random bytes to be signed
	CreatedAt  time.Time  // When the challenge was created
	ExpiresAt  time.Time  // When the challenge expires
	ConsumedAt *time.Time // Set exactly once, by a successful verification
}

// Usable reports whether the challenge can still be verified: it must
// not be expired and must not have been consumed.
func (c *Challenge) Usable(now time.Time) bool {
	return c.ConsumedAt == nil && now.Before(c.ExpiresAt)
}

// Expired reports whether the challenge is past its expiry.
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Session represents the authenticated session minted after a
// successful verification. It is handed to the external identity
// service as a bearer token; refresh and rotation happen there.
type Session struct {
	ID        string         // Unique session identifier
	Subject   string         // Account name or chain address that proved key possession
	Method    RecoveryMethod // Which proof-of-possession method succeeded
	IssuedAt  time.Time
	ExpiresAt time.Time
}
