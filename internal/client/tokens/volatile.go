package tokens

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Volatile is the in-memory session token holder. Safe for concurrent use;
// a Set is visible to every subsequent Get in the process.
type Volatile struct {
	mu    sync.RWMutex
	token string
}

func NewVolatile() *Volatile {
	return &Volatile{}
}

// Set overwrites the current session token.
func (v *Volatile) Set(token string) {
	v.mu.Lock()
	v.token = token
	v.mu.Unlock()
}

// Get returns the current session token or "" when none was set.
func (v *Volatile) Get() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.token
}

// Clear drops the session token.
func (v *Volatile) Clear() {
	v.Set("")
}

// ExpiresAt reports the exp claim of a JWT-shaped token without verifying it.
// Opaque tokens, and JWTs without exp, yield the zero time. The result is
// informational only; expiry is enforced by the server rejecting a call.
func ExpiresAt(token string) time.Time {
	if token == "" {
		return time.Time{}
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
