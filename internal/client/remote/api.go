package remote

import "context"

// Credentials are the inputs of a password login. Never stored or logged.
type Credentials struct {
	Email             string
	Password          string
	VerificationToken string
}

// Registration are the inputs of an account registration.
type Registration struct {
	UserName string
	Email    string
	Password string
	Code     string
}

// AuthResult is the outcome of a successful credential exchange.
// Profile carries every response field other than the two tokens.
type AuthResult struct {
	Token        string
	RefreshToken string
	Profile      map[string]any
}

// API is the request/response contract of the backend.
type API interface {
	Login(ctx context.Context, creds Credentials) (AuthResult, error)
	Register(ctx context.Context, reg Registration) (AuthResult, error)
	Refresh(ctx context.Context, longTermToken string) (string, error)
	SendResetEmail(ctx context.Context, email, verificationToken string) error
	SendRegisterEmail(ctx context.Context, email, verificationToken string) error
	ResetPassword(ctx context.Context, email, newPassword, code string) error
	Close() error
}
