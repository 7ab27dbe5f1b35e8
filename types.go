package goGate

import (
	"context"
	"time"
)

// UserRecord is the account record returned by [UserDirectory]. It carries
// the opaque identifier, the login identities, and the stored password hash.
type UserRecord struct {
	ID             string
	Username       string
	Email          string
	HashedPassword string
	FullName       string
	Company        string
	CreatedAt      time.Time
}

// UserDirectory is the interface callers must implement to integrate goGate
// with their user database. Lookups are case-sensitive exact matches; a
// missing record is reported as (zero, false, nil), not as an error.
//
// Errors returned from the directory are treated as opaque infrastructure
// failures and propagated outside the engine's recoverable taxonomy.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (UserRecord, bool, error)
	FindByEmail(ctx context.Context, email string) (UserRecord, bool, error)
	FindByID(ctx context.Context, id string) (UserRecord, bool, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdateUser(ctx context.Context, id string, input UpdateUserInput) (UserRecord, bool, error)
}

// CreateUserInput is the input for [UserDirectory.CreateUser]. The password
// arrives pre-hashed; directories never see plaintext.
type CreateUserInput struct {
	Username       string
	Email          string
	HashedPassword string
	FullName       string
	Company        string
}

// UpdateUserInput is the input for [UserDirectory.UpdateUser]. Nil fields
// are left unchanged; the password, when present, arrives pre-hashed. A
// missing record is reported as (zero, false, nil).
type UpdateUserInput struct {
	FullName       *string
	Company        *string
	HashedPassword *string
}

// APIKeyRecord is an API key row owned by the persistence layer. The engine
// treats it as read/verify/increment-usage only.
type APIKeyRecord struct {
	ID        string
	UserID    string
	Key       string
	Usage     int64
	Disabled  bool
	CreatedAt time.Time
}

// KeyStore is the persistence contract for API key records. A missing key is
// reported as (zero, false, nil).
type KeyStore interface {
	GetByKey(ctx context.Context, key string) (APIKeyRecord, bool, error)
	Create(ctx context.Context, record APIKeyRecord) error
	ListByUser(ctx context.Context, userID string) ([]APIKeyRecord, error)
	IncrementUsage(ctx context.Context, keyID string) error
}

// TokenPair bundles the access and refresh tokens returned by
// [Engine.Authorize] and [Engine.Refresh].
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// CreateAccountRequest is the input for [Engine.CreateAccount]. Username,
// Email, and Password are required; FullName and Company are optional.
type CreateAccountRequest struct {
	Username string
	Email    string
	Password string
	FullName string
	Company  string
}

// UpdateAccountRequest is the input for [Engine.UpdateAccount]. Nil fields
// are left unchanged; Password, when present, is re-hashed before storage.
type UpdateAccountRequest struct {
	FullName *string
	Company  *string
	Password *string
}

// PredictionResult is returned by [Engine.Predict].
type PredictionResult struct {
	Prediction float64
	Text       string
	Language   string
}

// PasswordSpec controls [Engine.GeneratePassword] output. Length must be
// between 6 and 32; at least one character class must be included.
type PasswordSpec struct {
	Length           int
	IncludeUppercase bool
	IncludeLowercase bool
	IncludeDigits    bool
	IncludeSpecial   bool
	ExcludeSimilar   bool
	ExcludeAmbiguous bool
}
