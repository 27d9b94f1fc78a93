package auth

import (
	"github.com/goliatone/go-errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	TextCodeIdentityExists     = "IDENTITY_ALREADY_EXISTS"
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeUnauthenticated    = "UNAUTHENTICATED"
	TextCodeInvalidToken       = "INVALID_TOKEN"
	TextCodeInvalidTokenTTL    = "INVALID_TOKEN_TTL"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodePasswordTooLong    = "PASSWORD_TOO_LONG"
	TextCodeUserNotFound       = "USER_NOT_FOUND"
	TextCodeDataParseError     = "DATA_PARSE_ERROR"
	TextCodeStoreFailure       = "STORE_FAILURE"
	TextCodeUnsupportedSigning = "UNSUPPORTED_SIGNING_METHOD"
	TextCodeImmutableClaim     = "IMMUTABLE_CLAIM_MUTATION"
)

// ErrIdentityAlreadyExists is returned when registering an email that is taken.
var ErrIdentityAlreadyExists = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeIdentityExists).
	WithCode(errors.CodeBadRequest)

// ErrInvalidCredentials covers both unknown identities and wrong passwords.
var ErrInvalidCredentials = errors.New("incorrect email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthenticated is the only error protected routes surface to callers.
var ErrUnauthenticated = errors.New("could not validate credentials", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidToken is returned by the token service for any parse, signature
// or expiry failure.
var ErrInvalidToken = errors.New("invalid token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidTokenTTL signals a non positive token lifetime
var ErrInvalidTokenTTL = errors.New("token ttl must be a positive duration", errors.CategoryInternal).
	WithTextCode(TextCodeInvalidTokenTTL).
	WithCode(errors.CodeInternal)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrPasswordTooLong is returned for passwords over the bcrypt input limit
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes", errors.CategoryValidation).
	WithTextCode(TextCodePasswordTooLong).
	WithCode(errors.CodeBadRequest)

// ErrUserNotFound is what stores return for absent records
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data", errors.CategoryBadInput).
	WithTextCode(TextCodeDataParseError).
	WithCode(errors.CodeBadRequest)

// IsIdentityAlreadyExists reports a registration conflict
func IsIdentityAlreadyExists(err error) bool {
	return hasTextCode(err, TextCodeIdentityExists)
}

// IsInvalidCredentials reports a failed login
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, TextCodeInvalidCreds)
}

// IsUnauthenticated reports a failed principal resolution
func IsUnauthenticated(err error) bool {
	return hasTextCode(err, TextCodeUnauthenticated)
}

// IsInvalidToken reports a token rejected by the token service
func IsInvalidToken(err error) bool {
	return hasTextCode(err, TextCodeInvalidToken)
}

// IsNotFound reports an absent store record
func IsNotFound(err error) bool {
	return hasTextCode(err, TextCodeUserNotFound)
}

// IsDuplicateKeyError matches unique constraint violations reported by the
// sqlite and postgres drivers
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	return false
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}
