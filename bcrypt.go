package auth

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the bcrypt input limit
const MaxPasswordBytes = 72

// BcryptHasher implements PasswordHasher. Digests use the modular crypt
// format ($2a$<cost>$<salt><hash>) so the algorithm, cost and salt travel
// with the digest.
type BcryptHasher struct {
	cost int
}

// BcryptOption configures the hasher
type BcryptOption func(*BcryptHasher)

// WithCost sets the bcrypt cost, out of range values are ignored
func WithCost(cost int) BcryptOption {
	return func(h *BcryptHasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

// NewBcryptHasher returns a hasher using passwordHashCost unless overridden
func NewBcryptHasher(opts ...BcryptOption) *BcryptHasher {
	h := &BcryptHasher{cost: passwordHashCost()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Cost returns the configured cost
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash will generate a salted password digest
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	d, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	return string(d), err
}

// Verify reports whether password matches digest. Malformed digests never
// match.
func (h *BcryptHasher) Verify(password, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

var defaultHasher = NewBcryptHasher()

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	return defaultHasher.Hash(password)
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if !defaultHasher.Verify(password, hash) {
		return ErrInvalidCredentials
	}
	return nil
}

// RandomPasswordHash is a temporary password
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}

// decoyDigest is compared against when an identity does not exist so the
// not found path spends the same bcrypt time as a wrong password.
type decoyDigest struct {
	once   sync.Once
	digest string
	hasher PasswordHasher
}

func (d *decoyDigest) get() string {
	d.once.Do(func() {
		h, err := d.hasher.Hash(uuid.NewString())
		if err != nil {
			h = RandomPasswordHash()
		}
		d.digest = h
	})
	return d.digest
}
