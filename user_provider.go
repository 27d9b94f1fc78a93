package auth

import (
	"context"
)

// UserProvider checks an identity and password against the store. It never
// mutates records.
type UserProvider struct {
	store  UserStore
	hasher PasswordHasher
	decoy  *decoyDigest
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	u := &UserProvider{
		store:  store,
		logger: defLogger,
	}
	return u.WithHasher(defaultHasher)
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = normalizeLogger(l)
	return u
}

// WithHasher replaces the password hasher. The decoy digest used for
// unknown identities is generated with the same hasher so both paths pay
// the same cost.
func (u *UserProvider) WithHasher(h PasswordHasher) *UserProvider {
	if h == nil {
		h = defaultHasher
	}
	u.hasher = h
	u.decoy = &decoyDigest{hasher: h}
	return u
}

// Authenticate looks up identity and verifies password. Unknown identity,
// wrong password and disabled accounts all return (nil, false, nil); only
// store failures produce an error.
func (u *UserProvider) Authenticate(ctx context.Context, identity, password string) (*User, bool, error) {
	user, err := u.store.FindByIdentity(ctx, NormalizeIdentity(identity))
	if err != nil {
		if IsNotFound(err) {
			u.hasher.Verify(password, u.decoy.get())
			return nil, false, nil
		}
		return nil, false, err
	}

	if user == nil {
		u.hasher.Verify(password, u.decoy.get())
		return nil, false, nil
	}

	if !u.hasher.Verify(password, user.PasswordHash) {
		return nil, false, nil
	}

	if !user.CanAuthenticate() {
		u.logger.Debug("authenticate rejected disabled account", "user_id", user.ID.String())
		return nil, false, nil
	}

	return user, true, nil
}
