package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the bun backed UserStore
type Users interface {
	UserStore
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByIdentityTx(ctx context.Context, tx bun.IDB, identity string) (*User, error)
	InsertTx(ctx context.Context, tx bun.IDB, user *User) (uuid.UUID, error)
	UpdateFieldsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, patch UserPatch) error
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	CreateSchema(ctx context.Context) error
}

type users struct {
	repository.Repository[*User]
	db  *bun.DB
	now func() time.Time
}

var _ Users = (*users)(nil)

// NewUsersRepository returns a store over db
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
}

// CreateSchema creates the users table when it is missing
func (a *users) CreateSchema(ctx context.Context) error {
	_, err := a.db.NewCreateTable().
		Model((*User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create users table")
	}
	return nil
}

func (a *users) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return a.db.RunInTx(ctx, opts, f)
}

func (a *users) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record, err := a.Repository.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapLookupError(err, "failed to find user")
	}
	return record, nil
}

func (a *users) FindByIdentity(ctx context.Context, identity string) (*User, error) {
	return a.FindByIdentityTx(ctx, a.db, identity)
}

func (a *users) FindByIdentityTx(ctx context.Context, tx bun.IDB, identity string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeIdentity(identity)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapLookupError(err, "failed to find user")
	}

	return record, nil
}

func (a *users) Insert(ctx context.Context, user *User) (uuid.UUID, error) {
	return a.InsertTx(ctx, a.db, user)
}

func (a *users) InsertTx(ctx context.Context, tx bun.IDB, user *User) (uuid.UUID, error) {
	prepareUserDefaults(user, a.now())

	if _, err := a.Repository.CreateTx(ctx, tx, user); err != nil {
		if isConflict(err) {
			return uuid.Nil, ErrIdentityAlreadyExists
		}
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert user").
			WithTextCode(TextCodeStoreFailure)
	}

	return user.ID, nil
}

func (a *users) UpdateFields(ctx context.Context, id uuid.UUID, patch UserPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	return a.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return a.UpdateFieldsTx(ctx, tx, id, patch)
	})
}

// UpdateFieldsTx writes only the columns named by patch
func (a *users) UpdateFieldsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, patch UserPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	exists, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id).
		Exists(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to find user").
			WithTextCode(TextCodeStoreFailure)
	}
	if !exists {
		return ErrUserNotFound
	}

	record := &User{ID: id}
	patch.Apply(record, a.now())

	columns := patch.Columns()
	_, err = a.Repository.UpdateTx(ctx, tx, record,
		repository.UpdateByID(id.String()),
		func(q *bun.UpdateQuery) *bun.UpdateQuery {
			return q.Column(columns...)
		},
	)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrUserNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user").
			WithTextCode(TextCodeStoreFailure)
	}

	return nil
}

func mapLookupError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
		return ErrUserNotFound
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithTextCode(TextCodeStoreFailure)
}

// isConflict covers raw driver errors and ones already mapped by the
// repository layer
func isConflict(err error) bool {
	if IsIdentityAlreadyExists(err) || IsDuplicateKeyError(err) {
		return true
	}
	var richErr *goerrors.Error
	return goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryConflict
}

func prepareUserDefaults(user *User, now time.Time) {
	if user == nil {
		return
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = NormalizeIdentity(user.Email)
	if user.Role == "" {
		user.Role = RoleStudent
	}
	if user.Progress.Level == 0 {
		user.Progress.Level = 1
	}
	if user.Progress.BadgesEarned == nil {
		user.Progress.BadgesEarned = []string{}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
}
