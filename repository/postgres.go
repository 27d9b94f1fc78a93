package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	goerrors "github.com/goliatone/go-errors"

	"github.com/hirableedge/go-auth"
)

const userColumns = `id, email, password_hash, user_role, is_active, is_verified,
	profile, skills, goals, progress, last_login, created_at, updated_at`

// PostgresUsers is a UserStore over a pgx pool
type PostgresUsers struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ auth.UserStore = (*PostgresUsers)(nil)

// NewPostgresUsers returns a store using pool
func NewPostgresUsers(pool *pgxpool.Pool) *PostgresUsers {
	return &PostgresUsers{pool: pool, now: time.Now}
}

// Migrate applies the embedded schema scripts. They are idempotent.
func (r *PostgresUsers) Migrate(ctx context.Context) error {
	scripts, err := auth.UpMigrations()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read migrations")
	}

	for _, script := range scripts {
		if _, err := r.pool.Exec(ctx, script); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply migration")
		}
	}
	return nil
}

func (r *PostgresUsers) FindByIdentity(ctx context.Context, identity string) (*auth.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL LIMIT 1`

	user := &auth.User{}
	err := r.pool.QueryRow(ctx, query, auth.NormalizeIdentity(identity)).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.IsVerified,
		&user.Profile,
		&user.Skills,
		&user.Goals,
		&user.Progress,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, mapPgError(err, "failed to find user")
	}

	return user, nil
}

func (r *PostgresUsers) Insert(ctx context.Context, user *auth.User) (uuid.UUID, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = auth.NormalizeIdentity(user.Email)
	if user.Role == "" {
		user.Role = auth.RoleStudent
	}
	now := r.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.IsVerified,
		user.Profile,
		user.Skills,
		user.Goals,
		user.Progress,
		user.LastLogin,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return uuid.Nil, mapPgError(err, "failed to insert user")
	}

	return user.ID, nil
}

func (r *PostgresUsers) UpdateFields(ctx context.Context, id uuid.UUID, patch auth.UserPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	sets, args := buildUserPatch(patch, r.now().UTC())
	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d AND deleted_at IS NULL`,
		strings.Join(sets, ", "),
		len(args),
	)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapPgError(err, "failed to update user")
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}

	return nil
}

func buildUserPatch(patch auth.UserPatch, now time.Time) ([]string, []any) {
	var sets []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.LastLogin != nil {
		add("last_login", *patch.LastLogin)
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}
	if patch.IsVerified != nil {
		add("is_verified", *patch.IsVerified)
	}
	if patch.Role != nil {
		add("user_role", *patch.Role)
	}
	if patch.Profile != nil {
		add("profile", *patch.Profile)
	}
	if patch.Skills != nil {
		add("skills", *patch.Skills)
	}
	if patch.Goals != nil {
		add("goals", *patch.Goals)
	}
	add("updated_at", now)

	return sets, args
}

// mapPgError turns unique violations into ErrIdentityAlreadyExists and
// wraps everything else as an internal store failure.
func mapPgError(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return auth.ErrIdentityAlreadyExists
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, msg).
		WithTextCode(auth.TextCodeStoreFailure)
}
