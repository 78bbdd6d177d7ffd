package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
	"github.com/ndk123-web/backend-structure/internal/core/port"
	"github.com/ndk123-web/backend-structure/internal/repository"
)

const usersTable = "users"

var identityColumns = []string{
	"id",
	"username",
	"email",
	"full_name",
	"avatar",
	"cover_image",
	"password_hash",
	"password_algo",
	"refresh_token",
	"created_at",
	"updated_at",
}

// CredentialRepository implements port.CredentialStore using PostgreSQL.
type CredentialRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

var _ port.CredentialStore = (*CredentialRepository)(nil)

// NewCredentialRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewCredentialRepository(exec pgExecutor) *CredentialRepository {
	return &CredentialRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *CredentialRepository) WithTx(tx pgx.Tx) *CredentialRepository {
	if tx == nil {
		return r
	}
	return &CredentialRepository{exec: tx, builder: r.builder}
}

// Create inserts a new identity row. Unique violations on username or email
// surface as repository.ErrConflict.
func (r *CredentialRepository) Create(ctx context.Context, identity domain.Identity) error {
	stmt, args, err := r.builder.Insert(usersTable).
		Columns(identityColumns...).
		Values(
			identity.ID,
			strings.ToLower(identity.Username),
			identity.Email,
			identity.FullName,
			identity.Avatar,
			optionalString(&identity.CoverImage),
			identity.PasswordHash,
			identity.PasswordAlgo,
			optionalString(identity.RefreshToken),
			identity.CreatedAt,
			identity.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert identity sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return translateError("insert identity", err)
	}
	return nil
}

// FindByIdentifier matches lower(username) or lower(email).
func (r *CredentialRepository) FindByIdentifier(ctx context.Context, usernameOrEmail string) (*domain.Identity, error) {
	needle := strings.ToLower(strings.TrimSpace(usernameOrEmail))
	stmt, args, err := r.builder.
		Select(identityColumns...).
		From(usersTable).
		Where(squirrel.Or{
			squirrel.Expr("lower(username) = ?", needle),
			squirrel.Expr("lower(email) = ?", needle),
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select identity by identifier sql: %w", err)
	}

	return scanIdentity(r.exec.QueryRow(ctx, stmt, args...), "select identity by identifier")
}

// FindByID retrieves an identity by primary key.
func (r *CredentialRepository) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	stmt, args, err := r.builder.
		Select(identityColumns...).
		From(usersTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select identity sql: %w", err)
	}

	return scanIdentity(r.exec.QueryRow(ctx, stmt, args...), "select identity")
}

// CompareAndSetRefreshToken runs a single conditional UPDATE; the row lock
// taken by Postgres serialises concurrent rotations of one identity.
func (r *CredentialRepository) CompareAndSetRefreshToken(ctx context.Context, id string, expected, next *string) (bool, error) {
	stmt, args, err := r.builder.Update(usersTable).
		Set("refresh_token", optionalString(next)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Expr("refresh_token IS NOT DISTINCT FROM ?::text", optionalString(expected))).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build compare-and-set refresh token sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, translateError("compare-and-set refresh token", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Zero rows means either a lost race or an unknown id.
	if _, err := r.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// SetRefreshToken overwrites the stored token unconditionally.
func (r *CredentialRepository) SetRefreshToken(ctx context.Context, id string, value *string) error {
	stmt, args, err := r.builder.Update(usersTable).
		Set("refresh_token", optionalString(value)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set refresh token sql: %w", err)
	}

	return r.execAffectingOne(ctx, "set refresh token", stmt, args)
}

// SetPasswordHash replaces the stored hash and algorithm.
func (r *CredentialRepository) SetPasswordHash(ctx context.Context, id string, passwordHash string, passwordAlgo string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update(usersTable).
		Set("password_hash", passwordHash).
		Set("password_algo", passwordAlgo).
		Set("updated_at", changedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set password hash sql: %w", err)
	}

	return r.execAffectingOne(ctx, "set password hash", stmt, args)
}

func (r *CredentialRepository) execAffectingOne(ctx context.Context, op, stmt string, args []any) error {
	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return translateError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanIdentity(row pgx.Row, op string) (*domain.Identity, error) {
	var (
		identity     domain.Identity
		coverImage   *string
		refreshToken *string
	)
	if err := row.Scan(
		&identity.ID,
		&identity.Username,
		&identity.Email,
		&identity.FullName,
		&identity.Avatar,
		&coverImage,
		&identity.PasswordHash,
		&identity.PasswordAlgo,
		&refreshToken,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	); err != nil {
		return nil, translateError(op, err)
	}

	if coverImage != nil {
		identity.CoverImage = *coverImage
	}
	identity.RefreshToken = refreshToken
	return &identity, nil
}
