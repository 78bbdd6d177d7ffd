package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
	"github.com/ndk123-web/backend-structure/internal/repository"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *CredentialRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewCredentialRepository(mock)
}

func identityRows(refreshToken *string) *pgxmock.Rows {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cover := "https://cdn.example.com/cover.png"
	return pgxmock.NewRows(identityColumns).AddRow(
		"u1", "alice", "alice@example.com", "Alice A", "https://cdn.example.com/a.png", &cover,
		"$2a$10$hash", domain.PasswordAlgoBcrypt, refreshToken, created, created,
	)
}

func TestCredentialRepository_FindByID(t *testing.T) {
	mock, repo := newMockRepo(t)
	token := "R1"

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(identityRows(&token))

	identity, err := repo.FindByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if identity.Username != "alice" || identity.CoverImage == "" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if identity.RefreshToken == nil || *identity.RefreshToken != "R1" {
		t.Fatalf("expected refresh token to be populated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCredentialRepository_FindByIdentifierLowercases(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(`SELECT .* FROM users WHERE \(lower\(username\) = \$1 OR lower\(email\) = \$2\) LIMIT 1`).
		WithArgs("alice", "alice").
		WillReturnRows(identityRows(nil))

	identity, err := repo.FindByIdentifier(context.Background(), "  Alice ")
	if err != nil {
		t.Fatalf("FindByIdentifier returned error: %v", err)
	}
	if identity.RefreshToken != nil {
		t.Fatalf("expected nil refresh token")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCredentialRepository_FindByIDNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(`SELECT .* FROM users`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(identityColumns))

	if _, err := repo.FindByID(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCredentialRepository_CompareAndSetSwaps(t *testing.T) {
	mock, repo := newMockRepo(t)
	expected, next := "R1", "R2"

	mock.ExpectExec(`UPDATE users SET refresh_token = \$1, updated_at = now\(\) WHERE id = \$2 AND refresh_token IS NOT DISTINCT FROM \$3::text`).
		WithArgs("R2", "u1", "R1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	swapped, err := repo.CompareAndSetRefreshToken(context.Background(), "u1", &expected, &next)
	if err != nil {
		t.Fatalf("CompareAndSetRefreshToken returned error: %v", err)
	}
	if !swapped {
		t.Fatal("expected swap to succeed")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCredentialRepository_CompareAndSetLostRace(t *testing.T) {
	mock, repo := newMockRepo(t)
	expected, next, current := "R1", "R2", "R-other"

	mock.ExpectExec(`UPDATE users SET refresh_token`).
		WithArgs("R2", "u1", "R1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(identityRows(&current))

	swapped, err := repo.CompareAndSetRefreshToken(context.Background(), "u1", &expected, &next)
	if err != nil {
		t.Fatalf("CompareAndSetRefreshToken returned error: %v", err)
	}
	if swapped {
		t.Fatal("expected swap to be rejected")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCredentialRepository_CompareAndSetUnknownIdentity(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectExec(`UPDATE users SET refresh_token`).
		WithArgs(nil, "ghost", nil).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT .* FROM users`).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows(identityColumns))

	if _, err := repo.CompareAndSetRefreshToken(context.Background(), "ghost", nil, nil); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCredentialRepository_SetRefreshTokenClears(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectExec(`UPDATE users SET refresh_token = \$1, updated_at = now\(\) WHERE id = \$2`).
		WithArgs(nil, "u1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET refresh_token`).
		WithArgs(nil, "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.SetRefreshToken(context.Background(), "u1", nil); err != nil {
		t.Fatalf("SetRefreshToken returned error: %v", err)
	}
	if err := repo.SetRefreshToken(context.Background(), "ghost", nil); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown identity, got %v", err)
	}
}

func TestCredentialRepository_SetPasswordHash(t *testing.T) {
	mock, repo := newMockRepo(t)
	changedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE users SET password_hash = \$1, password_algo = \$2, updated_at = \$3 WHERE id = \$4`).
		WithArgs("new-hash", domain.PasswordAlgoArgon2id, changedAt, "u1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.SetPasswordHash(context.Background(), "u1", "new-hash", domain.PasswordAlgoArgon2id, changedAt); err != nil {
		t.Fatalf("SetPasswordHash returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCredentialRepository_CreateConflict(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	err := repo.Create(context.Background(), domain.Identity{ID: "u1", Username: "Alice", Email: "alice@example.com"})
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCredentialRepository_TimeoutIsUnavailable(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(`SELECT .* FROM users`).
		WithArgs("u1").
		WillReturnError(context.DeadlineExceeded)

	if _, err := repo.FindByID(context.Background(), "u1"); !errors.Is(err, repository.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
