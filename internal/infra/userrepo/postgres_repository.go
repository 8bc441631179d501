package userrepo

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yanqian/malina-auth/internal/domain/auth"
)

//go:embed migrations/001_users.sql
var migrationSQL string

const (
	usernameConstraint = "users_username_key"
	identityColumns    = "id::text, username, email, password_hash, verified_email, verified_phone, created_at, updated_at"
)

// Pool is the subset of pgxpool.Pool the repository needs; pgxmock pools satisfy it too.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository persists identities in Postgres.
type PostgresRepository struct {
	pool Pool
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(pool Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the users table when missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("migrate users table: %w", err)
	}
	return nil
}

// Create inserts a new identity row.
func (r *PostgresRepository) Create(ctx context.Context, fields auth.NewIdentity) (auth.Identity, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, verified_email, verified_phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+identityColumns,
		fields.Username, fields.Email, fields.PasswordHash, fields.VerifiedEmail, fields.VerifiedPhone)
	identity, err := scanIdentity(row)
	if err != nil {
		return auth.Identity{}, mapWriteError(err)
	}
	return identity, nil
}

// FindByEmail fetches an identity by email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (auth.Identity, bool, error) {
	return r.findOne(ctx, `SELECT `+identityColumns+` FROM users WHERE email = $1 LIMIT 1`, email)
}

// FindByUsername fetches an identity by username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (auth.Identity, bool, error) {
	return r.findOne(ctx, `SELECT `+identityColumns+` FROM users WHERE username = $1 LIMIT 1`, username)
}

// FindByID fetches by primary key. Ids that are not UUIDs cannot exist.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (auth.Identity, bool, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return auth.Identity{}, false, nil
	}
	return r.findOne(ctx, `SELECT `+identityColumns+` FROM users WHERE id = $1 LIMIT 1`, parsed.String())
}

// Update applies the non-nil fields of the update.
func (r *PostgresRepository) Update(ctx context.Context, id string, fields auth.IdentityUpdate) (auth.Identity, bool, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return auth.Identity{}, false, nil
	}
	identity, found, err := r.findOne(ctx, `
		UPDATE users SET
			username = COALESCE($2, username),
			email = COALESCE($3, email),
			password_hash = COALESCE($4, password_hash),
			verified_email = COALESCE($5, verified_email),
			verified_phone = COALESCE($6, verified_phone),
			updated_at = now()
		WHERE id = $1
		RETURNING `+identityColumns,
		parsed.String(), fields.Username, fields.Email, fields.PasswordHash, fields.VerifiedEmail, fields.VerifiedPhone)
	if err != nil {
		return auth.Identity{}, false, mapWriteError(err)
	}
	return identity, found, nil
}

// Delete removes the identity row and reports whether it existed.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, parsed.String())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) findOne(ctx context.Context, sql string, args ...any) (auth.Identity, bool, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return auth.Identity{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return auth.Identity{}, false, rows.Err()
	}
	identity, err := scanIdentity(rows)
	if err != nil {
		return auth.Identity{}, false, err
	}
	return identity, true, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (auth.Identity, error) {
	var identity auth.Identity
	var created, updated time.Time
	if err := row.Scan(
		&identity.ID,
		&identity.Username,
		&identity.Email,
		&identity.PasswordHash,
		&identity.VerifiedEmail,
		&identity.VerifiedPhone,
		&created,
		&updated,
	); err != nil {
		return auth.Identity{}, err
	}
	identity.CreatedAt = created.UTC()
	identity.UpdatedAt = updated.UTC()
	return identity, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		if pgErr.ConstraintName == usernameConstraint {
			return fmt.Errorf("%w: %s", auth.ErrUsernameExists, pgErr.Detail)
		}
		return fmt.Errorf("%w: %s", auth.ErrEmailExists, pgErr.Detail)
	}
	return err
}

var _ auth.CredentialStore = (*PostgresRepository)(nil)
