// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/lingopal/lingopal/internal/auth"
	"github.com/lingopal/lingopal/internal/store"
)

// Unique index names from the users migration.
const (
	usernameIndex = "users_username_lower_key"
	emailIndex    = "users_email_lower_key"
)

const userColumns = `id, username, email, password_hash, role, verified,
	verification_token_hash, verification_expires_at, reset_token_hash, reset_expires_at,
	profile_picture_path, fluent_languages, learning_languages, contacts, blocked_users,
	created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool store.Pool
	now  func() time.Time
}

// UserOption configures a UserRepository.
type UserOption func(*UserRepository)

// WithClock sets the clock used for updated_at stamps. Defaults to time.Now.
func WithClock(now func() time.Time) UserOption {
	return func(r *UserRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool store.Pool, opts ...UserOption) *UserRepository {
	r := &UserRepository{pool: pool, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		user.ID.String(),
		user.Username,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.Verified,
		user.VerificationTokenHash,
		user.VerificationExpiresAt,
		user.ResetTokenHash,
		user.ResetExpiresAt,
		user.ProfilePicturePath,
		nonNil(user.FluentLanguages),
		nonNil(user.LearningLanguages),
		nonNil(user.Contacts),
		nonNil(user.BlockedUsers),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch pgErr.ConstraintName {
		case emailIndex:
			return oops.Code("USER_DUPLICATE_EMAIL").With("email", user.Email).Wrap(auth.ErrDuplicateEmail)
		case usernameIndex:
			return oops.Code("USER_DUPLICATE_USERNAME").With("username", user.Username).Wrap(auth.ErrDuplicateUsername)
		}
	}
	return oops.Code("USER_CREATE_FAILED").
		With("operation", "insert user").
		With("username", user.Username).
		Wrap(err)
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	return r.getOne(ctx, "id", id.String(), `SELECT `+userColumns+` FROM users WHERE id = $1`)
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getOne(ctx, "email", email, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`)
}

// GetByUsername retrieves a user by username (case-insensitive).
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	return r.getOne(ctx, "username", username, `SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`)
}

// GetByVerificationTokenHash retrieves the user holding the verification token hash.
func (r *UserRepository) GetByVerificationTokenHash(ctx context.Context, tokenHash string) (*auth.User, error) {
	return r.getOne(ctx, "verification_token_hash", tokenHash,
		`SELECT `+userColumns+` FROM users WHERE verification_token_hash = $1`)
}

// GetByResetTokenHash retrieves the user holding the reset token hash.
func (r *UserRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*auth.User, error) {
	return r.getOne(ctx, "reset_token_hash", tokenHash,
		`SELECT `+userColumns+` FROM users WHERE reset_token_hash = $1`)
}

// List returns every user ordered by username.
func (r *UserRepository) List(ctx context.Context) ([]*auth.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY LOWER(username)`)
	if err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "list users").Wrap(err)
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_LIST_FAILED").With("operation", "scan user row").Wrap(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "iterate users").Wrap(err)
	}
	return users, nil
}

// MarkVerified sets the verified flag and clears the verification token.
func (r *UserRepository) MarkVerified(ctx context.Context, id ulid.ULID, at time.Time) error {
	return r.exec(ctx, "mark verified", id, `
		UPDATE users SET
			verified = TRUE,
			verification_token_hash = NULL,
			verification_expires_at = NULL,
			updated_at = $2
		WHERE id = $1
	`, id.String(), at)
}

// SetResetToken stores a reset token hash, replacing any previous one.
func (r *UserRepository) SetResetToken(ctx context.Context, id ulid.ULID, tokenHash string, expiresAt time.Time) error {
	return r.exec(ctx, "set reset token", id, `
		UPDATE users SET reset_token_hash = $2, reset_expires_at = $3, updated_at = $4
		WHERE id = $1
	`, id.String(), tokenHash, expiresAt, r.now())
}

// RedeemResetToken swaps the password hash and clears the reset token in a
// single conditional UPDATE, so concurrent redemptions of one token cannot
// both succeed.
func (r *UserRepository) RedeemResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (ulid.ULID, error) {
	var idStr string
	err := r.pool.QueryRow(ctx, `
		UPDATE users SET
			password_hash = $2,
			reset_token_hash = NULL,
			reset_expires_at = NULL,
			updated_at = $3
		WHERE reset_token_hash = $1 AND reset_expires_at >= $3
		RETURNING id
	`, tokenHash, passwordHash, now).Scan(&idStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return ulid.ULID{}, oops.Code("USER_NOT_FOUND").
			With("field", "reset_token_hash").
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return ulid.ULID{}, oops.Code("USER_RESET_REDEEM_FAILED").
			With("operation", "redeem reset token").
			Wrap(err)
	}
	id, err := ulid.Parse(idStr)
	if err != nil {
		return ulid.ULID{}, oops.Code("USER_RESET_REDEEM_FAILED").
			With("operation", "parse user id").
			Wrap(err)
	}
	return id, nil
}

// UpdatePasswordHash replaces only the password hash.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return r.exec(ctx, "update password hash", id,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id.String(), passwordHash, r.now())
}

// UpdateProfile applies the non-nil fields of update. COALESCE keeps the
// stored value for fields passed as NULL.
func (r *UserRepository) UpdateProfile(ctx context.Context, id ulid.ULID, update auth.ProfileUpdate) error {
	var fluent, learning []string
	if update.FluentLanguages != nil {
		fluent = nonNil(*update.FluentLanguages)
	}
	if update.LearningLanguages != nil {
		learning = nonNil(*update.LearningLanguages)
	}
	at := update.UpdatedAt
	if at.IsZero() {
		at = r.now()
	}
	return r.exec(ctx, "update profile", id, `
		UPDATE users SET
			profile_picture_path = COALESCE($2, profile_picture_path),
			fluent_languages = COALESCE($3, fluent_languages),
			learning_languages = COALESCE($4, learning_languages),
			updated_at = $5
		WHERE id = $1
	`, id.String(), update.ProfilePicturePath, fluent, learning, at)
}

// AddContact appends target to the user's contacts unless already present.
func (r *UserRepository) AddContact(ctx context.Context, id ulid.ULID, target string) error {
	return r.exec(ctx, "add contact", id, `
		UPDATE users SET
			contacts = CASE WHEN LOWER($2) = ANY (SELECT LOWER(c) FROM unnest(contacts) AS c)
				THEN contacts ELSE array_append(contacts, $2) END,
			updated_at = $3
		WHERE id = $1
	`, id.String(), target, r.now())
}

// RemoveContact drops target from the user's contacts.
func (r *UserRepository) RemoveContact(ctx context.Context, id ulid.ULID, target string) error {
	return r.exec(ctx, "remove contact", id, `
		UPDATE users SET
			contacts = ARRAY(SELECT c FROM unnest(contacts) AS c WHERE LOWER(c) <> LOWER($2)),
			updated_at = $3
		WHERE id = $1
	`, id.String(), target, r.now())
}

// Block adds target to the blocked set and drops it from contacts in one statement.
func (r *UserRepository) Block(ctx context.Context, id ulid.ULID, target string) error {
	return r.exec(ctx, "block user", id, `
		UPDATE users SET
			blocked_users = CASE WHEN LOWER($2) = ANY (SELECT LOWER(b) FROM unnest(blocked_users) AS b)
				THEN blocked_users ELSE array_append(blocked_users, $2) END,
			contacts = ARRAY(SELECT c FROM unnest(contacts) AS c WHERE LOWER(c) <> LOWER($2)),
			updated_at = $3
		WHERE id = $1
	`, id.String(), target, r.now())
}

// Unblock drops target from the blocked set.
func (r *UserRepository) Unblock(ctx context.Context, id ulid.ULID, target string) error {
	return r.exec(ctx, "unblock user", id, `
		UPDATE users SET
			blocked_users = ARRAY(SELECT b FROM unnest(blocked_users) AS b WHERE LOWER(b) <> LOWER($2)),
			updated_at = $3
		WHERE id = $1
	`, id.String(), target, r.now())
}

func (r *UserRepository) getOne(ctx context.Context, field, value, query string) (*auth.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, value))
	if errors.Is(err, pgx.ErrNoRows) {
		b := oops.Code("USER_NOT_FOUND").With("field", field)
		if field == "id" || field == "username" || field == "email" {
			b = b.With("value", value)
		}
		return nil, b.Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by "+field).
			Wrap(err)
	}
	return user, nil
}

// exec runs a single-row UPDATE and maps zero affected rows to ErrNotFound.
func (r *UserRepository) exec(ctx context.Context, operation string, id ulid.ULID, query string, args ...any) error {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", operation).
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans one row in userColumns order. Callers handle pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		user  auth.User
		idStr string
		role  string
	)
	err := row.Scan(
		&idStr,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.Verified,
		&user.VerificationTokenHash,
		&user.VerificationExpiresAt,
		&user.ResetTokenHash,
		&user.ResetExpiresAt,
		&user.ProfilePicturePath,
		&user.FluentLanguages,
		&user.LearningLanguages,
		&user.Contacts,
		&user.BlockedUsers,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse user id").With("id", idStr).Wrap(err)
	}
	user.Role = auth.Role(role)
	user.FluentLanguages = nonNil(user.FluentLanguages)
	user.LearningLanguages = nonNil(user.LearningLanguages)
	user.Contacts = nonNil(user.Contacts)
	user.BlockedUsers = nonNil(user.BlockedUsers)
	return &user, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ auth.UserRepository = (*UserRepository)(nil)
