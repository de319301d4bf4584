package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/project-camp/internal/model"
)

const userColumns = `id, avatar_url, username, email, full_name, password_hash,
 is_email_verified, refresh_token, email_verification_token, email_verification_expiry,
 forgot_password_token, forgot_password_expiry, created_at, updated_at`

// UserRepo provides CRUD access to the users table.  All timestamps are
// stored in UTC; email and username are normalized to lowercase before any
// read or write.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts the user and populates its generated ID and timestamps.
// Duplicate email or username maps to ErrUserExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (avatar_url, username, email, full_name, password_hash, is_email_verified)
		 VALUES (?,?,?,?,?,?)`,
		u.AvatarURL, u.Username, u.Email, u.FullName, u.PasswordHash, u.IsEmailVerified)
	if err != nil {
		// MySQL error 1062 = duplicate entry for a unique key
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrUserExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	created, err := r.GetByID(ctx, u.ID)
	if err != nil {
		return err
	}
	*u = created
	return nil
}

// ExistsByEmailOrUsername reports whether any user claims the given email or
// username.
func (r *UserRepo) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.ToLower(strings.TrimSpace(username))
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email=? OR username=?",
		email, username).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// GetByEmailVerificationToken fetches the user holding the given unexpired
// verification token hash.
func (r *UserRepo) GetByEmailVerificationToken(ctx context.Context, tokenHash string) (model.User, error) {
	return r.getOne(ctx,
		"SELECT "+userColumns+" FROM users WHERE email_verification_token=? AND email_verification_expiry > UTC_TIMESTAMP() LIMIT 1",
		tokenHash)
}

// GetByForgotPasswordToken fetches the user holding the given unexpired
// password reset token hash.
func (r *UserRepo) GetByForgotPasswordToken(ctx context.Context, tokenHash string) (model.User, error) {
	return r.getOne(ctx,
		"SELECT "+userColumns+" FROM users WHERE forgot_password_token=? AND forgot_password_expiry > UTC_TIMESTAMP() LIMIT 1",
		tokenHash)
}

// SetEmailVerificationToken stores a new verification token hash and expiry,
// replacing any previous one.
func (r *UserRepo) SetEmailVerificationToken(ctx context.Context, id uint64, tokenHash string, expiry time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET email_verification_token=?, email_verification_expiry=? WHERE id=?",
		tokenHash, expiry, id)
	return err
}

// MarkEmailVerified flips the verified flag and clears the one-time token
// fields in the same statement, making the token single-use.
func (r *UserRepo) MarkEmailVerified(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_email_verified=1, email_verification_token=NULL, email_verification_expiry=NULL WHERE id=?",
		id)
	return err
}

// StoreRefreshToken overwrites the active refresh token.  Only a single
// session per user is tracked; a second login invalidates the first.
func (r *UserRepo) StoreRefreshToken(ctx context.Context, id uint64, token string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=? WHERE id=?", token, id)
	return err
}

// ClearRefreshToken removes the stored refresh token.  Idempotent.
func (r *UserRepo) ClearRefreshToken(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=NULL WHERE id=?", id)
	return err
}

// SetForgotPasswordToken stores a new reset token hash and expiry.
func (r *UserRepo) SetForgotPasswordToken(ctx context.Context, id uint64, tokenHash string, expiry time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET forgot_password_token=?, forgot_password_expiry=? WHERE id=?",
		tokenHash, expiry, id)
	return err
}

// ResetPassword replaces the password hash and clears the reset token
// fields so the link cannot be used twice.
func (r *UserRepo) ResetPassword(ctx context.Context, id uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, forgot_password_token=NULL, forgot_password_expiry=NULL WHERE id=?",
		passwordHash, id)
	return err
}

func (r *UserRepo) getOne(ctx context.Context, query string, args ...interface{}) (model.User, error) {
	var (
		u            model.User
		fullName     sql.NullString
		refresh      sql.NullString
		verifyToken  sql.NullString
		verifyExpiry sql.NullTime
		resetToken   sql.NullString
		resetExpiry  sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.AvatarURL, &u.Username, &u.Email, &fullName, &u.PasswordHash,
		&u.IsEmailVerified, &refresh, &verifyToken, &verifyExpiry,
		&resetToken, &resetExpiry, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.FullName = fullName.String
	if refresh.Valid {
		u.RefreshToken = &refresh.String
	}
	if verifyToken.Valid {
		u.EmailVerificationToken = &verifyToken.String
	}
	if verifyExpiry.Valid {
		u.EmailVerificationExpiry = &verifyExpiry.Time
	}
	if resetToken.Valid {
		u.ForgotPasswordToken = &resetToken.String
	}
	if resetExpiry.Valid {
		u.ForgotPasswordExpiry = &resetExpiry.Time
	}
	return u, nil
}
