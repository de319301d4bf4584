package model

import "time"

// DefaultAvatarURL is assigned to every account at registration until the
// user uploads their own avatar.
const DefaultAvatarURL = "https://placehold.co/200x200"

// User represents an account record as stored in the `users` table.  Each
// field corresponds to a column.  Password and one-time token material is
// only ever stored in hashed form; the sanitized view returned to clients is
// built in the handler layer.
//
// Fields:
//  ID                      – primary key identifier of the user.
//  AvatarURL               – URL of the user's avatar image.
//  Username                – unique, lowercased username.
//  Email                   – unique, lowercased email address.
//  FullName                – optional display name.
//  PasswordHash            – bcrypt hashed password.
//  IsEmailVerified         – whether the email address has been confirmed.
//  RefreshToken            – the active refresh token (nil when logged out).
//  EmailVerificationToken  – SHA-256 hex digest of the pending verification token.
//  EmailVerificationExpiry – when the verification token stops being accepted.
//  ForgotPasswordToken     – SHA-256 hex digest of the pending reset token.
//  ForgotPasswordExpiry    – when the reset token stops being accepted.
//  CreatedAt               – timestamp of creation.
//  UpdatedAt               – timestamp of last update.
type User struct {
	ID                      uint64     // users.id
	AvatarURL               string     // users.avatar_url
	Username                string     // users.username
	Email                   string     // users.email
	FullName                string     // users.full_name
	PasswordHash            string     // users.password_hash
	IsEmailVerified         bool       // users.is_email_verified
	RefreshToken            *string    // users.refresh_token (nullable)
	EmailVerificationToken  *string    // users.email_verification_token (nullable)
	EmailVerificationExpiry *time.Time // users.email_verification_expiry (nullable)
	ForgotPasswordToken     *string    // users.forgot_password_token (nullable)
	ForgotPasswordExpiry    *time.Time // users.forgot_password_expiry (nullable)
	CreatedAt               time.Time  // users.created_at
	UpdatedAt               time.Time  // users.updated_at
}

// Sanitized returns a copy of the user with every secret-bearing field
// zeroed.  The copy is safe to attach to a request context or serialize in
// a response.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.RefreshToken = nil
	u.EmailVerificationToken = nil
	u.EmailVerificationExpiry = nil
	u.ForgotPasswordToken = nil
	u.ForgotPasswordExpiry = nil
	return u
}
