package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/project-camp/internal/config"
	"github.com/iliyamo/project-camp/internal/middleware"
	"github.com/iliyamo/project-camp/internal/model"
	"github.com/iliyamo/project-camp/internal/repository"
	"github.com/iliyamo/project-camp/internal/utils"
)

// UserStore is the persistence surface the auth endpoints need.
// *repository.UserRepo satisfies it; tests use an in-memory fake.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmailVerificationToken(ctx context.Context, tokenHash string) (model.User, error)
	GetByForgotPasswordToken(ctx context.Context, tokenHash string) (model.User, error)
	SetEmailVerificationToken(ctx context.Context, id uint64, tokenHash string, expiry time.Time) error
	MarkEmailVerified(ctx context.Context, id uint64) error
	StoreRefreshToken(ctx context.Context, id uint64, token string) error
	ClearRefreshToken(ctx context.Context, id uint64) error
	SetForgotPasswordToken(ctx context.Context, id uint64, tokenHash string, expiry time.Time) error
	ResetPassword(ctx context.Context, id uint64, passwordHash string) error
}

// Notifier delivers verification and reset links.  Send failures never fail
// the triggering request; callers log and move on.
type Notifier interface {
	SendVerificationEmail(to, username, link string) error
	SendPasswordResetEmail(to, username, link string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users UserStore
	Mail  Notifier
}

func NewAuthHandler(cfg config.Config, users UserStore, mail Notifier) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Mail: mail}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type emailReq struct {
	Email string `json:"email" query:"email"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}
type resetPasswordReq struct {
	NewPassword string `json:"newPassword"`
}

// userView is the sanitized user representation returned to clients.  It
// never includes the password hash, refresh token or one-time token fields.
type userView struct {
	ID              uint64    `json:"id"`
	Avatar          string    `json:"avatar"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	FullName        string    `json:"fullName"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func newUserView(u model.User) userView {
	return userView{
		ID:              u.ID,
		Avatar:          u.AvatarURL,
		Username:        u.Username,
		Email:           u.Email,
		FullName:        u.FullName,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// Register creates an unverified account, hashes the password and sends a
// verification link.  Duplicate email or username answers 409.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Email == "" || req.Username == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "Email, username and password are required")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	exists, err := h.Users.ExistsByEmailOrUsername(ctx, req.Email, req.Username)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "User registration failed")
	}
	if exists {
		return fail(c, http.StatusConflict, "User with given email or username already exists")
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "User registration failed")
	}
	u := model.User{
		AvatarURL:    model.DefaultAvatarURL,
		Username:     req.Username,
		Email:        req.Email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
	}
	if err := h.Users.Create(ctx, &u); err != nil {
		if err == repository.ErrUserExists {
			return fail(c, http.StatusConflict, "User with given email or username already exists")
		}
		return fail(c, http.StatusInternalServerError, "User registration failed")
	}

	if err := h.issueVerification(ctx, c, u); err != nil {
		return fail(c, http.StatusInternalServerError, "User registration failed")
	}

	return respond(c, http.StatusCreated, echo.Map{"user": newUserView(u)}, "User registered successfully")
}

// Login verifies credentials, persists a fresh refresh token (overwriting
// any prior session) and answers with both tokens, also set as cookies.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "Email and password are required")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return fail(c, http.StatusNotFound, "User does not exist")
		}
		return fail(c, http.StatusInternalServerError, "Login failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "Invalid credentials")
	}

	access, err := utils.NewAccessToken(h.Cfg.AccessTokenSecret, u.ID, u.Email, u.Username, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Login failed")
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTokenSecret, u.ID, h.Cfg.RefreshTTLDays)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Login failed")
	}
	if err := h.Users.StoreRefreshToken(ctx, u.ID, refresh.Token); err != nil {
		return fail(c, http.StatusInternalServerError, "Login failed")
	}

	setAuthCookie(c, middleware.AccessTokenCookie, access.Token, access.Exp)
	setAuthCookie(c, refreshTokenCookie, refresh.Token, refresh.Exp)

	return respond(c, http.StatusOK, echo.Map{
		"user":         newUserView(u),
		"accessToken":  access.Token,
		"refreshToken": refresh.Token,
	}, "User logged in successfully")
}

// VerifyEmail redeems the raw token from the emailed link.  A token that is
// unknown, expired or already used answers 400 and changes nothing.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	raw := strings.TrimSpace(c.Param("verificationToken"))
	if raw == "" {
		return fail(c, http.StatusBadRequest, "Verification token is missing")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := h.Users.GetByEmailVerificationToken(ctx, utils.HashTemporaryRaw(raw))
	if err != nil {
		if err == repository.ErrUserNotFound {
			return fail(c, http.StatusBadRequest, "Invalid or expired verification token")
		}
		return fail(c, http.StatusInternalServerError, "Email verification failed")
	}
	if u.EmailVerificationToken == nil || u.EmailVerificationExpiry == nil ||
		!utils.VerifyTemporaryToken(raw, *u.EmailVerificationToken, *u.EmailVerificationExpiry) {
		return fail(c, http.StatusBadRequest, "Invalid or expired verification token")
	}

	if err := h.Users.MarkEmailVerified(ctx, u.ID); err != nil {
		return fail(c, http.StatusInternalServerError, "Email verification failed")
	}
	return respond(c, http.StatusOK, echo.Map{"isEmailVerified": true}, "Email verified successfully")
}

// ResendEmailVerification re-issues the verification token for an existing,
// still unverified account.
func (h *AuthHandler) ResendEmailVerification(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return fail(c, http.StatusBadRequest, "Email is required")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return fail(c, http.StatusNotFound, "User does not exist")
		}
		return fail(c, http.StatusInternalServerError, "Could not resend verification email")
	}
	if u.IsEmailVerified {
		return fail(c, http.StatusBadRequest, "Email is already verified")
	}

	if err := h.issueVerification(ctx, c, u); err != nil {
		return fail(c, http.StatusInternalServerError, "Could not resend verification email")
	}
	return respond(c, http.StatusOK, nil, "Verification email sent")
}

// Logout clears the stored refresh token and expires both auth cookies.
// Calling it again is a no-op.
func (h *AuthHandler) Logout(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Users.ClearRefreshToken(ctx, u.ID); err != nil {
		return fail(c, http.StatusInternalServerError, "Logout failed")
	}
	clearAuthCookie(c, middleware.AccessTokenCookie)
	clearAuthCookie(c, refreshTokenCookie)
	return respond(c, http.StatusOK, nil, "User logged out successfully")
}

// CurrentUser echoes the identity the auth guard attached to the context.
func (h *AuthHandler) CurrentUser(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	return respond(c, http.StatusOK, echo.Map{"user": newUserView(u)}, "Current user fetched successfully")
}

// RefreshToken exchanges a valid refresh token for a new access token.  The
// refresh token itself is not rotated.  The token must be the exact value
// currently stored on the user record; anything stale answers 401.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		if ck, err := c.Cookie(refreshTokenCookie); err == nil {
			raw = ck.Value
		}
	}
	if raw == "" {
		return fail(c, http.StatusUnauthorized, "Refresh token is missing")
	}

	claims, err := utils.ParseBearerToken(raw, h.Cfg.RefreshTokenSecret)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "Invalid or expired refresh token")
	}
	uid, err := utils.SubjectID(claims)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "Invalid or expired refresh token")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "Invalid or expired refresh token")
	}
	// The stored value is the single source of truth; a token from an older
	// login no longer matches after it was overwritten or cleared.
	if u.RefreshToken == nil || *u.RefreshToken != raw {
		return fail(c, http.StatusUnauthorized, "Invalid or expired refresh token")
	}

	access, err := utils.NewAccessToken(h.Cfg.AccessTokenSecret, u.ID, u.Email, u.Username, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Could not refresh access token")
	}
	setAuthCookie(c, middleware.AccessTokenCookie, access.Token, access.Exp)
	return respond(c, http.StatusOK, echo.Map{"accessToken": access.Token}, "Access token refreshed")
}

// ForgetPassword issues a reset token and mails the reset link.
func (h *AuthHandler) ForgetPassword(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return fail(c, http.StatusBadRequest, "Email is required")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return fail(c, http.StatusNotFound, "User does not exist")
		}
		return fail(c, http.StatusInternalServerError, "Could not send password reset email")
	}

	tok, err := utils.NewTemporaryToken()
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Could not send password reset email")
	}
	if err := h.Users.SetForgotPasswordToken(ctx, u.ID, tok.Hash, tok.Expiry); err != nil {
		return fail(c, http.StatusInternalServerError, "Could not send password reset email")
	}

	link := fmt.Sprintf("%s://%s/api/v1/auth/reset-password/%s", c.Scheme(), c.Request().Host, tok.Raw)
	h.sendMail(func() error { return h.Mail.SendPasswordResetEmail(u.Email, u.Username, link) }, u.Email)

	return respond(c, http.StatusOK, nil, "Password reset email sent")
}

// ResetPassword redeems a reset token and replaces the password hash.  The
// new password comes from the request payload.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	raw := strings.TrimSpace(c.Param("resetToken"))
	if raw == "" {
		return fail(c, http.StatusBadRequest, "Reset token is missing")
	}
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.NewPassword) == "" {
		return fail(c, http.StatusBadRequest, "New password is required")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := h.Users.GetByForgotPasswordToken(ctx, utils.HashTemporaryRaw(raw))
	if err != nil {
		if err == repository.ErrUserNotFound {
			return fail(c, http.StatusBadRequest, "Invalid or expired reset token")
		}
		return fail(c, http.StatusInternalServerError, "Password reset failed")
	}
	if u.ForgotPasswordToken == nil || u.ForgotPasswordExpiry == nil ||
		!utils.VerifyTemporaryToken(raw, *u.ForgotPasswordToken, *u.ForgotPasswordExpiry) {
		return fail(c, http.StatusBadRequest, "Invalid or expired reset token")
	}

	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Password reset failed")
	}
	if err := h.Users.ResetPassword(ctx, u.ID, hash); err != nil {
		return fail(c, http.StatusInternalServerError, "Password reset failed")
	}
	return respond(c, http.StatusOK, nil, "Password reset successfully")
}

// ----- helpers -----

const refreshTokenCookie = "refreshToken"

// issueVerification stores a fresh verification token on the user and mails
// the link.  The mail send is best effort.
func (h *AuthHandler) issueVerification(ctx context.Context, c echo.Context, u model.User) error {
	tok, err := utils.NewTemporaryToken()
	if err != nil {
		return err
	}
	if err := h.Users.SetEmailVerificationToken(ctx, u.ID, tok.Hash, tok.Expiry); err != nil {
		return err
	}
	link := fmt.Sprintf("%s://%s/api/v1/auth/verify-email/%s", c.Scheme(), c.Request().Host, tok.Raw)
	h.sendMail(func() error { return h.Mail.SendVerificationEmail(u.Email, u.Username, link) }, u.Email)
	return nil
}

// sendMail runs a mail send and swallows any failure after logging it.  A
// lost email never fails the request that triggered it.
func (h *AuthHandler) sendMail(send func() error, to string) {
	if h.Mail == nil {
		return
	}
	if err := send(); err != nil {
		log.Printf("mailer: send to %s failed: %v", to, err)
	}
}

// currentUser reads the sanitized identity the auth guard stored.
func currentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get("user").(model.User)
	return u, ok
}

// reqContext bounds a handler's database work to five seconds.
func reqContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

func setAuthCookie(c echo.Context, name, value string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearAuthCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}
