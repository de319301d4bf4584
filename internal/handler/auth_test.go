package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/project-camp/internal/config"
	"github.com/iliyamo/project-camp/internal/model"
	"github.com/iliyamo/project-camp/internal/repository"
	"github.com/iliyamo/project-camp/internal/utils"
)

// ----- in-memory fakes -----

type fakeUserStore struct {
	users  map[uint64]*model.User
	nextID uint64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uint64]*model.User{}, nextID: 1}
}

func (s *fakeUserStore) Create(_ context.Context, u *model.User) error {
	for _, ex := range s.users {
		if ex.Email == u.Email || ex.Username == u.Username {
			return repository.ErrUserExists
		}
	}
	u.ID = s.nextID
	s.nextID++
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	for _, u := range s.users {
		if u.Email == email || u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (s *fakeUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	if u, ok := s.users[id]; ok {
		return *u, nil
	}
	return model.User{}, repository.ErrUserNotFound
}

func (s *fakeUserStore) GetByEmailVerificationToken(_ context.Context, hash string) (model.User, error) {
	for _, u := range s.users {
		if u.EmailVerificationToken != nil && *u.EmailVerificationToken == hash {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (s *fakeUserStore) GetByForgotPasswordToken(_ context.Context, hash string) (model.User, error) {
	for _, u := range s.users {
		if u.ForgotPasswordToken != nil && *u.ForgotPasswordToken == hash {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (s *fakeUserStore) SetEmailVerificationToken(_ context.Context, id uint64, hash string, expiry time.Time) error {
	u := s.users[id]
	u.EmailVerificationToken = &hash
	u.EmailVerificationExpiry = &expiry
	return nil
}

func (s *fakeUserStore) MarkEmailVerified(_ context.Context, id uint64) error {
	u := s.users[id]
	u.IsEmailVerified = true
	u.EmailVerificationToken = nil
	u.EmailVerificationExpiry = nil
	return nil
}

func (s *fakeUserStore) StoreRefreshToken(_ context.Context, id uint64, token string) error {
	s.users[id].RefreshToken = &token
	return nil
}

func (s *fakeUserStore) ClearRefreshToken(_ context.Context, id uint64) error {
	s.users[id].RefreshToken = nil
	return nil
}

func (s *fakeUserStore) SetForgotPasswordToken(_ context.Context, id uint64, hash string, expiry time.Time) error {
	u := s.users[id]
	u.ForgotPasswordToken = &hash
	u.ForgotPasswordExpiry = &expiry
	return nil
}

func (s *fakeUserStore) ResetPassword(_ context.Context, id uint64, passwordHash string) error {
	u := s.users[id]
	u.PasswordHash = passwordHash
	u.ForgotPasswordToken = nil
	u.ForgotPasswordExpiry = nil
	return nil
}

type sentMail struct{ To, Username, Link string }

type fakeNotifier struct {
	verifications []sentMail
	resets        []sentMail
	err           error
}

func (f *fakeNotifier) SendVerificationEmail(to, username, link string) error {
	f.verifications = append(f.verifications, sentMail{to, username, link})
	return f.err
}

func (f *fakeNotifier) SendPasswordResetEmail(to, username, link string) error {
	f.resets = append(f.resets, sentMail{to, username, link})
	return f.err
}

// ----- helpers -----

func testConfig() config.Config {
	return config.Config{
		AccessTokenSecret:  "test-access-secret",
		AccessTTLMin:       15,
		RefreshTokenSecret: "test-refresh-secret",
		RefreshTTLDays:     7,
		BcryptCost:         bcrypt.MinCost,
	}
}

func newAuthFixture() (*AuthHandler, *fakeUserStore, *fakeNotifier) {
	store := newFakeUserStore()
	mail := &fakeNotifier{}
	return NewAuthHandler(testConfig(), store, mail), store, mail
}

// newCtx builds an echo context around a JSON request and a recorder.
func newCtx(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func register(t *testing.T, h *AuthHandler, email, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"username":%q,"password":%q}`, email, username, password)
	c, rec := newCtx(http.MethodPost, "/api/v1/auth/register", body)
	require.NoError(t, h.Register(c))
	return rec
}

func login(t *testing.T, h *AuthHandler, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	c, rec := newCtx(http.MethodPost, "/api/v1/auth/login", body)
	require.NoError(t, h.Login(c))
	return rec
}

// rawTokenFromLink pulls the raw one-time token out of an emailed link.
func rawTokenFromLink(link string) string {
	parts := strings.Split(link, "/")
	return parts[len(parts)-1]
}

// ----- tests -----

func TestRegister_CreatesUnverifiedUser(t *testing.T) {
	h, store, mail := newAuthFixture()

	rec := register(t, h, "jane@example.com", "jane", "s3cret")
	require.Equal(t, http.StatusCreated, rec.Code)

	u, err := store.GetByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.False(t, u.IsEmailVerified)
	assert.NotEqual(t, "s3cret", u.PasswordHash)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "s3cret"))
	assert.Equal(t, model.DefaultAvatarURL, u.AvatarURL)

	require.NotNil(t, u.EmailVerificationToken)
	require.NotNil(t, u.EmailVerificationExpiry)
	require.Len(t, mail.verifications, 1)
	raw := rawTokenFromLink(mail.verifications[0].Link)
	assert.Equal(t, utils.HashTemporaryRaw(raw), *u.EmailVerificationToken, "only the hash is stored")

	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env["success"])
	data := env["data"].(map[string]interface{})
	userData := data["user"].(map[string]interface{})
	assert.Equal(t, "jane", userData["username"])
	assert.NotContains(t, userData, "password")
	assert.NotContains(t, userData, "refreshToken")
}

func TestRegister_DuplicateConflict(t *testing.T) {
	h, _, _ := newAuthFixture()
	register(t, h, "jane@example.com", "jane", "s3cret")

	// second attempt with the same email
	body := `{"email":"jane@example.com","username":"janet","password":"x"}`
	c, rec := newCtx(http.MethodPost, "/api/v1/auth/register", body)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// and with the same username
	body = `{"email":"other@example.com","username":"jane","password":"x"}`
	c, rec = newCtx(http.MethodPost, "/api/v1/auth/register", body)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegister_MissingFields(t *testing.T) {
	h, _, _ := newAuthFixture()
	c, rec := newCtx(http.MethodPost, "/api/v1/auth/register", `{"email":"a@b.c"}`)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyEmail_Success(t *testing.T) {
	h, store, mail := newAuthFixture()
	register(t, h, "jane@example.com", "jane", "s3cret")
	raw := rawTokenFromLink(mail.verifications[0].Link)

	c, rec := newCtx(http.MethodGet, "/", "")
	c.SetParamNames("verificationToken")
	c.SetParamValues(raw)
	require.NoError(t, h.VerifyEmail(c))
	require.Equal(t, http.StatusOK, rec.Code)

	u, _ := store.GetByEmail(context.Background(), "jane@example.com")
	assert.True(t, u.IsEmailVerified)
	assert.Nil(t, u.EmailVerificationToken, "token fields are cleared on use")
	assert.Nil(t, u.EmailVerificationExpiry)
}

func TestVerifyEmail_InvalidToken(t *testing.T) {
	h, store, _ := newAuthFixture()
	register(t, h, "jane@example.com", "jane", "s3cret")

	c, rec := newCtx(http.MethodGet, "/", "")
	c.SetParamNames("verificationToken")
	c.SetParamValues("deadbeef")
	require.NoError(t, h.VerifyEmail(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	u, _ := store.GetByEmail(context.Background(), "jane@example.com")
	assert.False(t, u.IsEmailVerified, "a failed verification must not flip the flag")
}

func TestVerifyEmail_ExpiredToken(t *testing.T) {
	h, store, mail := newAuthFixture()
	register(t, h, "jane@example.com", "jane", "s3cret")
	raw := rawTokenFromLink(mail.verifications[0].Link)

	// age the stored token past its expiry
	u, _ := store.GetByEmail(context.Background(), "jane@example.com")
	past := time.Now().UTC().Add(-time.Minute)
	store.users[u.ID].EmailVerificationExpiry = &past

	c, rec := newCtx(http.MethodGet, "/", "")
	c.SetParamNames("verificationToken")
	c.SetParamValues(raw)
	require.NoError(t, h.VerifyEmail(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	u, _ = store.GetByEmail(context.Background(), "jane@example.com")
	assert.False(t, u.IsEmailVerified)
}

func TestLogin_Success(t *testing.T) {
	h, store, _ := newAuthFixture()
	register(t, h, "jane@example.com", "jane", "s3cret")

	rec := login(t, h, "jane@example.com", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	data := env["data"].(map[string]interface{})
	access := data["accessToken"].(string)
	refresh := data["refreshToken"].(string)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	u, _ := store.GetByEmail(context.Background(), "jane@example.com")
	require.NotNil(t, u.RefreshToken)
	assert.Equal(t, refresh, *u.RefreshToken)

	names := map[string]bool{}
	for _, ck := range rec.Result().Cookies() {
		names[ck.Name] = true
		assert.True(t, ck.HttpOnly, "auth cookies must be http-only")
		assert.True(t, ck.Secure, "auth cookies must be secure")
	}
	assert.True(t, names["accessToken"])
	assert.True(t, names["refreshToken"])
}

func TestLogin_WrongPassword(t *testing.T) {
	h, store, _ := newAuthFixture()
	register(t, h, "jane@example.com", "jane", "s3cret")

	rec := login(t, h, "jane@example.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	u, _ := store.GetByEmail(context.Background(), "jane@example.com")
	assert.Nil(t, u.RefreshToken, "no session is established on a failed login")
}

func TestLogin_UnknownUser(t *testing.T) {
	h, _, _ := newAuthFixture()
	rec := login(t, h, "nobody@example.com", "x")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogin_MissingEmail(t *testing.T) {
	h, _, _ := newAuthFixture()
	c, rec := newCtx(http.MethodPost, "/api/v1/auth/login", `{"password":"x"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSecondLoginOverwritesRefreshToken(t *testing.T) {
	h, store, _ := newAuthFixture()
	register(t, h, "jane@example.com", "jane", "s3cret")

	first := decodeEnvelope(t, login(t, h, "jane@example.com", "s3cret"))
	time.Sleep(1100 * time.Millisecond) // new iat so the second token differs
	second := decodeEnvelope(t, login(t, h, "jane@example.com", "s3cret"))

	oldRefresh := first["data"].(map[string]interface{})["refreshToken"].(string)
	newRefresh := second["data"].(map[string]interface{})["refreshToken"].(string)
	require.NotEqual(t, oldRefresh, newRefresh)

	u, _ := store.GetByEmail(context.Background(), "jane@example.com")
	assert.Equal(t, newRefresh, *u.RefreshToken)

	// the first session's refresh token is now stale
	body := fmt.Sprintf(`{"refreshToken":%q}`, oldRefresh)
	c, rec := newCtx(http.MethodPost, "/api/v1/auth/refresh-token", body)
	require.NoError(t, h.RefreshToken(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshToken_Success(t *testing.T) {
	h, store, _ := newAuthFixture()
	register(t, h, "jane@example.com", "jane", "s3cret")
	env := decodeEnvelope(t, login(t, h, "jane@example.com", "s3cret"))
	refresh := env["data"].(map[string]interface{})["refreshToken"].(string)

	body := fmt.Sprintf(`{"refreshToken":%q}`, refresh)
	c, rec := newCtx(http.MethodPost, "/api/v1/auth/refresh-token", body)
	require.NoError(t, h.RefreshToken(c))
	require.Equal(t, http.StatusOK, rec.Code)

	out := decodeEnvelope(t, rec)
	access := out["data"].(map[string]interface{})["accessToken"].(string)
	claims, err := utils.ParseBearerToken(access, testConfig().AccessTokenSecret)
	require.NoError(t, err)
	uid, err := utils.SubjectID(claims)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), uid)

	// the refresh token is not rotated
	u, _ := store.GetByEmail(context.Background(), "jane@example.com")
	assert.Equal(t, refresh, *u.RefreshToken)
}

func TestRefreshToken_Missing(t *testing.T) {
	h, _, _ := newAuthFixture()
	c, rec := newCtx(http.MethodPost, "/api/v1/auth/refresh-token", `{}`)
	require.NoError(t, h.RefreshToken(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshToken_Garbage(t *testing.T) {
	h, _, _ := newAuthFixture()
	c, rec := newCtx(http.MethodPost, "/api/v1/auth/refresh-token", `{"refreshToken":"junk"}`)
	require.NoError(t, h.RefreshToken(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutInvalidatesRefreshToken(t *testing.T) {
	h, store, _ := newAuthFixture()
	register(t, h, "jane@example.com", "jane", "s3cret")
	env := decodeEnvelope(t, login(t, h, "jane@example.com", "s3cret"))
	refresh := env["data"].(map[string]interface{})["refreshToken"].(string)

	u, _ := store.GetByEmail(context.Background(), "jane@example.com")
	c, rec := newCtx(http.MethodPost, "/api/v1/auth/logout", "")
	c.Set("user", u.Sanitized())
	require.NoError(t, h.Logout(c))
	require.Equal(t, http.StatusOK, rec.Code)

	u, _ = store.GetByEmail(context.Background(), "jane@example.com")
	assert.Nil(t, u.RefreshToken)

	// cookies are expired on the way out
	for _, ck := range rec.Result().Cookies() {
		assert.True(t, ck.Expires.Before(time.Now()) || ck.MaxAge < 0)
	}

	// a previously valid refresh token no longer matches
	body := fmt.Sprintf(`{"refreshToken":%q}`, refresh)
	c, rec = newCtx(http.MethodPost, "/api/v1/auth/refresh-token", body)
	require.NoError(t, h.RefreshToken(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// logout is idempotent
	c, rec = newCtx(http.MethodPost, "/api/v1/auth/logout", "")
	c.Set("user", u.Sanitized())
	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCurrentUser(t *testing.T) {
	h, store, _ := newAuthFixture()
	register(t, h, "jane@example.com", "jane", "s3cret")
	u, _ := store.GetByEmail(context.Background(), "jane@example.com")

	c, rec := newCtx(http.MethodPost, "/api/v1/auth/current-user", "")
	c.Set("user", u.Sanitized())
	require.NoError(t, h.CurrentUser(c))
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	userData := env["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "jane", userData["username"])
}

func TestResendEmailVerification(t *testing.T) {
	h, store, mail := newAuthFixture()
	register(t, h, "jane@example.com", "jane", "s3cret")
	firstHash := *store.users[1].EmailVerificationToken

	c, rec := newCtx(http.MethodGet, "/api/v1/auth/resend-email-verification?email=jane@example.com", "")
	require.NoError(t, h.ResendEmailVerification(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, mail.verifications, 2)
	assert.NotEqual(t, firstHash, *store.users[1].EmailVerificationToken, "a fresh token replaces the old one")

	// unknown address
	c, rec = newCtx(http.MethodGet, "/api/v1/auth/resend-email-verification?email=nobody@example.com", "")
	require.NoError(t, h.ResendEmailVerification(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// already verified
	require.NoError(t, store.MarkEmailVerified(context.Background(), 1))
	c, rec = newCtx(http.MethodGet, "/api/v1/auth/resend-email-verification?email=jane@example.com", "")
	require.NoError(t, h.ResendEmailVerification(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	h, store, mail := newAuthFixture()
	register(t, h, "jane@example.com", "jane", "old-password")

	c, rec := newCtx(http.MethodPost, "/api/v1/auth/forget-password", `{"email":"jane@example.com"}`)
	require.NoError(t, h.ForgetPassword(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, mail.resets, 1)

	raw := rawTokenFromLink(mail.resets[0].Link)
	c, rec = newCtx(http.MethodGet, "/", `{"newPassword":"new-password"}`)
	c.SetParamNames("resetToken")
	c.SetParamValues(raw)
	require.NoError(t, h.ResetPassword(c))
	require.Equal(t, http.StatusOK, rec.Code)

	u, _ := store.GetByEmail(context.Background(), "jane@example.com")
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "new-password"))
	assert.False(t, utils.VerifyPassword(u.PasswordHash, "old-password"))
	assert.Nil(t, u.ForgotPasswordToken, "reset token is single-use")
	assert.Nil(t, u.ForgotPasswordExpiry)

	// the link cannot be redeemed twice
	c, rec = newCtx(http.MethodGet, "/", `{"newPassword":"again"}`)
	c.SetParamNames("resetToken")
	c.SetParamValues(raw)
	require.NoError(t, h.ResetPassword(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForgetPassword_UnknownUser(t *testing.T) {
	h, _, _ := newAuthFixture()
	c, rec := newCtx(http.MethodPost, "/api/v1/auth/forget-password", `{"email":"nobody@example.com"}`)
	require.NoError(t, h.ForgetPassword(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResetPassword_MissingPassword(t *testing.T) {
	h, _, _ := newAuthFixture()
	c, rec := newCtx(http.MethodGet, "/", `{}`)
	c.SetParamNames("resetToken")
	c.SetParamValues("whatever")
	require.NoError(t, h.ResetPassword(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMailFailureDoesNotFailRegistration(t *testing.T) {
	store := newFakeUserStore()
	mail := &fakeNotifier{err: fmt.Errorf("smtp down")}
	h := NewAuthHandler(testConfig(), store, mail)

	rec := register(t, h, "jane@example.com", "jane", "s3cret")
	assert.Equal(t, http.StatusCreated, rec.Code, "a lost email never fails the request")
}
