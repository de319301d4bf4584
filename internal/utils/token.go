package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for every bearer token failure.  Malformed,
// expired and badly signed tokens are deliberately indistinguishable to the
// caller so responses never reveal which check failed.
var ErrInvalidToken = errors.New("invalid or expired token")

// TemporaryTokenTTL is how long email verification and password reset links
// stay valid.
const TemporaryTokenTTL = 20 * time.Minute

// TemporaryToken is a single-use credential for email verification and
// password reset.  Raw is mailed to the user exactly once; only Hash and
// Expiry are persisted on the user record.
type TemporaryToken struct {
	Raw    string    // raw token embedded in the emailed link
	Hash   string    // SHA-256 hex digest stored server-side
	Expiry time.Time // UTC timestamp after which the token is rejected
}

// NewTemporaryToken generates a 20-byte random token, its SHA-256 digest and
// an expiry 20 minutes from now.
func NewTemporaryToken() (TemporaryToken, error) {
	raw, err := randomHex(20) // 20 bytes -> 40 hex chars
	if err != nil {
		return TemporaryToken{}, err
	}
	return TemporaryToken{
		Raw:    raw,
		Hash:   HashTemporaryRaw(raw),
		Expiry: time.Now().UTC().Add(TemporaryTokenTTL),
	}, nil
}

// HashTemporaryRaw returns the SHA-256 hex digest of a raw temporary token.
// The digest is deterministic, so the stored hash can be compared against
// the hash of whatever raw value a request presents.
func HashTemporaryRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// VerifyTemporaryToken reports whether raw hashes to storedHash and the
// expiry has not passed.  On success the caller must clear the stored hash
// and expiry fields so the token cannot be replayed.
func VerifyTemporaryToken(raw, storedHash string, storedExpiry time.Time) bool {
	if raw == "" || storedHash == "" {
		return false
	}
	if !time.Now().UTC().Before(storedExpiry) {
		return false
	}
	return HashTemporaryRaw(raw) == storedHash
}

// AccessToken represents a signed JWT access token along with its expiry.
// Access tokens are short-lived and presented on every protected request.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long-lived signed JWT used to mint new access
// tokens.  The string value itself is persisted on the user record; only
// the value currently stored there is accepted.
type RefreshToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The claims keep
// the minimal identity a handler needs: subject (sub), email and username,
// plus exp and iat.
func NewAccessToken(secret string, userID uint64, email, username string, ttlMin int) (AccessToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":      userID,
		"email":    email,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken builds and signs an HS256 JWT carrying only the user ID.
// Refresh tokens are signed with a secret distinct from the access secret
// so one kind can never be replayed as the other.
func NewRefreshToken(secret string, userID uint64, ttlDays int) (RefreshToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": exp.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Token: signed, Exp: exp}, nil
}

// ParseBearerToken validates an HS256 JWT against the given secret and
// returns its claims.  Any failure is reported as ErrInvalidToken.
func ParseBearerToken(raw, secret string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SubjectID extracts the numeric user ID from the sub claim.  JWT numbers
// decode as float64; string subjects are parsed for compatibility with
// libraries that stringify numeric IDs.
func SubjectID(claims jwt.MapClaims) (uint64, error) {
	switch sub := claims["sub"].(type) {
	case float64:
		return uint64(sub), nil
	case string:
		n, err := strconv.ParseUint(sub, 10, 64)
		if err != nil {
			return 0, ErrInvalidToken
		}
		return n, nil
	}
	return 0, ErrInvalidToken
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
