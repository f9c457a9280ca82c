package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidToken reports a token that failed signature or format checks.
var ErrInvalidToken = errors.New("invalid token")

// ErrTokenExpired reports a structurally valid token past its deadline.
var ErrTokenExpired = errors.New("token expired")

// Tokens are "name|expiresUnix|signature" base64url-encoded, with the
// signature an HMAC-SHA256 over the first two fields.

func (s *Service) issueToken(name string, expires time.Time) string {
	payload := name + "|" + strconv.FormatInt(expires.Unix(), 10)
	return base64.RawURLEncoding.EncodeToString([]byte(payload + "|" + s.sign(payload)))
}

// VerifyToken checks a token and returns the user name it was issued for.
func (s *Service) VerifyToken(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: malformed payload", ErrInvalidToken)
	}
	name, expiresStr, sig := parts[0], parts[1], parts[2]

	payload := name + "|" + expiresStr
	if !hmac.Equal([]byte(sig), []byte(s.sign(payload))) {
		return "", fmt.Errorf("%w: bad signature", ErrInvalidToken)
	}

	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: bad expiry", ErrInvalidToken)
	}
	if s.now().Unix() > expires {
		return "", ErrTokenExpired
	}

	return name, nil
}

func (s *Service) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
