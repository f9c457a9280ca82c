package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Mr8lueSky/cooplook-back/internal/store"
)

// ErrInvalidCredentials reports a failed login without revealing whether
// the name or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service registers users and issues expiring signed tokens for them.
// Passwords are peppered with an HMAC before bcrypt so a leaked database
// alone is not enough to mount an offline attack, and so arbitrarily long
// passwords fit bcrypt's input limit.
type Service struct {
	users     *store.UserRepository
	secretKey []byte
	pwPepper  []byte
	tokenTTL  time.Duration
	logger    *slog.Logger

	now func() time.Time
}

// NewService creates an auth service over the given user repository.
func NewService(users *store.UserRepository, secretKey, passwordKey string, tokenTTL time.Duration) *Service {
	return &Service{
		users:     users,
		secretKey: []byte(secretKey),
		pwPepper:  []byte(passwordKey),
		tokenTTL:  tokenTTL,
		logger:    slog.With("component", "auth"),
		now:       time.Now,
	}
}

// Register creates a new user. Duplicate names surface as
// store.ErrDuplicateName.
func (s *Service) Register(name, password string) (*store.User, error) {
	if name == "" || password == "" {
		return nil, fmt.Errorf("%w: empty name or password", ErrInvalidCredentials)
	}
	// The pipe is the token field separator.
	if strings.ContainsRune(name, '|') {
		return nil, fmt.Errorf("%w: name must not contain '|'", ErrInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword(s.pepper(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &store.User{Name: name, PasswordHash: string(hash)}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "name", name)
	return user, nil
}

// Login verifies credentials and returns a fresh token.
func (s *Service) Login(name, password string) (string, error) {
	user, err := s.users.GetByName(name)
	if err != nil {
		return "", err
	}
	if user == nil {
		// Burn a comparison anyway so missing names cost the same as
		// wrong passwords.
		bcrypt.CompareHashAndPassword(dummyHash, s.pepper(password))
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), s.pepper(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.issueToken(name, s.now().Add(s.tokenTTL)), nil
}

// TokenTTL returns the configured token lifetime.
func (s *Service) TokenTTL() time.Duration { return s.tokenTTL }

func (s *Service) pepper(password string) []byte {
	mac := hmac.New(sha256.New, s.pwPepper)
	mac.Write([]byte(password))
	return mac.Sum(nil)
}

// dummyHash is a bcrypt hash of an unused random input, compared against
// when the user does not exist.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("cooplook-no-such-user"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}()
