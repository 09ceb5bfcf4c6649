package password_auth

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
	"github.com/thegoat123/thegoat/authentication"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password too short")
)

// Service signs users up and in with an email and a password. The email is used as the login.
type Service struct {
	store        authentication.CredentialsStore
	sessionStore sessions.Store
	logger       zerolog.Logger
	cost         int
}

func New(store authentication.CredentialsStore, sessionStore sessions.Store, logger zerolog.Logger) *Service {
	return &Service{
		store:        store,
		sessionStore: sessionStore,
		logger:       logger.With().Str("component", "password_auth").Logger(),
		cost:         bcrypt.DefaultCost,
	}
}

// WithCost sets the bcrypt cost, tests use bcrypt.MinCost to run fast.
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// SignUp registers a new user and signs it in.
func (s *Service) SignUp(ctx context.Context, res http.ResponseWriter, req *http.Request, email string, password string) (*authentication.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	existing, err := s.store.FindCredentials(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	err = s.store.InsertCredentials(ctx, &authentication.Credentials{
		Login:        email,
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}

	u := &authentication.User{Login: email, Email: email}
	if err := authentication.SaveUser(s.sessionStore, req, res, u); err != nil {
		return nil, err
	}

	s.logger.Info().Str("login", email).Msg("signed up")
	return u, nil
}

// SignIn checks the password of the user registered with email and signs it in.
func (s *Service) SignIn(ctx context.Context, res http.ResponseWriter, req *http.Request, email string, password string) (*authentication.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	creds, err := s.store.FindCredentials(ctx, email)
	if err != nil {
		return nil, err
	}
	if creds == nil || creds.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	u := &authentication.User{Login: creds.Login, Email: creds.Email}
	if err := authentication.SaveUser(s.sessionStore, req, res, u); err != nil {
		return nil, err
	}

	return u, nil
}
