package password_auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
	"github.com/thegoat123/thegoat/authentication"
	"golang.org/x/crypto/bcrypt"
)

type credentialsMap struct {
	mtx   sync.Mutex
	creds map[string]*authentication.Credentials
}

func (m *credentialsMap) FindCredentials(ctx context.Context, login string) (*authentication.Credentials, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.creds[login], nil
}

func (m *credentialsMap) InsertCredentials(ctx context.Context, c *authentication.Credentials) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.creds[c.Login] = c
	return nil
}

func newService() (*Service, *credentialsMap, sessions.Store) {
	store := &credentialsMap{creds: map[string]*authentication.Credentials{}}
	sessionStore := sessions.NewCookieStore([]byte("secret"))
	return New(store, sessionStore, zerolog.Nop()).WithCost(bcrypt.MinCost), store, sessionStore
}

// replay returns a request carrying the cookies set on rec.
func replay(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest("GET", "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSignUp(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("registers and signs in", func(c *qt.C) {
		s, store, sessionStore := newService()
		rec := httptest.NewRecorder()
		u, err := s.SignUp(ctx, rec, httptest.NewRequest("POST", "/auth/signup", nil), " Foo@Example.com ", "hunter22")
		c.Assert(err, qt.IsNil)
		c.Assert(u.Login, qt.Equals, "foo@example.com")

		creds := store.creds["foo@example.com"]
		c.Assert(creds, qt.Not(qt.IsNil))
		c.Assert(creds.PasswordHash, qt.Not(qt.Equals), "hunter22")

		current, err := authentication.LoadUser(sessionStore, replay(rec))
		c.Assert(err, qt.IsNil)
		c.Assert(current.Login, qt.Equals, "foo@example.com")
	})

	c.Run("refuses a taken email", func(c *qt.C) {
		s, _, _ := newService()
		_, err := s.SignUp(ctx, httptest.NewRecorder(), httptest.NewRequest("POST", "/", nil), "foo@example.com", "hunter22")
		c.Assert(err, qt.IsNil)
		_, err = s.SignUp(ctx, httptest.NewRecorder(), httptest.NewRequest("POST", "/", nil), "foo@example.com", "hunter23")
		c.Assert(err, qt.ErrorIs, ErrEmailTaken)
	})

	c.Run("validates input", func(c *qt.C) {
		s, _, _ := newService()
		_, err := s.SignUp(ctx, httptest.NewRecorder(), httptest.NewRequest("POST", "/", nil), "not an email", "hunter22")
		c.Assert(err, qt.ErrorIs, ErrInvalidEmail)
		_, err = s.SignUp(ctx, httptest.NewRecorder(), httptest.NewRequest("POST", "/", nil), "foo@example.com", "abc")
		c.Assert(err, qt.ErrorIs, ErrWeakPassword)
	})
}

func TestSignIn(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	s, _, _ := newService()
	_, err := s.SignUp(ctx, httptest.NewRecorder(), httptest.NewRequest("POST", "/", nil), "foo@example.com", "hunter22")
	c.Assert(err, qt.IsNil)

	u, err := s.SignIn(ctx, httptest.NewRecorder(), httptest.NewRequest("POST", "/", nil), "FOO@example.com", "hunter22")
	c.Assert(err, qt.IsNil)
	c.Assert(u.Email, qt.Equals, "foo@example.com")

	_, err = s.SignIn(ctx, httptest.NewRecorder(), httptest.NewRequest("POST", "/", nil), "foo@example.com", "wrong")
	c.Assert(err, qt.ErrorIs, ErrInvalidCredentials)

	_, err = s.SignIn(ctx, httptest.NewRecorder(), httptest.NewRequest("POST", "/", nil), "nobody@example.com", "hunter22")
	c.Assert(err, qt.ErrorIs, ErrInvalidCredentials)
}
