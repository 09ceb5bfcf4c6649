package thegoat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/thegoat123/thegoat/authentication"
)

func TestWithMiddlewares(t *testing.T) {
	c := qt.New(t)

	handler := func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {}

	c.Run("calls middlewares", func(c *qt.C) {
		s1 := false
		m1 := func(h httprouter.Handle) httprouter.Handle { s1 = true; return h }

		withMiddlewares(func(m middleware) { m(handler) }, m1)
		c.Assert(s1, qt.IsTrue)
	})

	c.Run("passing m1, m2, m3 run them in that order", func(c *qt.C) {
		trace := []int{}
		m1 := func(h httprouter.Handle) httprouter.Handle {
			return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
				trace = append(trace, 1)
				h(w, r, p)
			}
		}
		m2 := func(h httprouter.Handle) httprouter.Handle {
			return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
				trace = append(trace, 2)
				h(w, r, p)
			}
		}
		m3 := func(h httprouter.Handle) httprouter.Handle {
			return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
				trace = append(trace, 3)
				h(w, r, p)
			}
		}

		var h httprouter.Handle
		withMiddlewares(func(m middleware) { h = m(handler) },
			m1,
			m2,
			m3)

		h(httptest.NewRecorder(), &http.Request{}, httprouter.Params{})

		c.Assert(trace, qt.DeepEquals, []int{1, 2, 3})
	})
}

// sessionAuth is an AuthService whose current user is fixed.
type sessionAuth struct {
	authentication.AuthService
	user *authentication.User
	err  error
}

func (a *sessionAuth) CurrentUser(req *http.Request) (*authentication.User, error) {
	return a.user, a.err
}

// usersStore only knows how to find users.
type usersStore struct {
	Store
	users map[string]*User
}

func (s *usersStore) FindUserByLogin(ctx context.Context, login string) (*User, error) {
	return s.users[login], nil
}

func newMiddlewareServer(auth *sessionAuth) *Server {
	store := &usersStore{users: map[string]*User{"tintin": {ID: "1", Name: "tintin"}}}
	return NewServer(&ServerConfig{}, zerolog.Nop(), store, auth)
}

func TestLoadSessionMiddleware(t *testing.T) {
	c := qt.New(t)

	run := func(s *Server) *authentication.User {
		var session *authentication.User
		h := s.loadSessionMiddleware()(func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
			session = ctxSession(r.Context())
		})
		h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), nil)
		return session
	}

	c.Run("stores the session", func(c *qt.C) {
		s := newMiddlewareServer(&sessionAuth{user: &authentication.User{Login: "tintin"}})
		c.Assert(run(s).Login, qt.Equals, "tintin")
	})

	c.Run("undecodable session is no session", func(c *qt.C) {
		s := newMiddlewareServer(&sessionAuth{user: &authentication.User{Login: "tintin"}, err: errors.New("securecookie: the value is not valid")})
		c.Assert(run(s), qt.IsNil)
	})
}

func TestLoadUserMiddleware(t *testing.T) {
	c := qt.New(t)

	run := func(s *Server, m middleware) (*httptest.ResponseRecorder, *User, bool) {
		var user *User
		called := false
		h := withSession(s, m(func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
			called = true
			user = ctxUser(r.Context())
		}))
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil), nil)
		return rec, user, called
	}

	c.Run("loads the user", func(c *qt.C) {
		s := newMiddlewareServer(&sessionAuth{user: &authentication.User{Login: "tintin"}})
		_, user, called := run(s, s.loadUserMiddleware())
		c.Assert(called, qt.IsTrue)
		c.Assert(user.ID, qt.Equals, "1")
	})

	c.Run("unauthorized without session", func(c *qt.C) {
		s := newMiddlewareServer(&sessionAuth{})
		rec, _, called := run(s, s.loadUserMiddleware())
		c.Assert(called, qt.IsFalse)
		c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)
	})

	c.Run("unauthorized when the user vanished", func(c *qt.C) {
		s := newMiddlewareServer(&sessionAuth{user: &authentication.User{Login: "haddock"}})
		rec, _, called := run(s, s.loadUserMiddleware())
		c.Assert(called, qt.IsFalse)
		c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)
	})

	c.Run("optional user lets anonymous requests through", func(c *qt.C) {
		s := newMiddlewareServer(&sessionAuth{})
		_, user, called := run(s, s.loadOptionalUserMiddleware())
		c.Assert(called, qt.IsTrue)
		c.Assert(user, qt.IsNil)
	})
}

func withSession(s *Server, h httprouter.Handle) httprouter.Handle {
	var wrapped httprouter.Handle
	withMiddlewares(func(m middleware) { wrapped = m(h) }, s.loadSessionMiddleware())
	return wrapped
}
