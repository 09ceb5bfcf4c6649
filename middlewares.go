package thegoat

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/thegoat123/thegoat/authentication"
)

// middleware is a convenient type for declaring middlewares.
type middleware func(httprouter.Handle) httprouter.Handle

// contextKey is a type for storing values in each request context.
type contextKey string

// String returns a stringified context key.
func (k contextKey) String() string { return string(k) }

// ctxKeySession is the context key for storing the current user session in a context
var ctxKeySession = contextKey("session")

// ctxKeyUser is the context key for storing the current user record in a context
var ctxKeyUser = contextKey("user")

// ctxSession is a helper func to fetch the user session from the context.
func ctxSession(ctx context.Context) *authentication.User {
	v, _ := ctx.Value(ctxKeySession).(*authentication.User)
	return v
}

// ctxUser is a helper func to fetch the user record from the context.
func ctxUser(ctx context.Context) *User {
	v, _ := ctx.Value(ctxKeyUser).(*User)
	return v
}

// withMiddlewares is a helper function to declare routes with middlewares more easily.
// The caller declares its routes in the body on the f function, calling f's argument on its
// httprouter.Handle to wrap them.
func withMiddlewares(f func(middleware), middlewares ...middleware) {
	wrapper := func(handle httprouter.Handle) httprouter.Handle {
		h := handle
		for i := len(middlewares) - 1; i >= 0; i-- {
			m := middlewares[i]
			h = m(h)
		}
		return h
	}

	f(wrapper)
}

// loadSessionMiddleware fetches the user session data through the AuthService
// and stores it in the request context. If there's no session it will assign nil in
// the context to the session key.
//
// A session cookie that can't be decoded, signed with a rotated secret for example, is
// treated as no session.
func (s *Server) loadSessionMiddleware() middleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return httprouter.Handle(func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
			userData, err := s.authService.CurrentUser(r)
			if err != nil {
				s.Logger.Warn().Err(err).Msg("Failed to fetch session data")
				userData = nil
			}

			ctx := context.WithValue(r.Context(), ctxKeySession, userData)
			next(w, r.WithContext(ctx), p)
		})
	}
}

// loadUserMiddleware fetches the user from the database and stores it in the request context.
// If there's an error it will interrupt the middleware chain, returning an http error.
//
// If there is no session, or the session user vanished, it responds unauthorized.
func (s *Server) loadUserMiddleware() middleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return httprouter.Handle(func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
			user, err := s.sessionUser(r)
			if err != nil {
				s.respondError(w, r, err)
				return
			}

			if user == nil {
				Unauthorized(r.URL.Path).RespondError(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, user)
			next(w, r.WithContext(ctx), p)
		})
	}
}

// loadOptionalUserMiddleware is like loadUserMiddleware but lets anonymous requests through.
func (s *Server) loadOptionalUserMiddleware() middleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return httprouter.Handle(func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
			user, err := s.sessionUser(r)
			if err != nil {
				s.respondError(w, r, err)
				return
			}

			if user != nil {
				r = r.WithContext(context.WithValue(r.Context(), ctxKeyUser, user))
			}
			next(w, r, p)
		})
	}
}

func (s *Server) sessionUser(r *http.Request) (*User, error) {
	session := ctxSession(r.Context())
	if session == nil {
		return nil, nil
	}

	user, err := s.store.FindUserByLogin(r.Context(), session.Login)
	if err != nil {
		s.Logger.Error().Err(err).Msg("Failed to fetch user from db")
		return nil, err
	}

	return user, nil
}
