package thegoat

import (
	"context"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/thegoat123/thegoat/authentication"
	"github.com/thegoat123/thegoat/authentication/password_auth"
)

// HandleOAuthStart handles requests starting the OAuth authentication process.
func (s *Server) HandleOAuthStart() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		s.authService.Start(res, req)
	}
}

// HandleOAuthCallback handles requests of the OAuth provider redirecting the user back, after
// successfully authenticating them on its side.
func (s *Server) HandleOAuthCallback() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		s.authService.Callback(res, req, func(u *authentication.User) error {
			_, err := s.store.CreateOrUpdateUser(req.Context(), u.Login, u.Email)
			return err
		})
	}
}

// HandleOAuthDestroy handles requests destroying the current session.
func (s *Server) HandleOAuthDestroy() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		s.authService.Destroy(res, req)
	}
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignUp registers a user with an email and a password.
func (s *Server) HandleSignUp() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		if s.passwordAuth == nil {
			MethodNotAllowed(req.Method, req.URL.Path).RespondError(res, req)
			return
		}

		var body credentialsBody
		if err := decodeJSON(req, &body); err != nil {
			s.respondError(res, req, err)
			return
		}

		u, err := s.passwordAuth.SignUp(req.Context(), res, req, body.Email, body.Password)
		switch {
		case errors.Is(err, password_auth.ErrInvalidEmail):
			UnprocessableEntityWithError(err, "email").RespondError(res, req)
			return
		case errors.Is(err, password_auth.ErrWeakPassword):
			UnprocessableEntityWithError(err, "password").RespondError(res, req)
			return
		case errors.Is(err, password_auth.ErrEmailTaken):
			Conflict("email_taken", ErrDuplicate).RespondError(res, req)
			return
		case err != nil:
			s.respondError(res, req, err)
			return
		}

		user, err := s.store.FindUserByLogin(req.Context(), u.Login)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		respondJSON(res, http.StatusCreated, user)
	}
}

// HandleSignIn signs a user in with an email and a password.
func (s *Server) HandleSignIn() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		if s.passwordAuth == nil {
			MethodNotAllowed(req.Method, req.URL.Path).RespondError(res, req)
			return
		}

		var body credentialsBody
		if err := decodeJSON(req, &body); err != nil {
			s.respondError(res, req, err)
			return
		}

		u, err := s.passwordAuth.SignIn(req.Context(), res, req, body.Email, body.Password)
		if errors.Is(err, password_auth.ErrInvalidCredentials) {
			respondJSON(res, http.StatusUnauthorized, errorBody{
				Error:   http.StatusText(http.StatusUnauthorized),
				Code:    "invalid_credentials",
				Message: "이메일 또는 비밀번호가 올바르지 않습니다.",
			})
			return
		}
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		user, err := s.store.FindUserByLogin(req.Context(), u.Login)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		respondJSON(res, http.StatusOK, user)
	}
}

// HandleMe returns the signed in user.
func (s *Server) HandleMe() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		respondJSON(res, http.StatusOK, ctxUser(req.Context()))
	}
}

// HandleMyNotifications lists the notifications of the signed in user, newest first.
func (s *Server) HandleMyNotifications() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		user := ctxUser(req.Context())
		notifications, err := s.store.ListNotifications(req.Context(), user.ID)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		respondJSON(res, http.StatusOK, notifications)
	}
}

// allNotifications stands for every notification of the user in place of a notification id.
const allNotifications = "all"

// HandleReadNotification marks a notification of the signed in user as read, or all of them.
func (s *Server) HandleReadNotification() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		user := ctxUser(req.Context())

		var err error
		if id := params.ByName("id"); id == allNotifications {
			err = s.store.MarkAllNotificationsRead(req.Context(), user.ID)
		} else {
			err = s.store.MarkNotificationRead(req.Context(), user.ID, id)
		}
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		res.WriteHeader(http.StatusNoContent)
	}
}

// HandleClearNotifications deletes every notification of the signed in user.
func (s *Server) HandleClearNotifications() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		user := ctxUser(req.Context())
		if err := s.store.ClearNotifications(req.Context(), user.ID); err != nil {
			s.respondError(res, req, err)
			return
		}

		res.WriteHeader(http.StatusNoContent)
	}
}

// notify stores n, if any. Failing to notify never fails the request.
func (s *Server) notify(ctx context.Context, n *Notification) {
	if n == nil {
		return
	}
	if err := s.store.InsertNotification(ctx, n); err != nil {
		s.Logger.Warn().Err(err).Str("kind", n.Kind).Str("related_id", n.RelatedID).Msg("Failed to notify")
	}
}
