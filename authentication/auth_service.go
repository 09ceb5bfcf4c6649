package authentication

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// An OAuthHandler is responsible of providing the callbacks to interact
// with an OAuth provider.
type OAuthHandler interface {
	Start(res http.ResponseWriter, req *http.Request)
	Callback(res http.ResponseWriter, req *http.Request, beforeWriteCallback func(*User) error)
	Destroy(res http.ResponseWriter, req *http.Request)
}

// An AuthService wraps OAuth and a access to the current user.
type AuthService interface {
	OAuthHandler
	CurrentUser(req *http.Request) (*User, error)
	LoadUserData(token *oauth2.Token, req *http.Request, res http.ResponseWriter) (*User, error)
}

// A User is what is kept in the session about the signed in user.
type User struct {
	AvatarURL string `json:"avatar_url,omitempty"`
	Login     string `json:"login"`
	Email     string `json:"email,omitempty"`
}

// Credentials are what email and password sign-in checks against.
type Credentials struct {
	Login        string
	Email        string
	PasswordHash string
}

type CredentialsStore interface {
	// FindCredentials returns nil and no error when there is no such login.
	FindCredentials(ctx context.Context, login string) (*Credentials, error)
	InsertCredentials(ctx context.Context, c *Credentials) error
}
