package github_auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/google/go-github/github"
	"github.com/gorilla/sessions"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"github.com/thegoat123/thegoat/authentication"
	"golang.org/x/oauth2"
)

// githubProfile holds the fields of the GitHub user we keep.
type githubProfile struct {
	Login     *string `mapstructure:"Login"`
	Email     *string `mapstructure:"Email"`
	AvatarURL *string `mapstructure:"AvatarURL"`
}

type Handler struct {
	sessionStore sessions.Store
	logger       zerolog.Logger
	oauthConfig  *oauth2.Config
}

func New(sessionStore sessions.Store, clientID string, clientSecret string, logger zerolog.Logger) *Handler {
	oauthConfig := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://github.com/login/oauth/authorize",
			TokenURL: "https://github.com/login/oauth/access_token",
		},
		RedirectURL: "",
		Scopes:      []string{"user:email"},
	}
	return &Handler{
		sessionStore: sessionStore,
		oauthConfig:  oauthConfig,
		logger:       logger.With().Str("component", "github_auth").Logger(),
	}
}

// LoadUserData fetches the GitHub profile of the token owner and stores it in the session.
func (h *Handler) LoadUserData(accessToken *oauth2.Token, req *http.Request, res http.ResponseWriter) (*authentication.User, error) {
	if accessToken == nil {
		return nil, fmt.Errorf("inconsistent state: no access token")
	}

	ctx := req.Context()
	client := github.NewClient(h.oauthConfig.Client(ctx, accessToken))

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, err
	}

	var profile githubProfile
	if err := mapstructure.Decode(user, &profile); err != nil {
		return nil, err
	}
	if profile.Login == nil {
		return nil, fmt.Errorf("github user has no login")
	}

	userSession := &authentication.User{Login: *profile.Login}
	if profile.AvatarURL != nil {
		userSession.AvatarURL = *profile.AvatarURL
	}
	if profile.Email != nil {
		userSession.Email = *profile.Email
	}

	if err := authentication.SaveUser(h.sessionStore, req, res, userSession); err != nil {
		return nil, err
	}

	return userSession, nil
}

func (h *Handler) CurrentUser(req *http.Request) (*authentication.User, error) {
	return authentication.LoadUser(h.sessionStore, req)
}

func (h *Handler) Start(res http.ResponseWriter, req *http.Request) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		h.logger.Error().Err(err).Msg("Failed to generate state")
		http.Error(res, "Failed to start authentication", http.StatusInternalServerError)
		return
	}

	state := base64.URLEncoding.EncodeToString(b)
	if err := authentication.SaveState(h.sessionStore, req, res, state); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save session")
		http.Error(res, "Failed to save session", http.StatusInternalServerError)
		return
	}

	url := h.oauthConfig.AuthCodeURL(state)
	http.Redirect(res, req, url, http.StatusFound)
}

func (h *Handler) Callback(res http.ResponseWriter, req *http.Request, beforeWriteCallback func(*authentication.User) error) {
	if !authentication.CheckState(h.sessionStore, req, req.URL.Query().Get("state")) {
		http.Error(res, "no state match; possible csrf OR cookies not enabled", http.StatusBadRequest)
		return
	}

	token, err := h.oauthConfig.Exchange(context.Background(), req.URL.Query().Get("code"))
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to exchange code")
		http.Error(res, "there was an issue getting your token", http.StatusInternalServerError)
		return
	}

	if !token.Valid() {
		http.Error(res, "retrieved invalid token", http.StatusBadRequest)
		return
	}

	u, err := h.LoadUserData(token, req, res)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load user data")
		http.Error(res, "couldn't load user data from Github", http.StatusInternalServerError)
		return
	}

	if err := beforeWriteCallback(u); err != nil {
		h.logger.Error().Err(err).Msg("oauth callback failed")
		http.Error(res, "failed to execute oauth callback", http.StatusInternalServerError)
		return
	}

	http.Redirect(res, req, "/", http.StatusFound)
}

func (h *Handler) Destroy(res http.ResponseWriter, req *http.Request) {
	if err := authentication.ClearSession(h.sessionStore, req, res); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to clear session")
	}

	http.Redirect(res, req, "/", http.StatusFound)
}
