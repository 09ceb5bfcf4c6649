package fake_auth

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/sessions"
	"github.com/thegoat123/thegoat/authentication"
	"golang.org/x/oauth2"
)

// Handler signs in a new fake user on each authentication, without talking to any provider.
type Handler struct {
	sessionStore sessions.Store
	serverUrl    string

	mtx     sync.Mutex
	counter int // used to return a different user for each auth
}

func New(sessionStore sessions.Store) *Handler {
	return &Handler{
		sessionStore: sessionStore,
	}
}

func (h *Handler) SetServerURL(url string) {
	h.serverUrl = url
}

func (h *Handler) LoadUserData(accessToken *oauth2.Token, req *http.Request, res http.ResponseWriter) (*authentication.User, error) {
	h.mtx.Lock()
	n := h.counter
	h.counter++
	h.mtx.Unlock()

	login := "fakeLogin" + strconv.Itoa(n)
	userSession := &authentication.User{
		Login:     login,
		Email:     login + "@example.com",
		AvatarURL: "https://www.placecage.com/g/200/200",
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
	if err := authentication.SaveState(h.sessionStore, req, res, "state"); err != nil {
		http.Error(res, "cannot save cookies", http.StatusInternalServerError)
		return
	}

	http.Redirect(res, req, h.serverUrl+"/oauth/authorize?state=state", http.StatusFound)
}

func (h *Handler) Callback(res http.ResponseWriter, req *http.Request, beforeWriteCallback func(*authentication.User) error) {
	u, err := h.LoadUserData(nil, req, res)
	if err != nil {
		http.Error(res, "couldn't load user data from fake auth", http.StatusInternalServerError)
		return
	}

	err = beforeWriteCallback(u)
	if err != nil {
		http.Error(res, "failed to execute oauth callback", http.StatusInternalServerError)
		return
	}

	http.Redirect(res, req, "/", http.StatusFound)
}

func (h *Handler) Destroy(res http.ResponseWriter, req *http.Request) {
	_ = authentication.ClearSession(h.sessionStore, req, res)
	http.Redirect(res, req, "/", http.StatusFound)
}
