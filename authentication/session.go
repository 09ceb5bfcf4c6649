package authentication

import (
	"net/http"

	"github.com/gorilla/sessions"
	jsoniter "github.com/json-iterator/go"
)

// SessionName is the name of the cookie shared by every sign-in method.
const SessionName = "thegoat-session"

const (
	userKey  = "user"
	stateKey = "state"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SaveUser stores u in the session, signing the client in.
func SaveUser(store sessions.Store, req *http.Request, res http.ResponseWriter, u *User) error {
	session, err := store.Get(req, SessionName)
	if err != nil {
		return err
	}

	b, err := json.Marshal(u)
	if err != nil {
		return err
	}

	session.Values[userKey] = b
	delete(session.Values, stateKey)
	return session.Save(req, res)
}

// LoadUser returns the user stored in the session, or nil if the client isn't signed in.
func LoadUser(store sessions.Store, req *http.Request) (*User, error) {
	session, err := store.Get(req, SessionName)
	if err != nil {
		return nil, err
	}

	b, ok := session.Values[userKey].([]byte)
	if !ok {
		return nil, nil
	}

	var u User
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, err
	}

	return &u, nil
}

// SaveState remembers the OAuth state to check on callback.
func SaveState(store sessions.Store, req *http.Request, res http.ResponseWriter, state string) error {
	session, err := store.Get(req, SessionName)
	if err != nil {
		return err
	}
	session.Values[stateKey] = state
	return session.Save(req, res)
}

func CheckState(store sessions.Store, req *http.Request, state string) bool {
	session, err := store.Get(req, SessionName)
	if err != nil {
		return false
	}
	saved, ok := session.Values[stateKey].(string)
	return ok && saved != "" && saved == state
}

// ClearSession signs the client out.
func ClearSession(store sessions.Store, req *http.Request, res http.ResponseWriter) error {
	// an undecodable cookie still yields a fresh session, which overwrites it
	session, err := store.Get(req, SessionName)
	if session == nil {
		return err
	}

	session.Options.MaxAge = -1
	delete(session.Values, userKey)
	return session.Save(req, res)
}
