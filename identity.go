package thegoat

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// An Identity is what one-vote-per-poll is enforced on: the authenticated user if any, the client
// address otherwise.
type Identity struct {
	UserID string
	Addr   string
	// Anonymous is set when neither a user nor an address could be found.
	Anonymous string
}

// Key returns the string votes are deduplicated on.
func (i Identity) Key() string {
	switch {
	case i.UserID != "":
		return "user:" + i.UserID
	case i.Addr != "":
		return "ip:" + i.Addr
	default:
		return i.Anonymous
	}
}

// ResolveIdentity builds the identity of the client issuing req. Forwarding headers are only
// considered when trustProxy is set, as any client can forge them otherwise.
func ResolveIdentity(req *http.Request, user *User, trustProxy bool) Identity {
	id := Identity{Addr: clientAddr(req, trustProxy)}
	if user != nil {
		id.UserID = user.ID
	}

	if id.UserID == "" && id.Addr == "" {
		id.Anonymous = "anonymous_" + uuid.NewString()
	}

	return id
}

func clientAddr(req *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
			first := strings.TrimSpace(strings.Split(fwd, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}

		if real := strings.TrimSpace(req.Header.Get("X-Real-IP")); net.ParseIP(real) != nil {
			return real
		}
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	if net.ParseIP(host) == nil {
		return ""
	}

	return host
}
