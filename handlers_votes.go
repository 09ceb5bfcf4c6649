package thegoat

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/thegoat123/thegoat/realtime"
)

type voteBody struct {
	OptionID string `json:"option_id"`
}

type voteResponse struct {
	Poll     *PollView `json:"poll"`
	OptionID string    `json:"option_id"`
}

// HandleVote records the vote of the client, signed in or not, and returns the updated results.
// The creator of the poll is notified, unless voting on their own poll.
func (s *Server) HandleVote() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		var body voteBody
		if err := decodeJSON(req, &body); err != nil {
			s.respondError(res, req, err)
			return
		}
		if body.OptionID == "" {
			UnprocessableEntity("option_id").RespondError(res, req)
			return
		}

		identity := ResolveIdentity(req, ctxUser(req.Context()), s.config.TrustProxy)
		poll, err := CastVote(req.Context(), s.store, params.ByName("id"), body.OptionID, identity)
		if err != nil {
			s.Logger.Debug().Err(err).Str("poll_id", params.ByName("id")).Msg("Vote refused")
			s.respondError(res, req, err)
			return
		}

		s.notify(req.Context(), NewVoteNotification(poll, identity.UserID))
		s.publish(req.Context(), realtime.KindPollUpdated, poll.ID)
		respondJSON(res, http.StatusOK, &voteResponse{Poll: NewPollView(poll), OptionID: body.OptionID})
	}
}

type myVote struct {
	Voted    bool   `json:"voted"`
	OptionID string `json:"option_id,omitempty"`
}

// HandleMyVote tells if the client already voted on the poll, and for which option.
func (s *Server) HandleMyVote() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		identity := ResolveIdentity(req, ctxUser(req.Context()), s.config.TrustProxy)
		vote, err := s.store.FindVote(req.Context(), params.ByName("id"), identity.Key())
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		v := &myVote{}
		if vote != nil {
			v.Voted = true
			v.OptionID = vote.OptionID
		}
		respondJSON(res, http.StatusOK, v)
	}
}
