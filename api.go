package thegoat

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodySize caps the size of JSON request bodies.
const maxBodySize = 1 << 20

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v interface{}) error {
	body := io.LimitReader(r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return BadRequest(errors.New("empty body"))
		}
		return BadRequest(err)
	}
	return nil
}

// respondError writes the response matching err. Errors that don't know how to respond
// are mapped from the domain errors, falling back on an internal server error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var responder ErrorResponder
	if errors.As(err, &responder) && responder.RespondError(w, r) {
		return
	}

	switch {
	case errors.Is(err, ErrPollNotFound), errors.Is(err, ErrOptionNotFound), errors.Is(err, ErrCommentNotFound),
		errors.Is(err, ErrNotificationNotFound):
		Maybe404(err).RespondError(w, r)
	case errors.Is(err, ErrPollClosed):
		Conflict("poll_closed", err).RespondError(w, r)
	case errors.Is(err, ErrAlreadyVoted):
		Conflict("already_voted", err).RespondError(w, r)
	case errors.Is(err, ErrOptionHasVotes):
		Conflict("option_has_votes", err).RespondError(w, r)
	case errors.Is(err, ErrDuplicate):
		Conflict("duplicate", err).RespondError(w, r)
	case errors.Is(err, ErrUnknownOption):
		UnprocessableEntityWithError(err, "option_id").RespondError(w, r)
	case errors.Is(err, ErrForbidden):
		Forbidden(err.Error()).RespondError(w, r)
	default:
		s.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respondJSON(w, http.StatusInternalServerError, errorBody{
			Error:   http.StatusText(http.StatusInternalServerError),
			Code:    "internal",
			Message: UserMessage(err),
		})
	}
}

// queryInt reads an integer from the query string, returning def when missing or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
