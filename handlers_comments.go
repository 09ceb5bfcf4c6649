package thegoat

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"
	"github.com/thegoat123/thegoat/realtime"
)

// HandleListComments lists the comments of a poll, newest first, telling which ones the signed
// in user liked.
func (s *Server) HandleListComments() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		poll, err := s.store.FindPoll(req.Context(), params.ByName("id"))
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		var viewerID string
		if user := ctxUser(req.Context()); user != nil {
			viewerID = user.ID
		}

		comments, err := s.store.ListComments(req.Context(), poll.ID, viewerID)
		if err != nil {
			s.Logger.Error().Err(err).Msg("Failed to list comments")
			s.respondError(res, req, err)
			return
		}

		respondJSON(res, http.StatusOK, comments)
	}
}

type commentBody struct {
	Content  string  `json:"content"`
	OptionID *string `json:"option_id,omitempty"`
}

// HandleCreateComment posts a comment on a poll, optionally siding with one of its options.
// The creator of the poll is notified of comments from other users.
func (s *Server) HandleCreateComment() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		user := ctxUser(req.Context())
		poll, err := s.store.FindPoll(req.Context(), params.ByName("id"))
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		var body commentBody
		if err := decodeJSON(req, &body); err != nil {
			s.respondError(res, req, err)
			return
		}

		content := strings.TrimSpace(body.Content)
		if n := utf8.RuneCountInString(content); n == 0 || n > MaxCommentLength {
			UnprocessableEntity("content").RespondError(res, req)
			return
		}

		optionID := body.OptionID
		if optionID != nil && *optionID == "" {
			optionID = nil
		}
		if optionID != nil && poll.Option(*optionID) == nil {
			s.respondError(res, req, ErrUnknownOption)
			return
		}

		comment := NewComment(poll.ID, optionID, content, user.ID)
		if err := s.store.InsertComment(req.Context(), comment); err != nil {
			s.Logger.Error().Err(err).Msg("Failed to insert comment")
			s.respondError(res, req, err)
			return
		}
		comment.Author = user.Name
		if optionID != nil {
			o := poll.Option(*optionID)
			comment.OptionText = &o.Text
			comment.OptionColor = &o.Color
		}

		s.notify(req.Context(), NewCommentNotification(poll, user))
		s.publish(req.Context(), realtime.KindComment, poll.ID)
		respondJSON(res, http.StatusCreated, comment)
	}
}

// findPollComment fetches the comment of the request, making sure it belongs to the poll of the request.
func (s *Server) findPollComment(req *http.Request, params httprouter.Params) (*Comment, error) {
	comment, err := s.store.FindComment(req.Context(), params.ByName("comment_id"))
	if err != nil {
		return nil, err
	}
	if comment.PollID != params.ByName("id") {
		return nil, ErrCommentNotFound
	}
	return comment, nil
}

// HandleDeleteComment deletes a comment of the signed in user. Comments that were liked are
// blanked out rather than removed.
func (s *Server) HandleDeleteComment() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		user := ctxUser(req.Context())
		comment, err := s.findPollComment(req, params)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		if comment.UserID != user.ID {
			Forbidden("본인 댓글만 삭제할 수 있습니다.").RespondError(res, req)
			return
		}

		soft, err := s.store.DeleteComment(req.Context(), comment.ID)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		s.publish(req.Context(), realtime.KindComment, comment.PollID)
		respondJSON(res, http.StatusOK, map[string]bool{"deleted": true, "soft": soft})
	}
}

type likeResponse struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

// HandleLikeComment likes a comment, or takes the like back if the user already liked it.
// The author of the comment is notified of likes from other users.
func (s *Server) HandleLikeComment() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		user := ctxUser(req.Context())
		comment, err := s.findPollComment(req, params)
		if err != nil {
			s.respondError(res, req, err)
			return
		}
		if comment.IsDeleted() {
			s.respondError(res, req, ErrCommentNotFound)
			return
		}

		liked, likes, err := s.store.ToggleCommentLike(req.Context(), comment.ID, user.ID)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		if liked && comment.UserID != user.ID {
			s.notify(req.Context(), NewLikeNotification(comment, user))
		}

		s.publish(req.Context(), realtime.KindComment, comment.PollID)
		respondJSON(res, http.StatusOK, &likeResponse{Liked: liked, Likes: likes})
	}
}

// HandleMyComments lists the comments of the signed in user, deleted ones excluded.
func (s *Server) HandleMyComments() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		user := ctxUser(req.Context())
		comments, err := s.store.ListUserComments(req.Context(), user.ID)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		respondJSON(res, http.StatusOK, comments)
	}
}
