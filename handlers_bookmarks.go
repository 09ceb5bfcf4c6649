package thegoat

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
)

const maxBookmarkStatuses = 100

// HandleToggleBookmark bookmarks a poll for the signed in user, or removes the bookmark.
func (s *Server) HandleToggleBookmark() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		user := ctxUser(req.Context())
		poll, err := s.store.FindPoll(req.Context(), params.ByName("id"))
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		bookmarked, err := s.store.ToggleBookmark(req.Context(), user.ID, poll.ID)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		respondJSON(res, http.StatusOK, map[string]bool{"bookmarked": bookmarked})
	}
}

// HandleMyBookmarks lists the polls bookmarked by the signed in user, last bookmarked first.
func (s *Server) HandleMyBookmarks() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		user := ctxUser(req.Context())
		polls, err := s.store.ListBookmarkedPolls(req.Context(), user.ID)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		respondJSON(res, http.StatusOK, NewPollViews(polls))
	}
}

// HandleBookmarkStatuses tells which of the polls listed in the comma separated ids parameter
// the signed in user bookmarked.
func (s *Server) HandleBookmarkStatuses() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		user := ctxUser(req.Context())

		ids := []string{}
		for _, id := range strings.Split(req.URL.Query().Get("ids"), ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) > maxBookmarkStatuses {
			UnprocessableEntity("ids").RespondError(res, req)
			return
		}

		statuses, err := s.store.BookmarkStatuses(req.Context(), user.ID, ids)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		respondJSON(res, http.StatusOK, statuses)
	}
}
