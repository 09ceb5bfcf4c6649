package thegoat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"
	"github.com/thegoat123/thegoat/imagestore"
	"github.com/thegoat123/thegoat/realtime"
)

const (
	spotlightSize   = 3
	closePollsLimit = 5
	// closePollsScan bounds how many popular versus polls are looked at when searching close ones.
	closePollsScan = 100
	recentVotes    = 10
	// maxPage keeps offsets far from overflowing.
	maxPage = 10000
)

// statsLocation is the timezone hourly vote buckets are computed in.
var statsLocation = time.FixedZone("KST", 9*60*60)

type pollsPage struct {
	Polls   []*PollView `json:"polls"`
	Page    int         `json:"page"`
	HasMore bool        `json:"has_more"`
}

func (s *Server) filterFromQuery(req *http.Request) *PollFilter {
	q := req.URL.Query()
	page := queryInt(req, "page", 0)
	if page < 0 {
		page = 0
	}
	if page > maxPage {
		page = maxPage
	}

	return &PollFilter{
		Category: q.Get("category"),
		Type:     PollType(q.Get("type")),
		Query:    q.Get("q"),
		Sort:     ParsePollSort(q.Get("sort")),
		Limit:    s.config.PollsPerPage,
		Offset:   page * s.config.PollsPerPage,
	}
}

// listPage fetches one more poll than asked to tell if there is a next page.
func (s *Server) listPage(ctx context.Context, filter *PollFilter) (*pollsPage, error) {
	limit := filter.Limit
	filter.Limit = limit + 1

	polls, err := s.store.ListPolls(ctx, filter)
	if err != nil {
		return nil, err
	}

	page := &pollsPage{Page: filter.Offset / limit}
	if len(polls) > limit {
		page.HasMore = true
		polls = polls[:limit]
	}
	page.Polls = NewPollViews(polls)

	return page, nil
}

// HandleListPolls lists active polls, filtered by category and type, sorted and paginated.
func (s *Server) HandleListPolls() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		filter := s.filterFromQuery(req)
		filter.Query = ""

		page, err := s.listPage(req.Context(), filter)
		if err != nil {
			s.Logger.Error().Err(err).Msg("Failed to list polls")
			s.respondError(res, req, err)
			return
		}

		respondJSON(res, http.StatusOK, page)
	}
}

// HandleSearchPolls lists active polls whose title, description or category contain the q
// query parameter.
func (s *Server) HandleSearchPolls() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		filter := s.filterFromQuery(req)
		if strings.TrimSpace(filter.Query) == "" {
			respondJSON(res, http.StatusOK, &pollsPage{Polls: []*PollView{}})
			return
		}

		page, err := s.listPage(req.Context(), filter)
		if err != nil {
			s.Logger.Error().Err(err).Str("q", filter.Query).Msg("Failed to search polls")
			s.respondError(res, req, err)
			return
		}

		respondJSON(res, http.StatusOK, page)
	}
}

// HandleHotPolls lists the polls flagged hot with the most votes. When there aren't enough of them,
// it falls back on the most voted polls.
func (s *Server) HandleHotPolls() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		polls, err := s.store.ListPolls(req.Context(), &PollFilter{HotOnly: true, Sort: SortPopular, Limit: spotlightSize})
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		if len(polls) < spotlightSize {
			polls, err = s.store.ListPolls(req.Context(), &PollFilter{MinVotes: 1, Sort: SortPopular, Limit: spotlightSize})
			if err != nil {
				s.respondError(res, req, err)
				return
			}
		}

		respondJSON(res, http.StatusOK, NewPollViews(polls))
	}
}

// HandleTopPolls lists the most voted active polls.
func (s *Server) HandleTopPolls() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		polls, err := s.store.ListPolls(req.Context(), &PollFilter{Sort: SortPopular, Limit: spotlightSize})
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		respondJSON(res, http.StatusOK, NewPollViews(polls))
	}
}

// HandleClosePolls lists versus polls whose options are neck and neck.
func (s *Server) HandleClosePolls() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		polls, err := s.store.ListPolls(req.Context(), &PollFilter{
			Type:     PollTypeVersus,
			MinVotes: 11,
			Sort:     SortPopular,
			Limit:    closePollsScan,
		})
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		neck := []*Poll{}
		for _, p := range polls {
			if IsNeckAndNeck(p) {
				neck = append(neck, p)
			}
			if len(neck) == closePollsLimit {
				break
			}
		}

		respondJSON(res, http.StatusOK, NewPollViews(neck))
	}
}

// HandleShowPoll returns a poll with its options and results.
func (s *Server) HandleShowPoll() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		id := params.ByName("id")
		poll, err := s.store.FindPoll(req.Context(), id)
		if err != nil {
			s.Logger.Debug().Err(err).Str("id", id).Msg("Failed to find poll")
			s.respondError(res, req, err)
			return
		}

		respondJSON(res, http.StatusOK, NewPollView(poll))
	}
}

type pollStats struct {
	Poll        *PollView      `json:"poll"`
	Hourly      []*HourlyVotes `json:"hourly"`
	Options     []*OptionStat  `json:"options"`
	RecentVotes []*RecentVote  `json:"recent_votes"`
}

// HandlePollStats returns the votes of a poll by hour, its options statistics and its latest votes.
func (s *Server) HandlePollStats() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		ctx := req.Context()
		poll, err := s.store.FindPoll(ctx, params.ByName("id"))
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		votes, err := s.store.ListVotes(ctx, poll.ID)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		recent, err := s.store.ListRecentVotes(ctx, poll.ID, recentVotes)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		respondJSON(res, http.StatusOK, &pollStats{
			Poll:        NewPollView(poll),
			Hourly:      VotesByHour(votes, statsLocation),
			Options:     OptionStats(poll),
			RecentVotes: recent,
		})
	}
}

func (s *Server) handleCounter(counter Counter) httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		n, err := s.store.IncrementPollCounter(req.Context(), params.ByName("id"), counter)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		respondJSON(res, http.StatusOK, map[string]int64{string(counter): n})
	}
}

func (s *Server) HandleCountView() httprouter.Handle {
	return s.handleCounter(CounterViews)
}

func (s *Server) HandleCountShare() httprouter.Handle {
	return s.handleCounter(CounterShares)
}

// HandleCreatePoll creates a poll and its options. Poll hooks run once the poll is stored, their
// failures don't fail the request.
func (s *Server) HandleCreatePoll() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		user := ctxUser(req.Context())

		var in PollInput
		if err := decodeJSON(req, &in); err != nil {
			s.respondError(res, req, err)
			return
		}
		if err := in.Validate(in.PollType, NowFunc()); err != nil {
			s.respondError(res, req, err)
			return
		}

		poll := in.NewPoll(user.ID)
		if err := s.store.InsertPoll(req.Context(), poll); err != nil {
			s.Logger.Error().Err(err).Msg("Failed to insert poll")
			s.respondError(res, req, err)
			return
		}
		poll.Author = user.Name

		for _, h := range s.pollHooks {
			if err := h(poll); err != nil {
				s.Logger.Warn().Err(err).Str("poll_id", poll.ID).Msg("poll hook failed")
			}
		}

		s.publish(req.Context(), realtime.KindPollUpdated, poll.ID)
		respondJSON(res, http.StatusCreated, NewPollView(poll))
	}
}

// findOwnedPoll fetches the poll of the request, failing unless the user created it.
func (s *Server) findOwnedPoll(req *http.Request, params httprouter.Params) (*Poll, error) {
	poll, err := s.store.FindPoll(req.Context(), params.ByName("id"))
	if err != nil {
		return nil, err
	}

	user := ctxUser(req.Context())
	if !poll.IsOwnedBy(user.ID) {
		return nil, Forbidden("투표를 만든 사람만 수정할 수 있습니다.")
	}

	return poll, nil
}

// HandleUpdatePoll edits a poll and its options at once. The type of a poll can't change.
func (s *Server) HandleUpdatePoll() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		poll, err := s.findOwnedPoll(req, params)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		var in PollInput
		if err := decodeJSON(req, &in); err != nil {
			s.respondError(res, req, err)
			return
		}
		// an unchanged end date may be in the past already
		endsAt := in.EndsAt
		if endsAt != nil && poll.EndsAt != nil && endsAt.Equal(*poll.EndsAt) {
			in.EndsAt = nil
		}
		err = in.Validate(poll.PollType, NowFunc())
		in.EndsAt = endsAt
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		edit := DiffOptions(poll.Options, in.DesiredOptions(poll.ID))
		for _, id := range edit.Delete {
			if o := poll.Option(id); o != nil && o.VoteCount > 0 {
				s.respondError(res, req, ErrOptionHasVotes)
				return
			}
		}

		in.Apply(poll)
		if err := s.store.UpdatePoll(req.Context(), poll, edit); err != nil {
			s.Logger.Error().Err(err).Str("poll_id", poll.ID).Msg("Failed to update poll")
			s.respondError(res, req, err)
			return
		}

		updated, err := s.store.FindPoll(req.Context(), poll.ID)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		s.publish(req.Context(), realtime.KindPollUpdated, poll.ID)
		respondJSON(res, http.StatusOK, NewPollView(updated))
	}
}

// HandleDeletePoll deletes a poll along with its options, votes, comments and bookmarks.
func (s *Server) HandleDeletePoll() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		poll, err := s.findOwnedPoll(req, params)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		if err := s.store.DeletePoll(req.Context(), poll.ID); err != nil {
			s.respondError(res, req, err)
			return
		}

		s.publish(req.Context(), realtime.KindPollDeleted, poll.ID)
		res.WriteHeader(http.StatusNoContent)
	}
}

type optionBody struct {
	Text string `json:"text"`
}

// HandleAddOption adds an option submitted by a user to an active multiple poll.
func (s *Server) HandleAddOption() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		user := ctxUser(req.Context())
		poll, err := s.store.FindPoll(req.Context(), params.ByName("id"))
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		if poll.PollType != PollTypeMultiple {
			UnprocessableEntityWithError(errors.New("only multiple polls accept new options"), "poll_type").RespondError(res, req)
			return
		}
		if poll.IsClosed(NowFunc()) {
			s.respondError(res, req, ErrPollClosed)
			return
		}
		if len(poll.Options) >= MaxOptions {
			UnprocessableEntity("options").RespondError(res, req)
			return
		}

		var body optionBody
		if err := decodeJSON(req, &body); err != nil {
			s.respondError(res, req, err)
			return
		}
		text := strings.TrimSpace(body.Text)
		if n := utf8.RuneCountInString(text); n == 0 || n > MaxOptionLength {
			UnprocessableEntity("text").RespondError(res, req)
			return
		}
		for _, o := range poll.Options {
			if strings.EqualFold(o.Text, text) {
				s.respondError(res, req, ErrDuplicate)
				return
			}
		}

		opt := NewUserOption(poll.ID, text, poll.NextDisplayOrder(), user.ID)
		opt.Color = OptionColor(len(poll.Options))
		if err := s.store.InsertOption(req.Context(), opt); err != nil {
			s.respondError(res, req, err)
			return
		}

		s.publish(req.Context(), realtime.KindPollUpdated, poll.ID)
		respondJSON(res, http.StatusCreated, opt)
	}
}

// HandleDeleteOption removes an option a user submitted, as long as nobody voted for it.
func (s *Server) HandleDeleteOption() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		user := ctxUser(req.Context())
		poll, err := s.store.FindPoll(req.Context(), params.ByName("id"))
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		opt := poll.Option(params.ByName("option_id"))
		if opt == nil {
			s.respondError(res, req, ErrOptionNotFound)
			return
		}
		if !opt.IsUserSubmitted || opt.CreatedBy == nil || *opt.CreatedBy != user.ID {
			Forbidden("직접 추가한 옵션만 삭제할 수 있습니다.").RespondError(res, req)
			return
		}
		if opt.VoteCount > 0 {
			s.respondError(res, req, ErrOptionHasVotes)
			return
		}

		if err := s.store.DeleteOption(req.Context(), poll.ID, opt.ID); err != nil {
			s.respondError(res, req, err)
			return
		}

		s.publish(req.Context(), realtime.KindPollUpdated, poll.ID)
		res.WriteHeader(http.StatusNoContent)
	}
}

// HandleUploadOptionImage stores the image sent in the image field of a multipart form and
// attaches it to the option.
func (s *Server) HandleUploadOptionImage() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		poll, err := s.findOwnedPoll(req, params)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		opt := poll.Option(params.ByName("option_id"))
		if opt == nil {
			s.respondError(res, req, ErrOptionNotFound)
			return
		}

		req.Body = http.MaxBytesReader(res, req.Body, imagestore.MaxSize+1<<20)
		if err := req.ParseMultipartForm(imagestore.MaxSize); err != nil {
			BadRequest(err).RespondError(res, req)
			return
		}

		file, header, err := req.FormFile("image")
		if err != nil {
			UnprocessableEntityWithError(err, "image").RespondError(res, req)
			return
		}
		defer file.Close()

		contentType, err := imagestore.Sniff(file)
		if err != nil {
			BadRequest(err).RespondError(res, req)
			return
		}
		if err := imagestore.Validate(contentType, header.Size); err != nil {
			UnprocessableEntityWithError(err, "image").RespondError(res, req)
			return
		}

		key := imagestore.ObjectKey(poll.ID, opt.ID, header.Filename)
		url, err := s.uploader.Upload(req.Context(), key, contentType, file)
		if errors.Is(err, imagestore.ErrDisabled) {
			respondJSON(res, http.StatusNotImplemented, errorBody{
				Error: http.StatusText(http.StatusNotImplemented),
				Code:  "uploads_disabled",
			})
			return
		}
		if err != nil {
			s.Logger.Error().Err(err).Str("key", key).Msg("Failed to upload image")
			s.respondError(res, req, err)
			return
		}

		if err := s.store.UpdateOptionImage(req.Context(), opt.ID, url); err != nil {
			s.respondError(res, req, err)
			return
		}

		s.publish(req.Context(), realtime.KindPollUpdated, poll.ID)
		respondJSON(res, http.StatusOK, map[string]string{"url": url})
	}
}

// HandleMyPolls lists the polls created by the signed in user, whatever their status.
func (s *Server) HandleMyPolls() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		user := ctxUser(req.Context())
		polls, err := s.store.ListPolls(req.Context(), &PollFilter{
			CreatedBy:   user.ID,
			AllStatuses: true,
			Sort:        SortRecent,
		})
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		respondJSON(res, http.StatusOK, NewPollViews(polls))
	}
}

// HandleMyVotedPolls lists the polls the signed in user voted on, most recent vote first.
func (s *Server) HandleMyVotedPolls() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		user := ctxUser(req.Context())
		polls, err := s.store.ListPollsVotedBy(req.Context(), user.ID)
		if err != nil {
			s.respondError(res, req, err)
			return
		}

		respondJSON(res, http.StatusOK, NewPollViews(polls))
	}
}
