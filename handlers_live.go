package thegoat

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/thegoat123/thegoat/realtime"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// live clients only send control frames
	maxLiveMessageSize = 512
)

// liveMessage is what live connections push to clients.
type liveMessage struct {
	Type  string      `json:"type"`
	Poll  *PollView   `json:"poll,omitempty"`
	Polls []*PollView `json:"polls,omitempty"`
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.config.AllowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range s.config.AllowedOrigins {
		if strings.EqualFold(allowed, u.Scheme+"://"+u.Host) {
			return true
		}
	}
	return false
}

// live upgrades the connection and pushes what render returns, first right away then each time
// an event is received on topic, until the client goes away or render says to stop.
func (s *Server) live(res http.ResponseWriter, req *http.Request, topic string, render func(ctx context.Context, e *realtime.Event) (*liveMessage, bool, error)) {
	conn, err := s.upgrader.Upgrade(res, req, nil)
	if err != nil {
		// the upgrader already responded
		s.Logger.Debug().Err(err).Msg("Failed to upgrade connection")
		return
	}
	defer conn.Close()

	sub := s.broker.Subscribe(topic)
	defer sub.Close()

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	// reading is required to process pongs and notice closed connections
	go func() {
		defer cancel()
		conn.SetReadLimit(maxLiveMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	push := func(e *realtime.Event) bool {
		msg, more, err := render(ctx, e)
		if err != nil {
			s.Logger.Warn().Err(err).Str("topic", topic).Msg("Failed to render live update")
			return !errors.Is(err, context.Canceled)
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			return false
		}
		return more
	}

	if !push(nil) {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-sub.C:
			if !push(&e) {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleLivePoll pushes the results of a poll each time it changes.
func (s *Server) HandleLivePoll() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		id := params.ByName("id")
		if _, err := s.store.FindPoll(req.Context(), id); err != nil {
			s.respondError(res, req, err)
			return
		}

		s.live(res, req, realtime.PollTopic(id), func(ctx context.Context, e *realtime.Event) (*liveMessage, bool, error) {
			if e != nil && e.Kind == realtime.KindPollDeleted {
				return &liveMessage{Type: "deleted"}, false, nil
			}

			poll, err := s.store.FindPoll(ctx, id)
			if errors.Is(err, ErrPollNotFound) {
				return &liveMessage{Type: "deleted"}, false, nil
			}
			if err != nil {
				return nil, true, err
			}

			msgType := "poll"
			if e != nil && e.Kind == realtime.KindComment {
				msgType = "comment"
			}
			return &liveMessage{Type: msgType, Poll: NewPollView(poll)}, true, nil
		})
	}
}

// HandleLivePolls pushes the first page of the poll list each time any poll changes.
func (s *Server) HandleLivePolls() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		filter := s.filterFromQuery(req)
		filter.Query = ""
		filter.Offset = 0

		s.live(res, req, realtime.TopicPolls, func(ctx context.Context, _ *realtime.Event) (*liveMessage, bool, error) {
			f := *filter
			polls, err := s.store.ListPolls(ctx, &f)
			if err != nil {
				return nil, true, err
			}
			return &liveMessage{Type: "polls", Polls: NewPollViews(polls)}, true, nil
		})
	}
}
