package thegoat

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/thegoat123/thegoat/authentication"
	"github.com/thegoat123/thegoat/authentication/password_auth"
	"github.com/thegoat123/thegoat/imagestore"
	"github.com/thegoat123/thegoat/realtime"
)

type ServerConfig struct {
	Addr         string
	PollsPerPage int
	// TrustProxy makes identities rely on X-Forwarded-For and X-Real-IP.
	TrustProxy bool
	// AllowedOrigins are the origins allowed to open live connections, any origin when empty.
	AllowedOrigins []string
}

// PollHook is called after a poll has been created.
type PollHook func(*Poll) error

type Server struct {
	Logger          zerolog.Logger
	config          *ServerConfig
	store           Store
	router          *httprouter.Router
	done            chan struct{}
	idleConnsClosed chan struct{}
	authService     authentication.AuthService
	passwordAuth    *password_auth.Service
	broker          realtime.Broker
	uploader        imagestore.Uploader
	upgrader        websocket.Upgrader
	pollHooks       []PollHook
}

func NewServer(config *ServerConfig, logger zerolog.Logger, store Store, authService authentication.AuthService) *Server {
	if config.PollsPerPage <= 0 {
		config.PollsPerPage = 20
	}

	s := &Server{
		config:          config,
		store:           store,
		authService:     authService,
		router:          httprouter.New(),
		Logger:          logger,
		done:            make(chan struct{}),
		idleConnsClosed: make(chan struct{}),
		broker:          realtime.NewHub(logger.With().Str("component", "realtime").Logger()),
		uploader:        imagestore.Disabled{},
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	return s
}

// UsePasswordAuth enables email and password sign-up and sign-in.
func (s *Server) UsePasswordAuth(svc *password_auth.Service) {
	s.passwordAuth = svc
}

// UseBroker replaces the in-process realtime hub, to share events across instances.
func (s *Server) UseBroker(b realtime.Broker) {
	s.broker = b
}

func (s *Server) UseUploader(u imagestore.Uploader) {
	s.uploader = u
}

func (s *Server) AddPollHook(h PollHook) {
	s.pollHooks = append(s.pollHooks, h)
}

func (s *Server) Prepare() error {
	// database
	err := s.store.Connect()
	if err != nil {
		return err
	}

	s.router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		s.Logger.Error().Interface("panic", v).Str("path", r.URL.Path).Msg("recovered from panic")
		respondJSON(w, http.StatusInternalServerError, errorBody{
			Error:   http.StatusText(http.StatusInternalServerError),
			Code:    "internal",
			Message: "오류가 발생했습니다",
		})
	}

	// routes
	s.router.GET("/oauth/start", s.HandleOAuthStart())
	s.router.GET("/oauth/authorize", s.HandleOAuthCallback())
	s.router.GET("/oauth/destroy", s.HandleOAuthDestroy())

	withMiddlewares(func(m middleware) {
		s.router.POST("/auth/signup", m(s.HandleSignUp()))
		s.router.POST("/auth/signin", m(s.HandleSignIn()))
	}, s.loadSessionMiddleware())

	// public routes, aware of the user if signed in
	withMiddlewares(func(m middleware) {
		s.router.GET("/api/polls", m(s.HandleListPolls()))
		s.router.GET("/api/search", m(s.HandleSearchPolls()))
		s.router.GET("/api/hot-polls", m(s.HandleHotPolls()))
		s.router.GET("/api/top-polls", m(s.HandleTopPolls()))
		s.router.GET("/api/close-polls", m(s.HandleClosePolls()))
		s.router.GET("/api/polls/:id", m(s.HandleShowPoll()))
		s.router.GET("/api/polls/:id/stats", m(s.HandlePollStats()))
		s.router.GET("/api/polls/:id/comments", m(s.HandleListComments()))
		s.router.GET("/api/polls/:id/vote", m(s.HandleMyVote()))
		s.router.POST("/api/polls/:id/vote", m(s.HandleVote()))
		s.router.POST("/api/polls/:id/views", m(s.HandleCountView()))
		s.router.POST("/api/polls/:id/shares", m(s.HandleCountShare()))
		s.router.GET("/api/polls/:id/live", m(s.HandleLivePoll()))
		s.router.GET("/api/live/polls", m(s.HandleLivePolls()))
	}, s.loadSessionMiddleware(), s.loadOptionalUserMiddleware())

	// authenticated routes
	withMiddlewares(func(m middleware) {
		s.router.POST("/api/polls", m(s.HandleCreatePoll()))
		s.router.PUT("/api/polls/:id", m(s.HandleUpdatePoll()))
		s.router.DELETE("/api/polls/:id", m(s.HandleDeletePoll()))
		s.router.POST("/api/polls/:id/options", m(s.HandleAddOption()))
		s.router.DELETE("/api/polls/:id/options/:option_id", m(s.HandleDeleteOption()))
		s.router.POST("/api/polls/:id/options/:option_id/image", m(s.HandleUploadOptionImage()))
		s.router.POST("/api/polls/:id/comments", m(s.HandleCreateComment()))
		s.router.DELETE("/api/polls/:id/comments/:comment_id", m(s.HandleDeleteComment()))
		s.router.POST("/api/polls/:id/comments/:comment_id/like", m(s.HandleLikeComment()))
		s.router.POST("/api/polls/:id/bookmark", m(s.HandleToggleBookmark()))
		s.router.GET("/api/me", m(s.HandleMe()))
		s.router.GET("/api/me/polls", m(s.HandleMyPolls()))
		s.router.GET("/api/me/votes", m(s.HandleMyVotedPolls()))
		s.router.GET("/api/me/comments", m(s.HandleMyComments()))
		s.router.GET("/api/me/bookmarks", m(s.HandleMyBookmarks()))
		s.router.GET("/api/me/bookmarks/status", m(s.HandleBookmarkStatuses()))
		s.router.GET("/api/me/notifications", m(s.HandleMyNotifications()))
		s.router.DELETE("/api/me/notifications", m(s.HandleClearNotifications()))
		s.router.POST("/api/me/notifications/:id/read", m(s.HandleReadNotification()))
	}, s.loadSessionMiddleware(), s.loadUserMiddleware())

	return nil
}

func (s *Server) Start() error {
	httpServer := http.Server{Addr: s.config.Addr, Handler: s}

	go func() {
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.Logger.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	s.Logger.Info().Str("addr", s.config.Addr).Msg("Listening")
	<-s.done

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return err
	}
	close(s.idleConnsClosed)

	return nil
}

func (s *Server) Stop() {
	close(s.done)
	<-s.idleConnsClosed
}

func (s *Server) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	s.router.ServeHTTP(res, req)
}

// publish notifies live clients that a poll changed. Failures are logged, the change itself
// already happened.
func (s *Server) publish(ctx context.Context, kind string, pollID string) {
	for _, topic := range []string{realtime.PollTopic(pollID), realtime.TopicPolls} {
		err := s.broker.Publish(ctx, realtime.Event{Topic: topic, Kind: kind, PollID: pollID})
		if err != nil {
			s.Logger.Warn().Err(err).Str("poll_id", pollID).Msg("Failed to publish event")
		}
	}
}
