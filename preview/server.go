package preview

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/thegoat123/thegoat"
)

// maxPageSize bounds the size of origin pages loaded in memory to be rewritten.
const maxPageSize = 2 << 20

type Config struct {
	Addr string
	// OriginURL serves the client application shell.
	OriginURL string
	// SiteURL is the public address of the site, used in links and meta tags.
	SiteURL string
}

// Server serves link previews of polls to social networks crawlers.
type Server struct {
	Logger          zerolog.Logger
	config          *Config
	fetcher         PollFetcher
	client          *http.Client
	router          *httprouter.Router
	done            chan struct{}
	idleConnsClosed chan struct{}
}

func NewServer(config *Config, logger zerolog.Logger, fetcher PollFetcher) *Server {
	s := &Server{
		Logger:          logger,
		config:          config,
		fetcher:         fetcher,
		client:          &http.Client{Timeout: 10 * time.Second},
		router:          httprouter.New(),
		done:            make(chan struct{}),
		idleConnsClosed: make(chan struct{}),
	}

	s.router.GET("/poll/:id", s.HandlePollPage())
	s.router.GET("/api/poll-meta", s.HandlePollMeta())
	s.router.GET("/ssr/poll/:id", s.HandleBotPage())
	s.router.GET("/ssr/poll", func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		http.Redirect(res, req, "/", http.StatusFound)
	})

	return s
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

// fetchPoll bounds the time spent fetching a poll, whatever the fetcher does.
func (s *Server) fetchPoll(ctx context.Context, id string) (*thegoat.Poll, error) {
	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	return s.fetcher.FetchPoll(ctx, id)
}

var pollIDRegexp = regexp.MustCompile(`^[a-f0-9-]+$`)

// HandlePollPage proxies the client application page of a poll, rewriting its meta tags so
// shared links get a preview of the poll. The original page is served whenever something fails.
func (s *Server) HandlePollPage() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		logger := s.Logger.With().Str("path", req.URL.Path).Logger()

		originReq, err := http.NewRequestWithContext(req.Context(), http.MethodGet, strings.TrimSuffix(s.config.OriginURL, "/")+req.URL.RequestURI(), nil)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to build origin request")
			http.Error(res, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
			return
		}
		originReq.Header.Set("Accept", req.Header.Get("Accept"))
		originReq.Header.Set("User-Agent", req.Header.Get("User-Agent"))

		originRes, err := s.client.Do(originReq)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to fetch origin page")
			http.Error(res, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
			return
		}
		defer originRes.Body.Close()

		id := params.ByName("id")
		if !pollIDRegexp.MatchString(id) || !strings.Contains(originRes.Header.Get("Content-Type"), "text/html") {
			copyResponse(res, originRes, originRes.Body)
			return
		}

		page, err := io.ReadAll(io.LimitReader(originRes.Body, maxPageSize+1))
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read origin page")
			http.Error(res, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
			return
		}
		if len(page) > maxPageSize {
			logger.Warn().Msg("Origin page too large to be rewritten, serving it untouched")
			copyResponse(res, originRes, io.MultiReader(bytes.NewReader(page), originRes.Body))
			return
		}

		poll, err := s.fetchPoll(req.Context(), id)
		if err != nil {
			logger.Warn().Err(err).Str("poll_id", id).Msg("Could not fetch poll, serving original page")
			copyResponse(res, originRes, bytes.NewReader(page))
			return
		}

		rewritten, err := Rewrite(page, BuildMeta(poll, s.config.SiteURL))
		if err != nil {
			logger.Error().Err(err).Str("poll_id", id).Msg("Failed to rewrite page, serving original page")
			copyResponse(res, originRes, bytes.NewReader(page))
			return
		}

		copyResponse(res, originRes, bytes.NewReader(rewritten))
	}
}

// copyResponse writes the status and headers of the origin response, along with body.
func copyResponse(res http.ResponseWriter, origin *http.Response, body io.Reader) {
	for k, vs := range origin.Header {
		if k == "Content-Length" {
			continue
		}
		for _, v := range vs {
			res.Header().Add(k, v)
		}
	}
	res.WriteHeader(origin.StatusCode)
	_, _ = io.Copy(res, body)
}

type metaError struct {
	Error string `json:"error"`
}

func writeJSON(res http.ResponseWriter, status int, v interface{}) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	_ = json.NewEncoder(res).Encode(v)
}

// HandlePollMeta returns the preview of the poll given by the id query parameter.
func (s *Server) HandlePollMeta() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		id := req.URL.Query().Get("id")
		if id == "" {
			writeJSON(res, http.StatusBadRequest, metaError{Error: "Poll ID is required"})
			return
		}

		poll, err := s.fetchPoll(req.Context(), id)
		if errors.Is(err, thegoat.ErrPollNotFound) {
			writeJSON(res, http.StatusNotFound, metaError{Error: "Poll not found"})
			return
		}
		if err != nil {
			s.Logger.Error().Err(err).Str("poll_id", id).Msg("Failed to fetch poll")
			writeJSON(res, http.StatusInternalServerError, metaError{Error: "Failed to fetch poll data"})
			return
		}

		res.Header().Set("Cache-Control", "public, max-age=60")
		writeJSON(res, http.StatusOK, BuildMeta(poll, s.config.SiteURL))
	}
}

// HandleBotPage serves a static page carrying the preview of a poll to crawlers, and redirects
// everyone else to the client application.
func (s *Server) HandleBotPage() httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		id := params.ByName("id")
		if id == "" {
			http.Redirect(res, req, "/", http.StatusFound)
			return
		}

		if !IsBot(req.UserAgent()) {
			res.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			http.Redirect(res, req, "/poll/"+id, http.StatusFound)
			return
		}

		logger := s.Logger.With().Str("poll_id", id).Str("user_agent", req.UserAgent()).Logger()
		res.Header().Set("Content-Type", "text/html; charset=utf-8")

		poll, err := s.fetchPoll(req.Context(), id)
		if err != nil {
			logger.Warn().Err(err).Msg("Could not fetch poll, serving fallback page")
			s.render(res, logger, fallbackTemplate, map[string]interface{}{
				"Title":       defaultTitle,
				"Description": defaultDescription,
				"URL":         strings.TrimSuffix(s.config.SiteURL, "/") + "/poll/" + id,
				"Image":       strings.TrimSuffix(s.config.SiteURL, "/") + "/og-image.png",
			})
			return
		}

		logger.Debug().Msg("Serving bot page")
		res.Header().Set("Cache-Control", "public, max-age=3600")
		s.render(res, logger, pageTemplate, map[string]interface{}{
			"Meta": BuildMeta(poll, s.config.SiteURL),
			"Poll": poll,
		})
	}
}

func (s *Server) render(res http.ResponseWriter, logger zerolog.Logger, tmpl *template.Template, data interface{}) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		logger.Error().Err(err).Msg("Failed to render page")
		http.Error(res, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	res.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(res)
}
