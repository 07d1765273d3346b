package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"calview/internal/config"
	"calview/internal/ics"
	appLog "calview/internal/log"
	"calview/internal/model"
	"calview/internal/refresh"
	"calview/internal/view"
)

// DateLayout is the format of the ?date= query parameter.
const DateLayout = "2006-01-02"

// EventSource expands the current calendar snapshot over a window.
// *refresh.Store implements it.
type EventSource interface {
	Occurrences(start, end time.Time, loc *time.Location) (ics.ExpandResult, error)
}

// statusSource is optionally implemented by an EventSource that tracks
// refresh outcomes.
type statusSource interface {
	Status() refresh.Status
}

// Server provides the HTTP API over the calendar snapshot.
type Server struct {
	cfg     *config.Config
	builder *view.Builder
	events  EventSource
	mux     *http.ServeMux

	// now is sampled once per request.
	now func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, events EventSource) (*Server, error) {
	if cfg == nil || events == nil {
		return nil, errors.New("web: config and event source are required")
	}
	b, err := cfg.Builder()
	if err != nil {
		return nil, fmt.Errorf("web: %w", err)
	}
	s := &Server{
		cfg:     cfg,
		builder: b,
		events:  events,
		mux:     http.NewServeMux(),
		now:     time.Now,
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := s.logRequests(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calview", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"took", time.Since(start).Round(time.Microsecond),
		)
	})
}

// Serve listens on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/weekdays", s.handleWeekdays)
	s.mux.HandleFunc("GET /api/views/{granularity}", s.handleView)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	src, ok := s.events.(statusSource)
	if !ok {
		writeError(w, http.StatusNotFound, "refresh status unavailable")
		return
	}
	writeJSON(w, http.StatusOK, src.Status())
}

type weekdaysResponse struct {
	Weekdays  []string `json:"weekdays"`
	WeekStart string   `json:"week_start"`
}

func (s *Server) handleWeekdays(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, weekdaysResponse{
		Weekdays:  s.builder.WeekDayNames(),
		WeekStart: s.cfg.WeekStart,
	})
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Occurrences     []model.Occurrence `json:"occurrences"`
	TruncatedUIDs   []string           `json:"truncated_uids,omitempty"`
	RangeStart      time.Time          `json:"range_start"`
	RangeEnd        time.Time          `json:"range_end"`
	DisplayTimeZone string             `json:"display_timezone"`
	WeekStart       string             `json:"week_start"`
}

// handleEvents returns expanded occurrences around now.
//
// GET /api/events?days=7&backfill=1
//   - days:     how many days ahead to include (default horizon_days)
//   - backfill: how many past days to include (default backfill_days)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), s.cfg.HorizonDays)
	if days <= 0 {
		days = s.cfg.HorizonDays
	}
	backfill := parseIntDefault(q.Get("backfill"), s.cfg.BackfillDays)
	if backfill < 0 {
		backfill = 0
	}

	loc := s.builder.Location()
	now := s.now().In(loc)
	rangeStart := now.AddDate(0, 0, -backfill)
	rangeEnd := now.AddDate(0, 0, days)

	res, err := s.events.Occurrences(rangeStart, rangeEnd, loc)
	if err != nil {
		appLog.Error("api events: expand failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand events")
		return
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Occurrences:     nonNil(res.Occurrences),
		TruncatedUIDs:   res.TruncatedEvents,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: loc.String(),
		WeekStart:       s.cfg.WeekStart,
	})
}

// handleView serves GET /api/views/{year|month|week|day}?date=YYYY-MM-DD.
// date defaults to today in the display timezone.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	g, err := view.ParseGranularity(r.PathValue("granularity"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	loc := s.builder.Location()
	now := s.now().In(loc)
	reference := now
	if d := r.URL.Query().Get("date"); d != "" {
		reference, err = time.ParseInLocation(DateLayout, d, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	resp, err := BuildView(s.builder, g, s.events, s.cfg.BadgeKeywords, reference, now)
	if err != nil {
		var rangeErr *view.EventRangeError
		if errors.As(err, &rangeErr) {
			appLog.Warn("api view: invalid event", "index", rangeErr.Index, "granularity", g.String())
		} else {
			appLog.Error("api view failed", err, "granularity", g.String())
		}
		writeError(w, http.StatusInternalServerError, "failed to build view")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ViewResponse is the JSON shape of a computed view.
type ViewResponse struct {
	Granularity   string    `json:"granularity"`
	Date          string    `json:"date"`
	Now           time.Time `json:"now"`
	TimeZone      string    `json:"timezone"`
	Weekdays      []string  `json:"weekdays"`
	RangeStart    time.Time `json:"range_start"`
	RangeEnd      time.Time `json:"range_end"`
	TruncatedUIDs []string  `json:"truncated_uids,omitempty"`

	// View is []view.Cell for year and month, view.Week for week and
	// view.Day for day, all carrying model.Occurrence payloads.
	View any `json:"view"`
}

// BuildView expands src over the window of granularity g around reference
// and computes the view.
func BuildView(b *view.Builder, g view.Granularity, src EventSource, badgeKeywords []string, reference, now time.Time) (ViewResponse, error) {
	loc := b.Location()
	reference = reference.In(loc)
	start, end := b.Window(g, reference)

	res, err := src.Occurrences(start, end, loc)
	if err != nil {
		return ViewResponse{}, err
	}
	events := ics.ToViewEvents(res.Occurrences, badgeKeywords)

	v, err := view.Build(b, g, events, reference, now)
	if err != nil {
		return ViewResponse{}, err
	}

	return ViewResponse{
		Granularity:   g.String(),
		Date:          reference.Format(DateLayout),
		Now:           now.In(loc),
		TimeZone:      loc.String(),
		Weekdays:      b.WeekDayNames(),
		RangeStart:    start,
		RangeEnd:      end,
		TruncatedUIDs: res.TruncatedEvents,
		View:          v,
	}, nil
}

func nonNil(occs []model.Occurrence) []model.Occurrence {
	if occs == nil {
		return []model.Occurrence{}
	}
	return occs
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
