package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"suntimes/internal/config"
	"suntimes/internal/ics"
	appLog "suntimes/internal/log"
	"suntimes/internal/model"
	"suntimes/internal/refresh"
	"suntimes/internal/schedule"
	"suntimes/internal/solar"
)

// Server provides the HTTP API for computed sun times, the planned alert
// schedule and a subscribable calendar feed.
type Server struct {
	cfg     *config.Config
	planner *schedule.Planner
	runner  *refresh.Runner
	mux     *http.ServeMux
	now     func() time.Time

	// In-memory cache for /calendar.ics responses keyed by days, to avoid
	// re-rendering the feed for every polling calendar client.
	feedMu    sync.RWMutex
	feedCache map[int]*feedCache
}

// feedCache holds a rendered calendar body and its timestamp.
type feedCache struct {
	body      []byte
	updatedAt time.Time
}

// NewServer constructs a new Server. runner may be nil, in which case
// /api/schedule reports 503.
func NewServer(cfg *config.Config, planner *schedule.Planner, runner *refresh.Runner) *Server {
	s := &Server{
		cfg:       cfg,
		planner:   planner,
		runner:    runner,
		mux:       http.NewServeMux(),
		now:       time.Now,
		feedCache: make(map[int]*feedCache),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
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
			w.Header().Set("WWW-Authenticate", `Basic realm="suntimes", charset="UTF-8"`)
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

// StartServer serves the API on cfg.Listen until ctx is canceled, then
// shuts down gracefully.
func StartServer(ctx context.Context, s *Server) error {
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
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/suntimes", s.handleSunTimes)
	s.mux.HandleFunc("/api/schedule", s.handleSchedule)
	s.mux.HandleFunc("/calendar.ics", s.handleCalendar)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// clockDTO is one solar instant in several renderings.
type clockDTO struct {
	Seconds int       `json:"seconds"`
	Local   string    `json:"local"`
	At      time.Time `json:"at"`
}

// sunTimesResponse is the JSON response shape for /api/suntimes.
type sunTimesResponse struct {
	Date             string    `json:"date"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	UTCOffsetMinutes int       `json:"utc_offset_minutes"`
	Timezone         string    `json:"timezone,omitempty"`
	Sunrise          *clockDTO `json:"sunrise"`
	Sunset           *clockDTO `json:"sunset"`
	SolarNoon        *clockDTO `json:"solar_noon"`
	DayLengthSeconds *int      `json:"day_length_seconds,omitempty"`
}

// handleSunTimes computes sunrise/sunset for one date.
//
// GET /api/suntimes?date=2023-06-21&lat=40.7128&lon=-74.006&tz=America/New_York
//   - date:     YYYY-MM-DD (default: today in the resolved zone)
//   - lat/lon:  degrees (default: configured location)
//   - tz:       IANA zone (default: configured timezone)
//   - offset:   UTC offset in minutes; overrides tz when present
func (s *Server) handleSunTimes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	coord := s.cfg.Location.Coordinate()
	var err error
	if v := q.Get("lat"); v != "" {
		if coord.Latitude, err = strconv.ParseFloat(v, 64); err != nil {
			writeError(w, http.StatusBadRequest, "invalid lat")
			return
		}
	}
	if v := q.Get("lon"); v != "" {
		if coord.Longitude, err = strconv.ParseFloat(v, 64); err != nil {
			writeError(w, http.StatusBadRequest, "invalid lon")
			return
		}
	}
	if err := coord.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		loc    *time.Location
		tzName string
	)
	if v := q.Get("offset"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes < -14*60 || minutes > 14*60 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		loc = time.FixedZone("", minutes*60)
	} else {
		tzName = q.Get("tz")
		if tzName == "" {
			tzName = s.cfg.Timezone
		}
		if loc, err = time.LoadLocation(tzName); err != nil {
			writeError(w, http.StatusBadRequest, "invalid tz")
			return
		}
	}

	date := solar.DateOf(s.now().In(loc))
	if v := q.Get("date"); v != "" {
		if date, err = solar.ParseCivilDate(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
	}

	offset := schedule.OffsetMinutes(date, loc)
	times := solar.Compute(date, coord, offset)
	midnight := date.Midnight(loc)
	h24 := s.cfg.TimeFormat24h

	toDTO := func(sec *int) *clockDTO {
		if sec == nil {
			return nil
		}
		return &clockDTO{
			Seconds: *sec,
			Local:   schedule.FormatClock(*sec, h24),
			At:      midnight.Add(time.Duration(*sec) * time.Second),
		}
	}
	noon := solar.SolarNoon(date, coord, offset)

	resp := sunTimesResponse{
		Date:             date.String(),
		Latitude:         coord.Latitude,
		Longitude:        coord.Longitude,
		UTCOffsetMinutes: offset,
		Timezone:         tzName,
		Sunrise:          toDTO(times.Sunrise),
		Sunset:           toDTO(times.Sunset),
		SolarNoon:        toDTO(&noon),
	}
	if d, ok := times.DayLength(); ok {
		secs := int(d / time.Second)
		resp.DayLengthSeconds = &secs
	}

	appLog.Debug("api suntimes request",
		"date", resp.Date,
		"coordinate", coord.String(),
		"offset", offset,
		"sunrise", times.HasSunrise(),
		"sunset", times.HasSunset(),
	)
	writeJSON(w, http.StatusOK, resp)
}

// eventDTO is a JSON-friendly view of a sun event.
type eventDTO struct {
	Date string             `json:"date"`
	Type model.SunEventType `json:"type"`
	At   time.Time          `json:"at"`
}

// alertDTO is a JSON-friendly view of a planned alert.
type alertDTO struct {
	Event     eventDTO  `json:"event"`
	TriggerAt time.Time `json:"trigger_at"`
}

// scheduleResponse is the JSON response shape for /api/schedule.
type scheduleResponse struct {
	GeneratedAt time.Time  `json:"generated_at"`
	From        time.Time  `json:"from"`
	Days        int        `json:"days"`
	Timezone    string     `json:"timezone"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Events      []eventDTO `json:"events"`
	Alerts      []alertDTO `json:"alerts"`
}

// handleSchedule returns the latest plan published by the refresh runner.
func (s *Server) handleSchedule(w http.ResponseWriter, _ *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule not available")
		return
	}
	snap, ok := s.runner.Snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "schedule not computed yet")
		return
	}

	resp := scheduleResponse{
		GeneratedAt: snap.GeneratedAt,
		From:        snap.From,
		Days:        snap.Days,
		Timezone:    s.planner.Location().String(),
		Latitude:    s.planner.Coordinate().Latitude,
		Longitude:   s.planner.Coordinate().Longitude,
		Events:      make([]eventDTO, 0, len(snap.Events)),
		Alerts:      make([]alertDTO, 0, len(snap.Alerts)),
	}
	for _, ev := range snap.Events {
		resp.Events = append(resp.Events, toEventDTO(ev))
	}
	for _, a := range snap.Alerts {
		resp.Alerts = append(resp.Alerts, alertDTO{Event: toEventDTO(a.Event), TriggerAt: a.TriggerAt})
	}
	writeJSON(w, http.StatusOK, resp)
}

func toEventDTO(ev model.SunEvent) eventDTO {
	return eventDTO{Date: ev.Date.String(), Type: ev.Type, At: ev.At}
}

// handleCalendar serves the configured location's sun events as ICS.
//
// GET /calendar.ics?days=30
//   - days: number of days starting today (default: config horizon_days)
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	days := parseIntDefault(r.URL.Query().Get("days"), s.cfg.HorizonDays)
	if days <= 0 || days > 366 {
		writeError(w, http.StatusBadRequest, "days must be between 1 and 366")
		return
	}

	const feedCacheTTL = 30 * time.Second
	now := s.now()

	s.feedMu.RLock()
	fc := s.feedCache[days]
	s.feedMu.RUnlock()
	if fc != nil && now.Sub(fc.updatedAt) < feedCacheTTL {
		writeCalendar(w, fc.body)
		return
	}

	events, err := s.planner.Events(s.planner.Today(now), days)
	if err != nil {
		appLog.Error("calendar: planning failed", err, "days", days)
		writeError(w, http.StatusInternalServerError, "failed to compute events")
		return
	}

	name := "Sunrise & sunset"
	if s.cfg.Location.Name != "" {
		name += " - " + s.cfg.Location.Name
	}
	body := ics.Render(events, ics.Options{
		Name:         name,
		LocationName: s.cfg.Location.Name,
		Timezone:     s.planner.Location().String(),
		Stamp:        now,
	})

	s.feedMu.Lock()
	s.feedCache[days] = &feedCache{body: body, updatedAt: now}
	s.feedMu.Unlock()

	writeCalendar(w, body)
}

func writeCalendar(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
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
