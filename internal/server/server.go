// Package server exposes the persisted news, patch-notes and event files
// over a read-only HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/k2fort/arcfeed/internal/entry"
	"github.com/k2fort/arcfeed/internal/filter"
	"github.com/k2fort/arcfeed/internal/logger"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Reader is the read side of the store
type Reader interface {
	LoadBucket(category entry.Category) (*entry.Bucket, error)
	ReadBucketFile(category entry.Category) ([]byte, error)
	LoadEvents() ([]byte, error)
}

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	store Reader
	log   *logger.Logger
	opts  Options
}

type entryItem struct {
	Category entry.Category `json:"category"`
	*entry.Entry
}

func New(store Reader, log *logger.Logger, opts Options) *Server {
	if log == nil {
		log = logger.Default()
	}
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	if opts.Port <= 0 {
		opts.Port = 8090
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	opts.Host = host

	return &Server{
		store: store,
		log:   log,
		opts:  opts,
	}
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
}

// Handler builds the echo instance with all routes registered
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := logger.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"remote_ip":  v.RemoteIP,
				"request_id": v.RequestID,
			}
			if v.Error != nil {
				s.log.Error("http request failed", fields, v.Error)
				return nil
			}
			s.log.Info("http request", fields)
			return nil
		},
	}))

	e.GET("/news.json", s.handleBucketFile(entry.CategoryNews))
	e.GET("/patches.json", s.handleBucketFile(entry.CategoryPatches))
	e.GET("/events.json", s.handleEventsFile)

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/entries", s.handleEntries)
	api.GET("/latest", s.handleLatest)

	return e
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.Handler()
	httpServer := &http.Server{
		Addr:         s.Addr(),
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.log.Error("server shutdown failed", nil, shutdownErr)
		}
	}()

	s.log.Info("arcfeed server started", logger.Fields{"addr": s.Addr()})

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.log.Info("arcfeed server stopped", nil)
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if v, ok := he.Message.(string); ok && strings.TrimSpace(v) != "" {
			message = v
		} else if text := http.StatusText(status); text != "" {
			message = text
		}
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "arcfeed",
		"time":    time.Now().UTC(),
	})
}

func (s *Server) handleBucketFile(category entry.Category) echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := s.store.ReadBucketFile(category)
		if err != nil {
			if os.IsNotExist(err) {
				return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, []byte("[]"))
			}
			s.log.Error("read bucket file failed", logger.Fields{"category": category}, err)
			return internalError(c, "Failed to read "+string(category))
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, data)
	}
}

func (s *Server) handleEventsFile(c echo.Context) error {
	data, err := s.store.LoadEvents()
	if err != nil {
		if os.IsNotExist(err) {
			return failNotFound(c, "No event snapshot yet")
		}
		s.log.Error("read events file failed", nil, err)
		return internalError(c, "Failed to read events")
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, data)
}

func (s *Server) handleEntries(c echo.Context) error {
	categories, f, fieldErrors := parseEntryQuery(c)
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	limit := f.Limit
	f.Limit = 0

	items := make([]entryItem, 0)
	for _, cat := range categories {
		bucket, err := s.store.LoadBucket(cat)
		if err != nil {
			s.log.Error("load bucket failed", logger.Fields{"category": cat}, err)
			return internalError(c, "Failed to load "+string(cat))
		}
		for _, e := range f.Apply(bucket.Entries) {
			items = append(items, entryItem{Category: cat, Entry: e})
		}
	}

	// Merge both buckets into one date-descending list
	if len(categories) > 1 {
		sortItems(items)
	}
	total := len(items)
	if len(items) > limit {
		items = items[:limit]
	}

	return success(c, map[string]any{
		"items": items,
		"total": total,
	})
}

func (s *Server) handleLatest(c echo.Context) error {
	latest := map[entry.Category]*entry.Entry{}
	for _, cat := range entry.Categories {
		bucket, err := s.store.LoadBucket(cat)
		if err != nil {
			s.log.Error("load bucket failed", logger.Fields{"category": cat}, err)
			return internalError(c, "Failed to load "+string(cat))
		}
		latest[cat] = bucket.Latest()
	}
	return success(c, latest)
}

func parseEntryQuery(c echo.Context) ([]entry.Category, *filter.Filter, map[string]string) {
	fieldErrors := map[string]string{}
	f := filter.NewFilter()

	categories := entry.Categories
	if raw := strings.TrimSpace(c.QueryParam("category")); raw != "" && raw != "all" {
		cat, err := entry.ParseCategory(raw)
		if err != nil {
			fieldErrors["category"] = "must be news, patches or all"
		} else {
			categories = []entry.Category{cat}
		}
	}

	if raw := strings.TrimSpace(c.QueryParam("since")); raw != "" {
		day, err := filter.ParseDay(raw)
		if err != nil {
			fieldErrors["since"] = "invalid date"
		} else {
			f.DateFrom = &day
		}
	}
	if raw := strings.TrimSpace(c.QueryParam("until")); raw != "" {
		day, err := filter.ParseDay(raw)
		if err != nil {
			fieldErrors["until"] = "invalid date"
		} else {
			f.DateTo = &day
		}
	}

	if raw := strings.TrimSpace(c.QueryParam("contains")); raw != "" {
		f.Keywords = []string{raw}
	}

	if raw := strings.TrimSpace(c.QueryParam("latest")); raw != "" {
		latest, err := strconv.ParseBool(raw)
		if err != nil {
			fieldErrors["latest"] = "must be a boolean"
		}
		f.LatestOnly = latest
	}

	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultLimit, 1, maxLimit)
	if err != nil {
		fieldErrors["limit"] = err.Error()
	}
	f.Limit = limit

	return categories, f, fieldErrors
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
