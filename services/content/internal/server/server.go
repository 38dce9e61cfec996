package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"postcraft/internal/metrics"
	"postcraft/internal/ratelimit"
	"postcraft/internal/util"
	"postcraft/pkg/domain"
	"postcraft/services/content/internal/app"
	"postcraft/services/content/internal/provider"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
	// OwnerID is the principal every request acts as.
	OwnerID int64

	MaxImages         int
	MaxImageBytes     int64
	AllowedImageTypes []string
	CORSOrigins       []string
	TrustedProxyCIDRs []string

	// GenerateRateLimitPerMinute > 0 enables the Redis limiter on provider-backed routes.
	RedisAddr                  string
	RedisPassword              string
	GenerateRateLimitPerMinute int
}

// Server exposes the content API.
type Server struct {
	app     *app.App
	ownerID int64
	mux     *http.ServeMux

	maxImages     int
	maxImageBytes int64
	imageTypes    map[string]struct{}
	corsOrigins   []string
	proxies       *util.TrustedProxies
	limiter       *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	if cfg.OwnerID <= 0 {
		return nil, errors.New("owner id required")
	}
	proxies, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	s := &Server{
		app:           cfg.App,
		ownerID:       cfg.OwnerID,
		mux:           http.NewServeMux(),
		maxImages:     cfg.MaxImages,
		maxImageBytes: cfg.MaxImageBytes,
		imageTypes:    normalizeImageTypes(cfg.AllowedImageTypes),
		corsOrigins:   cfg.CORSOrigins,
		proxies:       proxies,
	}
	if s.maxImages <= 0 {
		s.maxImages = defaultMaxImages
	}
	if s.maxImageBytes <= 0 {
		s.maxImageBytes = defaultMaxImageBytes
	}
	if cfg.GenerateRateLimitPerMinute > 0 {
		s.limiter, err = ratelimit.NewFixedWindowLimiter(ratelimit.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Prefix:   "postcraft:content:ratelimit",
			Limit:    cfg.GenerateRateLimitPerMinute,
			Window:   time.Minute,
		})
		if err != nil {
			return nil, fmt.Errorf("init generate limiter: %w", err)
		}
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.mux
	h = util.WithCORS(s.corsOrigins, h)
	h = util.WithSecurityHeaders(h)
	h = util.WithRequestLog("content", h)
	return util.WithRequestID(h)
}

// Close releases the limiter connection, if any.
func (s *Server) Close() error {
	return s.limiter.Close()
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())

	s.mux.HandleFunc("/api/content", s.handleContent)
	s.mux.HandleFunc("/api/content/", s.handleContentByID)
	s.mux.HandleFunc("/api/content/generate", s.limited("generate", s.handleGenerate))
	s.mux.HandleFunc("/api/content/optimize", s.limited("optimize", s.handleOptimize))
	s.mux.HandleFunc("/api/images/analyze", s.limited("analyze", s.handleAnalyzeImage))
	s.mux.HandleFunc("/api/templates", s.handleTemplates)
	s.mux.HandleFunc("/api/analytics/stats", s.handleStats)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// /api/content
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.app.ListContent(r.Context(), s.ownerID)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var in app.ContentInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid content data")
			return
		}
		rec, err := s.app.CreateContent(r.Context(), s.ownerID, in)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	default:
		methodNotAllowed(w)
	}
}

// /api/content/{id}
func (s *Server) handleContentByID(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/content/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "Content not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		rec, err := s.app.GetContent(r.Context(), s.ownerID, id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodPut:
		var patch domain.ContentPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid content data")
			return
		}
		rec, err := s.app.UpdateContent(r.Context(), s.ownerID, id, patch)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		if err := s.app.DeleteContent(r.Context(), s.ownerID, id); err != nil {
			writeAppError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	req, err := s.parseGenerateRequest(w, r)
	if err != nil {
		writeUploadError(w, err)
		return
	}
	res, err := s.app.Generate(r.Context(), s.ownerID, req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	img, err := s.parseSingleImage(w, r, "image")
	if err != nil {
		writeUploadError(w, err)
		return
	}
	analysis, err := s.app.AnalyzeImage(r.Context(), img)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"analysis": analysis})
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req app.OptimizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := s.app.OptimizeContent(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"optimizedContent": out})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	items, err := s.app.ListTemplates(r.Context(), r.URL.Query().Get("platform"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := s.app.Stats(r.Context(), s.ownerID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// limited applies the inbound limiter, when configured, keyed by route and client IP.
func (s *Server) limited(route string, next http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := route + "|" + util.ClientIP(r, s.proxies)
		ok, err := s.limiter.Allow(r.Context(), key)
		if err != nil {
			util.LoggerFromContext(r.Context()).Warn("rate limiter unavailable", "route", route, "err", err)
		}
		if !ok {
			metrics.RateLimited.WithLabelValues(route).Inc()
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}
		next(w, r)
	}
}

const maxJSONBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type validationBody struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// writeAppError maps pipeline and store errors to status codes.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	logger := util.LoggerFromContext(r.Context())
	var (
		verr *app.ValidationError
		perr *provider.Error
		serr *app.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, validationBody{Error: verr.Message, Fields: verr.Fields})
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "Content not found")
	case errors.As(err, &perr):
		logger.Error("provider failure", "op", perr.Op, "err", perr.Err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to %s: %v", perr.Op, perr.Err))
	case errors.As(err, &serr):
		logger.Error("persistence failure", "op", serr.Op, "err", serr.Err)
		writeError(w, http.StatusInternalServerError, "Failed to "+serr.Op)
	default:
		logger.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
