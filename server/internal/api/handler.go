package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/chirpwall/chirpwall/pkg/wire"
)

// ErrMalformedRequest is the cause of every 400 response: the body was not
// JSON or carried no query.
var ErrMalformedRequest = errors.New("malformed request")

// Defaults applied by New for zero Config fields.
const (
	DefaultPath          = "/graphql"
	DefaultMaxBodyBytes  = 1 << 20
	DefaultAllowedOrigin = "http://localhost:5173"
)

// Config controls routing and CORS.
type Config struct {
	Path          string // service path for POST and upgrades
	AllowedOrigin string
	MaxBodyBytes  int64
}

// Dispatcher executes one-shot requests.
type Dispatcher interface {
	Execute(ctx context.Context, req wire.Request) wire.Response
}

// Stream serves persistent connections and reports how many are live.
type Stream interface {
	http.Handler
	Count() int
}

// Counter reports how many messages the board holds.
type Counter interface {
	Len() int
}

// Gateway is the HTTP entry point: it routes preflights, one-shot POSTs,
// websocket upgrades, health and metrics, and applies CORS to all of them.
type Gateway struct {
	cfg        Config
	dispatcher Dispatcher
	stream     Stream
	messages   Counter
	metrics    http.Handler

	handler http.Handler
}

// New wires a Gateway. metrics may be nil, in which case /metrics is not
// served.
func New(cfg Config, d Dispatcher, stream Stream, messages Counter, metrics http.Handler) *Gateway {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = DefaultAllowedOrigin
	}

	g := &Gateway{
		cfg:        cfg,
		dispatcher: d,
		stream:     stream,
		messages:   messages,
		metrics:    metrics,
	}

	r := mux.NewRouter()
	r.Methods(http.MethodOptions).HandlerFunc(g.preflight)
	r.Path(cfg.Path).Methods(http.MethodGet).
		HeadersRegexp("Upgrade", "(?i)^websocket$").
		Handler(stream)
	r.Path(cfg.Path).Methods(http.MethodPost).HandlerFunc(g.execute)
	r.Path("/healthz").Methods(http.MethodGet).HandlerFunc(g.health)
	if metrics != nil {
		r.Path("/metrics").Methods(http.MethodGet).Handler(metrics)
	}
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(notFound)

	// CORS and logging wrap the router rather than using r.Use, since mux
	// middleware is skipped for unmatched routes.
	g.handler = logRequests(g.cors(r))
	return g
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.handler.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

func (g *Gateway) preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// execute serves POST on the service path.
func (g *Gateway) execute(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(http.MaxBytesReader(w, r.Body, g.cfg.MaxBodyBytes))
	if err != nil {
		slog.Debug("api: rejected request", "remote", r.RemoteAddr, "err", err)
		code := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		jsonResp(w, code, wire.ErrorResponse(err.Error()))
		return
	}

	if req.OperationName != "" {
		slog.Debug("api: executing", "operation_name", req.OperationName)
	}
	jsonResp(w, http.StatusOK, g.dispatcher.Execute(r.Context(), req))
}

func (g *Gateway) health(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Messages:    g.messages.Len(),
		Connections: g.stream.Count(),
	})
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusNotFound, wire.ErrorResponse("Not found"))
}

// --- middleware ---------------------------------------------------------------

// cors sets the configured origin on every response, whatever Origin the
// request carried, including 404s and upgrades.
func (g *Gateway) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", g.cfg.AllowedOrigin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		next.ServeHTTP(w, r)
	})
}

// logRequests logs one line per request once the handler returns. For
// upgraded connections that is when the viewer disconnects.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		level := slog.LevelInfo
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			level = slog.LevelDebug
		}
		slog.Log(r.Context(), level, "api: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.Code,
			"bytes", m.Written,
			"duration", m.Duration,
		)
	})
}

// --- helpers ----------------------------------------------------------------

func decodeRequest(body io.Reader) (wire.Request, error) {
	var req wire.Request
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return wire.Request{}, fmt.Errorf("%w: body exceeds %d bytes: %w", ErrMalformedRequest, tooLarge.Limit, err)
		}
		return wire.Request{}, fmt.Errorf("%w: invalid JSON body", ErrMalformedRequest)
	}
	if strings.TrimSpace(req.Query) == "" {
		return wire.Request{}, fmt.Errorf("%w: missing query", ErrMalformedRequest)
	}
	return req, nil
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
