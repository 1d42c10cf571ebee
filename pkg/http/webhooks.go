package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tzrikka/slackxapi/pkg/metrics"
	"github.com/tzrikka/slackxapi/pkg/slack"
)

const (
	timeout     = 3 * time.Second
	maxBodySize = 1 << 20 // 1 MiB.
)

type httpServer struct {
	httpPort int
	enqueue  slack.EnqueueFunc
}

func newHTTPServer(port int, enqueue slack.EnqueueFunc) *httpServer {
	return &httpServer{httpPort: port, enqueue: enqueue}
}

func (s *httpServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /slack/events", s.webhookHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// run starts an HTTP server to receive Slack webhooks. This is
// blocking, to keep the server running until the context is canceled.
func (s *httpServer) run(ctx context.Context) error {
	server := &http.Server{
		Addr:         net.JoinHostPort("", strconv.Itoa(s.httpPort)),
		Handler:      s.handler(),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().Msgf("HTTP server listening on port %d", s.httpPort)
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Err(err).Send()
		return err
	}

	return nil
}

// webhookHandler accepts Slack Events API payloads, and hands them over for
// asynchronous processing. The response only reports whether the payload was
// accepted, never the outcome of its processing.
func (s *httpServer) webhookHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	l := log.With().Str("http_method", r.Method).Str("url_path", r.URL.EscapedPath()).Logger()
	l.Debug().Msg("received HTTP request")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		l.Warn().Err(err).Msg("failed to read HTTP request body")
		reply(w, l, "bad_body", http.StatusBadRequest, map[string]any{"ok": false})
		return
	}
	if len(body) == 0 {
		l.Warn().Msg("bad request: empty body")
		reply(w, l, "no_body", http.StatusOK, map[string]any{"ok": false})
		return
	}

	m := map[string]any{}
	if err := json.Unmarshal(body, &m); err != nil {
		l.Warn().Err(err).Msg("bad request: invalid JSON body")
		reply(w, l, "bad_body", http.StatusBadRequest, map[string]any{"ok": false})
		return
	}

	if m["type"] == "url_verification" {
		l.Info().Msg("Slack URL verification")
		reply(w, l, "url_verification", http.StatusOK, map[string]any{"challenge": m["challenge"]})
		return
	}

	if !truthy(m["event"]) {
		l.Warn().Any("type", m["type"]).Msg("bad request: payload without event")
		reply(w, l, "no_event", http.StatusOK, map[string]any{"ok": false})
		return
	}

	if err := s.enqueue(r.Context(), body); err != nil {
		l.Error().Err(err).Msg("failed to enqueue Slack event")
		reply(w, l, "queue_error", http.StatusServiceUnavailable, map[string]any{"ok": false})
		return
	}

	reply(w, l, "accepted", http.StatusOK, map[string]any{"ok": true})
}

func reply(w http.ResponseWriter, l zerolog.Logger, outcome string, status int, body map[string]any) {
	metrics.WebhookRequests.WithLabelValues(outcome).Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		l.Err(err).Msg("failed to write HTTP response")
	}
}

// truthy reports whether a decoded JSON value is non-empty.
func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}
