package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/errs"
	"github.com/hearth-chat/hearth/internal/logging"
	"github.com/hearth-chat/hearth/internal/protocol"
	"github.com/hearth-chat/hearth/pkg/crypto"
	"github.com/m-mizutani/goerr/v2"
)

type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the gateway upgrade through the middleware chain
func (w *statusResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, goerr.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.From(r.Context()).With("request_id", uuid.NewString())
		started := time.Now()

		sw := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(logging.With(r.Context(), logger)))

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.requests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()

		logger.Info("access log",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", sw.status),
			slog.Duration("elapsed", time.Since(started)),
		)
	})
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				handleError(w, r, goerr.New("panic recovered",
					goerr.V("panic", fmt.Sprintf("%v", v)),
					goerr.V("method", r.Method),
					goerr.V("path", r.URL.Path),
				))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireToken rejects requests without the configured bearer token. It
// passes everything through when no token hash is configured.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hash := s.config.APITokenHash
		if hash != "" && !crypto.CheckToken(crypto.BearerToken(r.Header.Get("Authorization")), hash) {
			handleError(w, r, goerr.New("missing or invalid API token", goerr.T(errs.TagUnauthorized)))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.StatusCode(err)
	if status >= http.StatusInternalServerError {
		errs.Handle(r.Context(), err)
	} else {
		logging.From(r.Context()).Warn(http.StatusText(status), logging.ErrAttr(err))
	}
	writeJSON(w, status, protocol.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Default().Warn("failed to write response", logging.ErrAttr(err))
	}
}
