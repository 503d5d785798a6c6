package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/flightrelay/internal/adapters/upstream"
	"github.com/okian/flightrelay/internal/domain/payload"
	"github.com/okian/flightrelay/pkg/logger"
	"github.com/okian/flightrelay/pkg/metrics"
)

// Fixed response bodies.
const (
	bodyMethodNotAllowed = "Method Not Allowed"
	bodyBadGateway       = "Bad Gateway"
	bodyTooLarge         = "Request Entity Too Large"
	bodyBadRequest       = "Bad Request"
)

// RelayHandler forwards POST bodies upstream as JSON.
type RelayHandler struct {
	upstream     upstream.Forwarder
	maxBodyBytes int64
	logger       logger.Logger
}

// NewRelayHandler creates a relay handler.
func NewRelayHandler(fwd upstream.Forwarder, maxBodyBytes int64, l logger.Logger) *RelayHandler {
	return &RelayHandler{upstream: fwd, maxBodyBytes: maxBodyBytes, logger: l}
}

// ServeHTTP dispatches on method. Any path is accepted.
func (h *RelayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		h.handlePreflight(w)
	case http.MethodPost:
		h.handleForward(w, r)
	default:
		h.handleOther(w, r)
	}
}

// handlePreflight answers a browser preflight without contacting upstream.
func (h *RelayHandler) handlePreflight(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// handleOther rejects every method except POST and OPTIONS.
func (h *RelayHandler) handleOther(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug(r.Context(), "method not allowed", logger.String("method", r.Method))
	w.Header().Set("Allow", allowMethods)
	writeText(w, http.StatusMethodNotAllowed, []byte(bodyMethodNotAllowed))
}

// handleForward normalizes the body into a JSON payload, posts it upstream
// once and relays the upstream status and body verbatim.
func (h *RelayHandler) handleForward(w http.ResponseWriter, r *http.Request) {
	const op = "api.forward"
	ctx := r.Context()

	body, err := readBody(w, r, h.maxBodyBytes)
	if err != nil {
		status, text := http.StatusBadRequest, bodyBadRequest
		if errors.Is(err, ErrBodyTooLarge) {
			status, text = http.StatusRequestEntityTooLarge, bodyTooLarge
		}
		h.logger.Warn(ctx, "rejecting request body", logger.String("op", op), logger.Error(err))
		writeText(w, status, []byte(text))
		return
	}

	p := payload.Extract(r.Header.Get("Content-Type"), body)
	metrics.RecordPayloadExtraction(string(p.Source), p.Wrapped, len(p.JSON))

	start := time.Now()
	resp, err := h.upstream.Forward(ctx, p.JSON)
	if err != nil {
		h.logger.Error(ctx, "forward failed",
			logger.String("op", op),
			logger.String("source", string(p.Source)),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err),
		)
		writeText(w, http.StatusBadGateway, []byte(bodyBadGateway))
		return
	}

	h.logger.Info(ctx, "forwarded",
		logger.String("payload_source", string(p.Source)),
		logger.Bool("wrapped", p.Wrapped),
		logger.Int("upstream_status", resp.StatusCode),
		logger.Duration("elapsed", time.Since(start)),
	)
	writeText(w, resp.StatusCode, resp.Body)
}

// readBody reads at most limit bytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: %w", ErrReadBody, err)
	}
	return body, nil
}

// writeText writes body as plain text with the given status.
func writeText(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
