package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"loyalty-wallet-bridge/internal/events"
	"loyalty-wallet-bridge/internal/features"
	"loyalty-wallet-bridge/internal/models"
	"loyalty-wallet-bridge/internal/service"
	"loyalty-wallet-bridge/internal/tracing"
	"loyalty-wallet-bridge/internal/validation"
	"loyalty-wallet-bridge/internal/webhook"
)

// ProvisioningFailedMessage is the body returned when a pass cannot be issued.
const ProvisioningFailedMessage = "Something went wrong...check the console logs!"

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	verifier    *webhook.Verifier
	events      *events.Manager
	features    *features.Manager
	logger      *zap.Logger
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
	Verifier    *webhook.Verifier
	Events      *events.Manager
	Features    *features.Manager
	Logger      *zap.Logger
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 1 << 20, // 1MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	verifier := opts.Verifier
	if verifier == nil {
		verifier = webhook.NewVerifier("", logger)
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultHandlerOptions().MaxBodySize
	}
	return &Handler{
		service:     svc,
		verifier:    verifier,
		events:      opts.Events,
		features:    opts.Features,
		logger:      logger,
		maxBodySize: opts.MaxBodySize,
	}
}

// CreatePass handles POST /
func (h *Handler) CreatePass(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	email, err := h.readEmail(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.CreatePass(r.Context(), email)
	if err != nil {
		var vErr *validation.ValidationError
		if errors.As(err, &vErr) {
			h.respondError(w, http.StatusBadRequest, vErr.Field+" "+vErr.Message)
			return
		}
		h.logger.Error("Failed to create pass", zap.Error(err))
		h.respondText(w, http.StatusInternalServerError, ProvisioningFailedMessage)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "<a href='%s'><img src='wallet-button.png'></a>", html.EscapeString(result.SaveURL))
}

// readEmail accepts a urlencoded form, a multipart form or a JSON body.
func (h *Handler) readEmail(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/json":
		var req models.CreatePassRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			if err == io.EOF {
				return "", errors.New("email is required")
			}
			return "", errors.New("invalid JSON in request body")
		}
		return req.Email, nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(h.maxBodySize); err != nil {
			return "", errors.New("invalid form body")
		}
	default:
		if err := r.ParseForm(); err != nil {
			return "", errors.New("invalid form body")
		}
	}
	return r.PostFormValue("email"), nil
}

// VoucherifyWebhook handles POST /voucherify-webhook. The sender is
// acknowledged before the balance is synced in the background.
func (h *Handler) VoucherifyWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if err := h.verifier.Verify(r.Header, body); err != nil {
		tracing.RecordFailure(trace.SpanFromContext(r.Context()), err, "webhook signature rejected")
		h.logger.Warn("Rejected webhook", zap.Error(err))
		h.respondText(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	h.respondText(w, http.StatusOK, "ok")

	if h.events != nil {
		eventID := h.events.PublishBalanceChanged(r.Context(), body)
		h.logger.Debug("Webhook accepted", zap.String("event_id", eventID))
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string                 `json:"status"`
	Service  string                 `json:"service"`
	Features []features.FeatureFlag `json:"features,omitempty"`
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Service: tracing.ServiceName}
	if h.features != nil {
		resp.Features = h.features.GetAll()
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}

func (h *Handler) respondText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, strings.TrimSpace(message))
}
