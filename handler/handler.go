package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"gallery-agent/internal/domain"
	"gallery-agent/internal/usecase"
)

const (
	adminPasswordHeader = "x-admin-password"
	correlationHeader   = "X-Correlation-Id"

	genericErrorMessage = "An error occurred."
)

// ChatUseCase runs one conversation turn.
type ChatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

// KnowledgeStore is the admin read/write surface for the knowledge snippet.
type KnowledgeStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, text string) error
}

// LeadNotifier formats and sends one lead notification.
type LeadNotifier interface {
	Dispatch(ctx context.Context, messages []domain.ChatMessage, trigger string) (string, error)
}

// SecretGetter resolves the admin shared secret.
type SecretGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Handler routes API Gateway proxy events for the whole public surface:
// the chat turn endpoint, the admin knowledge endpoint, the internal lead
// notification endpoint, and widget script delivery.
type Handler struct {
	chat           ChatUseCase
	knowledge      KnowledgeStore
	notifier       LeadNotifier // nil when the email transport is not configured
	secrets        SecretGetter
	adminParamName string
	widgetScript   string
	logger         *slog.Logger
}

func NewHandler(chat ChatUseCase, knowledge KnowledgeStore, notifier LeadNotifier, secrets SecretGetter, adminParamName, widgetScript string, logger *slog.Logger) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	if knowledge == nil {
		return nil, errors.New("handler: knowledge store must not be nil")
	}
	if secrets == nil {
		return nil, errors.New("handler: secret getter must not be nil")
	}
	if strings.TrimSpace(adminParamName) == "" {
		return nil, errors.New("handler: admin parameter name must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		chat:           chat,
		knowledge:      knowledge,
		notifier:       notifier,
		secrets:        secrets,
		adminParamName: adminParamName,
		widgetScript:   widgetScript,
		logger:         logger,
	}, nil
}

type chatRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type knowledgeRequest struct {
	Knowledge string `json:"knowledge"`
}

type knowledgeResponse struct {
	Knowledge string `json:"knowledge"`
}

type saveResponse struct {
	Success bool `json:"success"`
}

type sendLeadRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
	Trigger  string               `json:"trigger"`
}

type sendLeadResponse struct {
	Sent bool   `json:"sent"`
	ID   string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handle is the Lambda entrypoint.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (resp events.APIGatewayProxyResponse, err error) {
	corrID := correlationID(event.Headers)

	// A panic anywhere below becomes a generic server error; the visitor
	// never sees internal detail.
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("request panicked", "panic", r, "path", event.Path, "correlation_id", corrID)
			resp = jsonResponse(http.StatusInternalServerError, corrID, errorResponse{Error: genericErrorMessage})
			err = nil
		}
	}()

	if event.HTTPMethod == http.MethodOptions {
		return preflightResponse(corrID), nil
	}

	switch {
	case event.Path == "/chat" && event.HTTPMethod == http.MethodPost:
		return h.handleChat(ctx, corrID, event.Body), nil
	case event.Path == "/admin/knowledge":
		return h.handleAdminKnowledge(ctx, corrID, event), nil
	case event.Path == "/send-lead" && event.HTTPMethod == http.MethodPost:
		return h.handleSendLead(ctx, corrID, event.Body), nil
	case event.Path == "/widget.js" && event.HTTPMethod == http.MethodGet:
		return h.handleWidgetScript(corrID), nil
	}
	return jsonResponse(http.StatusNotFound, corrID, errorResponse{Error: "Not found"}), nil
}

func (h *Handler) handleChat(ctx context.Context, corrID, body string) events.APIGatewayProxyResponse {
	var req chatRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return jsonResponse(http.StatusBadRequest, corrID, errorResponse{Error: "Invalid request"})
	}

	out, err := h.chat.Chat(ctx, usecase.ChatInput{Messages: req.Messages})
	if err != nil {
		return h.errorTo(corrID, err)
	}
	return jsonResponse(http.StatusOK, corrID, chatResponse{Reply: out.Reply})
}

func (h *Handler) handleAdminKnowledge(ctx context.Context, corrID string, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if !h.checkAdminAuth(ctx, event.Headers) {
		return jsonResponse(http.StatusUnauthorized, corrID, errorResponse{Error: "Unauthorized"})
	}

	switch event.HTTPMethod {
	case http.MethodGet:
		// Store failures degrade to an empty snippet for the admin page too.
		text, err := h.knowledge.Get(ctx)
		if err != nil {
			h.logger.Warn("knowledge read failed", "err", err, "correlation_id", corrID)
			text = ""
		}
		return jsonResponse(http.StatusOK, corrID, knowledgeResponse{Knowledge: text})
	case http.MethodPost:
		var req knowledgeRequest
		if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
			return jsonResponse(http.StatusBadRequest, corrID, errorResponse{Error: "Invalid request"})
		}
		if err := h.knowledge.Set(ctx, req.Knowledge); err != nil {
			h.logger.Error("knowledge write failed", "err", err, "correlation_id", corrID)
			return jsonResponse(http.StatusInternalServerError, corrID, errorResponse{Error: "Failed to save"})
		}
		return jsonResponse(http.StatusOK, corrID, saveResponse{Success: true})
	}
	return jsonResponse(http.StatusMethodNotAllowed, corrID, errorResponse{Error: "Method not allowed"})
}

func (h *Handler) handleSendLead(ctx context.Context, corrID, body string) events.APIGatewayProxyResponse {
	var req sendLeadRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return jsonResponse(http.StatusBadRequest, corrID, errorResponse{Error: "Invalid request"})
	}
	if len(req.Messages) == 0 {
		return jsonResponse(http.StatusBadRequest, corrID, errorResponse{Error: "No messages"})
	}
	if h.notifier == nil {
		h.logger.Error("lead notification requested but email transport is not configured", "correlation_id", corrID)
		return jsonResponse(http.StatusInternalServerError, corrID, errorResponse{Error: "Email not configured"})
	}

	id, err := h.notifier.Dispatch(ctx, req.Messages, req.Trigger)
	if err != nil {
		h.logger.Error("lead notification failed", "err", err, "correlation_id", corrID)
		return jsonResponse(http.StatusInternalServerError, corrID, errorResponse{Error: "Failed to send"})
	}
	if id == "" {
		id = uuid.NewString()
	}
	return jsonResponse(http.StatusOK, corrID, sendLeadResponse{Sent: true, ID: id})
}

func (h *Handler) handleWidgetScript(corrID string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: withCORS(map[string]string{
			"Content-Type":    "application/javascript",
			correlationHeader: corrID,
		}),
		Body: h.widgetScript,
	}
}

// checkAdminAuth compares the shared-secret header against the configured
// parameter. Any resolution failure reads as unauthorized; no detail leaks.
func (h *Handler) checkAdminAuth(ctx context.Context, headers map[string]string) bool {
	provided := headerValue(headers, adminPasswordHeader)
	if provided == "" {
		return false
	}
	expected, err := h.secrets.GetParameter(ctx, h.adminParamName)
	if err != nil {
		h.logger.Error("admin password resolution failed", "err", err)
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

// errorTo maps use case error codes to HTTP responses with generic bodies.
func (h *Handler) errorTo(corrID string, err error) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		switch ucErr.Code {
		case usecase.ErrorInvalidInput:
			return jsonResponse(http.StatusBadRequest, corrID, errorResponse{Error: "Invalid request"})
		case usecase.ErrorUnauthorized:
			return jsonResponse(http.StatusUnauthorized, corrID, errorResponse{Error: "Unauthorized"})
		case usecase.ErrorUpstream:
			h.logger.Error("upstream failure", "err", err, "correlation_id", corrID)
			return jsonResponse(http.StatusBadGateway, corrID, errorResponse{Error: genericErrorMessage})
		}
	}
	h.logger.Error("internal failure", "err", err, "correlation_id", corrID)
	return jsonResponse(http.StatusInternalServerError, corrID, errorResponse{Error: genericErrorMessage})
}

func correlationID(headers map[string]string) string {
	if v := headerValue(headers, "x-correlation-id"); v != "" {
		return v
	}
	return uuid.NewString()
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func preflightResponse(corrID string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: withCORS(map[string]string{
			correlationHeader: corrID,
		}),
	}
}

func jsonResponse(status int, corrID string, payload any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		// Marshalling plain DTOs cannot realistically fail; keep the
		// contract anyway.
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + genericErrorMessage + `"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: withCORS(map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		}),
		Body: string(body),
	}
}

// withCORS applies the permissive cross-origin policy the embedded iframe
// depends on.
func withCORS(headers map[string]string) map[string]string {
	headers["Access-Control-Allow-Origin"] = "*"
	headers["Access-Control-Allow-Methods"] = "POST, GET, OPTIONS"
	headers["Access-Control-Allow-Headers"] = "Content-Type, " + adminPasswordHeader
	return headers
}
