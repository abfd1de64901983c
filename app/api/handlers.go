package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/lysyi3m/hookrelay/app/auth"
	"github.com/lysyi3m/hookrelay/app/database"
	"github.com/lysyi3m/hookrelay/app/gateway"
	"github.com/lysyi3m/hookrelay/app/github"
	"github.com/lysyi3m/hookrelay/app/ingest"
)

// GitHub caps webhook payloads at 25 MB.
const maxBodyBytes = 25 << 20

func NewHandler(webhook WebhookProcessor, submitter FeedSubmitter, authenticator auth.Authenticator, serviceName string) *Handler {
	return &Handler{
		webhook:       webhook,
		submitter:     submitter,
		authenticator: authenticator,
		serviceName:   serviceName,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"service": h.serviceName,
	})
}

func (h *Handler) PostWebhook(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Detail: err.Error()})
		return
	}

	out, err := h.webhook.Handle(c.Request.Context(), ingest.Delivery{
		Event:     c.GetHeader(github.HeaderEvent),
		ID:        c.GetHeader(github.HeaderDelivery),
		Signature: c.GetHeader(github.HeaderSignature),
		Body:      body,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	switch {
	case out.Pong:
		c.JSON(http.StatusOK, webhookResponse{OK: true, Pong: true})
	case out.Ignored:
		c.JSON(http.StatusOK, webhookResponse{OK: true, Ignored: true, Reason: out.Reason})
	default:
		c.JSON(http.StatusOK, webhookResponse{OK: true, Forwarded: true, Spawned: true})
	}
}

func (h *Handler) PostSubmit(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Detail: err.Error()})
		return
	}

	creds := auth.Credentials{
		Token:     c.GetHeader("X-API-Token"),
		Signature: c.GetHeader("X-Signature"),
	}
	if err := h.authenticator.Authenticate(creds, body); err != nil {
		slog.Warn("Submission rejected", "request_id", requestID(c), "error", err)
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized: invalid or missing credentials"})
		return
	}

	var req ingest.SubmitRequest
	if err := binding.JSON.BindBody(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_json", Detail: err.Error()})
		return
	}

	result, err := h.submitter.Submit(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// writeError maps pipeline errors onto status codes. Anything unrecognized
// is a 500 carrying the request id.
func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		payloadErr    *github.PayloadError
		submissionErr *ingest.SubmissionError
	)

	switch {
	case errors.Is(err, auth.ErrInvalidSignature):
		detail := strings.TrimPrefix(err.Error(), auth.ErrInvalidSignature.Error()+": ")
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "signature_verification_failed", Detail: detail})
	case errors.Is(err, ingest.ErrMissingEventHeader):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.As(err, &payloadErr):
		c.JSON(http.StatusBadRequest, errorResponse{Error: payloadErr.Reason})
	case errors.As(err, &submissionErr):
		c.JSON(http.StatusBadRequest, errorResponse{Error: submissionErr.Reason})
	case errors.Is(err, gateway.ErrGatewayUnavailable), errors.Is(err, gateway.ErrGatewayRejected):
		slog.Error("Forward failed", "request_id", requestID(c), "error", err)
		c.JSON(http.StatusBadGateway, errorResponse{Error: "forward_failed", RequestID: requestID(c)})
	case errors.Is(err, database.ErrStorageUnavailable):
		slog.Error("Storage failure", "request_id", requestID(c), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "storage_unavailable", RequestID: requestID(c)})
	default:
		slog.Error("Request failed", "request_id", requestID(c), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal_error", RequestID: requestID(c)})
	}
}

func readBody(c *gin.Context) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
}
