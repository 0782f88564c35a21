package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/SasLord/tma/internal/botcmd"
	"github.com/SasLord/tma/internal/response"
	"github.com/SasLord/tma/internal/usecase"
	"github.com/SasLord/tma/internal/xerrors"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const maxBodySize = 1 << 20 // requests beyond 1MB are not legitimate orders

// Pinger lets the health endpoint reach the backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WebhookHandler is the single intake point replacing the duplicated
// serverless handlers: every POST lands here and is dispatched by
// payload shape.
type WebhookHandler struct {
	orders *usecase.OrderUsecase
	admin  *AdminHandler
	bot    *botcmd.Router
	db     Pinger
	logger *zap.Logger
}

func NewWebhookHandler(
	orders *usecase.OrderUsecase,
	admin *AdminHandler,
	bot *botcmd.Router,
	db Pinger,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		orders: orders,
		admin:  admin,
		bot:    bot,
		db:     db,
		logger: logger,
	}
}

// probe sniffs the payload shape without committing to a full decode.
type probe struct {
	UpdateID      int64           `json:"update_id"`
	Message       json.RawMessage `json:"message"`
	CallbackQuery json.RawMessage `json:"callback_query"`
	Services      json.RawMessage `json:"services"`
	Action        string          `json:"action"`
}

// HandleWebhook dispatches by shape, in priority order: Telegram
// update envelope, order body, administrative action.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.KeyInvalidData)
		return
	}

	var p probe
	if err := json.Unmarshal(body, &p); err != nil {
		h.logger.Warn("unparseable webhook body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, response.KeyInvalidData)
		return
	}

	switch {
	case p.UpdateID != 0 || p.Message != nil || p.CallbackQuery != nil:
		h.handleUpdate(w, r, body)
	case p.Services != nil:
		h.handleOrder(w, r, body)
	case p.Action != "":
		h.admin.HandleAction(w, r, body)
	default:
		response.Error(w, http.StatusBadRequest, response.KeyMissingServices)
	}
}

func (h *WebhookHandler) handleUpdate(w http.ResponseWriter, r *http.Request, body []byte) {
	var upd models.Update
	if err := json.Unmarshal(body, &upd); err != nil {
		h.logger.Warn("bad telegram update", zap.Error(err))
		response.Error(w, http.StatusBadRequest, response.KeyInvalidData)
		return
	}

	if err := h.bot.HandleUpdate(r.Context(), &upd); err != nil {
		// Telegram retries on non-200; log and acknowledge instead.
		h.logger.Error("update processing failed",
			zap.Int64("update_id", upd.ID), zap.Error(err))
	}
	response.Success(w, map[string]any{"message": "Update processed"})
}

// HandleWebAppData serves the dedicated order endpoint; same pipeline
// as order-shaped bodies on /webhook.
func (h *WebhookHandler) HandleWebAppData(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.KeyInvalidData)
		return
	}
	h.handleOrder(w, r, body)
}

func (h *WebhookHandler) handleOrder(w http.ResponseWriter, r *http.Request, body []byte) {
	var raw usecase.RawInbound
	if err := json.Unmarshal(body, &raw); err != nil {
		response.Error(w, http.StatusBadRequest, response.KeyInvalidData)
		return
	}

	result, err := h.orders.Submit(r.Context(), usecase.InboundFromHTTP(raw))
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	fields := map[string]any{
		"orderId":  result.OrderID,
		"notified": result.Notified,
	}
	if result.Fallback {
		fields["fallback"] = true
	}
	if result.NotifyFailed {
		fields["notifyFailed"] = true
	}
	response.Success(w, fields)
}

func (h *WebhookHandler) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, xerrors.ErrMissingHash), errors.Is(err, xerrors.ErrInvalidSignature):
		response.Error(w, http.StatusUnauthorized, response.KeyUnauthorized)
	case errors.Is(err, xerrors.ErrInvalidServices):
		response.Error(w, http.StatusBadRequest, response.KeyMissingServices)
	case errors.Is(err, xerrors.ErrInvalidRequest):
		response.Error(w, http.StatusBadRequest, response.KeyInvalidData)
	default:
		h.logger.Error("order submission failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, response.KeyInternal)
	}
}

// HandleStatus answers GET / with a service descriptor.
func (h *WebhookHandler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"message":   "Telegram Storefront Server",
		"status":    "running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"endpoints": map[string]string{
			"webhook":     "/webhook",
			"webapp_data": "/webapp-data",
			"health":      "/health",
		},
	})
}

func (h *WebhookHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Error("health check failed", zap.Error(err))
			response.Error(w, http.StatusServiceUnavailable, response.KeyInternal)
			return
		}
	}
	response.Success(w, nil)
}
