package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SasLord/tma/internal/domain"
	"github.com/SasLord/tma/internal/response"
	"github.com/SasLord/tma/internal/usecase"
	"github.com/SasLord/tma/internal/xerrors"

	"go.uber.org/zap"
)

// actionRequest is the administrative JSON envelope: an "action" key
// plus the caller identity and action-specific fields.
type actionRequest struct {
	Action       string               `json:"action"`
	User         *domain.TelegramUser `json:"user"`
	TargetUserID string               `json:"targetUserId"`
	Name         string               `json:"name"`
	Username     string               `json:"username"`
	OrderID      int64                `json:"orderId"`
	Status       string               `json:"status"`
	Limit        int                  `json:"limit"`
}

type actionFunc func(ctx context.Context, caller string, req actionRequest) (map[string]any, error)

// AdminHandler dispatches administrative actions through a lookup
// table; every action requires the caller to be a registered admin.
type AdminHandler struct {
	admin  *usecase.AdminUsecase
	logger *zap.Logger

	actions map[string]actionFunc
}

func NewAdminHandler(admin *usecase.AdminUsecase, logger *zap.Logger) *AdminHandler {
	h := &AdminHandler{admin: admin, logger: logger}
	h.actions = map[string]actionFunc{
		"get_orders":          h.getOrders,
		"get_admins":          h.getAdmins,
		"add_admin":           h.addAdmin,
		"remove_admin":        h.removeAdmin,
		"update_admin":        h.updateAdmin,
		"update_order_status": h.updateOrderStatus,
		"clear_orders":        h.clearOrders,
		"check_admin":         h.checkAdmin,
	}
	return h
}

func (h *AdminHandler) HandleAction(w http.ResponseWriter, r *http.Request, body []byte) {
	var req actionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		response.Error(w, http.StatusBadRequest, response.KeyInvalidData)
		return
	}

	caller := req.User.Key()
	if caller == domain.UnknownUserID {
		response.Error(w, http.StatusForbidden, response.KeyAccessDenied)
		return
	}

	isAdmin, err := h.admin.IsAdmin(r.Context(), caller)
	if err != nil {
		h.logger.Error("admin check failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, response.KeyInternal)
		return
	}
	if !isAdmin {
		response.Error(w, http.StatusForbidden, response.KeyAccessDenied)
		return
	}

	action, ok := h.actions[req.Action]
	if !ok {
		response.Error(w, http.StatusBadRequest, response.KeyInvalidData)
		return
	}

	fields, err := action(r.Context(), caller, req)
	if err != nil {
		h.writeActionError(w, req.Action, err)
		return
	}
	response.Success(w, fields)
}

func (h *AdminHandler) writeActionError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, xerrors.ErrProtectedRecord):
		response.Error(w, http.StatusBadRequest, response.KeyProtectedRecord)
	case errors.Is(err, xerrors.ErrForbidden):
		response.Error(w, http.StatusForbidden, response.KeyAccessDenied)
	case errors.Is(err, xerrors.ErrNotFound):
		response.Error(w, http.StatusNotFound, response.KeyNotFound)
	case errors.Is(err, xerrors.ErrInvalidRequest):
		response.Error(w, http.StatusBadRequest, response.KeyInvalidData)
	default:
		h.logger.Error("admin action failed",
			zap.String("action", action), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, response.KeyInternal)
	}
}

func (h *AdminHandler) getOrders(ctx context.Context, _ string, req actionRequest) (map[string]any, error) {
	orders, err := h.admin.GetOrders(ctx, req.Limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"orders": orders}, nil
}

func (h *AdminHandler) getAdmins(ctx context.Context, _ string, _ actionRequest) (map[string]any, error) {
	admins, err := h.admin.GetAdmins(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"admins": admins}, nil
}

func (h *AdminHandler) addAdmin(ctx context.Context, caller string, req actionRequest) (map[string]any, error) {
	rec, err := h.admin.AddAdmin(ctx, caller, req.TargetUserID, req.Name, req.Username)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return map[string]any{"message": "Admin already exists"}, nil
	}
	return map[string]any{"admin": rec}, nil
}

func (h *AdminHandler) removeAdmin(ctx context.Context, caller string, req actionRequest) (map[string]any, error) {
	if err := h.admin.RemoveAdmin(ctx, caller, req.TargetUserID); err != nil {
		return nil, err
	}
	return map[string]any{"message": "Admin removed"}, nil
}

func (h *AdminHandler) updateAdmin(ctx context.Context, _ string, req actionRequest) (map[string]any, error) {
	if err := h.admin.UpdateAdmin(ctx, req.TargetUserID, req.Name, req.Username); err != nil {
		return nil, err
	}
	return map[string]any{"message": "Admin updated"}, nil
}

func (h *AdminHandler) updateOrderStatus(ctx context.Context, _ string, req actionRequest) (map[string]any, error) {
	if err := h.admin.SetOrderStatus(ctx, req.OrderID, domain.OrderStatus(req.Status)); err != nil {
		return nil, err
	}
	return map[string]any{"message": "Order updated"}, nil
}

func (h *AdminHandler) clearOrders(ctx context.Context, caller string, _ actionRequest) (map[string]any, error) {
	count, err := h.admin.ClearOrders(ctx, caller)
	if err != nil {
		return nil, err
	}
	return map[string]any{"cleared": count}, nil
}

func (h *AdminHandler) checkAdmin(ctx context.Context, caller string, _ actionRequest) (map[string]any, error) {
	isSuper, err := h.admin.IsSuperAdmin(ctx, caller)
	if err != nil {
		return nil, err
	}
	return map[string]any{"isAdmin": true, "isSuperAdmin": isSuper}, nil
}
