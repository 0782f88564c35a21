package usecase

import (
	"context"
	"fmt"

	"github.com/SasLord/tma/internal/domain"
	"github.com/SasLord/tma/internal/repository"
	"github.com/SasLord/tma/internal/xerrors"

	"go.uber.org/zap"
)

// AdminUsecase backs the administrative action API and the bot's
// admin-only commands.
type AdminUsecase struct {
	orders repository.OrderRepository
	admins repository.AdminRepository
	logger *zap.Logger
}

func NewAdminUsecase(
	orders repository.OrderRepository,
	admins repository.AdminRepository,
	logger *zap.Logger,
) *AdminUsecase {
	return &AdminUsecase{orders: orders, admins: admins, logger: logger}
}

func (u *AdminUsecase) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return u.admins.IsAdmin(ctx, userID)
}

func (u *AdminUsecase) IsSuperAdmin(ctx context.Context, userID string) (bool, error) {
	return u.admins.IsSuperAdmin(ctx, userID)
}

func (u *AdminUsecase) GetOrders(ctx context.Context, limit int) ([]*domain.Order, error) {
	return u.orders.ListOrders(ctx, limit)
}

func (u *AdminUsecase) CountOrders(ctx context.Context) (int64, error) {
	return u.orders.CountOrders(ctx)
}

func (u *AdminUsecase) GetAdmins(ctx context.Context) ([]*domain.AdminRecord, error) {
	return u.admins.ListAdmins(ctx)
}

// AddAdmin registers a new admin; a duplicate is not an error and
// yields a nil record.
func (u *AdminUsecase) AddAdmin(ctx context.Context, callerID, userID, name, username string) (*domain.AdminRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: target user id required", xerrors.ErrInvalidRequest)
	}
	rec, err := u.admins.AddAdmin(ctx, userID, name, username, callerID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		u.logger.Info("admin added",
			zap.String("user_id", userID), zap.String("added_by", callerID))
	}
	return rec, nil
}

func (u *AdminUsecase) RemoveAdmin(ctx context.Context, callerID, userID string) error {
	if err := u.admins.RemoveAdmin(ctx, userID, callerID); err != nil {
		return err
	}
	u.logger.Info("admin removed",
		zap.String("user_id", userID), zap.String("removed_by", callerID))
	return nil
}

func (u *AdminUsecase) UpdateAdmin(ctx context.Context, userID, name, username string) error {
	return u.admins.UpdateAdmin(ctx, userID, name, username)
}

// ClearOrders wipes the order history. The store trusts its caller, so
// the super-admin gate lives here.
func (u *AdminUsecase) ClearOrders(ctx context.Context, callerID string) (int64, error) {
	isSuper, err := u.admins.IsSuperAdmin(ctx, callerID)
	if err != nil {
		return 0, err
	}
	if !isSuper {
		return 0, xerrors.ErrForbidden
	}

	count, err := u.orders.ClearAllOrders(ctx)
	if err != nil {
		return 0, err
	}
	u.logger.Warn("order history cleared",
		zap.String("by", callerID), zap.Int64("count", count))
	return count, nil
}

func (u *AdminUsecase) SetOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status %q", xerrors.ErrInvalidRequest, status)
	}
	return u.orders.UpdateOrderStatus(ctx, orderID, status)
}
