package usecase

import (
	"context"
	"fmt"

	"github.com/SasLord/tma/internal/auth"
	"github.com/SasLord/tma/internal/notify"
	"github.com/SasLord/tma/internal/repository"
	"github.com/SasLord/tma/internal/xerrors"

	"go.uber.org/zap"
)

// WebAppAcker answers a Mini App query when the submission carried a
// query id. Optional; nil disables the ack.
type WebAppAcker interface {
	AnswerWebAppQuery(ctx context.Context, queryID, title, text string) error
}

type OrderUsecase struct {
	normalizer *Normalizer
	verifier   *auth.Verifier
	orders     repository.OrderRepository
	admins     repository.AdminRepository
	dispatcher *notify.Dispatcher
	acker      WebAppAcker
	logger     *zap.Logger

	// requireInitData makes signed launch data mandatory on the direct
	// HTTP order path (explicit policy, see config). Orders relayed
	// through a Telegram update are exempt: web_app_data never carries
	// launch data.
	requireInitData bool
}

func NewOrderUsecase(
	normalizer *Normalizer,
	verifier *auth.Verifier,
	orders repository.OrderRepository,
	admins repository.AdminRepository,
	dispatcher *notify.Dispatcher,
	acker WebAppAcker,
	logger *zap.Logger,
	requireInitData bool,
) *OrderUsecase {
	return &OrderUsecase{
		normalizer:      normalizer,
		verifier:        verifier,
		orders:          orders,
		admins:          admins,
		dispatcher:      dispatcher,
		acker:           acker,
		logger:          logger,
		requireInitData: requireInitData,
	}
}

type SubmitResult struct {
	OrderID  int64
	Notified notify.Report
	// Fallback reports that the admin registry was empty and the
	// ordering user received the confirmation instead.
	Fallback bool
	// NotifyFailed is set when recipients could not be enumerated
	// after the order was already persisted; the order stands.
	NotifyFailed bool
}

// Submit runs the full intake pipeline: verify, normalize, persist,
// notify. Notification problems after a successful save never roll the
// order back; they surface in the result only.
func (u *OrderUsecase) Submit(ctx context.Context, in Inbound) (*SubmitResult, error) {
	if u.requireInitData && !in.Relayed {
		if in.InitData == "" {
			return nil, xerrors.ErrMissingHash
		}
		if err := u.verifier.Verify(in.InitData); err != nil {
			return nil, err
		}
	}

	order, err := u.normalizer.Normalize(in)
	if err != nil {
		return nil, err
	}

	if err := u.orders.UpsertUser(ctx, order.User); err != nil {
		return nil, err
	}

	orderID, err := u.orders.InsertOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	u.logger.Info("order saved",
		zap.Int64("order_id", orderID),
		zap.String("user_id", order.User.Key()),
		zap.Int64("total", order.Total),
		zap.String("platform", order.Platform))

	result := &SubmitResult{OrderID: orderID}

	recipients, err := u.admins.ListAdmins(ctx)
	switch {
	case err != nil:
		// Order is already persisted; report, don't fail the request.
		u.logger.Error("failed to enumerate notification recipients",
			zap.Int64("order_id", orderID), zap.Error(err))
		result.NotifyFailed = true
	case len(recipients) == 0:
		// Nobody to notify: confirm directly to the ordering user.
		result.Fallback = true
		if err := u.dispatcher.ConfirmToUser(ctx, order); err != nil {
			u.logger.Warn("fallback confirmation failed",
				zap.Int64("order_id", orderID), zap.Error(err))
		}
	default:
		result.Notified = u.dispatcher.Broadcast(ctx, order, recipients)
	}

	if in.QueryID != "" && u.acker != nil {
		ack := fmt.Sprintf("✅ Ваш заказ на сумму %d₽ принят и обрабатывается!", order.Total)
		if err := u.acker.AnswerWebAppQuery(ctx, in.QueryID, "Заказ принят!", ack); err != nil {
			u.logger.Warn("answer web app query failed",
				zap.Int64("order_id", orderID), zap.Error(err))
		}
	}

	return result, nil
}
