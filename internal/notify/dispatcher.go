// Package notify formats order summaries and fans them out to the
// admin registry.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SasLord/tma/internal/domain"

	"go.uber.org/zap"
)

// Sender delivers one message to one chat. telegram.Client satisfies
// it; tests substitute fakes.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Report counts delivery attempts for one broadcast.
type Report struct {
	Sent  int `json:"sent"`
	Total int `json:"total"`
}

type Dispatcher struct {
	sender  Sender
	logger  *zap.Logger
	timeout time.Duration
	loc     *time.Location
}

func NewDispatcher(sender Sender, logger *zap.Logger, timeout time.Duration) *Dispatcher {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		loc = time.UTC
	}
	return &Dispatcher{
		sender:  sender,
		logger:  logger,
		timeout: timeout,
		loc:     loc,
	}
}

// Broadcast sends one summary to every recipient concurrently. A
// failed delivery never aborts the rest; the report counts successes
// against attempts. Partial failure is logged, not raised.
func (d *Dispatcher) Broadcast(ctx context.Context, order *domain.Order, recipients []*domain.AdminRecord) Report {
	report := Report{Total: len(recipients)}
	if len(recipients) == 0 {
		return report
	}

	text := d.FormatOrderSummary(order)

	var sent atomic.Int64
	var wg sync.WaitGroup
	for _, rec := range recipients {
		wg.Add(1)
		go func(rec *domain.AdminRecord) {
			defer wg.Done()

			chatID, ok := rec.ChatID()
			if !ok {
				d.logger.Warn("skipping admin with unparseable chat id",
					zap.String("user_id", rec.UserID))
				return
			}

			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			if err := d.sender.SendMessage(sendCtx, chatID, text); err != nil {
				d.logger.Warn("order notification failed",
					zap.Int64("order_id", order.ID),
					zap.Int64("chat_id", chatID),
					zap.Error(err))
				return
			}
			sent.Add(1)
		}(rec)
	}
	wg.Wait()

	report.Sent = int(sent.Load())
	return report
}

// ConfirmToUser sends the direct order confirmation. It is also the
// documented fallback when the admin registry is empty: the ordering
// user gets notified instead of nobody.
func (d *Dispatcher) ConfirmToUser(ctx context.Context, order *domain.Order) error {
	if order.User == nil || order.User.ID == 0 {
		return fmt.Errorf("order %d has no user to confirm to", order.ID)
	}

	text := fmt.Sprintf(
		"✅ Ваш заказ принят!\n\nНомер заказа: %d\nСумма: %d₽\n\nС вами свяжутся в ближайшее время.",
		order.ID, order.Total)

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.sender.SendMessage(sendCtx, order.User.ID, text)
}

// FormatOrderSummary renders the admin-facing message for one order.
func (d *Dispatcher) FormatOrderSummary(order *domain.Order) string {
	var b strings.Builder
	b.WriteString("🛍️ Новый заказ через Telegram WebApp!\n\n")

	if order.User != nil && order.User.ID != 0 {
		b.WriteString("👤 Пользователь: " + order.User.DisplayName() + "\n")
		b.WriteString(fmt.Sprintf("🆔 ID: %d\n", order.User.ID))
		username := order.User.Username
		if username == "" {
			username = "отсутствует"
		}
		b.WriteString("👤 Username: @" + username + "\n\n")
	} else {
		b.WriteString("👤 Пользователь: Неизвестно\n\n")
	}

	b.WriteString("📋 Выбранные услуги:\n")
	for _, item := range order.Items {
		b.WriteString(fmt.Sprintf("• %s - %d₽\n", item.Name, item.Price))
	}

	b.WriteString(fmt.Sprintf("\n💰 Общая сумма: %d₽\n", order.Total))
	b.WriteString("🌐 Платформа: " + order.Platform + "\n")

	at := order.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	b.WriteString("📅 Время: " + at.In(d.loc).Format("02.01.2006 15:04"))

	return b.String()
}
