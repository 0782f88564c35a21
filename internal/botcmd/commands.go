// Package botcmd handles Telegram webhook updates: bot commands and
// web_app_data submissions relayed through the bot.
package botcmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/SasLord/tma/internal/usecase"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Messenger is the outbound surface the command handlers need.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendWebAppButton(ctx context.Context, chatID int64, text, buttonText, url string) error
}

type commandFunc func(ctx context.Context, msg *models.Message) error

// Router maps commands to handlers through a single lookup table; the
// copy-pasted per-deployment variants this replaces each had their own
// switch.
type Router struct {
	messenger Messenger
	orders    *usecase.OrderUsecase
	admins    *usecase.AdminUsecase
	webAppURL string
	logger    *zap.Logger

	commands map[string]commandFunc
}

func NewRouter(
	messenger Messenger,
	orders *usecase.OrderUsecase,
	admins *usecase.AdminUsecase,
	webAppURL string,
	logger *zap.Logger,
) *Router {
	r := &Router{
		messenger: messenger,
		orders:    orders,
		admins:    admins,
		webAppURL: webAppURL,
		logger:    logger,
	}
	r.commands = map[string]commandFunc{
		"start":  r.handleStart,
		"help":   r.handleHelp,
		"webapp": r.handleWebApp,
		"status": r.handleStatus,
		"admins": r.handleAdmins,
	}
	return r
}

// HandleUpdate routes one webhook update. Unsupported update kinds are
// acknowledged silently.
func (r *Router) HandleUpdate(ctx context.Context, upd *models.Update) error {
	if upd == nil || upd.Message == nil {
		return nil
	}
	msg := upd.Message

	if msg.WebAppData != nil {
		return r.handleWebAppData(ctx, upd)
	}

	if cmd, ok := parseCommand(msg.Text); ok {
		handler, known := r.commands[cmd]
		if !known {
			return r.hint(ctx, msg.Chat.ID)
		}
		return handler(ctx, msg)
	}

	if msg.Text != "" {
		return r.hint(ctx, msg.Chat.ID)
	}
	return nil
}

func (r *Router) handleWebAppData(ctx context.Context, upd *models.Update) error {
	chatID := upd.Message.Chat.ID

	in, err := usecase.InboundFromUpdate(upd)
	if err != nil {
		r.logger.Warn("bad web app data", zap.Error(err))
		return r.messenger.SendMessage(ctx, chatID,
			"❌ Произошла ошибка при обработке заказа. Попробуйте еще раз.")
	}

	if _, err := r.orders.Submit(ctx, in); err != nil {
		r.logger.Error("web app order failed", zap.Error(err))
		return r.messenger.SendMessage(ctx, chatID,
			"❌ Произошла ошибка при обработке заказа. Попробуйте еще раз.")
	}
	return r.messenger.SendMessage(ctx, chatID, "✅ Данные получены и обрабатываются!")
}

func (r *Router) handleStart(ctx context.Context, msg *models.Message) error {
	text := "🎉 Добро пожаловать в наш сервис!\n\n" +
		"🛍️ Используйте команду /webapp чтобы открыть каталог услуг\n" +
		"💰 Выберите нужные услуги и оформите заказ прямо в Telegram!"
	return r.messenger.SendWebAppButton(ctx, msg.Chat.ID, text, "🛍️ Открыть каталог", r.webAppURL)
}

func (r *Router) handleHelp(ctx context.Context, msg *models.Message) error {
	text := "📋 Доступные команды:\n\n" +
		"/start - Начать работу с ботом\n" +
		"/webapp - Открыть каталог услуг\n" +
		"/status - Статистика заказов (для администраторов)\n" +
		"/help - Показать эту справку\n\n" +
		"🛎️ Для заказа услуг используйте веб-приложение!"
	return r.messenger.SendMessage(ctx, msg.Chat.ID, text)
}

func (r *Router) handleWebApp(ctx context.Context, msg *models.Message) error {
	text := "🛍️ Откройте наш каталог услуг в веб-приложении!\n\n" +
		"👆 Нажмите кнопку ниже, чтобы выбрать и заказать услуги"
	return r.messenger.SendWebAppButton(ctx, msg.Chat.ID, text, "🛍️ Открыть каталог услуг", r.webAppURL)
}

func (r *Router) handleStatus(ctx context.Context, msg *models.Message) error {
	userID := senderID(msg)
	isAdmin, err := r.admins.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return r.hint(ctx, msg.Chat.ID)
	}

	count, err := r.admins.CountOrders(ctx)
	if err != nil {
		r.logger.Error("status command failed", zap.Error(err))
		return r.messenger.SendMessage(ctx, msg.Chat.ID, "❌ Не удалось получить статистику.")
	}
	return r.messenger.SendMessage(ctx, msg.Chat.ID,
		fmt.Sprintf("📊 Всего заказов: %d", count))
}

func (r *Router) handleAdmins(ctx context.Context, msg *models.Message) error {
	userID := senderID(msg)
	isSuper, err := r.admins.IsSuperAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !isSuper {
		return r.hint(ctx, msg.Chat.ID)
	}

	records, err := r.admins.GetAdmins(ctx)
	if err != nil {
		r.logger.Error("admins command failed", zap.Error(err))
		return r.messenger.SendMessage(ctx, msg.Chat.ID, "❌ Не удалось получить список администраторов.")
	}

	var b strings.Builder
	b.WriteString("👥 Администраторы:\n")
	for _, rec := range records {
		b.WriteString("• " + rec.Name)
		if rec.Username != "" {
			b.WriteString(" (@" + rec.Username + ")")
		}
		if rec.IsSuperAdmin {
			b.WriteString(" ⭐")
		}
		b.WriteString("\n")
	}
	return r.messenger.SendMessage(ctx, msg.Chat.ID, b.String())
}

func (r *Router) hint(ctx context.Context, chatID int64) error {
	text := "🤖 Используйте команду /webapp для открытия каталога услуг\n" +
		"Или /help для получения справки"
	return r.messenger.SendWebAppButton(ctx, chatID, text, "🛍️ Открыть каталог", r.webAppURL)
}

// parseCommand extracts "start" from "/start" or "/start@SomeBot".
func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	cmd := strings.Fields(text)[0]
	cmd = strings.TrimPrefix(cmd, "/")
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	return cmd, cmd != ""
}

func senderID(msg *models.Message) string {
	if msg.From == nil {
		return ""
	}
	return strconv.FormatInt(msg.From.ID, 10)
}
