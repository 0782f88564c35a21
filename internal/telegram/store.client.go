// Package telegram wraps the Bot API client used for admin
// notifications, user confirmations and command replies.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type Client struct {
	bot *bot.Bot
}

// NewClient builds a Bot API client with a bounded HTTP timeout; no
// outbound call may block past it.
func NewClient(token string, timeout time.Duration) (*Client, error) {
	b, err := bot.New(token,
		bot.WithHTTPClient(timeout, &http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("create bot client: %w", err)
	}
	return &Client{bot: b}, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

// SendWebAppButton sends a message with a single inline button opening
// the storefront Mini App.
func (c *Client) SendWebAppButton(ctx context.Context, chatID int64, text, buttonText, url string) error {
	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: buttonText, WebApp: &models.WebAppInfo{URL: url}},
			}},
		},
	})
	return err
}

// AnswerWebAppQuery acknowledges a Mini App submission that carried a
// web-app query id.
func (c *Client) AnswerWebAppQuery(ctx context.Context, queryID, title, text string) error {
	_, err := c.bot.AnswerWebAppQuery(ctx, &bot.AnswerWebAppQueryParams{
		WebAppQueryID: queryID,
		Result: &models.InlineQueryResultArticle{
			ID:    "order_success",
			Title: title,
			InputMessageContent: &models.InputTextMessageContent{
				MessageText: text,
			},
		},
	})
	return err
}
