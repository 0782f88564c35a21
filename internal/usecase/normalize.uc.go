package usecase

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SasLord/tma/internal/auth"
	"github.com/SasLord/tma/internal/domain"
	"github.com/SasLord/tma/internal/xerrors"

	"github.com/go-telegram/bot/models"
)

// RawInbound is the direct HTTP order body ("HTTP SDK" path). The
// client-supplied totalPrice is informational only and never trusted.
type RawInbound struct {
	Services   []domain.ServiceItem `json:"services"`
	TotalPrice int64                `json:"totalPrice"`
	User       *domain.TelegramUser `json:"user"`
	Platform   string               `json:"platform"`
	Type       string               `json:"type"`
	InitData   string               `json:"initData"`
	QueryID    string               `json:"queryId"`
}

// Inbound is the reconciled submission regardless of transport.
type Inbound struct {
	Services []domain.ServiceItem
	User     *domain.TelegramUser
	Platform string
	InitData string
	QueryID  string

	// Relayed marks orders arriving inside a Telegram update. Those
	// never carry launch data, so the launch-data requirement does not
	// apply to them.
	Relayed bool
}

// webAppPayload is what the Mini App packs into
// message.web_app_data.data ("bot relay" path).
type webAppPayload struct {
	Services []domain.ServiceItem `json:"services"`
	Total    int64                `json:"total"`
}

func InboundFromHTTP(raw RawInbound) Inbound {
	return Inbound{
		Services: raw.Services,
		User:     raw.User,
		Platform: raw.Platform,
		InitData: raw.InitData,
		QueryID:  raw.QueryID,
	}
}

// InboundFromUpdate extracts an order from a Telegram webhook update
// carrying web_app_data. The sender identity comes from message.from.
func InboundFromUpdate(upd *models.Update) (Inbound, error) {
	if upd == nil || upd.Message == nil || upd.Message.WebAppData == nil {
		return Inbound{}, fmt.Errorf("%w: update carries no web app data", xerrors.ErrInvalidServices)
	}

	var payload webAppPayload
	if err := json.Unmarshal([]byte(upd.Message.WebAppData.Data), &payload); err != nil {
		return Inbound{}, fmt.Errorf("%w: bad web app payload: %v", xerrors.ErrInvalidServices, err)
	}

	in := Inbound{
		Services: payload.Services,
		Platform: "telegram_webapp",
		Relayed:  true,
	}
	if from := upd.Message.From; from != nil {
		in.User = &domain.TelegramUser{
			ID:           from.ID,
			FirstName:    from.FirstName,
			LastName:     from.LastName,
			Username:     from.Username,
			IsPremium:    from.IsPremium,
			LanguageCode: from.LanguageCode,
		}
	}
	return in, nil
}

// Normalizer turns heterogeneous inbound payloads into one canonical
// Order value.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize validates the item list, recomputes the total server-side
// and resolves the user identity. A missing identity substitutes the
// sentinel unknown user instead of dropping the order.
func (n *Normalizer) Normalize(in Inbound) (*domain.Order, error) {
	if len(in.Services) == 0 {
		return nil, xerrors.ErrInvalidServices
	}

	var total int64
	for _, item := range in.Services {
		if item.Name == "" || item.Price < 0 {
			return nil, fmt.Errorf("%w: item %+v", xerrors.ErrInvalidServices, item)
		}
		total += item.Price
	}

	user := in.User
	if user == nil && in.InitData != "" {
		parsed, err := auth.User(in.InitData)
		if err == nil {
			user = parsed
		} else if !errors.Is(err, xerrors.ErrUnknownUser) {
			return nil, err
		}
	}
	if user == nil || user.ID == 0 {
		user = domain.UnknownUser()
	}

	platform := in.Platform
	if platform == "" {
		platform = "unknown"
	}

	return &domain.Order{
		User:     user,
		Items:    in.Services,
		Total:    total,
		Platform: platform,
		Status:   domain.StatusNew,
	}, nil
}
