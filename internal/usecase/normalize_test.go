package usecase

import (
	"errors"
	"testing"

	"github.com/SasLord/tma/internal/domain"
	"github.com/SasLord/tma/internal/xerrors"

	"github.com/go-telegram/bot/models"
)

func cleaningServices() []domain.ServiceItem {
	return []domain.ServiceItem{
		{ID: "cleaning", Name: "Уборка", Price: 3000},
		{ID: "windows", Name: "Мытьё окон", Price: 1500},
	}
}

func TestNormalizeRecomputesTotal(t *testing.T) {
	n := NewNormalizer()

	// The client claims a nonsense total; the server-side sum wins.
	order, err := n.Normalize(InboundFromHTTP(RawInbound{
		Services:   cleaningServices(),
		TotalPrice: 999999,
		User:       &domain.TelegramUser{ID: 42, FirstName: "Оля"},
		Platform:   "web",
	}))
	if err != nil {
		t.Fatalf("Normalize() = %v, want nil", err)
	}
	if order.Total != 4500 {
		t.Fatalf("Total = %d, want 4500", order.Total)
	}
	if order.Status != domain.StatusNew {
		t.Fatalf("Status = %q, want %q", order.Status, domain.StatusNew)
	}
	if order.User.ID != 42 {
		t.Fatalf("User.ID = %d, want 42", order.User.ID)
	}
}

func TestNormalizeRejectsBadItems(t *testing.T) {
	n := NewNormalizer()

	cases := []struct {
		name  string
		items []domain.ServiceItem
	}{
		{"empty list", nil},
		{"missing name", []domain.ServiceItem{{ID: "x", Price: 100}}},
		{"negative price", []domain.ServiceItem{{ID: "x", Name: "Уборка", Price: -1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := n.Normalize(Inbound{Services: tc.items})
			if !errors.Is(err, xerrors.ErrInvalidServices) {
				t.Fatalf("Normalize() = %v, want ErrInvalidServices", err)
			}
		})
	}
}

func TestNormalizeUnknownUserSentinel(t *testing.T) {
	n := NewNormalizer()

	order, err := n.Normalize(Inbound{Services: cleaningServices()})
	if err != nil {
		t.Fatalf("Normalize() = %v, want nil", err)
	}
	if order.User.Key() != domain.UnknownUserID {
		t.Fatalf("User.Key() = %q, want %q", order.User.Key(), domain.UnknownUserID)
	}
	if order.Platform != "unknown" {
		t.Fatalf("Platform = %q, want unknown", order.Platform)
	}
}

func TestNormalizeUserFromInitData(t *testing.T) {
	n := NewNormalizer()

	// Unverified identity extraction: the user field rides inside the
	// launch blob when the body carries no explicit user object.
	order, err := n.Normalize(Inbound{
		Services: cleaningServices(),
		InitData: `user=%7B%22id%22%3A777%2C%22first_name%22%3A%22%D0%9C%D0%B0%D1%88%D0%B0%22%7D&hash=abc`,
	})
	if err != nil {
		t.Fatalf("Normalize() = %v, want nil", err)
	}
	if order.User.ID != 777 || order.User.FirstName != "Маша" {
		t.Fatalf("User = %+v, want id 777", order.User)
	}
}

func TestInboundFromUpdate(t *testing.T) {
	upd := &models.Update{
		ID: 10,
		Message: &models.Message{
			From: &models.User{ID: 55, FirstName: "Иван", Username: "ivan"},
			WebAppData: &models.WebAppData{
				Data: `{"services":[{"id":"cleaning","name":"Уборка","price":3000}],"total":3000}`,
			},
		},
	}

	in, err := InboundFromUpdate(upd)
	if err != nil {
		t.Fatalf("InboundFromUpdate() = %v, want nil", err)
	}
	if in.Platform != "telegram_webapp" {
		t.Fatalf("Platform = %q, want telegram_webapp", in.Platform)
	}
	if in.User == nil || in.User.ID != 55 {
		t.Fatalf("User = %+v, want id 55", in.User)
	}
	if len(in.Services) != 1 || in.Services[0].Name != "Уборка" {
		t.Fatalf("Services = %+v", in.Services)
	}
}

func TestInboundFromUpdateRejectsNonWebApp(t *testing.T) {
	cases := []*models.Update{
		nil,
		{ID: 1},
		{ID: 2, Message: &models.Message{Text: "hello"}},
		{ID: 3, Message: &models.Message{WebAppData: &models.WebAppData{Data: "not json"}}},
	}
	for _, upd := range cases {
		if _, err := InboundFromUpdate(upd); !errors.Is(err, xerrors.ErrInvalidServices) {
			t.Errorf("InboundFromUpdate(%+v) = %v, want ErrInvalidServices", upd, err)
		}
	}
}
