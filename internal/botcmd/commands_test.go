package botcmd

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SasLord/tma/internal/auth"
	"github.com/SasLord/tma/internal/notify"
	"github.com/SasLord/tma/internal/repository"
	"github.com/SasLord/tma/internal/usecase"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type fakeMessenger struct {
	mu       sync.Mutex
	messages map[int64][]string
	buttons  map[int64][]string
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		messages: make(map[int64][]string),
		buttons:  make(map[int64][]string),
	}
}

func (m *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[chatID] = append(m.messages[chatID], text)
	return nil
}

func (m *fakeMessenger) SendWebAppButton(_ context.Context, chatID int64, text, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buttons[chatID] = append(m.buttons[chatID], text)
	return nil
}

func newTestRouter(t *testing.T, requireInitData bool) (*Router, *fakeMessenger, *repository.MemoryStore) {
	t.Helper()

	store := repository.NewMemoryStore("1000")
	if err := store.EnsureSuperAdmin(context.Background()); err != nil {
		t.Fatal(err)
	}

	messenger := newFakeMessenger()
	logger := zap.NewNop()
	dispatcher := notify.NewDispatcher(messenger, logger, time.Second)
	verifier := auth.NewVerifier("123456:TEST-TOKEN", false)

	orders := usecase.NewOrderUsecase(usecase.NewNormalizer(), verifier,
		store, store, dispatcher, nil, logger, requireInitData)
	admins := usecase.NewAdminUsecase(store, store, logger)

	return NewRouter(messenger, orders, admins, "https://example.com/app", logger), messenger, store
}

func textUpdate(userID, chatID int64, text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   1,
			Chat: models.Chat{ID: chatID},
			From: &models.User{ID: userID, FirstName: "Оля"},
			Text: text,
		},
	}
}

func TestStartSendsCatalogButton(t *testing.T) {
	r, messenger, _ := newTestRouter(t, false)

	if err := r.HandleUpdate(context.Background(), textUpdate(42, 42, "/start")); err != nil {
		t.Fatalf("HandleUpdate() = %v, want nil", err)
	}
	if len(messenger.buttons[42]) != 1 {
		t.Fatalf("buttons = %v, want one welcome button", messenger.buttons)
	}
}

func TestCommandWithBotSuffix(t *testing.T) {
	r, messenger, _ := newTestRouter(t, false)

	if err := r.HandleUpdate(context.Background(), textUpdate(42, 42, "/help@StoreBot")); err != nil {
		t.Fatalf("HandleUpdate() = %v, want nil", err)
	}
	got := messenger.messages[42]
	if len(got) != 1 || !strings.Contains(got[0], "Доступные команды") {
		t.Fatalf("messages = %v, want help text", got)
	}
}

func TestStatusGatedToAdmins(t *testing.T) {
	r, messenger, _ := newTestRouter(t, false)
	ctx := context.Background()

	// A stranger asking for stats gets the catalog hint instead.
	if err := r.HandleUpdate(ctx, textUpdate(42, 42, "/status")); err != nil {
		t.Fatal(err)
	}
	if len(messenger.messages[42]) != 0 || len(messenger.buttons[42]) != 1 {
		t.Fatalf("non-admin got %v / %v, want only the hint button",
			messenger.messages[42], messenger.buttons[42])
	}

	if err := r.HandleUpdate(ctx, textUpdate(1000, 1000, "/status")); err != nil {
		t.Fatal(err)
	}
	got := messenger.messages[1000]
	if len(got) != 1 || !strings.Contains(got[0], "Всего заказов: 0") {
		t.Fatalf("admin messages = %v, want order count", got)
	}
}

func TestAdminsCommandRequiresSuperAdmin(t *testing.T) {
	r, messenger, store := newTestRouter(t, false)
	ctx := context.Background()

	if _, err := store.AddAdmin(ctx, "2000", "Второй", "second", "1000"); err != nil {
		t.Fatal(err)
	}

	// Regular admin gets the hint, not the roster.
	if err := r.HandleUpdate(ctx, textUpdate(2000, 2000, "/admins")); err != nil {
		t.Fatal(err)
	}
	if len(messenger.messages[2000]) != 0 {
		t.Fatalf("regular admin got %v, want nothing", messenger.messages[2000])
	}

	if err := r.HandleUpdate(ctx, textUpdate(1000, 1000, "/admins")); err != nil {
		t.Fatal(err)
	}
	got := messenger.messages[1000]
	if len(got) != 1 || !strings.Contains(got[0], "Второй") || !strings.Contains(got[0], "⭐") {
		t.Fatalf("roster = %v, want both admins with the super mark", got)
	}
}

func TestUnknownTextGetsHint(t *testing.T) {
	r, messenger, _ := newTestRouter(t, false)

	for _, text := range []string{"привет", "/unknown_cmd"} {
		if err := r.HandleUpdate(context.Background(), textUpdate(42, 42, text)); err != nil {
			t.Fatalf("HandleUpdate(%q) = %v, want nil", text, err)
		}
	}
	if len(messenger.buttons[42]) != 2 {
		t.Fatalf("buttons = %v, want the hint twice", messenger.buttons[42])
	}
}

func TestWebAppDataSubmitsOrder(t *testing.T) {
	r, messenger, store := newTestRouter(t, false)
	ctx := context.Background()

	upd := textUpdate(42, 42, "")
	upd.Message.WebAppData = &models.WebAppData{
		Data: `{"services":[{"id":"cleaning","name":"Уборка","price":3000}],"total":3000}`,
	}
	if err := r.HandleUpdate(ctx, upd); err != nil {
		t.Fatalf("HandleUpdate() = %v, want nil", err)
	}

	if n, _ := store.CountOrders(ctx); n != 1 {
		t.Fatalf("CountOrders = %d, want 1", n)
	}
	got := messenger.messages[42]
	if len(got) != 1 || !strings.Contains(got[0], "Данные получены") {
		t.Fatalf("messages = %v, want submission acknowledgement", got)
	}
}

func TestWebAppDataSubmitsWithMandatoryLaunchData(t *testing.T) {
	r, messenger, store := newTestRouter(t, true)
	ctx := context.Background()

	// Relayed orders arrive without launch data by construction; the
	// mandatory-launch-data policy applies to direct HTTP submissions
	// only and must not break bot relay.
	upd := textUpdate(42, 42, "")
	upd.Message.WebAppData = &models.WebAppData{
		Data: `{"services":[{"id":"cleaning","name":"Уборка","price":3000}],"total":3000}`,
	}
	if err := r.HandleUpdate(ctx, upd); err != nil {
		t.Fatalf("HandleUpdate() = %v, want nil", err)
	}

	if n, _ := store.CountOrders(ctx); n != 1 {
		t.Fatalf("CountOrders = %d, want 1", n)
	}
	got := messenger.messages[42]
	if len(got) != 1 || !strings.Contains(got[0], "Данные получены") {
		t.Fatalf("messages = %v, want submission acknowledgement", got)
	}
}

func TestBadWebAppDataReportsToUser(t *testing.T) {
	r, messenger, store := newTestRouter(t, false)
	ctx := context.Background()

	upd := textUpdate(42, 42, "")
	upd.Message.WebAppData = &models.WebAppData{Data: "not json"}
	if err := r.HandleUpdate(ctx, upd); err != nil {
		t.Fatalf("HandleUpdate() = %v, want nil", err)
	}

	if n, _ := store.CountOrders(ctx); n != 0 {
		t.Fatalf("CountOrders = %d, want 0", n)
	}
	got := messenger.messages[42]
	if len(got) != 1 || !strings.Contains(got[0], "ошибка") {
		t.Fatalf("messages = %v, want error notice", got)
	}
}

func TestIgnoredUpdates(t *testing.T) {
	r, messenger, _ := newTestRouter(t, false)

	for _, upd := range []*models.Update{nil, {ID: 5}, textUpdate(42, 42, "")} {
		if err := r.HandleUpdate(context.Background(), upd); err != nil {
			t.Fatalf("HandleUpdate(%+v) = %v, want nil", upd, err)
		}
	}
	if len(messenger.messages) != 0 || len(messenger.buttons) != 0 {
		t.Fatalf("silent updates produced output: %v / %v", messenger.messages, messenger.buttons)
	}
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		text string
		cmd  string
		ok   bool
	}{
		{"/start", "start", true},
		{"/start@StoreBot", "start", true},
		{"/status extra args", "status", true},
		{"plain text", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		cmd, ok := parseCommand(tc.text)
		if cmd != tc.cmd || ok != tc.ok {
			t.Errorf("parseCommand(%q) = (%q, %v), want (%q, %v)", tc.text, cmd, ok, tc.cmd, tc.ok)
		}
	}
}
