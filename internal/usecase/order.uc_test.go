package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SasLord/tma/internal/auth"
	"github.com/SasLord/tma/internal/domain"
	"github.com/SasLord/tma/internal/notify"
	"github.com/SasLord/tma/internal/repository"
	"github.com/SasLord/tma/internal/xerrors"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  map[int64][]string
	fail  map[int64]error
	calls int
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(map[int64][]string), fail: make(map[int64]error)}
}

func (s *recordingSender) SendMessage(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.fail[chatID]; err != nil {
		return err
	}
	s.sent[chatID] = append(s.sent[chatID], text)
	return nil
}

func (s *recordingSender) messagesTo(chatID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[chatID]
}

type recordingAcker struct {
	queryIDs []string
	err      error
}

func (a *recordingAcker) AnswerWebAppQuery(_ context.Context, queryID, _, _ string) error {
	a.queryIDs = append(a.queryIDs, queryID)
	return a.err
}

type submitFixture struct {
	store  *repository.MemoryStore
	sender *recordingSender
	acker  *recordingAcker
	uc     *OrderUsecase
}

func newSubmitFixture(t *testing.T, requireInitData bool) *submitFixture {
	t.Helper()

	store := repository.NewMemoryStore("1000")
	sender := newRecordingSender()
	acker := &recordingAcker{}
	dispatcher := notify.NewDispatcher(sender, zap.NewNop(), time.Second)
	verifier := auth.NewVerifier("123456:TEST-TOKEN", true)

	return &submitFixture{
		store:  store,
		sender: sender,
		acker:  acker,
		uc: NewOrderUsecase(NewNormalizer(), verifier, store, store,
			dispatcher, acker, zap.NewNop(), requireInitData),
	}
}

func TestSubmitHappyPath(t *testing.T) {
	f := newSubmitFixture(t, false)
	ctx := context.Background()

	if err := f.store.EnsureSuperAdmin(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.AddAdmin(ctx, "2000", "Второй", "second", "1000"); err != nil {
		t.Fatal(err)
	}

	res, err := f.uc.Submit(ctx, InboundFromHTTP(RawInbound{
		Services: cleaningServices(),
		User:     &domain.TelegramUser{ID: 42, FirstName: "Оля", Username: "olya"},
		Platform: "web",
	}))
	if err != nil {
		t.Fatalf("Submit() = %v, want nil", err)
	}
	if res.OrderID != 1 {
		t.Fatalf("OrderID = %d, want 1", res.OrderID)
	}
	if res.Notified.Sent != 2 || res.Notified.Total != 2 {
		t.Fatalf("Notified = %+v, want {2 2}", res.Notified)
	}
	if res.Fallback || res.NotifyFailed {
		t.Fatalf("unexpected flags in %+v", res)
	}

	if u := f.store.User(42); u == nil || u.Username != "olya" {
		t.Fatalf("user not upserted: %+v", u)
	}
	order, err := f.store.GetOrderByID(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if order.Total != 4500 || order.Status != domain.StatusNew {
		t.Fatalf("stored order = %+v", order)
	}
}

func TestSubmitPartialNotifyFailureKeepsOrder(t *testing.T) {
	f := newSubmitFixture(t, false)
	ctx := context.Background()

	if err := f.store.EnsureSuperAdmin(ctx); err != nil {
		t.Fatal(err)
	}
	f.sender.fail[1000] = fmt.Errorf("chat not found")

	res, err := f.uc.Submit(ctx, Inbound{Services: cleaningServices()})
	if err != nil {
		t.Fatalf("Submit() = %v, want nil", err)
	}
	if res.Notified.Sent != 0 || res.Notified.Total != 1 {
		t.Fatalf("Notified = %+v, want {0 1}", res.Notified)
	}

	// The order survives the delivery failure.
	if n, _ := f.store.CountOrders(ctx); n != 1 {
		t.Fatalf("CountOrders = %d, want 1", n)
	}
}

func TestSubmitEmptyRegistryFallsBackToUser(t *testing.T) {
	f := newSubmitFixture(t, false)
	ctx := context.Background()

	res, err := f.uc.Submit(ctx, Inbound{
		Services: cleaningServices(),
		User:     &domain.TelegramUser{ID: 42, FirstName: "Оля"},
	})
	if err != nil {
		t.Fatalf("Submit() = %v, want nil", err)
	}
	if !res.Fallback {
		t.Fatal("Fallback not set with an empty admin registry")
	}
	if got := f.sender.messagesTo(42); len(got) != 1 {
		t.Fatalf("user got %d confirmations, want exactly 1", len(got))
	}
	if f.sender.calls != 1 {
		t.Fatalf("sender called %d times, want 1", f.sender.calls)
	}
}

func TestSubmitRequireInitDataPolicy(t *testing.T) {
	f := newSubmitFixture(t, true)
	ctx := context.Background()

	_, err := f.uc.Submit(ctx, Inbound{Services: cleaningServices()})
	if !errors.Is(err, xerrors.ErrMissingHash) {
		t.Fatalf("Submit() without launch data = %v, want ErrMissingHash", err)
	}

	_, err = f.uc.Submit(ctx, Inbound{
		Services: cleaningServices(),
		InitData: "auth_date=1700000000&hash=ffffffffffffffff",
	})
	if !errors.Is(err, xerrors.ErrInvalidSignature) {
		t.Fatalf("Submit() with forged launch data = %v, want ErrInvalidSignature", err)
	}
	if n, _ := f.store.CountOrders(ctx); n != 0 {
		t.Fatalf("CountOrders = %d after rejected submissions, want 0", n)
	}

	// Test sentinel is honored because the fixture verifier allows it.
	res, err := f.uc.Submit(ctx, Inbound{
		Services: cleaningServices(),
		InitData: "auth_date=1700000000&hash=mock_hash_for_testing",
	})
	if err != nil {
		t.Fatalf("Submit() with sentinel hash = %v, want nil", err)
	}
	if res.OrderID != 1 {
		t.Fatalf("OrderID = %d, want 1", res.OrderID)
	}
}

func TestSubmitRelayedOrderExemptFromInitDataPolicy(t *testing.T) {
	f := newSubmitFixture(t, true)
	ctx := context.Background()

	// Orders relayed through a Telegram update carry no launch data by
	// construction; the policy must not reject them.
	upd := &models.Update{
		ID: 20,
		Message: &models.Message{
			ID:   1,
			Chat: models.Chat{ID: 42},
			From: &models.User{ID: 42, FirstName: "Оля"},
			WebAppData: &models.WebAppData{
				Data: `{"services":[{"id":"cleaning","name":"Уборка","price":3000}],"total":3000}`,
			},
		},
	}
	in, err := InboundFromUpdate(upd)
	if err != nil {
		t.Fatal(err)
	}

	res, err := f.uc.Submit(ctx, in)
	if err != nil {
		t.Fatalf("Submit(relayed) = %v, want nil under mandatory launch data", err)
	}
	if res.OrderID != 1 {
		t.Fatalf("OrderID = %d, want 1", res.OrderID)
	}
	if n, _ := f.store.CountOrders(ctx); n != 1 {
		t.Fatalf("CountOrders = %d, want 1", n)
	}
}

func TestSubmitAcksWebAppQuery(t *testing.T) {
	f := newSubmitFixture(t, false)
	ctx := context.Background()

	_, err := f.uc.Submit(ctx, Inbound{
		Services: cleaningServices(),
		User:     &domain.TelegramUser{ID: 42},
		QueryID:  "query-123",
	})
	if err != nil {
		t.Fatalf("Submit() = %v, want nil", err)
	}
	if len(f.acker.queryIDs) != 1 || f.acker.queryIDs[0] != "query-123" {
		t.Fatalf("acked queries = %v, want [query-123]", f.acker.queryIDs)
	}
}

func TestSubmitAckFailureIsBestEffort(t *testing.T) {
	f := newSubmitFixture(t, false)
	f.acker.err = fmt.Errorf("query expired")
	ctx := context.Background()

	res, err := f.uc.Submit(ctx, Inbound{
		Services: cleaningServices(),
		User:     &domain.TelegramUser{ID: 42},
		QueryID:  "query-123",
	})
	if err != nil {
		t.Fatalf("Submit() = %v, want nil despite ack failure", err)
	}
	if res.OrderID != 1 {
		t.Fatalf("OrderID = %d, want 1", res.OrderID)
	}
}
