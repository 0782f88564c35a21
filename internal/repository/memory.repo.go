package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SasLord/tma/internal/domain"
	"github.com/SasLord/tma/internal/xerrors"
)

// MemoryStore is an in-process implementation of OrderRepository and
// AdminRepository. One of the observed handler variants kept orders in
// a process-local array; that behavior survives here strictly as a
// test double behind the same interfaces, never as the production
// store.
type MemoryStore struct {
	mu sync.Mutex

	bootstrapID string
	nextOrderID int64
	nextAdminID int64

	users  map[int64]*domain.TelegramUser
	orders []*domain.Order
	admins map[string]*domain.AdminRecord

	// ItemErr, when set, is consulted before each simulated item
	// insert so tests can force a mid-transaction failure.
	ItemErr func(item domain.ServiceItem) error
}

func NewMemoryStore(bootstrapID string) *MemoryStore {
	return &MemoryStore{
		bootstrapID: bootstrapID,
		users:       make(map[int64]*domain.TelegramUser),
		admins:      make(map[string]*domain.AdminRecord),
	}
}

var _ OrderRepository = (*MemoryStore)(nil)
var _ AdminRepository = (*MemoryStore)(nil)

func (s *MemoryStore) UpsertUser(_ context.Context, user *domain.TelegramUser) error {
	if user == nil || user.ID == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *user
	s.users[user.ID] = &clone
	return nil
}

// User returns the stored identity, for assertions.
func (s *MemoryStore) User(id int64) *domain.TelegramUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *MemoryStore) InsertOrder(_ context.Context, order *domain.Order) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Stage items first; nothing is visible unless every item lands.
	staged := make([]domain.ServiceItem, 0, len(order.Items))
	for _, item := range order.Items {
		if s.ItemErr != nil {
			if err := s.ItemErr(item); err != nil {
				return 0, fmt.Errorf("%w: insert order item %q: %v", xerrors.ErrPersistence, item.Name, err)
			}
		}
		staged = append(staged, item)
	}

	s.nextOrderID++
	stored := *order
	stored.ID = s.nextOrderID
	stored.Items = staged
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.orders = append(s.orders, &stored)

	order.ID = stored.ID
	order.CreatedAt = stored.CreatedAt
	return stored.ID, nil
}

func (s *MemoryStore) GetOrderByID(_ context.Context, id int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, order := range s.orders {
		if order.ID == id {
			clone := *order
			return &clone, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (s *MemoryStore) ListOrders(_ context.Context, limit int) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Order, len(s.orders))
	for i, order := range s.orders {
		clone := *order
		out[i] = &clone
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CountOrders(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.orders)), nil
}

func (s *MemoryStore) UpdateOrderStatus(_ context.Context, id int64, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, order := range s.orders {
		if order.ID == id {
			order.Status = status
			return nil
		}
	}
	return xerrors.ErrNotFound
}

func (s *MemoryStore) ClearAllOrders(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.orders))
	s.orders = nil
	return n, nil
}

func (s *MemoryStore) EnsureSuperAdmin(_ context.Context) error {
	if s.bootstrapID == "" {
		return fmt.Errorf("%w: bootstrap super-admin id not configured", xerrors.ErrPersistence)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.admins[s.bootstrapID]; ok {
		rec.IsSuperAdmin = true
		return nil
	}
	s.nextAdminID++
	s.admins[s.bootstrapID] = &domain.AdminRecord{
		ID:           s.nextAdminID,
		UserID:       s.bootstrapID,
		Name:         "Super Admin",
		Username:     "super_admin",
		IsSuperAdmin: true,
		CreatedAt:    time.Now(),
	}
	return nil
}

func (s *MemoryStore) IsAdmin(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.admins[userID]
	return ok, nil
}

func (s *MemoryStore) IsSuperAdmin(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.admins[userID]
	return ok && rec.IsSuperAdmin, nil
}

func (s *MemoryStore) AddAdmin(_ context.Context, userID, name, username, addedBy string) (*domain.AdminRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[userID]; ok {
		return nil, nil
	}
	s.nextAdminID++
	rec := &domain.AdminRecord{
		ID:        s.nextAdminID,
		UserID:    userID,
		Name:      name,
		Username:  username,
		AddedBy:   addedBy,
		CreatedAt: time.Now(),
	}
	s.admins[userID] = rec
	clone := *rec
	return &clone, nil
}

func (s *MemoryStore) RemoveAdmin(_ context.Context, userID, _ string) error {
	if userID == s.bootstrapID {
		return xerrors.ErrProtectedRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[userID]; !ok {
		return xerrors.ErrNotFound
	}
	delete(s.admins, userID)
	return nil
}

func (s *MemoryStore) UpdateAdmin(_ context.Context, userID, name, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.admins[userID]
	if !ok {
		return xerrors.ErrNotFound
	}
	rec.Name = name
	rec.Username = username
	return nil
}

func (s *MemoryStore) ListAdmins(_ context.Context) ([]*domain.AdminRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.AdminRecord, 0, len(s.admins))
	for _, rec := range s.admins {
		clone := *rec
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
