package domain

import (
	"strconv"
	"strings"
	"time"
)

// UnknownUserID is stored when an order arrives without a resolvable
// Telegram identity. Orders are never dropped for missing identity.
const UnknownUserID = "unknown"

type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	IsPremium    bool   `json:"is_premium,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// Key returns the storage identity of the user ("unknown" for the
// sentinel user).
func (u *TelegramUser) Key() string {
	if u == nil || u.ID == 0 {
		return UnknownUserID
	}
	return strconv.FormatInt(u.ID, 10)
}

// DisplayName builds "first last" with fallback to "Unknown".
func (u *TelegramUser) DisplayName() string {
	if u == nil {
		return "Unknown"
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return "Unknown"
	}
	return name
}

// UnknownUser is the sentinel identity substituted when no user can be
// resolved from any inbound source.
func UnknownUser() *TelegramUser {
	return &TelegramUser{FirstName: "Unknown"}
}

type ServiceItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type OrderStatus string

const (
	StatusNew        OrderStatus = "new"
	StatusProcessing OrderStatus = "processing"
	StatusDone       OrderStatus = "done"
	StatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusNew, StatusProcessing, StatusDone, StatusCancelled:
		return true
	}
	return false
}

type Order struct {
	ID        int64         `json:"id"`
	User      *TelegramUser `json:"user,omitempty"`
	Items     []ServiceItem `json:"services"`
	Total     int64         `json:"total_price"`
	Platform  string        `json:"platform"`
	Status    OrderStatus   `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

type AdminRecord struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Username     string    `json:"username,omitempty"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	AddedBy      string    `json:"added_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ChatID parses the stored user id into a Telegram chat id. The
// sentinel "unknown" id yields (0, false).
func (a *AdminRecord) ChatID() (int64, bool) {
	id, err := strconv.ParseInt(a.UserID, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
