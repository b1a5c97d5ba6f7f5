// Package session holds per-visitor state: the selected role, the cart and
// one-shot flash messages. Sessions live in a Store keyed by a random id
// carried in a cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safar/vegbox/internal/shop"
)

var ErrNotFound = errors.New("session not found")

type Role string

const (
	RoleCustomer Role = "Customer"
	RoleFarmer   Role = "Farmer"
	RoleVisitor  Role = "Visitor"
)

// Roles is the order the role switch offers them in.
var Roles = []Role{RoleFarmer, RoleCustomer, RoleVisitor}

func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// CanSell reports whether the role may list products.
func (r Role) CanSell() bool { return r == RoleFarmer }

// CanBuy reports whether the role may fill a cart and check out.
func (r Role) CanBuy() bool { return r == RoleCustomer || r == RoleVisitor }

// Flash levels. FlashChat carries a chat relay reply.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashError   = "error"
	FlashChat    = "chat"
)

type Flash struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

type Session struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Cart        shop.Cart `json:"cart"`
	Flashes     []Flash   `json:"flashes,omitempty"`
	LastOrderID int64     `json:"last_order_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// New returns a fresh Customer session with an empty cart.
func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		Role:      RoleCustomer,
		Cart:      shop.NewCart(),
		UpdatedAt: time.Now().UTC(),
	}
}

func (s *Session) AddFlash(level, text string) {
	s.Flashes = append(s.Flashes, Flash{Level: level, Text: text})
}

// PopFlashes returns pending flashes and forgets them.
func (s *Session) PopFlashes() []Flash {
	flashes := s.Flashes
	s.Flashes = nil
	return flashes
}

func (s *Session) clone() *Session {
	c := *s
	c.Cart = make(shop.Cart, len(s.Cart))
	for id, qty := range s.Cart {
		c.Cart[id] = qty
	}
	c.Flashes = append([]Flash(nil), s.Flashes...)
	return &c
}

// normalize repairs fields a decoded or zero session may lack.
func (s *Session) normalize() {
	if s.Cart == nil {
		s.Cart = shop.NewCart()
	}
	if s.Role == "" {
		s.Role = RoleCustomer
	}
}

// Store persists sessions between requests. Implementations are safe for
// concurrent use; concurrent saves of one session resolve as last write wins.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
