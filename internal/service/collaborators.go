package service

import (
	"context"
	"sync"
)

// InventoryService is the warehouse-side collaborator. The core only needs
// reserve/release and a stock check; fulfilment detail stays behind it.
type InventoryService interface {
	CheckStock(ctx context.Context, itemID string, quantity int) (bool, error)
	Reserve(ctx context.Context, orderID, itemID string, quantity int) error
	Release(ctx context.Context, orderID, itemID string) error
	LockRecord(ctx context.Context, itemID, reason string) error
}

// PaymentGateway abstracts the external processor for holds and releases.
type PaymentGateway interface {
	ReleaseHold(ctx context.Context, transactionID string) error
}

// LoyaltyService credits goodwill points from compensation plans.
type LoyaltyService interface {
	CreditPoints(ctx context.Context, userID string, points int, reason string) error
}

// StaticInventoryService is an in-memory inventory keyed by item id. It
// backs local runs and tests; production wires the warehouse client here.
type StaticInventoryService struct {
	mu       sync.Mutex
	stock    map[string]int
	reserved map[string]map[string]int
	locked   map[string]string
}

func NewStaticInventoryService(stock map[string]int) *StaticInventoryService {
	levels := make(map[string]int, len(stock))
	for item, qty := range stock {
		levels[item] = qty
	}
	return &StaticInventoryService{
		stock:    levels,
		reserved: make(map[string]map[string]int),
		locked:   make(map[string]string),
	}
}

func (s *StaticInventoryService) CheckStock(_ context.Context, itemID string, quantity int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, isLocked := s.locked[itemID]; isLocked {
		return false, nil
	}
	return s.stock[itemID] >= quantity, nil
}

func (s *StaticInventoryService) Reserve(_ context.Context, orderID, itemID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stock[itemID] < quantity {
		return ErrTemporaryFailure
	}
	s.stock[itemID] -= quantity
	if s.reserved[orderID] == nil {
		s.reserved[orderID] = make(map[string]int)
	}
	s.reserved[orderID][itemID] += quantity
	return nil
}

func (s *StaticInventoryService) Release(_ context.Context, orderID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	qty := s.reserved[orderID][itemID]
	if qty > 0 {
		s.stock[itemID] += qty
		delete(s.reserved[orderID], itemID)
	}
	return nil
}

func (s *StaticInventoryService) LockRecord(_ context.Context, itemID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked[itemID] = reason
	return nil
}

// IsLocked reports whether an item record is locked and why.
func (s *StaticInventoryService) IsLocked(itemID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reason, ok := s.locked[itemID]
	return reason, ok
}

// NoopPaymentGateway satisfies PaymentGateway where no processor is wired.
type NoopPaymentGateway struct{}

func NewNoopPaymentGateway() *NoopPaymentGateway { return &NoopPaymentGateway{} }

func (NoopPaymentGateway) ReleaseHold(context.Context, string) error { return nil }

// InMemoryLoyaltyService accumulates credited points per user.
type InMemoryLoyaltyService struct {
	mu     sync.Mutex
	points map[string]int
}

func NewInMemoryLoyaltyService() *InMemoryLoyaltyService {
	return &InMemoryLoyaltyService{points: make(map[string]int)}
}

func (s *InMemoryLoyaltyService) CreditPoints(_ context.Context, userID string, points int, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[userID] += points
	return nil
}

func (s *InMemoryLoyaltyService) Balance(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points[userID]
}
