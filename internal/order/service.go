package order

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Placer converts a user's cart into an order inside a single transaction:
// validate, reserve stock, create the order, clear the cart.
type Placer interface {
	PlaceOrder(ctx context.Context, userID string, addr ShippingAddress) (*Order, error)
}

type Repository interface {
	GetByID(ctx context.Context, orderID string) (*Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListByStatus(ctx context.Context, status Status) ([]Order, error)
	Cancel(ctx context.Context, orderID string) (*Order, error)
	MarkProcessing(ctx context.Context, orderID string) (*Order, error)
	MarkShipped(ctx context.Context, orderID, trackingNumber string) (*Order, error)
	MarkDelivered(ctx context.Context, orderID string) (*Order, error)
}

type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, o *Order) error
	PublishOrderCancelled(ctx context.Context, o *Order) error
}

type StatusEntry struct {
	UserID string `json:"userId"`
	Status Status `json:"status"`
}

type StatusCache interface {
	SetStatus(ctx context.Context, orderID string, entry StatusEntry) error
	GetStatus(ctx context.Context, orderID string) (StatusEntry, bool, error)
}

// maxPlaceAttempts bounds retries on an order-number collision.
const maxPlaceAttempts = 3

// Service drives the order lifecycle. Creation delegates the transactional
// work to the Placer; lifecycle transitions go through the Repository, which
// enforces the state machine and reconciles the stock ledger on cancel.
type Service struct {
	checkout Placer
	orders   Repository
	events   EventPublisher
	cache    StatusCache
	logger   *log.Logger
}

func NewService(checkout Placer, orders Repository, events EventPublisher, cache StatusCache, logger *log.Logger) *Service {
	return &Service{checkout: checkout, orders: orders, events: events, cache: cache, logger: logger}
}

func (s *Service) CreateFromCart(ctx context.Context, userID string, addr ShippingAddress) (*Order, error) {
	if !addr.Complete() {
		return nil, ErrInvalidAddress
	}

	var o *Order
	var err error
	for attempt := 1; attempt <= maxPlaceAttempts; attempt++ {
		o, err = s.checkout.PlaceOrder(ctx, userID, addr)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrOrderNumberCollision) {
			return nil, err
		}
		s.logger.Printf("order number collision user=%s attempt=%d, retrying", userID, attempt)
	}
	if err != nil {
		return nil, fmt.Errorf("place order after %d attempts: %w", maxPlaceAttempts, err)
	}

	s.logger.Printf("order created user=%s order=%s number=%s total=%.2f", userID, o.ID, o.OrderNumber, o.TotalAmount)
	s.publishCreated(ctx, o)
	s.cacheStatus(ctx, o)
	return o, nil
}

// Get returns the order if the caller owns it or is an admin.
func (s *Service) Get(ctx context.Context, userID, orderID string, admin bool) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !admin && o.UserID != userID {
		return nil, ErrNotOwner
	}
	return o, nil
}

// GetByNumber resolves an order by its human-facing number, with the same
// ownership rule as Get.
func (s *Service) GetByNumber(ctx context.Context, userID, orderNumber string, admin bool) (*Order, error) {
	o, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if !admin && o.UserID != userID {
		return nil, ErrNotOwner
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *Service) ListByStatus(ctx context.Context, status Status) ([]Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown order status %q", status)
	}
	return s.orders.ListByStatus(ctx, status)
}

// Status serves the order's lifecycle state, preferring the cache.
func (s *Service) Status(ctx context.Context, userID, orderID string, admin bool) (Status, error) {
	if s.cache != nil {
		entry, ok, err := s.cache.GetStatus(ctx, orderID)
		if err != nil {
			s.logger.Printf("status cache read order=%s: %v", orderID, err)
		} else if ok {
			if !admin && entry.UserID != userID {
				return "", ErrNotOwner
			}
			return entry.Status, nil
		}
	}

	o, err := s.Get(ctx, userID, orderID, admin)
	if err != nil {
		return "", err
	}
	s.cacheStatus(ctx, o)
	return o.Status, nil
}

func (s *Service) Cancel(ctx context.Context, userID, orderID string, admin bool) (*Order, error) {
	existing, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !admin && existing.UserID != userID {
		return nil, ErrNotOwner
	}

	o, err := s.orders.Cancel(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.logger.Printf("order cancelled order=%s number=%s", o.ID, o.OrderNumber)
	s.publishCancelled(ctx, o)
	s.cacheStatus(ctx, o)
	return o, nil
}

func (s *Service) MarkProcessing(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.orders.MarkProcessing(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.cacheStatus(ctx, o)
	return o, nil
}

func (s *Service) MarkShipped(ctx context.Context, orderID, trackingNumber string) (*Order, error) {
	if trackingNumber == "" {
		return nil, ErrTrackingRequired
	}
	o, err := s.orders.MarkShipped(ctx, orderID, trackingNumber)
	if err != nil {
		return nil, err
	}
	s.cacheStatus(ctx, o)
	return o, nil
}

func (s *Service) MarkDelivered(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.orders.MarkDelivered(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.cacheStatus(ctx, o)
	return o, nil
}

// Publishing and caching happen after the owning transaction committed; a
// failure here is logged, never propagated, so it cannot roll back an order.

func (s *Service) publishCreated(ctx context.Context, o *Order) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderCreated(ctx, o); err != nil {
		s.logger.Printf("publish OrderCreated order=%s: %v", o.ID, err)
	}
}

func (s *Service) publishCancelled(ctx context.Context, o *Order) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderCancelled(ctx, o); err != nil {
		s.logger.Printf("publish OrderCancelled order=%s: %v", o.ID, err)
	}
}

func (s *Service) cacheStatus(ctx context.Context, o *Order) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetStatus(ctx, o.ID, StatusEntry{UserID: o.UserID, Status: o.Status}); err != nil {
		s.logger.Printf("status cache write order=%s: %v", o.ID, err)
	}
}
