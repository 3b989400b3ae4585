// README: Notification service with a passive expiry sweep.
package notification

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"dormdrop/internal/config"
	"dormdrop/internal/types"
)

var ErrNotFound = errors.New("notification not found")

type Storage interface {
	Insert(ctx context.Context, n *Notification) error
	InsertBatch(ctx context.Context, ns []*Notification) error
	ListByRecipient(ctx context.Context, recipient types.ID, now time.Time, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, id, recipient types.ID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, recipient types.ID, at time.Time) error
	UnreadCount(ctx context.Context, recipient types.ID, now time.Time) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	store Storage
	cfg   config.NotificationConfig
}

func NewService(store Storage, cfg config.NotificationConfig) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = time.Hour
	}
	return &Service{store: store, cfg: cfg}
}

// Notify records a notification for one recipient.
func (s *Service) Notify(ctx context.Context, recipient types.ID, orderID *types.ID, t Type, title, body string) error {
	return s.store.Insert(ctx, s.build(recipient, orderID, t, title, body))
}

// NotifyMany fans one notification out to a set of recipients.
func (s *Service) NotifyMany(ctx context.Context, recipients []types.ID, orderID *types.ID, t Type, title, body string) error {
	if len(recipients) == 0 {
		return nil
	}
	ns := make([]*Notification, len(recipients))
	for i, r := range recipients {
		ns[i] = s.build(r, orderID, t, title, body)
	}
	return s.store.InsertBatch(ctx, ns)
}

func (s *Service) List(ctx context.Context, actor types.Actor, limit int) ([]*Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListByRecipient(ctx, actor.ID, time.Now().UTC(), limit)
}

func (s *Service) MarkRead(ctx context.Context, actor types.Actor, id types.ID) error {
	ok, err := s.store.MarkRead(ctx, id, actor.ID, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, actor types.Actor) error {
	return s.store.MarkAllRead(ctx, actor.ID, time.Now().UTC())
}

func (s *Service) UnreadCount(ctx context.Context, actor types.Actor) (int64, error) {
	return s.store.UnreadCount(ctx, actor.ID, time.Now().UTC())
}

// RunCleanup deletes expired notifications on a ticker until ctx ends.
func (s *Service) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.store.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				log.Printf("notification cleanup: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("notification cleanup: removed %d expired", removed)
			}
		}
	}
}

func (s *Service) build(recipient types.ID, orderID *types.ID, t Type, title, body string) *Notification {
	now := time.Now().UTC()
	return &Notification{
		ID:        types.ID(uuid.NewString()),
		Recipient: recipient,
		OrderID:   orderID,
		Type:      t,
		Title:     title,
		Body:      body,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}
}
