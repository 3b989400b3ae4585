// README: Notification store backed by PostgreSQL.
package notification

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dormdrop/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, n *Notification) error {
	var orderID *string
	if n.OrderID != nil {
		v := string(*n.OrderID)
		orderID = &v
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, recipient_id, order_id, notif_type, title, body, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(n.ID), string(n.Recipient), orderID, string(n.Type),
		n.Title, n.Body, n.CreatedAt, n.ExpiresAt,
	)
	return err
}

func (s *Store) InsertBatch(ctx context.Context, ns []*Notification) error {
	batch := &pgx.Batch{}
	for _, n := range ns {
		var orderID *string
		if n.OrderID != nil {
			v := string(*n.OrderID)
			orderID = &v
		}
		batch.Queue(`
			INSERT INTO notifications (id, recipient_id, order_id, notif_type, title, body, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			string(n.ID), string(n.Recipient), orderID, string(n.Type),
			n.Title, n.Body, n.CreatedAt, n.ExpiresAt,
		)
	}
	return s.db.SendBatch(ctx, batch).Close()
}

// ListByRecipient returns unexpired notifications, newest first.
func (s *Store) ListByRecipient(ctx context.Context, recipient types.ID, now time.Time, limit int) ([]*Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, recipient_id, order_id, notif_type, title, body, is_read, read_at, created_at, expires_at
		FROM notifications
		WHERE recipient_id = $1 AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT $3`,
		string(recipient), now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) MarkRead(ctx context.Context, id, recipient types.ID, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = $3
		WHERE id = $1 AND recipient_id = $2 AND NOT is_read`,
		string(id), string(recipient), at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkAllRead(ctx context.Context, recipient types.ID, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = $2
		WHERE recipient_id = $1 AND NOT is_read`,
		string(recipient), at)
	return err
}

func (s *Store) UnreadCount(ctx context.Context, recipient types.ID, now time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = $1 AND NOT is_read AND expires_at > $2`,
		string(recipient), now,
	).Scan(&n)
	return n, err
}

// DeleteExpired removes notifications past their expiry, returning how many
// rows went away.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	var orderID sql.NullString
	var readAt sql.NullTime
	err := row.Scan(&n.ID, &n.Recipient, &orderID, &n.Type, &n.Title, &n.Body,
		&n.IsRead, &readAt, &n.CreatedAt, &n.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if orderID.Valid {
		id := types.ID(orderID.String)
		n.OrderID = &id
	}
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}
	return &n, nil
}
