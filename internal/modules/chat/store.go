// README: Message store backed by PostgreSQL; a bigserial sequence keeps
// per-order creation order stable for viewers.
package chat

import (
	"context"
	"database/sql"
	"errors"
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

func (s *Store) Insert(ctx context.Context, m *Message) error {
	var sysType *string
	if m.SystemType != nil {
		v := string(*m.SystemType)
		sysType = &v
	}
	return s.db.QueryRow(ctx, `
		INSERT INTO messages (id, order_id, sender_id, content, msg_type, system_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq`,
		string(m.ID), string(m.OrderID), string(m.SenderID), m.Content,
		string(m.Type), sysType, m.CreatedAt,
	).Scan(&m.Seq)
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Message, error) {
	row := s.db.QueryRow(ctx, `
		SELECT seq, id, order_id, sender_id, content, msg_type, system_type,
		       is_read, read_at, created_at
		FROM messages WHERE id = $1`, string(id))
	m, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

func (s *Store) ListByOrder(ctx context.Context, orderID types.ID, limit, offset int) ([]*Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT seq, id, order_id, sender_id, content, msg_type, system_type,
		       is_read, read_at, created_at
		FROM messages
		WHERE order_id = $1
		ORDER BY seq
		LIMIT $2 OFFSET $3`,
		string(orderID), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *Store) MarkRead(ctx context.Context, id types.ID, at time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE messages SET is_read = TRUE, read_at = $2 WHERE id = $1 AND NOT is_read`,
		string(id), at)
	return err
}

// MarkAllRead marks every counterpart message in an order as read.
func (s *Store) MarkAllRead(ctx context.Context, orderID, readerID types.ID, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE messages SET is_read = TRUE, read_at = $3
		WHERE order_id = $1 AND sender_id <> $2 AND NOT is_read`,
		string(orderID), string(readerID), at)
	return err
}

// UnreadCountForUser counts unread counterpart messages across all orders
// the user participates in.
func (s *Store) UnreadCountForUser(ctx context.Context, userID types.ID, role types.Role) (int64, error) {
	var where string
	switch role {
	case types.RoleCustomer:
		where = `o.customer_id = $1`
	case types.RoleDelivery:
		where = `o.assigned_to = $1`
	default:
		where = `TRUE AND $1 = $1`
	}
	var n int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM messages m
		JOIN orders o ON o.id = m.order_id
		WHERE `+where+` AND m.sender_id <> $1 AND NOT m.is_read`,
		string(userID),
	).Scan(&n)
	return n, err
}

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	var sysType sql.NullString
	var readAt sql.NullTime
	err := row.Scan(&m.Seq, &m.ID, &m.OrderID, &m.SenderID, &m.Content,
		&m.Type, &sysType, &m.IsRead, &readAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if sysType.Valid {
		t := SystemType(sysType.String)
		m.SystemType = &t
	}
	if readAt.Valid {
		t := readAt.Time
		m.ReadAt = &t
	}
	return &m, nil
}
