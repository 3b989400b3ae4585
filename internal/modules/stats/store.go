// README: Read-only aggregation queries over the orders table.
package stats

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"dormdrop/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) DeliveredOrders(ctx context.Context, agentID types.ID, since *time.Time) ([]DeliveredOrder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, title, pickup_from, room, delivery_fee, accepted_at, delivered_at, customer_rating
		FROM orders
		WHERE assigned_to = $1 AND status = 'delivered'
		  AND ($2::timestamptz IS NULL OR delivered_at >= $2)
		ORDER BY delivered_at DESC`,
		string(agentID), since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeliveredOrder
	for rows.Next() {
		var o DeliveredOrder
		var acceptedAt sql.NullTime
		var rating sql.NullInt64
		if err := rows.Scan(&o.ID, &o.Title, &o.From, &o.Room, &o.Fee, &acceptedAt, &o.DeliveredAt, &rating); err != nil {
			return nil, err
		}
		if acceptedAt.Valid {
			t := acceptedAt.Time
			o.AcceptedAt = &t
		}
		if rating.Valid {
			r := int(rating.Int64)
			o.Rating = &r
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountAssignments counts every order the agent ever held in the window,
// delivered or not; the success-rate denominator.
func (s *Store) CountAssignments(ctx context.Context, agentID types.ID, since *time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE assigned_to = $1
		  AND ($2::timestamptz IS NULL OR created_at >= $2)`,
		string(agentID), since,
	).Scan(&n)
	return n, err
}

func (s *Store) OrderCounts(ctx context.Context, since *time.Time) (OrderCounts, error) {
	var c OrderCounts
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status IN ('accepted', 'picked-up', 'in-transit')),
		       COUNT(*) FILTER (WHERE status = 'delivered'),
		       COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM orders
		WHERE $1::timestamptz IS NULL OR created_at >= $1`,
		since,
	).Scan(&c.Total, &c.Pending, &c.Active, &c.Completed, &c.Cancelled)
	return c, err
}

func (s *Store) Revenue(ctx context.Context, since *time.Time) (int64, float64, error) {
	var total sql.NullInt64
	var avg sql.NullFloat64
	err := s.db.QueryRow(ctx, `
		SELECT SUM(delivery_fee), AVG(delivery_fee)
		FROM orders
		WHERE status = 'delivered'
		  AND ($1::timestamptz IS NULL OR delivered_at >= $1)`,
		since,
	).Scan(&total, &avg)
	return total.Int64, avg.Float64, err
}

func (s *Store) AvgDeliveryMinutes(ctx context.Context, since *time.Time) (float64, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRow(ctx, `
		SELECT AVG(EXTRACT(EPOCH FROM (delivered_at - accepted_at)) / 60)
		FROM orders
		WHERE status = 'delivered' AND accepted_at IS NOT NULL
		  AND ($1::timestamptz IS NULL OR delivered_at >= $1)`,
		since,
	).Scan(&avg)
	return avg.Float64, err
}

func (s *Store) TypeDistribution(ctx context.Context, since *time.Time) (map[string]int64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT order_type, COUNT(*) FROM orders
		WHERE $1::timestamptz IS NULL OR created_at >= $1
		GROUP BY order_type`,
		since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := make(map[string]int64)
	for rows.Next() {
		var t string
		var n int64
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		dist[t] = n
	}
	return dist, rows.Err()
}
