// README: Order store backed by PostgreSQL. State changes go through
// conditional updates keyed on the current status.
package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
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

const orderColumns = `
	id, title, order_type, pickup_from, room, description, priority,
	special_instructions, customer_id, assigned_to, status, delivery_fee,
	payment_status, delivery_otp, otp_generated_at,
	pickup_lat, pickup_lng, delivery_lat, delivery_lng,
	customer_rating, customer_rating_comment, customer_rated_at,
	delivery_rating, delivery_rating_comment, delivery_rated_at,
	cancel_reason, created_at, accepted_at, picked_up_at, in_transit_at,
	delivered_at, cancelled_at`

func (s *Store) Create(ctx context.Context, o *Order) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO orders (
			id, title, order_type, pickup_from, room, description, priority,
			special_instructions, customer_id, status, delivery_fee,
			payment_status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		string(o.ID), o.Title, string(o.Type), o.From, o.Room, o.Description,
		o.Priority, o.SpecialInstructions, string(o.CustomerID),
		string(o.Status), o.DeliveryFee, string(o.PaymentStatus), o.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, string(id))
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return o, err
}

func (s *Store) List(ctx context.Context, f ListFilter) ([]*Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE 1=1`
	args := []any{}
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}

	if f.CustomerID != nil {
		query += ` AND customer_id = ` + arg(string(*f.CustomerID))
	}
	if f.AssigneeOrPending != nil {
		query += ` AND (status = 'pending' OR assigned_to = ` + arg(string(*f.AssigneeOrPending)) + `)`
	}
	if f.Status != "" {
		query += ` AND status = ` + arg(string(f.Status))
	}
	if f.Type != "" {
		query += ` AND order_type = ` + arg(string(f.Type))
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ` + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += ` OFFSET ` + arg(f.Offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// AcceptPending is the claim-race arbiter's write: a single compare-and-swap
// keyed on the order still being pending. Exactly one racing agent observes
// RowsAffected()==1; everyone else loses without touching the row.
func (s *Store) AcceptPending(ctx context.Context, id, agentID types.ID, otp string, now time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = 'accepted',
		    assigned_to = $2,
		    accepted_at = $3,
		    delivery_otp = $4,
		    otp_generated_at = $3
		WHERE id = $1 AND status = 'pending'`,
		string(id), string(agentID), now, otp,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateStatus commits a forward or cancel transition conditionally on the
// status the caller observed. All per-transition field changes ride in the
// same statement so a transition is never partially applied.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, cancelReason *string, now time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    assigned_to = CASE WHEN $1 = 'cancelled' THEN NULL ELSE assigned_to END,
		    delivery_otp = CASE WHEN $1 IN ('delivered', 'cancelled') THEN NULL ELSE delivery_otp END,
		    otp_generated_at = CASE WHEN $1 IN ('delivered', 'cancelled') THEN NULL ELSE otp_generated_at END,
		    payment_status = CASE WHEN $1 = 'delivered' THEN 'paid' ELSE payment_status END,
		    cancel_reason = COALESCE($2, cancel_reason),
		    picked_up_at = CASE WHEN $1 = 'picked-up' THEN $3 ELSE picked_up_at END,
		    in_transit_at = CASE WHEN $1 = 'in-transit' THEN $3 ELSE in_transit_at END,
		    delivered_at = CASE WHEN $1 = 'delivered' THEN $3 ELSE delivered_at END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN $3 ELSE cancelled_at END
		WHERE id = $4 AND status = $5`,
		string(to), cancelReason, now, string(id), string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetRating writes one rating slot at most once; the IS NULL guard makes the
// one-shot rule a property of the write, not of a prior read.
func (s *Store) SetRating(ctx context.Context, id types.ID, side RatingSide, r Rating) (bool, error) {
	var query string
	if side == RatingByCustomer {
		query = `
			UPDATE orders
			SET customer_rating = $2, customer_rating_comment = $3, customer_rated_at = $4
			WHERE id = $1 AND status = 'delivered' AND customer_rating IS NULL`
	} else {
		query = `
			UPDATE orders
			SET delivery_rating = $2, delivery_rating_comment = $3, delivery_rated_at = $4
			WHERE id = $1 AND status = 'delivered' AND delivery_rating IS NULL`
	}
	tag, err := s.db.Exec(ctx, query, string(id), r.Rating, r.Comment, r.RatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) SetLocation(ctx context.Context, id types.ID, pickup bool, p types.Point) error {
	var err error
	if pickup {
		_, err = s.db.Exec(ctx,
			`UPDATE orders SET pickup_lat = $2, pickup_lng = $3 WHERE id = $1`,
			string(id), p.Lat, p.Lng)
	} else {
		_, err = s.db.Exec(ctx,
			`UPDATE orders SET delivery_lat = $2, delivery_lng = $3 WHERE id = $1`,
			string(id), p.Lat, p.Lng)
	}
	return err
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var assignedTo, otp, cancelReason sql.NullString
	var otpAt, custRatedAt, delivRatedAt sql.NullTime
	var acceptedAt, pickedUpAt, inTransitAt, deliveredAt, cancelledAt sql.NullTime
	var pickupLat, pickupLng, deliveryLat, deliveryLng sql.NullFloat64
	var custRating, delivRating sql.NullInt64
	var custComment, delivComment sql.NullString

	err := row.Scan(
		&o.ID, &o.Title, &o.Type, &o.From, &o.Room, &o.Description, &o.Priority,
		&o.SpecialInstructions, &o.CustomerID, &assignedTo, &o.Status, &o.DeliveryFee,
		&o.PaymentStatus, &otp, &otpAt,
		&pickupLat, &pickupLng, &deliveryLat, &deliveryLng,
		&custRating, &custComment, &custRatedAt,
		&delivRating, &delivComment, &delivRatedAt,
		&cancelReason, &o.CreatedAt, &acceptedAt, &pickedUpAt, &inTransitAt,
		&deliveredAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		id := types.ID(assignedTo.String)
		o.AssignedTo = &id
	}
	if otp.Valid {
		o.DeliveryOTP = &otp.String
	}
	o.OTPGeneratedAt = toTimePtr(otpAt)
	if pickupLat.Valid && pickupLng.Valid {
		o.PickupLocation = &types.Point{Lat: pickupLat.Float64, Lng: pickupLng.Float64}
	}
	if deliveryLat.Valid && deliveryLng.Valid {
		o.DeliveryLocation = &types.Point{Lat: deliveryLat.Float64, Lng: deliveryLng.Float64}
	}
	if custRating.Valid {
		o.CustomerRating = &Rating{Rating: int(custRating.Int64), Comment: custComment.String, RatedAt: custRatedAt.Time}
	}
	if delivRating.Valid {
		o.DeliveryRating = &Rating{Rating: int(delivRating.Int64), Comment: delivComment.String, RatedAt: delivRatedAt.Time}
	}
	if cancelReason.Valid {
		o.CancelReason = &cancelReason.String
	}
	o.AcceptedAt = toTimePtr(acceptedAt)
	o.PickedUpAt = toTimePtr(pickedUpAt)
	o.InTransitAt = toTimePtr(inTransitAt)
	o.DeliveredAt = toTimePtr(deliveredAt)
	o.CancelledAt = toTimePtr(cancelledAt)
	return &o, nil
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
