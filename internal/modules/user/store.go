// README: User store backed by PostgreSQL. Counter updates are single
// statements so concurrent deliveries never lose increments.
package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dormdrop/internal/types"
)

var ErrNotFound = errors.New("user not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const userColumns = `
	id, name, role, room, hostel, is_active, is_available,
	total_deliveries, completed_deliveries, total_earnings,
	average_rating, rating_count, created_at`

func (s *Store) Get(ctx context.Context, id types.ID) (*User, error) {
	row := s.db.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE id = $1`, string(id))
	return scanUser(row)
}

// IsAvailable satisfies order.AgentDirectory.
func (s *Store) IsAvailable(ctx context.Context, id types.ID) (bool, error) {
	var available bool
	err := s.db.QueryRow(ctx,
		`SELECT is_available AND is_active FROM users WHERE id = $1 AND role = 'delivery'`,
		string(id),
	).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return available, nil
}

func (s *Store) SetAvailability(ctx context.Context, id types.ID, available bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET is_available = $2 WHERE id = $1 AND role = 'delivery'`,
		string(id), available,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AvailableAgents lists active delivery agents currently accepting orders.
func (s *Store) AvailableAgents(ctx context.Context) ([]*User, error) {
	rows, err := s.db.Query(ctx,
		`SELECT`+userColumns+` FROM users
		 WHERE role = 'delivery' AND is_active AND is_available`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

// ActiveAgents lists all active delivery agents, available or not.
func (s *Store) ActiveAgents(ctx context.Context) ([]*User, error) {
	rows, err := s.db.Query(ctx,
		`SELECT`+userColumns+` FROM users WHERE role = 'delivery' AND is_active`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

// RecordDelivery folds one completed delivery into the agent's counters.
func (s *Store) RecordDelivery(ctx context.Context, id types.ID, earnings int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET total_deliveries = total_deliveries + 1,
		    completed_deliveries = completed_deliveries + 1,
		    total_earnings = total_earnings + $2
		WHERE id = $1`,
		string(id), earnings,
	)
	return err
}

// FoldRating updates the running average in one statement:
// newAvg = (oldAvg*oldCount + rating) / (oldCount+1).
func (s *Store) FoldRating(ctx context.Context, id types.ID, rating int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET average_rating = (average_rating * rating_count + $2) / (rating_count + 1),
		    rating_count = rating_count + 1
		WHERE id = $1`,
		string(id), rating,
	)
	return err
}

func (s *Store) CountByRole(ctx context.Context, role types.Role) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE role = $1 AND is_active`, string(role),
	).Scan(&n)
	return n, err
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Name, &u.Role, &u.Room, &u.Hostel, &u.IsActive,
		&u.Stats.IsAvailable, &u.Stats.TotalDeliveries, &u.Stats.CompletedDeliveries,
		&u.Stats.TotalEarnings, &u.Stats.AverageRating, &u.Stats.RatingCount,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func collectUsers(rows pgx.Rows) ([]*User, error) {
	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
