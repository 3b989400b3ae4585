// README: User profile and delivery agent aggregate counters.
package user

import (
	"time"

	"dormdrop/internal/types"
)

// DeliveryStats are simple counters mutated only by the side-effect
// dispatcher on delivered transitions and customer ratings. Everything
// richer (leaderboard, earnings charts) is recomputed from orders on read.
type DeliveryStats struct {
	TotalDeliveries     int64
	CompletedDeliveries int64
	TotalEarnings       int64
	AverageRating       float64
	RatingCount         int64
	IsAvailable         bool
}

type User struct {
	ID        types.ID
	Name      string
	Role      types.Role
	Room      string
	Hostel    string
	IsActive  bool
	Stats     DeliveryStats
	CreatedAt time.Time
}
