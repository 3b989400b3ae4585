// README: Read models for leaderboard, earnings, and system statistics.
package stats

import (
	"time"

	"dormdrop/internal/types"
)

// Timeframe windows accepted by the aggregator.
const (
	TimeframeAll     = "all"
	TimeframeToday   = "today"
	TimeframeWeek    = "week"
	TimeframeMonth   = "month"
	TimeframeQuarter = "quarter"
)

// DeliveredOrder is the slice of an order the aggregator scans.
type DeliveredOrder struct {
	ID          types.ID
	Title       string
	From        string
	Room        string
	Fee         int64
	AcceptedAt  *time.Time
	DeliveredAt time.Time
	Rating      *int
}

type LeaderboardEntry struct {
	Rank               int      `json:"rank"`
	AgentID            types.ID `json:"agent_id"`
	Name               string   `json:"name"`
	Room               string   `json:"room"`
	Hostel             string   `json:"hostel"`
	TotalDeliveries    int      `json:"total_deliveries"`
	TotalEarnings      int64    `json:"total_earnings"`
	AverageRating      float64  `json:"average_rating"`
	RatingCount        int      `json:"rating_count"`
	SuccessRate        float64  `json:"success_rate"`
	AvgDeliveryMinutes int      `json:"avg_delivery_minutes"`
}

type DayBucket struct {
	Date     string `json:"date"`
	Earnings int64  `json:"earnings"`
	Orders   int    `json:"orders"`
}

type EarningsReport struct {
	AgentID          types.ID         `json:"agent_id"`
	Name             string           `json:"name"`
	TotalEarnings    int64            `json:"total_earnings"`
	TotalOrders      int              `json:"total_orders"`
	AveragePerOrder  float64          `json:"average_per_order"`
	ChartData        []DayBucket      `json:"chart_data"`
	RecentDeliveries []DeliveredOrder `json:"recent_deliveries"`
}

type OrderCounts struct {
	Total     int64
	Pending   int64
	Active    int64
	Completed int64
	Cancelled int64
}

type SystemReport struct {
	Users struct {
		Total     int64 `json:"total"`
		Customers int64 `json:"customers"`
		Delivery  int64 `json:"delivery"`
		Admins    int64 `json:"admins"`
	} `json:"users"`
	Orders struct {
		Total          int64   `json:"total"`
		Pending        int64   `json:"pending"`
		Active         int64   `json:"active"`
		Completed      int64   `json:"completed"`
		Cancelled      int64   `json:"cancelled"`
		CompletionRate float64 `json:"completion_rate"`
	} `json:"orders"`
	Revenue struct {
		Total   int64   `json:"total"`
		Average float64 `json:"average"`
	} `json:"revenue"`
	AvgDeliveryMinutes int              `json:"avg_delivery_minutes"`
	OrderTypes         map[string]int64 `json:"order_types"`
}
