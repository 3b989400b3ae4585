// README: Stats aggregator. Recomputes leaderboard and earnings from the
// order records on every call; the per-agent dataset is small enough that a
// materialized view is not worth the drift risk.
package stats

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"dormdrop/internal/modules/user"
	"dormdrop/internal/types"
)

var (
	ErrNotFound     = errors.New("delivery agent not found")
	ErrUnauthorized = errors.New("not authorized to view these earnings")
)

type Storage interface {
	DeliveredOrders(ctx context.Context, agentID types.ID, since *time.Time) ([]DeliveredOrder, error)
	CountAssignments(ctx context.Context, agentID types.ID, since *time.Time) (int64, error)
	OrderCounts(ctx context.Context, since *time.Time) (OrderCounts, error)
	Revenue(ctx context.Context, since *time.Time) (int64, float64, error)
	AvgDeliveryMinutes(ctx context.Context, since *time.Time) (float64, error)
	TypeDistribution(ctx context.Context, since *time.Time) (map[string]int64, error)
}

type Agents interface {
	Get(ctx context.Context, id types.ID) (*user.User, error)
	ActiveAgents(ctx context.Context) ([]*user.User, error)
	CountByRole(ctx context.Context, role types.Role) (int64, error)
}

type Service struct {
	store  Storage
	agents Agents
}

func NewService(store Storage, agents Agents) *Service {
	return &Service{store: store, agents: agents}
}

// Leaderboard ranks active agents by delivered count, tie-broken by
// earnings, over the given timeframe. Per-agent scans run concurrently.
func (s *Service) Leaderboard(ctx context.Context, timeframe string, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	since := timeframeStart(timeframe, time.Now().UTC())

	agents, err := s.agents.ActiveAgents(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(agents))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, a := range agents {
		g.Go(func() error {
			entry, err := s.agentEntry(gctx, a, since)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	SortLeaderboard(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Earnings reports one agent's delivered totals plus per-day buckets for
// charting. Only the agent themselves or an admin may ask.
func (s *Service) Earnings(ctx context.Context, actor types.Actor, agentID types.ID, timeframe string) (*EarningsReport, error) {
	if actor.ID != agentID && !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	agent, err := s.agents.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.Role != types.RoleDelivery {
		return nil, ErrNotFound
	}

	since := timeframeStart(timeframe, time.Now().UTC())
	delivered, err := s.store.DeliveredOrders(ctx, agentID, since)
	if err != nil {
		return nil, err
	}

	report := &EarningsReport{AgentID: agentID, Name: agent.Name}
	buckets := make(map[string]*DayBucket)
	for _, o := range delivered {
		report.TotalEarnings += o.Fee
		report.TotalOrders++
		day := o.DeliveredAt.UTC().Format("2006-01-02")
		b, ok := buckets[day]
		if !ok {
			b = &DayBucket{Date: day}
			buckets[day] = b
		}
		b.Earnings += o.Fee
		b.Orders++
	}
	if report.TotalOrders > 0 {
		report.AveragePerOrder = math.Round(float64(report.TotalEarnings)/float64(report.TotalOrders)*100) / 100
	}
	for _, b := range buckets {
		report.ChartData = append(report.ChartData, *b)
	}
	sort.Slice(report.ChartData, func(i, j int) bool {
		return report.ChartData[i].Date < report.ChartData[j].Date
	})
	if len(delivered) > 10 {
		delivered = delivered[:10]
	}
	report.RecentDeliveries = delivered
	return report, nil
}

// SystemStats is the admin overview; fans the independent aggregates out
// concurrently.
func (s *Service) SystemStats(ctx context.Context, timeframe string) (*SystemReport, error) {
	since := timeframeStart(timeframe, time.Now().UTC())
	report := &SystemReport{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		report.Users.Customers, err = s.agents.CountByRole(gctx, types.RoleCustomer)
		return err
	})
	g.Go(func() error {
		var err error
		report.Users.Delivery, err = s.agents.CountByRole(gctx, types.RoleDelivery)
		return err
	})
	g.Go(func() error {
		var err error
		report.Users.Admins, err = s.agents.CountByRole(gctx, types.RoleAdmin)
		return err
	})
	g.Go(func() error {
		counts, err := s.store.OrderCounts(gctx, since)
		if err != nil {
			return err
		}
		report.Orders.Total = counts.Total
		report.Orders.Pending = counts.Pending
		report.Orders.Active = counts.Active
		report.Orders.Completed = counts.Completed
		report.Orders.Cancelled = counts.Cancelled
		if counts.Total > 0 {
			report.Orders.CompletionRate = math.Round(float64(counts.Completed)/float64(counts.Total)*1000) / 10
		}
		return nil
	})
	g.Go(func() error {
		total, avg, err := s.store.Revenue(gctx, since)
		if err != nil {
			return err
		}
		report.Revenue.Total = total
		report.Revenue.Average = math.Round(avg*100) / 100
		return nil
	})
	g.Go(func() error {
		avg, err := s.store.AvgDeliveryMinutes(gctx, since)
		if err != nil {
			return err
		}
		report.AvgDeliveryMinutes = int(math.Round(avg))
		return nil
	})
	g.Go(func() error {
		var err error
		report.OrderTypes, err = s.store.TypeDistribution(gctx, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	report.Users.Total = report.Users.Customers + report.Users.Delivery + report.Users.Admins
	return report, nil
}

func (s *Service) agentEntry(ctx context.Context, a *user.User, since *time.Time) (LeaderboardEntry, error) {
	entry := LeaderboardEntry{
		AgentID: a.ID,
		Name:    a.Name,
		Room:    a.Room,
		Hostel:  a.Hostel,
	}
	delivered, err := s.store.DeliveredOrders(ctx, a.ID, since)
	if err != nil {
		return entry, err
	}
	assignments, err := s.store.CountAssignments(ctx, a.ID, since)
	if err != nil {
		return entry, err
	}

	entry.TotalDeliveries = len(delivered)
	var minutes float64
	var timed int
	var ratingSum int
	for _, o := range delivered {
		entry.TotalEarnings += o.Fee
		if o.AcceptedAt != nil {
			minutes += o.DeliveredAt.Sub(*o.AcceptedAt).Minutes()
			timed++
		}
		if o.Rating != nil {
			ratingSum += *o.Rating
			entry.RatingCount++
		}
	}
	if timed > 0 {
		entry.AvgDeliveryMinutes = int(math.Round(minutes / float64(timed)))
	}
	if entry.RatingCount > 0 {
		entry.AverageRating = math.Round(float64(ratingSum)/float64(entry.RatingCount)*10) / 10
	}
	if assignments > 0 {
		entry.SuccessRate = math.Round(float64(entry.TotalDeliveries)/float64(assignments)*1000) / 10
	} else {
		entry.SuccessRate = 100
	}
	return entry, nil
}

// SortLeaderboard orders entries by delivered count descending, earnings
// descending on ties.
func SortLeaderboard(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalDeliveries != entries[j].TotalDeliveries {
			return entries[i].TotalDeliveries > entries[j].TotalDeliveries
		}
		return entries[i].TotalEarnings > entries[j].TotalEarnings
	})
}

// timeframeStart maps a timeframe name to its window start; nil means no
// lower bound.
func timeframeStart(timeframe string, now time.Time) *time.Time {
	var start time.Time
	switch timeframe {
	case TimeframeToday:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case TimeframeWeek:
		start = now.Add(-7 * 24 * time.Hour)
	case TimeframeMonth:
		start = now.Add(-30 * 24 * time.Hour)
	case TimeframeQuarter:
		start = now.Add(-90 * 24 * time.Hour)
	default:
		return nil
	}
	return &start
}
