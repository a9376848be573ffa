package relay

import (
	"context"
	"time"

	"github.com/chimshield/backend/internal/store"
	"github.com/samber/lo"
)

type Snapshot struct {
	ActiveUsers int
	Revenue     int64
	Bookings    int
}

// Snapshotter computes the aggregate pushed to a newly attached admin
// dashboard. Nothing is cached: every call recomputes from the registry and
// booking store, so each admin sees the state at the moment of its own
// attach.
type Snapshotter struct {
	registry *Registry
	bookings store.BookingStore
	now      func() time.Time
}

func NewSnapshotter(registry *Registry, bookings store.BookingStore) *Snapshotter {
	return &Snapshotter{
		registry: registry,
		bookings: bookings,
		now:      time.Now,
	}
}

// Take sums booking amounts over the current calendar month and year. The
// comparison is on calendar components, not elapsed duration: the 1st and the
// 31st of this month both count, the same month last year does not.
func (s *Snapshotter) Take(ctx context.Context) (Snapshot, error) {
	now := s.now()

	bookings, err := s.bookings.BookingsInPeriod(ctx, now.Month(), now.Year())
	if err != nil {
		return Snapshot{}, err
	}

	revenue := lo.SumBy(bookings, func(b store.Booking) int64 {
		return b.Amount
	})

	total, err := s.bookings.CountBookings(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		ActiveUsers: s.registry.UserCount(),
		Revenue:     revenue,
		Bookings:    total,
	}, nil
}
