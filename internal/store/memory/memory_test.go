package memory

import (
	"context"
	"testing"
	"time"

	"github.com/chimshield/backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageIDsAreStrictlyIncreasing(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	first, err := s.AppendMessage(ctx, store.Message{UserID: 1, Content: "a", To: "admin"})
	require.NoError(t, err)
	second, err := s.AppendMessage(ctx, store.Message{UserID: 1, Content: "b", To: "admin"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
}

func TestMessagesForUserMatchesAuthorOrDestination(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.AppendMessage(ctx, store.Message{UserID: 1, Content: "from user 1", To: "admin"})
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, store.Message{UserID: 2, Content: "to user 1", To: "1"})
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, store.Message{UserID: 3, Content: "unrelated", To: "admin"})
	require.NoError(t, err)

	messages, err := s.MessagesForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "from user 1", messages[0].Content)
	assert.Equal(t, "to user 1", messages[1].Content)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.CreateUser(ctx, store.User{Name: "A", Email: "a@example.com"})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, store.User{Name: "B", Email: "a@example.com"})
	assert.Error(t, err)
}

func TestBookingsInPeriodFiltersByCalendarComponents(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	dates := []time.Time{
		time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.September, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.September, 10, 0, 0, 0, 0, time.UTC),
	}
	for _, date := range dates {
		_, err := s.CreateBooking(ctx, store.Booking{UserID: 1, Date: date, Amount: 100})
		require.NoError(t, err)
	}

	bookings, err := s.BookingsInPeriod(ctx, time.September, 2026)
	require.NoError(t, err)
	assert.Len(t, bookings, 2)

	count, err := s.CountBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestMarkBookingPaid(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	booking, err := s.CreateBooking(ctx, store.Booking{UserID: 1, Date: time.Now(), PaymentStatus: "pending"})
	require.NoError(t, err)

	paidAt := time.Now()
	require.NoError(t, s.MarkBookingPaid(ctx, booking.ID, paidAt))

	updated, err := s.BookingByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", updated.PaymentStatus)
	require.NotNil(t, updated.PaymentDate)
	assert.Equal(t, paidAt, *updated.PaymentDate)

	assert.Error(t, s.MarkBookingPaid(ctx, 999, paidAt))
}

func TestIncrementTeamBookings(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	team, err := s.CreateTeam(ctx, store.Team{Name: "Alpha", Price: 1000})
	require.NoError(t, err)

	require.NoError(t, s.IncrementTeamBookings(ctx, team.ID))
	require.NoError(t, s.IncrementTeamBookings(ctx, team.ID))

	updated, err := s.TeamByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.BookingsCount)
}

func TestSetReportStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	report, err := s.CreateReport(ctx, store.Report{BookingID: 1, UserID: 1, Status: "pending"})
	require.NoError(t, err)

	updated, err := s.SetReportStatus(ctx, report.ID, "resolved")
	require.NoError(t, err)
	assert.Equal(t, "resolved", updated.Status)

	_, err = s.SetReportStatus(ctx, 999, "resolved")
	assert.Error(t, err)
}
