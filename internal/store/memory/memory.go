// Package memory holds the process-lifetime record store. Nothing survives a
// restart; a single-instance deployment is assumed.
package memory

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/chimshield/backend/internal/ierr"
	"github.com/chimshield/backend/internal/store"
	"github.com/samber/lo"
)

type Store struct {
	mu sync.RWMutex

	users    []store.User
	teams    []store.Team
	bookings []store.Booking
	payments []store.Payment
	reports  []store.Report
	messages []store.Message
}

func NewStore() *Store {
	return &Store{}
}

// nextID allocates one more than the current maximum, or 1 when the
// collection is empty. Identifiers are never reused.
func nextID[T any](items []T, id func(T) int64) int64 {
	max := int64(0)
	for _, item := range items {
		if id(item) > max {
			max = id(item)
		}
	}

	return max + 1
}

func (s *Store) CreateUser(ctx context.Context, user store.User) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists := lo.ContainsBy(s.users, func(u store.User) bool {
		return u.Email == user.Email
	})
	if exists {
		return store.User{}, ierr.New(ierr.ErrorCodeAlreadyExists, errors.New("email already exists"))
	}

	user.ID = nextID(s.users, func(u store.User) int64 { return u.ID })
	s.users = append(s.users, user)

	return user, nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := lo.Find(s.users, func(u store.User) bool { return u.ID == id })
	if !ok {
		return store.User{}, ierr.New(ierr.ErrorCodeNotFound, errors.New("user not found"))
	}

	return user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := lo.Find(s.users, func(u store.User) bool { return u.Email == email })
	if !ok {
		return store.User{}, ierr.New(ierr.ErrorCodeNotFound, errors.New("user not found"))
	}

	return user, nil
}

func (s *Store) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if s.users[i].ID == id {
			s.users[i].LastLogin = &at
			return nil
		}
	}

	return ierr.New(ierr.ErrorCodeNotFound, errors.New("user not found"))
}

func (s *Store) Teams(ctx context.Context) ([]store.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	teams := make([]store.Team, len(s.teams))
	copy(teams, s.teams)

	return teams, nil
}

func (s *Store) TeamByID(ctx context.Context, id int64) (store.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	team, ok := lo.Find(s.teams, func(t store.Team) bool { return t.ID == id })
	if !ok {
		return store.Team{}, ierr.New(ierr.ErrorCodeNotFound, errors.New("team not found"))
	}

	return team, nil
}

func (s *Store) CreateTeam(ctx context.Context, team store.Team) (store.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	team.ID = nextID(s.teams, func(t store.Team) int64 { return t.ID })
	s.teams = append(s.teams, team)

	return team, nil
}

func (s *Store) UpdateTeam(ctx context.Context, team store.Team) (store.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.teams {
		if s.teams[i].ID == team.ID {
			s.teams[i] = team
			return team, nil
		}
	}

	return store.Team{}, ierr.New(ierr.ErrorCodeNotFound, errors.New("team not found"))
}

func (s *Store) IncrementTeamBookings(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.teams {
		if s.teams[i].ID == id {
			s.teams[i].BookingsCount++
			return nil
		}
	}

	return ierr.New(ierr.ErrorCodeNotFound, errors.New("team not found"))
}

func (s *Store) BookingsForUser(ctx context.Context, userID int64) ([]store.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookings := lo.Filter(s.bookings, func(b store.Booking, _ int) bool {
		return b.UserID == userID
	})

	return bookings, nil
}

func (s *Store) BookingByID(ctx context.Context, id int64) (store.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := lo.Find(s.bookings, func(b store.Booking) bool { return b.ID == id })
	if !ok {
		return store.Booking{}, ierr.New(ierr.ErrorCodeNotFound, errors.New("booking not found"))
	}

	return booking, nil
}

func (s *Store) CreateBooking(ctx context.Context, booking store.Booking) (store.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking.ID = nextID(s.bookings, func(b store.Booking) int64 { return b.ID })
	s.bookings = append(s.bookings, booking)

	return booking, nil
}

func (s *Store) MarkBookingPaid(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.bookings {
		if s.bookings[i].ID == id {
			s.bookings[i].PaymentStatus = "paid"
			s.bookings[i].PaymentDate = &at
			return nil
		}
	}

	return ierr.New(ierr.ErrorCodeNotFound, errors.New("booking not found"))
}

func (s *Store) CountBookings(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.bookings), nil
}

func (s *Store) BookingsInPeriod(ctx context.Context, month time.Month, year int) ([]store.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookings := lo.Filter(s.bookings, func(b store.Booking, _ int) bool {
		return b.Date.Month() == month && b.Date.Year() == year
	})

	return bookings, nil
}

func (s *Store) CreatePayment(ctx context.Context, payment store.Payment) (store.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payment.ID = nextID(s.payments, func(p store.Payment) int64 { return p.ID })
	s.payments = append(s.payments, payment)

	return payment, nil
}

func (s *Store) Reports(ctx context.Context) ([]store.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := make([]store.Report, len(s.reports))
	copy(reports, s.reports)

	return reports, nil
}

func (s *Store) CreateReport(ctx context.Context, report store.Report) (store.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report.ID = nextID(s.reports, func(r store.Report) int64 { return r.ID })
	s.reports = append(s.reports, report)

	return report, nil
}

func (s *Store) SetReportStatus(ctx context.Context, id int64, status string) (store.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.reports {
		if s.reports[i].ID == id {
			s.reports[i].Status = status
			return s.reports[i], nil
		}
	}

	return store.Report{}, ierr.New(ierr.ErrorCodeNotFound, errors.New("report not found"))
}

func (s *Store) AppendMessage(ctx context.Context, message store.Message) (store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	message.ID = nextID(s.messages, func(m store.Message) int64 { return m.ID })
	s.messages = append(s.messages, message)

	return message, nil
}

func (s *Store) MessagesForUser(ctx context.Context, userID int64) ([]store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	address := strconv.FormatInt(userID, 10)
	messages := lo.Filter(s.messages, func(m store.Message, _ int) bool {
		return m.UserID == userID || m.To == address
	})

	return messages, nil
}
