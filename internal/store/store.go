// Package store defines the record model of the marketplace and the
// interfaces its storage engines implement. Identifiers are allocated by
// the engines as one more than the current maximum, so they are strictly
// increasing for the lifetime of the store.
package store

import (
	"context"
	"time"
)

type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Phone        string     `json:"phone"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin"`
}

type Team struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	Location      string    `json:"location"`
	Price         int64     `json:"price"`
	Rating        float64   `json:"rating"`
	Leader        string    `json:"leader"`
	Members       []string  `json:"members"`
	Description   string    `json:"description"`
	BookingsCount int       `json:"bookingsCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Booking struct {
	ID            int64      `json:"id"`
	TeamID        int64      `json:"teamId"`
	UserID        int64      `json:"userId"`
	EventType     string     `json:"eventType"`
	Date          time.Time  `json:"date"`
	Guests        int        `json:"guests"`
	Location      string     `json:"location"`
	Amount        int64      `json:"amount"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"paymentStatus"`
	PaymentDate   *time.Time `json:"paymentDate,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type Payment struct {
	ID            int64     `json:"id"`
	BookingID     int64     `json:"bookingId"`
	Amount        int64     `json:"amount"`
	Method        string    `json:"method"`
	TransactionID string    `json:"transactionId"`
	Status        string    `json:"status"`
	Date          time.Time `json:"date"`
}

type Report struct {
	ID           int64     `json:"id"`
	BookingID    int64     `json:"bookingId"`
	UserID       int64     `json:"userId"`
	IncidentType string    `json:"incidentType"`
	Details      string    `json:"details"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
}

// Message is the persisted chat record. It is created once by the relay and
// never mutated afterwards. Status is stamped "delivered" at creation time
// regardless of the live push outcome; delivery is best-effort and never
// reconciled.
type Message struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Content   string    `json:"content"`
	To        string    `json:"to"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

type UserStore interface {
	CreateUser(ctx context.Context, user User) (User, error)
	UserByID(ctx context.Context, id int64) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

type TeamStore interface {
	Teams(ctx context.Context) ([]Team, error)
	TeamByID(ctx context.Context, id int64) (Team, error)
	CreateTeam(ctx context.Context, team Team) (Team, error)
	UpdateTeam(ctx context.Context, team Team) (Team, error)
	IncrementTeamBookings(ctx context.Context, id int64) error
}

type BookingStore interface {
	BookingsForUser(ctx context.Context, userID int64) ([]Booking, error)
	BookingByID(ctx context.Context, id int64) (Booking, error)
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	MarkBookingPaid(ctx context.Context, id int64, at time.Time) error
	CountBookings(ctx context.Context) (int, error)
	BookingsInPeriod(ctx context.Context, month time.Month, year int) ([]Booking, error)
}

type PaymentStore interface {
	CreatePayment(ctx context.Context, payment Payment) (Payment, error)
}

type ReportStore interface {
	Reports(ctx context.Context) ([]Report, error)
	CreateReport(ctx context.Context, report Report) (Report, error)
	SetReportStatus(ctx context.Context, id int64, status string) (Report, error)
}

// MessageStore is the append-only message log. MessagesForUser returns every
// record the user authored or was addressed to; the destination comparison is
// against the decimal form of the id because "admin" is also a valid address.
type MessageStore interface {
	AppendMessage(ctx context.Context, message Message) (Message, error)
	MessagesForUser(ctx context.Context, userID int64) ([]Message, error)
}
