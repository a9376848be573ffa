package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chimshield/backend/internal/auth"
	"github.com/chimshield/backend/internal/store"
	"github.com/chimshield/backend/internal/store/memory"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type restFixture struct {
	server     *httptest.Server
	store      *memory.Store
	adminToken string
	team       store.Team
}

func newRESTFixture(t *testing.T) *restFixture {
	t.Helper()

	ctx := context.Background()
	logger, _ := zap.NewDevelopment()
	recordStore := memory.NewStore()

	hash, err := auth.HashPassword("admin123")
	require.NoError(t, err)
	admin, err := recordStore.CreateUser(ctx, store.User{
		Name:         "Admin",
		Email:        "admin@chimshield.com",
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)

	team, err := recordStore.CreateTeam(ctx, store.Team{
		Name:        "VIPs Services",
		Type:        "VIP Protection",
		Location:    "Lilongwe",
		Price:       180000,
		Leader:      "John Doe",
		Description: "Professional VIP protection team",
	})
	require.NoError(t, err)

	authenticator := auth.NewAuthenticator("test-secret", recordStore)
	adminToken, err := authenticator.Issue(admin)
	require.NoError(t, err)

	restServer := NewRESTServer(
		logger,
		authenticator,
		recordStore,
		recordStore,
		recordStore,
		recordStore,
		recordStore,
		recordStore,
	)

	router := mux.NewRouter()
	restServer.Register(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &restFixture{
		server:     server,
		store:      recordStore,
		adminToken: adminToken,
		team:       team,
	}
}

func (f *restFixture) do(t *testing.T, method string, path string, token string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(encoded)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	return resp
}

func decodeInto[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))

	return v
}

type tokenPayload struct {
	Token string `json:"token"`
	User  struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
}

func TestAuthFlow(t *testing.T) {
	fixture := newRESTFixture(t)

	resp := fixture.do(t, "POST", "/api/auth/signup", "", map[string]any{
		"name":     "New User",
		"email":    "new@example.com",
		"password": "secret-password",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	signup := decodeInto[tokenPayload](t, resp)
	assert.NotEmpty(t, signup.Token)
	assert.Equal(t, "user", signup.User.Role)

	t.Run("duplicate email", func(t *testing.T) {
		resp := fixture.do(t, "POST", "/api/auth/signup", "", map[string]any{
			"name":     "New User",
			"email":    "new@example.com",
			"password": "secret-password",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("login", func(t *testing.T) {
		resp := fixture.do(t, "POST", "/api/auth/login", "", map[string]any{
			"email":    "new@example.com",
			"password": "secret-password",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		login := decodeInto[tokenPayload](t, resp)
		assert.NotEmpty(t, login.Token)
	})

	t.Run("login wrong password", func(t *testing.T) {
		resp := fixture.do(t, "POST", "/api/auth/login", "", map[string]any{
			"email":    "new@example.com",
			"password": "not-the-password",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("verify", func(t *testing.T) {
		resp := fixture.do(t, "GET", "/api/auth/verify", signup.Token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		verified := decodeInto[map[string]any](t, resp)
		assert.Equal(t, "new@example.com", verified["email"])
	})

	t.Run("verify without token", func(t *testing.T) {
		resp := fixture.do(t, "GET", "/api/auth/verify", "", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestTeamEndpoints(t *testing.T) {
	fixture := newRESTFixture(t)

	t.Run("list is public", func(t *testing.T) {
		resp := fixture.do(t, "GET", "/api/teams", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		teams := decodeInto[[]store.Team](t, resp)
		assert.Len(t, teams, 1)
	})

	t.Run("create requires admin", func(t *testing.T) {
		resp := fixture.do(t, "POST", "/api/teams", "", map[string]any{})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("create", func(t *testing.T) {
		resp := fixture.do(t, "POST", "/api/teams", fixture.adminToken, map[string]any{
			"name":        "Night Watch",
			"type":        "Event Security",
			"location":    "Mzuzu",
			"price":       90000,
			"leader":      "Grace Phiri",
			"description": "Overnight event coverage",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		team := decodeInto[store.Team](t, resp)
		assert.Equal(t, float64(3), team.Rating) // default rating
		assert.NotZero(t, team.ID)
	})

	t.Run("update", func(t *testing.T) {
		path := fmt.Sprintf("/api/teams/%d", fixture.team.ID)
		resp := fixture.do(t, "PUT", path, fixture.adminToken, map[string]any{
			"name":        "VIPs Services",
			"type":        "VIP Protection",
			"location":    "Lilongwe, Blantyre",
			"price":       200000,
			"leader":      "John Doe",
			"description": "Professional VIP protection team",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		team := decodeInto[store.Team](t, resp)
		assert.Equal(t, int64(200000), team.Price)
	})

	t.Run("get missing", func(t *testing.T) {
		resp := fixture.do(t, "GET", "/api/teams/999", "", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestBookingAndPaymentFlow(t *testing.T) {
	fixture := newRESTFixture(t)

	resp := fixture.do(t, "POST", "/api/auth/signup", "", map[string]any{
		"name":     "Booker",
		"email":    "booker@example.com",
		"password": "secret-password",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	account := decodeInto[tokenPayload](t, resp)

	bookingBody := map[string]any{
		"teamId":    fixture.team.ID,
		"userId":    account.User.ID,
		"eventType": "Wedding",
		"date":      time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"guests":    120,
		"location":  "Blantyre",
	}

	t.Run("user mismatch", func(t *testing.T) {
		body := map[string]any{}
		for k, v := range bookingBody {
			body[k] = v
		}
		body["userId"] = account.User.ID + 10

		resp := fixture.do(t, "POST", "/api/bookings", account.Token, body)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	resp = fixture.do(t, "POST", "/api/bookings", account.Token, bookingBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	booking := decodeInto[store.Booking](t, resp)
	assert.Equal(t, fixture.team.Price, booking.Amount)
	assert.Equal(t, "confirmed", booking.Status)
	assert.Equal(t, "pending", booking.PaymentStatus)

	t.Run("team booking count bumped", func(t *testing.T) {
		updated, err := fixture.store.TeamByID(context.Background(), fixture.team.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, updated.BookingsCount)
	})

	t.Run("underpayment rejected", func(t *testing.T) {
		resp := fixture.do(t, "POST", "/api/payments", account.Token, map[string]any{
			"bookingId":     booking.ID,
			"amount":        booking.Amount - 1,
			"method":        "mobile-money",
			"transactionId": "TX-1",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("payment marks booking paid", func(t *testing.T) {
		resp := fixture.do(t, "POST", "/api/payments", account.Token, map[string]any{
			"bookingId":     booking.ID,
			"amount":        booking.Amount,
			"method":        "mobile-money",
			"transactionId": "TX-2",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		payment := decodeInto[store.Payment](t, resp)
		assert.Equal(t, "completed", payment.Status)

		updated, err := fixture.store.BookingByID(context.Background(), booking.ID)
		require.NoError(t, err)
		assert.Equal(t, "paid", updated.PaymentStatus)
	})

	t.Run("list bookings", func(t *testing.T) {
		path := fmt.Sprintf("/api/bookings?userId=%d", account.User.ID)
		resp := fixture.do(t, "GET", path, account.Token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		bookings := decodeInto[[]store.Booking](t, resp)
		assert.Len(t, bookings, 1)
	})
}

func TestReportEndpoints(t *testing.T) {
	fixture := newRESTFixture(t)
	ctx := context.Background()

	resp := fixture.do(t, "POST", "/api/auth/signup", "", map[string]any{
		"name":     "Reporter",
		"email":    "reporter@example.com",
		"password": "secret-password",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	account := decodeInto[tokenPayload](t, resp)

	booking, err := fixture.store.CreateBooking(ctx, store.Booking{
		TeamID: fixture.team.ID,
		UserID: account.User.ID,
		Date:   time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	resp = fixture.do(t, "POST", "/api/reports", account.Token, map[string]any{
		"bookingId":    booking.ID,
		"userId":       account.User.ID,
		"incidentType": "theft",
		"details":      "gate left open",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	report := decodeInto[store.Report](t, resp)
	assert.Equal(t, "pending", report.Status)

	t.Run("list requires admin", func(t *testing.T) {
		resp := fixture.do(t, "GET", "/api/reports", account.Token, nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("status update", func(t *testing.T) {
		path := fmt.Sprintf("/api/reports/%d/status", report.ID)
		resp := fixture.do(t, "PATCH", path, fixture.adminToken, map[string]any{"status": "resolved"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		updated := decodeInto[store.Report](t, resp)
		assert.Equal(t, "resolved", updated.Status)
	})
}

func TestMessageEndpoints(t *testing.T) {
	fixture := newRESTFixture(t)

	resp := fixture.do(t, "POST", "/api/auth/signup", "", map[string]any{
		"name":     "Chatter",
		"email":    "chatter@example.com",
		"password": "secret-password",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	account := decodeInto[tokenPayload](t, resp)

	resp = fixture.do(t, "POST", "/api/messages", account.Token, map[string]any{
		"userId":  account.User.ID,
		"content": "need a quote",
		"to":      "admin",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	message := decodeInto[store.Message](t, resp)
	assert.Equal(t, "user", message.Sender)
	assert.Equal(t, "delivered", message.Status)

	t.Run("sender derived from role", func(t *testing.T) {
		resp := fixture.do(t, "POST", "/api/messages", fixture.adminToken, map[string]any{
			"userId":  1,
			"content": "here is your quote",
			"to":      fmt.Sprintf("%d", account.User.ID),
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		reply := decodeInto[store.Message](t, resp)
		assert.Equal(t, "admin", reply.Sender)
	})

	t.Run("oversized content rejected", func(t *testing.T) {
		content := make([]byte, 501)
		for i := range content {
			content[i] = 'a'
		}

		resp := fixture.do(t, "POST", "/api/messages", account.Token, map[string]any{
			"userId":  account.User.ID,
			"content": string(content),
			"to":      "admin",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("list", func(t *testing.T) {
		path := fmt.Sprintf("/api/messages?userId=%d", account.User.ID)
		resp := fixture.do(t, "GET", path, account.Token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		messages := decodeInto[[]store.Message](t, resp)
		assert.Len(t, messages, 2)
	})
}
