package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/chimshield/backend/internal/auth"
	"github.com/chimshield/backend/internal/ierr"
	"github.com/chimshield/backend/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RESTServer carries the CRUD surface of the marketplace: auth, teams,
// bookings, payments, reports and the stored-message pull used by offline
// recipients.
type RESTServer struct {
	logger        *zap.Logger
	authenticator *auth.Authenticator
	users         store.UserStore
	teams         store.TeamStore
	bookings      store.BookingStore
	payments      store.PaymentStore
	reports       store.ReportStore
	messages      store.MessageStore
	validate      *validator.Validate
}

func NewRESTServer(
	logger *zap.Logger,
	authenticator *auth.Authenticator,
	users store.UserStore,
	teams store.TeamStore,
	bookings store.BookingStore,
	payments store.PaymentStore,
	reports store.ReportStore,
	messages store.MessageStore,
) *RESTServer {
	return &RESTServer{
		logger:        logger,
		authenticator: authenticator,
		users:         users,
		teams:         teams,
		bookings:      bookings,
		payments:      payments,
		reports:       reports,
		messages:      messages,
		validate:      validator.New(),
	}
}

func (s *RESTServer) Register(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/signup", s.handleSignup).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/verify", s.requireAuth(s.handleVerify)).Methods("GET", "OPTIONS")

	api.HandleFunc("/teams", s.handleListTeams).Methods("GET", "OPTIONS")
	api.HandleFunc("/teams/{id}", s.handleGetTeam).Methods("GET", "OPTIONS")
	api.HandleFunc("/teams", s.requireAdmin(s.handleCreateTeam)).Methods("POST", "OPTIONS")
	api.HandleFunc("/teams/{id}", s.requireAdmin(s.handleUpdateTeam)).Methods("PUT", "OPTIONS")

	api.HandleFunc("/bookings", s.requireAuth(s.handleListBookings)).Methods("GET", "OPTIONS")
	api.HandleFunc("/bookings", s.requireAuth(s.handleCreateBooking)).Methods("POST", "OPTIONS")

	api.HandleFunc("/payments", s.requireAuth(s.handleCreatePayment)).Methods("POST", "OPTIONS")

	api.HandleFunc("/reports", s.requireAdmin(s.handleListReports)).Methods("GET", "OPTIONS")
	api.HandleFunc("/reports", s.requireAuth(s.handleCreateReport)).Methods("POST", "OPTIONS")
	api.HandleFunc("/reports/{id}/status", s.requireAdmin(s.handleUpdateReportStatus)).Methods("PATCH", "OPTIONS")

	api.HandleFunc("/messages", s.requireAuth(s.handleListMessages)).Methods("GET", "OPTIONS")
	api.HandleFunc("/messages", s.requireAuth(s.handleCreateMessage)).Methods("POST", "OPTIONS")
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE")

		if r.Method == http.MethodOptions {
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *RESTServer) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := connectionToken(r)
		if token == "" {
			s.writeError(w, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("no token provided")))

			return
		}

		identity, err := s.authenticator.Authenticate(r.Context(), token)
		if err != nil {
			s.writeError(w, err)

			return
		}

		next(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	}
}

func (s *RESTServer) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := auth.IdentityFromContext(r.Context())
		if !identity.IsAdmin() {
			s.writeError(w, ierr.New(ierr.ErrorCodePermissionDenied, errors.New("admin role required")))

			return
		}

		next(w, r)
	})
}

type userInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type tokenResponse struct {
	Token string   `json:"token"`
	User  userInfo `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *RESTServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	user, err := s.users.UserByEmail(r.Context(), req.Email)
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.writeError(w, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("invalid email or password")))

		return
	}

	token, err := s.authenticator.Issue(user)
	if err != nil {
		s.writeError(w, err)

		return
	}

	err = s.users.TouchLastLogin(r.Context(), user.ID, time.Now())
	if err != nil {
		s.logger.Warn("failed to record last login", zap.Int64("userId", user.ID), zap.Error(err))
	}

	s.writeJSON(w, http.StatusOK, tokenResponse{
		Token: token,
		User:  userInfo{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role},
	})
}

type signupRequest struct {
	Name     string `json:"name" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (s *RESTServer) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, err)

		return
	}

	user, err := s.users.CreateUser(r.Context(), store.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         "user",
		CreatedAt:    time.Now(),
	})
	if err != nil {
		s.writeError(w, err)

		return
	}

	token, err := s.authenticator.Issue(user)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, tokenResponse{
		Token: token,
		User:  userInfo{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role},
	})
}

func (s *RESTServer) handleVerify(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	user, err := s.users.UserByID(r.Context(), identity.ID)
	if err != nil {
		s.writeError(w, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("user not found")))

		return
	}

	s.writeJSON(w, http.StatusOK, userInfo{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role})
}

func (s *RESTServer) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.teams.Teams(r.Context())
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, teams)
}

func (s *RESTServer) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	team, err := s.teams.TeamByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, team)
}

type teamRequest struct {
	Name        string   `json:"name" validate:"required"`
	Type        string   `json:"type" validate:"required"`
	Location    string   `json:"location" validate:"required"`
	Price       int64    `json:"price" validate:"gte=0"`
	Rating      float64  `json:"rating"`
	Leader      string   `json:"leader" validate:"required"`
	Members     []string `json:"members"`
	Description string   `json:"description" validate:"required"`
}

func (s *RESTServer) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	rating := req.Rating
	if rating == 0 {
		rating = 3
	}

	now := time.Now()
	team, err := s.teams.CreateTeam(r.Context(), store.Team{
		Name:        req.Name,
		Type:        req.Type,
		Location:    req.Location,
		Price:       req.Price,
		Rating:      rating,
		Leader:      req.Leader,
		Members:     req.Members,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, team)
}

func (s *RESTServer) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	var req teamRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	team, err := s.teams.TeamByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)

		return
	}

	team.Name = req.Name
	team.Type = req.Type
	team.Location = req.Location
	team.Price = req.Price
	team.Leader = req.Leader
	team.Members = req.Members
	team.Description = req.Description
	if req.Rating != 0 {
		team.Rating = req.Rating
	}
	team.UpdatedAt = time.Now()

	team, err = s.teams.UpdateTeam(r.Context(), team)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, team)
}

func (s *RESTServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.queryUserID(w, r)
	if !ok {
		return
	}

	bookings, err := s.bookings.BookingsForUser(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, bookings)
}

type bookingRequest struct {
	TeamID    int64     `json:"teamId" validate:"required"`
	UserID    int64     `json:"userId" validate:"required"`
	EventType string    `json:"eventType" validate:"required"`
	Date      time.Time `json:"date" validate:"required"`
	Guests    int       `json:"guests" validate:"required,min=1"`
	Location  string    `json:"location" validate:"required"`
}

func (s *RESTServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if req.Date.Before(time.Now()) {
		s.writeError(w, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("booking date must be in the future")))

		return
	}

	identity, _ := auth.IdentityFromContext(r.Context())
	if identity.ID != req.UserID {
		s.writeError(w, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("token does not match user")))

		return
	}

	team, err := s.teams.TeamByID(r.Context(), req.TeamID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	_, err = s.users.UserByID(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), store.Booking{
		TeamID:        req.TeamID,
		UserID:        req.UserID,
		EventType:     req.EventType,
		Date:          req.Date,
		Guests:        req.Guests,
		Location:      req.Location,
		Amount:        team.Price,
		Status:        "confirmed",
		PaymentStatus: "pending",
		CreatedAt:     time.Now(),
	})
	if err != nil {
		s.writeError(w, err)

		return
	}

	err = s.teams.IncrementTeamBookings(r.Context(), team.ID)
	if err != nil {
		s.logger.Warn("failed to bump team booking count", zap.Int64("teamId", team.ID), zap.Error(err))
	}

	s.writeJSON(w, http.StatusCreated, booking)
}

type paymentRequest struct {
	BookingID     int64  `json:"bookingId" validate:"required"`
	Amount        int64  `json:"amount" validate:"required,gte=0"`
	Method        string `json:"method" validate:"required"`
	TransactionID string `json:"transactionId" validate:"required"`
}

func (s *RESTServer) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	booking, err := s.bookings.BookingByID(r.Context(), req.BookingID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	if req.Amount < booking.Amount {
		s.writeError(w, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("payment amount is less than required")))

		return
	}

	now := time.Now()
	payment, err := s.payments.CreatePayment(r.Context(), store.Payment{
		BookingID:     req.BookingID,
		Amount:        req.Amount,
		Method:        req.Method,
		TransactionID: req.TransactionID,
		Status:        "completed",
		Date:          now,
	})
	if err != nil {
		s.writeError(w, err)

		return
	}

	err = s.bookings.MarkBookingPaid(r.Context(), booking.ID, now)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, payment)
}

func (s *RESTServer) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.reports.Reports(r.Context())
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, reports)
}

type reportRequest struct {
	BookingID    int64  `json:"bookingId" validate:"required"`
	UserID       int64  `json:"userId" validate:"required"`
	IncidentType string `json:"incidentType" validate:"required"`
	Details      string `json:"details" validate:"required"`
}

func (s *RESTServer) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	_, err := s.bookings.BookingByID(r.Context(), req.BookingID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	_, err = s.users.UserByID(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	report, err := s.reports.CreateReport(r.Context(), store.Report{
		BookingID:    req.BookingID,
		UserID:       req.UserID,
		IncidentType: req.IncidentType,
		Details:      req.Details,
		Status:       "pending",
		Timestamp:    time.Now(),
	})
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, report)
}

type reportStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (s *RESTServer) handleUpdateReportStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	var req reportStatusRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	report, err := s.reports.SetReportStatus(r.Context(), id, req.Status)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

func (s *RESTServer) handleListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.queryUserID(w, r)
	if !ok {
		return
	}

	messages, err := s.messages.MessagesForUser(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, messages)
}

type messageRequest struct {
	UserID  int64  `json:"userId" validate:"required"`
	Content string `json:"content" validate:"required,max=500"`
	To      string `json:"to" validate:"required"`
}

// handleCreateMessage appends to the message log without a live delivery
// attempt; it is the pull-side counterpart of the websocket relay.
func (s *RESTServer) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	author, err := s.users.UserByID(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	sender := "user"
	if author.Role == auth.RoleAdmin {
		sender = "admin"
	}

	message, err := s.messages.AppendMessage(r.Context(), store.Message{
		UserID:    req.UserID,
		Content:   req.Content,
		To:        req.To,
		Sender:    sender,
		Timestamp: time.Now(),
		Status:    "delivered",
	})
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, message)
}

func (s *RESTServer) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		s.writeError(w, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid request body")))

		return false
	}

	err = s.validate.Struct(v)
	if err != nil {
		s.writeError(w, ierr.New(ierr.ErrorCodeInvalidArgument, err))

		return false
	}

	return true
}

func (s *RESTServer) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		s.writeError(w, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid id")))

		return 0, false
	}

	return id, true
}

func (s *RESTServer) queryUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		s.writeError(w, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("user id is required")))

		return 0, false
	}

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.writeError(w, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid user id")))

		return 0, false
	}

	return userID, true
}

func (s *RESTServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *RESTServer) writeError(w http.ResponseWriter, err error) {
	var ie ierr.Error
	if !errors.As(err, &ie) {
		s.logger.Error("internal error", zap.Error(err))
		ie = ierr.New(ierr.ErrorCodeInternal, errors.New("internal server error"))
	}

	s.writeJSON(w, ie.HTTPStatus(), map[string]string{"error": ie.Message})
}
