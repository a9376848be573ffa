package auth

import (
	"context"
	"errors"
	"time"

	"github.com/chimshield/backend/internal/ierr"
	"github.com/chimshield/backend/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const RoleAdmin = "admin"

type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"userId"`
	Role   string `json:"role,omitempty"`
}

// Identity is the resolved result of a presented credential. It only labels
// connections and gates admin-only surfaces; it carries no other state.
type Identity struct {
	ID   int64
	Name string
	Role string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

type Authenticator struct {
	secret    []byte
	tokenTTL  time.Duration
	users     store.UserStore
	jwtParser *jwt.Parser
}

func NewAuthenticator(secret string, users store.UserStore) *Authenticator {
	jwtParser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	return &Authenticator{
		secret:    []byte(secret),
		tokenTTL:  time.Hour,
		users:     users,
		jwtParser: jwtParser,
	}
}

func (a *Authenticator) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("unexpected signing method"))
	}
	return a.secret, nil
}

func (a *Authenticator) Issue(user store.User) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
		UserID: user.ID,
		Role:   user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(a.secret)
}

// Authenticate resolves a token to a stable identity. The user must still
// exist; a valid token for a deleted user is rejected.
func (a *Authenticator) Authenticate(ctx context.Context, tokenString string) (Identity, error) {
	claims := Claims{}

	_, err := a.jwtParser.ParseWithClaims(tokenString, &claims, a.keyFunc)
	if err != nil {
		return Identity{}, ierr.New(ierr.ErrorCodeUnauthenticated, err)
	}

	user, err := a.users.UserByID(ctx, claims.UserID)
	if err != nil {
		return Identity{}, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("invalid token"))
	}

	return Identity{
		ID:   user.ID,
		Name: user.Name,
		Role: user.Role,
	}, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

func CheckPassword(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
