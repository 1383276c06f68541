package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/repo"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/respond"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const (
	CookieName = "session_token"
	TokenTTL   = 30 * 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrInvalidToken       = errors.New("invalid session token")
)

type contextKey string

const userKey contextKey = "user"

type User struct {
	ID    int
	Login string
}

// UserFrom returns the user attached by Middleware.
func UserFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey).(User)
	return u, ok && u.ID != 0
}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

type Claims struct {
	UserID int    `json:"user_id"`
	Login  string `json:"login"`
	jwt.RegisteredClaims
}

type Env struct {
	JWTKey []byte
	Users  repo.Users
	Log    *zap.Logger
	// Now is overridable in tests.
	Now func() time.Time
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type registerRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (env *Env) now() time.Time {
	if env.Now != nil {
		return env.Now()
	}
	return time.Now()
}

func (env *Env) logger() *zap.Logger {
	if env.Log == nil {
		return zap.NewNop()
	}
	return env.Log
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// IssueToken signs a session token for the user.
func (env *Env) IssueToken(u User) (string, error) {
	now := env.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: u.ID,
		Login:  u.Login,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	})
	return token.SignedString(env.JWTKey)
}

// ParseToken verifies signature, algorithm and expiry and returns the user.
func (env *Env) ParseToken(tokenString string) (User, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return env.JWTKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(env.now))
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == 0 || claims.Login == "" {
		return User{}, ErrInvalidToken
	}
	return User{ID: claims.UserID, Login: claims.Login}, nil
}

// tokenFrom prefers an Authorization bearer header over the cookie.
func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// Middleware rejects requests without a valid session token and stores the
// user in the request context.
func (env *Env) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := tokenFrom(r)
		if tok == "" {
			respond.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		u, err := env.ParseToken(tok)
		if err != nil {
			env.logger().Debug("rejected session token", zap.Error(err))
			respond.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

func (env *Env) setSession(w http.ResponseWriter, u User) (string, error) {
	tok, err := env.IssueToken(u)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    tok,
		Expires:  env.now().Add(TokenTTL),
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	return tok, nil
}

func (env *Env) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := respond.Decode(w, r, 0, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	req.Login = strings.TrimSpace(req.Login)
	req.Email = strings.TrimSpace(req.Email)
	if req.Login == "" || req.Email == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "Login, email and password required")
		return
	}
	if len(req.Password) < 6 {
		respond.Error(w, http.StatusBadRequest, "Password too short")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "Error hashing password")
		return
	}
	id, err := env.Users.CreateUser(r.Context(), req.Login, req.Email, hash)
	if err != nil {
		env.logger().Warn("create user failed", zap.String("login", req.Login), zap.Error(err))
		respond.Error(w, http.StatusConflict, "User already exists")
		return
	}
	tok, err := env.setSession(w, User{ID: id, Login: req.Login})
	if err != nil {
		env.logger().Error("sign token failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Token error")
		return
	}
	respond.JSON(w, http.StatusCreated, tokenResponse{Token: tok})
}

func (env *Env) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.Decode(w, r, 0, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "Login and password required")
		return
	}

	u, err := env.Authenticate(r.Context(), req.Login, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		respond.Error(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		env.logger().Error("login lookup failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Database error")
		return
	}
	tok, err := env.setSession(w, u)
	if err != nil {
		env.logger().Error("sign token failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Token error")
		return
	}
	respond.JSON(w, http.StatusOK, tokenResponse{Token: tok})
}

// Authenticate checks a login/password pair against the stored hash.
func (env *Env) Authenticate(ctx context.Context, login, password string) (User, error) {
	id, hash, err := env.Users.GetByLogin(ctx, login)
	if errors.Is(err, repo.ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return User{ID: id, Login: login}, nil
}

type IPRateLimiter struct {
	ips map[string]*rate.Limiter
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*rate.Limiter),
		r:   r,
		b:   b,
	}
}

func (i *IPRateLimiter) limiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	l, ok := i.ips[ip]
	if !ok {
		l = rate.NewLimiter(i.r, i.b)
		i.ips[ip] = l
	}
	return l
}

// Middleware answers 429 once a client address exhausts its burst.
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !i.limiter(ip).Allow() {
			respond.Error(w, http.StatusTooManyRequests, "Too Many Requests. Try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
