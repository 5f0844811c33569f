package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ruralpay/wallet/internal/audit"
	"github.com/ruralpay/wallet/internal/models"
	"github.com/ruralpay/wallet/internal/storage"
	"github.com/sirupsen/logrus"
)

// Session is returned when a session is created
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

type sessionClaims struct {
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// SessionService issues session tokens and tears sessions down on logout
type SessionService struct {
	kv      storage.KVStore
	redis   *redis.Client
	wallets *WalletService
	flows   *FlowManager
	secret  []byte
	expiry  time.Duration
	audit   *audit.Logger
	log     *logrus.Entry
	now     func() time.Time
}

func NewSessionService(kv storage.KVStore, redisClient *redis.Client, wallets *WalletService, flows *FlowManager, secret string, expiry time.Duration, auditLog *audit.Logger, log *logrus.Entry) *SessionService {
	return &SessionService{
		kv:      kv,
		redis:   redisClient,
		wallets: wallets,
		flows:   flows,
		secret:  []byte(secret),
		expiry:  expiry,
		audit:   auditLog,
		log:     log,
		now:     time.Now,
	}
}

// Create starts a session with a fresh ledger and returns its bearer token
func (s *SessionService) Create(ctx context.Context, fullName, username string) (*Session, error) {
	sessionID := uuid.New().String()

	ledger, err := s.wallets.Ledger(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	balance := ledger.Balance()

	now := s.now()
	user := models.User{
		ID:        sessionID,
		FullName:  fullName,
		Username:  username,
		Balance:   &balance,
		CreatedAt: now,
	}
	if err := s.saveUser(ctx, user); err != nil {
		return nil, err
	}

	expiresAt := now.Add(s.expiry)
	token, err := s.generateJWT(sessionID, username, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.log.WithFields(logrus.Fields{"session_id": sessionID, "username": username}).Info("Session created")
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// User returns the session profile with a refreshed balance cache
func (s *SessionService) User(ctx context.Context, sessionID string) (*models.User, error) {
	raw, err := s.kv.Get(ctx, Key(sessionID, KeyUser))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}

	ledger, err := s.wallets.Ledger(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	balance := ledger.Balance()
	user.Balance = &balance
	return &user, nil
}

func (s *SessionService) saveUser(ctx context.Context, user models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := storage.Set(ctx, s.kv, Key(user.ID, KeyUser), string(raw)); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// ValidateToken returns the session id of a live, unrevoked token
func (s *SessionService) ValidateToken(ctx context.Context, tokenString string) (string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid || claims.SessionID == "" {
		return "", ErrInvalidToken
	}

	if s.redis != nil {
		n, err := s.redis.Exists(ctx, blacklistKey(tokenString)).Result()
		if err != nil {
			s.log.WithError(err).Warn("Blacklist lookup failed")
		} else if n > 0 {
			return "", ErrInvalidToken
		}
	}

	if _, err := s.kv.Get(ctx, Key(claims.SessionID, KeyUser)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("load session: %w", err)
	}
	return claims.SessionID, nil
}

// Logout discards the active flow, clears the persisted ledger and profile,
// and blacklists the token until it would have expired
func (s *SessionService) Logout(ctx context.Context, sessionID, token string) error {
	if err := s.flows.Discard(sessionID); err != nil {
		return err
	}

	ledger, err := s.wallets.Ledger(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := ledger.Clear(ctx); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, Key(sessionID, KeyUser)); err != nil {
		return fmt.Errorf("clear user: %w", err)
	}
	s.wallets.Forget(sessionID)

	if s.redis != nil && token != "" {
		if err := s.redis.Set(ctx, blacklistKey(token), "1", s.expiry).Err(); err != nil {
			s.log.WithError(err).Warn("Failed to blacklist token")
		}
	}

	s.audit.LogOperation(sessionID, audit.EventLogout, "session cleared")
	return nil
}

func (s *SessionService) generateJWT(sessionID, username string, issuedAt, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		SessionID: sessionID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	return token.SignedString(s.secret)
}

func blacklistKey(token string) string {
	return "blacklist:" + token
}
