package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.authgate/internal/metrics"
	"uk.co.dudmesh.authgate/internal/model"
	"uk.co.dudmesh.authgate/internal/store"
)

const (
	DefaultTTL         = 7 * 24 * time.Hour
	DefaultMaxAttempts = 5
)

type TokenCodec interface {
	Issue(sessionID string) string
	Resolve(token string) (string, error)
}

type Config struct {
	TTL time.Duration
	// MaxAge caps how far renewals may push ExpTime past CreatedTime.
	// Zero means no cap.
	MaxAge      time.Duration
	MaxAttempts int
	Logger      *log.Logger
	Metrics     *metrics.Metrics
}

type service struct {
	store       store.Store
	codec       TokenCodec
	ttl         time.Duration
	maxAge      time.Duration
	maxAttempts int
	logger      *log.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	newID       func() model.SessionID
}

func New(st store.Store, codec TokenCodec, config Config) *service {
	s := &service{
		store:       st,
		codec:       codec,
		ttl:         config.TTL,
		maxAge:      config.MaxAge,
		maxAttempts: config.MaxAttempts,
		logger:      config.Logger,
		metrics:     config.Metrics,
		now:         time.Now,
		newID:       model.CreateSessionID,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	if s.logger == nil {
		s.logger = log.New("session")
	}
	return s
}

// WithClock returns a copy of the service reading the current time from now.
func (s *service) WithClock(now func() time.Time) *service {
	clone := *s
	clone.now = now
	return &clone
}

func (s *service) expiry(created time.Time, now time.Time) time.Time {
	exp := now.Add(s.ttl)
	if s.maxAge > 0 {
		if limit := created.Add(s.maxAge); limit.Before(exp) {
			exp = limit
		}
	}
	return exp
}

// Create evicts every session of userID and starts a new one.
func (s *service) Create(ctx context.Context, userID model.UserID, clientAesKey string) (*model.Session, error) {
	if err := s.RevokeAllForUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("evicting sessions: %w", err)
	}

	sessions := s.store.Sessions()

	now := s.now().UTC()
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		sessionID := s.newID()
		authToken := s.codec.Issue(string(sessionID))
		if authToken == "" {
			return nil, errors.New("issuing session token")
		}

		session := &model.Session{
			SessionID:    sessionID,
			AuthToken:    authToken,
			UserID:       userID,
			ClientAesKey: clientAesKey,
			CreatedTime:  now,
			ExpTime:      s.expiry(now, now),
		}

		err := sessions.Insert(ctx, session)
		if err == nil {
			s.metrics.Session(metrics.SessionCreated)
			return session, nil
		}
		if !errors.Is(err, model.ErrorDuplicate) {
			return nil, fmt.Errorf("creating session: %w", err)
		}
		s.logger.Warnf("session id collision, attempt %d of %d", attempt, s.maxAttempts)
	}

	s.logger.Errorf("gave up generating a session id after %d attempts", s.maxAttempts)
	return nil, fmt.Errorf("creating session: %w", model.ErrorIDSpaceExhausted)
}

// Find returns the live session named by token. Unknown, forged and
// mismatched tokens are all ErrorSessionNotFound. An expired session is
// deleted and reported as ErrorSessionExpired.
func (s *service) Find(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, model.ErrorSessionNotFound
	}

	sessionID, err := s.codec.Resolve(token)
	if err != nil || sessionID == "" {
		return nil, model.ErrorSessionNotFound
	}

	session, err := s.store.Sessions().FindByID(ctx, model.SessionID(sessionID))
	if err != nil {
		if errors.Is(err, model.ErrorNotFound) {
			return nil, model.ErrorSessionNotFound
		}
		return nil, fmt.Errorf("finding session: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(session.AuthToken), []byte(token)) != 1 {
		return nil, model.ErrorSessionNotFound
	}

	if session.Expired(s.now()) {
		if err := s.store.Sessions().Delete(ctx, session.SessionID); err != nil {
			return nil, fmt.Errorf("deleting expired session: %w", err)
		}
		s.logger.Infof("evicted expired session for user %s", session.UserID)
		s.metrics.Session(metrics.SessionExpired)
		return nil, model.ErrorSessionExpired
	}

	return session, nil
}

// Renew slides the session expiry forward from now.
func (s *service) Renew(ctx context.Context, session *model.Session) error {
	exp := s.expiry(session.CreatedTime, s.now().UTC())
	if err := s.store.Sessions().UpdateExpiry(ctx, session.SessionID, exp); err != nil {
		if errors.Is(err, model.ErrorNotFound) {
			return model.ErrorSessionNotFound
		}
		return fmt.Errorf("renewing session: %w", err)
	}
	session.ExpTime = exp
	s.metrics.Session(metrics.SessionRenewed)
	return nil
}

func (s *service) Revoke(ctx context.Context, sessionID model.SessionID) error {
	if err := s.store.Sessions().Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	s.metrics.Session(metrics.SessionRevoked)
	return nil
}

func (s *service) RevokeAllForUser(ctx context.Context, userID model.UserID) error {
	n, err := s.store.Sessions().DeleteByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("revoking sessions: %w", err)
	}
	s.metrics.SessionEvents(metrics.SessionRevoked, n)
	return nil
}
