package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.authgate/internal/envelope"
	"uk.co.dudmesh.authgate/internal/metrics"
	"uk.co.dudmesh.authgate/internal/model"
	"uk.co.dudmesh.authgate/internal/store"
	"uk.co.dudmesh.authgate/pkg/crypt"
)

const (
	MinPasswordLength  = 6
	DefaultMaxAttempts = 5
	timeFormat         = "2006-01-02T15:04:05.000Z07:00"
)

var (
	userNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailPattern    = regexp.MustCompile(`^[0-9a-zA-Z_.-]+[@][0-9a-zA-Z_.-]+([.][a-zA-Z]+){1,2}$`)
	phonePattern    = regexp.MustCompile(`^1[3456789]\d{9}$`)
)

type SessionService interface {
	Create(ctx context.Context, userID model.UserID, clientAesKey string) (*model.Session, error)
	Revoke(ctx context.Context, sessionID model.SessionID) error
}

type Config struct {
	Box         *crypt.Box
	Digester    *crypt.Digester
	MaxAttempts int
	Logger      *log.Logger
	Metrics     *metrics.Metrics
}

type service struct {
	store       store.Store
	sessions    SessionService
	box         *crypt.Box
	digester    *crypt.Digester
	maxAttempts int
	logger      *log.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	newUserID   func() model.UserID
	newAccount  func() string
}

func New(st store.Store, sessions SessionService, config Config) *service {
	s := &service{
		store:       st,
		sessions:    sessions,
		box:         config.Box,
		digester:    config.Digester,
		maxAttempts: config.MaxAttempts,
		logger:      config.Logger,
		metrics:     config.Metrics,
		now:         time.Now,
		newUserID:   model.CreateUserID,
		newAccount:  model.CreateUserAccount,
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	if s.logger == nil {
		s.logger = log.New("user")
	}
	return s
}

func (s *service) respond(status envelope.Status, data any) *envelope.Envelope {
	s.metrics.Outcome(status)
	return envelope.New(status, data)
}

func validPassword(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength
}

func validOptional(value *string, pattern *regexp.Regexp) bool {
	return value == nil || *value == "" || pattern.MatchString(*value)
}

func nonEmpty(value *string) *string {
	if value == nil || *value == "" {
		return nil
	}
	return value
}

// Register creates an identity and its credential. The payload carries an
// RSA encrypted clientAesKey that both signs the body and encrypts the
// password.
func (s *service) Register(ctx context.Context, params *model.RegisterParams, signed model.Signed) (*envelope.Envelope, error) {
	key, err := s.box.RSADecryptWithTimestamp(params.ClientAesKey)
	if err != nil || key == "" {
		s.logger.Debugf("register: key exchange: %v", err)
		return s.respond(envelope.RegisterKeyExchangeFailed, nil), nil
	}

	if !crypt.VerifySignature(signed.Payload, signed.Signature, key) {
		s.logger.Debugf("register: %v", crypt.ErrorSignature)
		return s.respond(envelope.RegisterSignatureFailed, nil), nil
	}

	password, err := s.box.AESDecryptWithTimestamp(params.Password, key)
	if err != nil {
		s.logger.Debugf("register: password: %v", err)
		return s.respond(envelope.RegisterInvalidPassword, nil), nil
	}

	if !userNamePattern.MatchString(params.UserName) {
		return s.respond(envelope.RegisterInvalidUserName, nil), nil
	}

	taken, err := s.userNameTaken(ctx, params.UserName)
	if err != nil {
		return nil, err
	}
	if taken {
		return s.respond(envelope.RegisterUserNameTaken, nil), nil
	}

	if !validPassword(password) {
		return s.respond(envelope.RegisterInvalidPassword, nil), nil
	}
	if !validOptional(params.Email, emailPattern) {
		return s.respond(envelope.RegisterInvalidEmail, nil), nil
	}
	if !validOptional(params.Phone, phonePattern) {
		return s.respond(envelope.RegisterInvalidPhone, nil), nil
	}

	now := s.now().UTC()
	identity := &model.Identity{
		UserName:     params.UserName,
		NickName:     nonEmpty(params.NickName),
		Avatar:       nonEmpty(params.Avatar),
		Email:        nonEmpty(params.Email),
		Phone:        nonEmpty(params.Phone),
		ModifiedTime: now,
		RegisterTime: now,
	}
	digest := s.digester.Digest(password)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		identity.UserID = s.newUserID()
		identity.UserAccount = s.newAccount()

		err = s.store.WithTx(ctx, func(tx store.Store) error {
			if err := tx.Identities().Insert(ctx, identity); err != nil {
				return err
			}
			return tx.Credentials().Insert(ctx, &model.Credential{UserID: identity.UserID, Password: digest})
		})
		if err == nil {
			s.logger.Infof("registered user %s", identity.UserID)
			return s.respond(envelope.RegisterSuccess, identity), nil
		}
		if !errors.Is(err, model.ErrorDuplicate) {
			return nil, fmt.Errorf("registering user: %w", err)
		}

		taken, err := s.userNameTaken(ctx, params.UserName)
		if err != nil {
			return nil, err
		}
		if taken {
			return s.respond(envelope.RegisterUserNameTaken, nil), nil
		}
		s.logger.Warnf("user id or account collision, attempt %d of %d", attempt, s.maxAttempts)
	}

	s.logger.Errorf("gave up generating user identifiers after %d attempts", s.maxAttempts)
	return nil, fmt.Errorf("registering user: %w", model.ErrorIDSpaceExhausted)
}

func (s *service) userNameTaken(ctx context.Context, userName string) (bool, error) {
	_, err := s.store.Identities().FindOne(ctx, model.IdentityByUserName, userName)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, model.ErrorNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("checking user name: %w", err)
}

// Login verifies a user name or account and password and starts a session,
// evicting any earlier one. Unknown users and wrong passwords get the same
// status.
func (s *service) Login(ctx context.Context, params *model.LoginParams, signed model.Signed) (*envelope.Envelope, error) {
	key, err := s.box.RSADecryptWithTimestamp(params.ClientAesKey)
	if err != nil || key == "" {
		s.logger.Debugf("login: key exchange: %v", err)
		return s.respond(envelope.LoginKeyExchangeFailed, nil), nil
	}

	if !crypt.VerifySignature(signed.Payload, signed.Signature, key) {
		s.logger.Debugf("login: %v", crypt.ErrorSignature)
		return s.respond(envelope.LoginSignatureFailed, nil), nil
	}

	password, err := s.box.AESDecryptWithTimestamp(params.Password, key)
	if err != nil {
		s.logger.Debugf("login: password: %v", err)
		return s.respond(envelope.LoginUserNotExistOrInvalidPassword, nil), nil
	}

	identity, err := s.lookup(ctx, params.User)
	if err != nil {
		if errors.Is(err, model.ErrorNotFound) {
			return s.respond(envelope.LoginUserNotExistOrInvalidPassword, nil), nil
		}
		return nil, err
	}

	ok, err := s.checkPassword(ctx, identity.UserID, password)
	if err != nil {
		if errors.Is(err, model.ErrorNotFound) {
			return s.respond(envelope.LoginUserNotExistOrInvalidPassword, nil), nil
		}
		return nil, err
	}
	if !ok {
		return s.respond(envelope.LoginUserNotExistOrInvalidPassword, nil), nil
	}

	session, err := s.sessions.Create(ctx, identity.UserID, key)
	if err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}

	return s.respond(envelope.LoginSuccess, map[string]string{"authToken": session.AuthToken}), nil
}

func (s *service) lookup(ctx context.Context, user string) (*model.Identity, error) {
	if user == "" {
		return nil, model.ErrorNotFound
	}
	for _, field := range []model.IdentityField{model.IdentityByUserName, model.IdentityByUserAccount} {
		identity, err := s.store.Identities().FindOne(ctx, field, user)
		if err == nil {
			return identity, nil
		}
		if !errors.Is(err, model.ErrorNotFound) {
			return nil, fmt.Errorf("looking up user: %w", err)
		}
	}
	return nil, model.ErrorNotFound
}

func (s *service) checkPassword(ctx context.Context, userID model.UserID, password string) (bool, error) {
	credential, err := s.store.Credentials().FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrorNotFound) {
			return false, err
		}
		return false, fmt.Errorf("fetching credential: %w", err)
	}
	return s.digester.Equal(password, credential.Password), nil
}

func (s *service) Info(ctx context.Context, session *model.Session) (*envelope.Envelope, error) {
	identity, err := s.store.Identities().FindOne(ctx, model.IdentityByUserID, string(session.UserID))
	if err != nil {
		if errors.Is(err, model.ErrorNotFound) {
			return s.respond(envelope.GetInfoUserNotExist, nil), nil
		}
		return nil, fmt.Errorf("fetching user info: %w", err)
	}
	return s.respond(envelope.GetInfoSuccess, identity), nil
}

// EditInfo applies patch to the caller's profile. Fields absent from the
// request are left alone; null or empty clears them.
func (s *service) EditInfo(ctx context.Context, session *model.Session, patch *model.ProfilePatch, signed model.Signed) (*envelope.Envelope, error) {
	if !crypt.VerifySignature(signed.Payload, signed.Signature, session.ClientAesKey) {
		s.logger.Debugf("edit info: %v", crypt.ErrorSignature)
		return s.respond(envelope.EditInfoSignatureFailed, nil), nil
	}

	if !validOptional(patch.Email.Value, emailPattern) {
		return s.respond(envelope.EditInfoInvalidEmail, nil), nil
	}
	if !validOptional(patch.Phone.Value, phonePattern) {
		return s.respond(envelope.EditInfoInvalidPhone, nil), nil
	}

	identity, err := s.store.Identities().Update(ctx, session.UserID, patch, s.now().UTC())
	if err != nil {
		if errors.Is(err, model.ErrorNotFound) {
			return s.respond(envelope.EditInfoUserNotExist, nil), nil
		}
		return nil, fmt.Errorf("editing user info: %w", err)
	}
	return s.respond(envelope.EditInfoSuccess, identity), nil
}

func (s *service) Logout(ctx context.Context, session *model.Session) (*envelope.Envelope, error) {
	if session.UserID == "" || session.SessionID == "" {
		return s.respond(envelope.LogoutUserNotExist, nil), nil
	}
	if err := s.sessions.Revoke(ctx, session.SessionID); err != nil {
		return nil, fmt.Errorf("logging out: %w", err)
	}
	return s.respond(envelope.LogoutSuccess, map[string]string{
		"logoutTime": s.now().UTC().Format(timeFormat),
	}), nil
}

// ModifyPassword replaces the caller's password digest and ends the
// current session.
func (s *service) ModifyPassword(ctx context.Context, session *model.Session, params *model.ModifyPasswordParams, signed model.Signed) (*envelope.Envelope, error) {
	if !crypt.VerifySignature(signed.Payload, signed.Signature, session.ClientAesKey) {
		s.logger.Debugf("modify password: %v", crypt.ErrorSignature)
		return s.respond(envelope.ModifyPasswordSignatureFailed, nil), nil
	}

	oldPassword, err := s.box.AESDecryptWithTimestamp(params.OldPassword, session.ClientAesKey)
	if err != nil {
		s.logger.Debugf("modify password: old password: %v", err)
		return s.respond(envelope.ModifyPasswordInvalidOldPassword, nil), nil
	}
	newPassword, err := s.box.AESDecryptWithTimestamp(params.NewPassword, session.ClientAesKey)
	if err != nil {
		s.logger.Debugf("modify password: new password: %v", err)
		return s.respond(envelope.ModifyPasswordInvalidNewPassword, nil), nil
	}

	ok, err := s.checkPassword(ctx, session.UserID, oldPassword)
	if err != nil {
		if errors.Is(err, model.ErrorNotFound) {
			return s.respond(envelope.ModifyPasswordUserNotExist, nil), nil
		}
		return nil, err
	}
	if !ok {
		return s.respond(envelope.ModifyPasswordInvalidOldPassword, nil), nil
	}

	if !validPassword(newPassword) {
		return s.respond(envelope.ModifyPasswordInvalidNewPassword, nil), nil
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Credentials().UpdatePassword(ctx, session.UserID, s.digester.Digest(newPassword)); err != nil {
			return err
		}
		_, err := tx.Identities().Update(ctx, session.UserID, &model.ProfilePatch{}, s.now().UTC())
		return err
	})
	if err != nil {
		if errors.Is(err, model.ErrorNotFound) {
			return s.respond(envelope.ModifyPasswordUserNotExist, nil), nil
		}
		return nil, fmt.Errorf("modifying password: %w", err)
	}

	if err := s.sessions.Revoke(ctx, session.SessionID); err != nil {
		return nil, fmt.Errorf("modifying password: %w", err)
	}

	s.logger.Infof("password modified for user %s", session.UserID)
	return s.respond(envelope.ModifyPasswordSuccess, nil), nil
}

// Cancel deletes the caller's identity, credential and sessions after
// re-checking the password.
func (s *service) Cancel(ctx context.Context, session *model.Session, params *model.CancellationParams, signed model.Signed) (*envelope.Envelope, error) {
	if !crypt.VerifySignature(signed.Payload, signed.Signature, session.ClientAesKey) {
		s.logger.Debugf("cancellation: %v", crypt.ErrorSignature)
		return s.respond(envelope.CancellationSignatureFailed, nil), nil
	}

	password, err := s.box.AESDecryptWithTimestamp(params.Password, session.ClientAesKey)
	if err != nil {
		s.logger.Debugf("cancellation: password: %v", err)
		return s.respond(envelope.CancellationInvalidPassword, nil), nil
	}

	ok, err := s.checkPassword(ctx, session.UserID, password)
	if err != nil {
		if errors.Is(err, model.ErrorNotFound) {
			return s.respond(envelope.CancellationUserNotExist, nil), nil
		}
		return nil, err
	}
	if !ok {
		return s.respond(envelope.CancellationInvalidPassword, nil), nil
	}

	var revoked int64
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Identities().Delete(ctx, session.UserID); err != nil {
			return err
		}
		if err := tx.Credentials().Delete(ctx, session.UserID); err != nil {
			return err
		}
		n, err := tx.Sessions().DeleteByUserID(ctx, session.UserID)
		revoked = n
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("cancelling account: %w", err)
	}
	s.metrics.SessionEvents(metrics.SessionRevoked, revoked)

	s.logger.Infof("cancelled account for user %s", session.UserID)
	return s.respond(envelope.CancellationSuccess, map[string]string{
		"cancellationTime": s.now().UTC().Format(timeFormat),
	}), nil
}
