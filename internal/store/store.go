package store

import (
	"context"
	"time"

	"uk.co.dudmesh.authgate/internal/model"
)

// Missing documents are reported as model.ErrorNotFound and unique index
// violations as model.ErrorDuplicate. Deletes never fail for missing rows.

type Identities interface {
	Insert(ctx context.Context, identity *model.Identity) error
	FindOne(ctx context.Context, field model.IdentityField, value string) (*model.Identity, error)
	Update(ctx context.Context, userID model.UserID, patch *model.ProfilePatch, modifiedTime time.Time) (*model.Identity, error)
	Delete(ctx context.Context, userID model.UserID) error
}

type Credentials interface {
	Insert(ctx context.Context, credential *model.Credential) error
	FindByUserID(ctx context.Context, userID model.UserID) (*model.Credential, error)
	UpdatePassword(ctx context.Context, userID model.UserID, digest string) error
	Delete(ctx context.Context, userID model.UserID) error
}

type Sessions interface {
	Insert(ctx context.Context, session *model.Session) error
	FindByID(ctx context.Context, sessionID model.SessionID) (*model.Session, error)
	UpdateExpiry(ctx context.Context, sessionID model.SessionID, expTime time.Time) error
	Delete(ctx context.Context, sessionID model.SessionID) error
	DeleteByUserID(ctx context.Context, userID model.UserID) (int64, error)
}

type Store interface {
	Identities() Identities
	Credentials() Credentials
	Sessions() Sessions
	// WithTx runs fn against a store bound to a single transaction,
	// committing if fn returns nil. Sessions held outside the database are
	// not part of the transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error
	Close() error
}
