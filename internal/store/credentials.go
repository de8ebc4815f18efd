package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"uk.co.dudmesh.authgate/internal/model"
)

type credentials struct {
	ext sqlx.ExtContext
}

func (r *credentials) Insert(ctx context.Context, credential *model.Credential) error {
	_, err := sqlx.NamedExecContext(ctx, r.ext, `insert into credentials (UserID, Password) values(:UserID, :Password)`, credential)
	if err != nil {
		return fmt.Errorf("inserting credential: %w", convertError(err))
	}
	return nil
}

func (r *credentials) FindByUserID(ctx context.Context, userID model.UserID) (*model.Credential, error) {
	credential := &model.Credential{}
	err := sqlx.GetContext(ctx, r.ext, credential, `select * from credentials where UserID = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching credential: %w", convertError(err))
	}
	return credential, nil
}

func (r *credentials) UpdatePassword(ctx context.Context, userID model.UserID, digest string) error {
	res, err := r.ext.ExecContext(ctx, `update credentials set Password = ? where UserID = ?`, digest, userID)
	if err != nil {
		return fmt.Errorf("updating credential: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return fmt.Errorf("updating credential: %w", err)
	}
	return nil
}

func (r *credentials) Delete(ctx context.Context, userID model.UserID) error {
	_, err := r.ext.ExecContext(ctx, `delete from credentials where UserID = ?`, userID)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}
