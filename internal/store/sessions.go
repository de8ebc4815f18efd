package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"uk.co.dudmesh.authgate/internal/model"
)

type sessions struct {
	ext sqlx.ExtContext
}

func (r *sessions) Insert(ctx context.Context, session *model.Session) error {
	_, err := sqlx.NamedExecContext(ctx, r.ext, `insert into sessions
		(SessionID, AuthToken, UserID, ClientAesKey, CreatedTime, ExpTime)
		values(:SessionID, :AuthToken, :UserID, :ClientAesKey, :CreatedTime, :ExpTime)`, session)
	if err != nil {
		return fmt.Errorf("inserting session: %w", convertError(err))
	}
	return nil
}

func (r *sessions) FindByID(ctx context.Context, sessionID model.SessionID) (*model.Session, error) {
	session := &model.Session{}
	err := sqlx.GetContext(ctx, r.ext, session, `select * from sessions where SessionID = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetching session: %w", convertError(err))
	}
	return session, nil
}

func (r *sessions) UpdateExpiry(ctx context.Context, sessionID model.SessionID, expTime time.Time) error {
	res, err := r.ext.ExecContext(ctx, `update sessions set ExpTime = ? where SessionID = ?`, expTime, sessionID)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	return nil
}

func (r *sessions) Delete(ctx context.Context, sessionID model.SessionID) error {
	_, err := r.ext.ExecContext(ctx, `delete from sessions where SessionID = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (r *sessions) DeleteByUserID(ctx context.Context, userID model.UserID) (int64, error) {
	res, err := r.ext.ExecContext(ctx, `delete from sessions where UserID = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return n, nil
}
