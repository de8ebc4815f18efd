package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

type Option func(*sqliteStore)

// WithSessions keeps sessions in s instead of the sessions table.
func WithSessions(s Sessions) Option {
	return func(st *sqliteStore) {
		st.sessions = s
	}
}

type sqliteStore struct {
	db       *sqlx.DB
	ext      sqlx.ExtContext
	sessions Sessions
}

func Open(dsn string, opts ...Option) (*sqliteStore, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	st := &sqliteStore{db: db, ext: db}
	for _, opt := range opts {
		opt(st)
	}

	if err := st.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return st, nil
}

func (s *sqliteStore) createTables() error {
	_, err := s.db.Exec(`create table if not exists identities(
		UserID       text not null primary key,
		UserAccount  text not null unique,
		UserName     text not null unique,
		NickName     text null,
		Avatar       text null,
		Email        text null,
		Phone        text null,
		ModifiedTime DATETIME not null,
		RegisterTime DATETIME not null
	)`)
	if err != nil {
		return fmt.Errorf("creating identities table: %w", err)
	}

	_, err = s.db.Exec(`create table if not exists credentials(
		UserID   text not null primary key,
		Password text not null
	)`)
	if err != nil {
		return fmt.Errorf("creating credentials table: %w", err)
	}

	_, err = s.db.Exec(`create table if not exists sessions(
		SessionID    text not null primary key,
		AuthToken    text not null,
		UserID       text not null,
		ClientAesKey text not null,
		CreatedTime  DATETIME not null,
		ExpTime      DATETIME not null
	)`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	_, err = s.db.Exec(`create index if not exists sessions_user on sessions(UserID)`)
	if err != nil {
		return fmt.Errorf("creating sessions index: %w", err)
	}

	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) Identities() Identities {
	return &identities{s.ext}
}

func (s *sqliteStore) Credentials() Credentials {
	return &credentials{s.ext}
}

func (s *sqliteStore) Sessions() Sessions {
	if s.sessions != nil {
		return s.sessions
	}
	return &sessions{s.ext}
}

func (s *sqliteStore) WithTx(ctx context.Context, fn func(tx Store) error) (err error) {
	if _, ok := s.ext.(*sqlx.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("committing transaction: %w", err)
		}
	}()

	return fn(&sqliteStore{db: s.db, ext: tx, sessions: s.sessions})
}

func convertError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errNotFound(err)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return errDuplicate(err)
		}
	}
	return err
}

func checkAffected(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return errNotFound(sql.ErrNoRows)
	}
	return nil
}
