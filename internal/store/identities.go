package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"uk.co.dudmesh.authgate/internal/model"
)

type identities struct {
	ext sqlx.ExtContext
}

func (r *identities) Insert(ctx context.Context, identity *model.Identity) error {
	_, err := sqlx.NamedExecContext(ctx, r.ext, `insert into identities
		(UserID, UserAccount, UserName, NickName, Avatar, Email, Phone, ModifiedTime, RegisterTime)
		values(:UserID, :UserAccount, :UserName, :NickName, :Avatar, :Email, :Phone, :ModifiedTime, :RegisterTime)`, identity)
	if err != nil {
		return fmt.Errorf("inserting identity: %w", convertError(err))
	}
	return nil
}

func (r *identities) FindOne(ctx context.Context, field model.IdentityField, value string) (*model.Identity, error) {
	switch field {
	case model.IdentityByUserID, model.IdentityByUserName, model.IdentityByUserAccount:
	default:
		return nil, fmt.Errorf("unknown identity field %q", field)
	}

	identity := &model.Identity{}
	err := sqlx.GetContext(ctx, r.ext, identity, `select * from identities where `+string(field)+` = ?`, value)
	if err != nil {
		return nil, fmt.Errorf("fetching identity: %w", convertError(err))
	}
	return identity, nil
}

func (r *identities) Update(ctx context.Context, userID model.UserID, patch *model.ProfilePatch, modifiedTime time.Time) (*model.Identity, error) {
	cols := patch.Columns()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := []string{"ModifiedTime = ?"}
	args := []any{modifiedTime}
	for _, name := range names {
		sets = append(sets, name+" = ?")
		args = append(args, cols[name])
	}
	args = append(args, userID)

	res, err := r.ext.ExecContext(ctx, `update identities set `+strings.Join(sets, ", ")+` where UserID = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("updating identity: %w", convertError(err))
	}
	if err := checkAffected(res); err != nil {
		return nil, fmt.Errorf("updating identity: %w", err)
	}

	return r.FindOne(ctx, model.IdentityByUserID, string(userID))
}

func (r *identities) Delete(ctx context.Context, userID model.UserID) error {
	_, err := r.ext.ExecContext(ctx, `delete from identities where UserID = ?`, userID)
	if err != nil {
		return fmt.Errorf("deleting identity: %w", err)
	}
	return nil
}
