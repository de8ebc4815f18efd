package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"uk.co.dudmesh.authgate/internal/model"
)

// Expired sessions are kept this long past ExpTime so that the next lookup
// can still report them as expired before Redis drops the key.
const redisRetention = 24 * time.Hour

type redisSessions struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisSessions(client *redis.Client, prefix string) *redisSessions {
	return &redisSessions{client: client, prefix: prefix, now: time.Now}
}

func (r *redisSessions) key(sessionID model.SessionID) string {
	return r.prefix + "sess:" + string(sessionID)
}

func (r *redisSessions) userKey(userID model.UserID) string {
	return r.prefix + "sess:user:" + string(userID)
}

func (r *redisSessions) ttl(expTime time.Time) time.Duration {
	ttl := expTime.Sub(r.now()) + redisRetention
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func (r *redisSessions) Insert(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.key(session.SessionID), data, r.ttl(session.ExpTime)).Result()
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	if !ok {
		return fmt.Errorf("inserting session: %w", errDuplicate(fmt.Errorf("key %s exists", session.SessionID)))
	}

	// the user index lives as long as the session it points at
	userKey := r.userKey(session.UserID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, userKey, string(session.SessionID))
		pipe.Expire(ctx, userKey, r.ttl(session.ExpTime))
		return nil
	})
	if err != nil {
		return fmt.Errorf("indexing session: %w", err)
	}
	return nil
}

func (r *redisSessions) FindByID(ctx context.Context, sessionID model.SessionID) (*model.Session, error) {
	data, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("fetching session: %w", errNotFound(err))
		}
		return nil, fmt.Errorf("fetching session: %w", err)
	}

	session := &model.Session{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return session, nil
}

func (r *redisSessions) UpdateExpiry(ctx context.Context, sessionID model.SessionID, expTime time.Time) error {
	session, err := r.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	session.ExpTime = expTime

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	err = r.client.SetArgs(ctx, r.key(sessionID), data, redis.SetArgs{Mode: "XX", TTL: r.ttl(expTime)}).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("updating session: %w", errNotFound(err))
		}
		return fmt.Errorf("updating session: %w", err)
	}

	if err := r.client.Expire(ctx, r.userKey(session.UserID), r.ttl(expTime)).Err(); err != nil {
		return fmt.Errorf("updating session index: %w", err)
	}
	return nil
}

func (r *redisSessions) Delete(ctx context.Context, sessionID model.SessionID) error {
	session, err := r.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("deleting session: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(sessionID))
		pipe.SRem(ctx, r.userKey(session.UserID), string(sessionID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (r *redisSessions) DeleteByUserID(ctx context.Context, userID model.UserID) (int64, error) {
	userKey := r.userKey(userID)
	sessionIDs, err := r.client.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("listing sessions: %w", err)
	}

	keys := make([]string, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		keys = append(keys, r.key(model.SessionID(id)))
	}

	var deleted *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			deleted = pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("deleting sessions: %w", err)
	}

	if deleted == nil {
		return 0, nil
	}
	return deleted.Val(), nil
}
