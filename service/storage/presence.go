package storage

import (
	"context"
	"time"

	"HelpLink/tools/errs"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// presence key: hl:presence:<user>
// Value is the gateway node id; the TTL bounds the online validity window.
func presenceKey(user string) string { return "hl:presence:" + user }

// PresenceOnline marks the user online and renews the TTL.
func PresenceOnline(ctx context.Context, user, nodeID string, ttl time.Duration) error {
	c := client()
	if c == nil {
		return errs.New("redis not initialized")
	}
	return c.Set(ctx, presenceKey(user), nodeID, ttl).Err()
}

// PresenceOffline deletes the mark.
func PresenceOffline(ctx context.Context, user string) error {
	c := client()
	if c == nil {
		return errs.New("redis not initialized")
	}
	return c.Del(ctx, presenceKey(user)).Err()
}

// PresenceLookup reports whether the user is marked online and on which node.
func PresenceLookup(ctx context.Context, user string) (nodeID string, online bool, err error) {
	c := client()
	if c == nil {
		return "", false, errs.New("redis not initialized")
	}
	val, err := c.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
