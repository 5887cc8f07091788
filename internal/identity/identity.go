package identity

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/livequiz/internal/errors"
)

const defaultTokenTTL = 24 * time.Hour

// Resolver maps a caller's session token to a user identifier.
type Resolver interface {
	ResolveToken(ctx context.Context, token string) (string, error)
}

type Config struct {
	Redis    redis.UniversalClient
	Prefix   string
	TokenTTL time.Duration
}

// RedisResolver stores issued tokens as keys with a TTL.
type RedisResolver struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisResolver(c Config) *RedisResolver {
	ttl := c.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return &RedisResolver{
		redis:  c.Redis,
		prefix: c.Prefix,
		ttl:    ttl,
	}
}

// IssueToken creates a fresh session token for the user.
func (r *RedisResolver) IssueToken(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	if err := r.redis.Set(ctx, r.tokenKey(token), userID, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("identity: store token: %w", err)
	}

	return token, nil
}

func (r *RedisResolver) ResolveToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("missing session token"))
	}

	userID, err := r.redis.Get(ctx, r.tokenKey(token)).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid session token"))
	}
	if err != nil {
		return "", fmt.Errorf("identity: resolve token: %w", err)
	}

	return userID, nil
}

func (r *RedisResolver) RevokeToken(ctx context.Context, token string) error {
	if err := r.redis.Del(ctx, r.tokenKey(token)).Err(); err != nil {
		return fmt.Errorf("identity: revoke token: %w", err)
	}

	return nil
}

func (r *RedisResolver) tokenKey(token string) string {
	return fmt.Sprintf("%s:token:%s", r.prefix, token)
}
