package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/identity"
)

func TestRedisResolver_IssueAndResolve(t *testing.T) {
	r := makeResolver(t)

	token, err := r.IssueToken(context.Background(), "u1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := r.ResolveToken(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "u1", userID)
}

func TestRedisResolver_ResolveUnknownToken(t *testing.T) {
	r := makeResolver(t)

	_, err := r.ResolveToken(context.Background(), "nope")
	require.Error(t, err)
	require.Equal(t, errors.CodeUnauthenticated, errors.Convert(err).Code)
}

func TestRedisResolver_ResolveEmptyToken(t *testing.T) {
	r := makeResolver(t)

	_, err := r.ResolveToken(context.Background(), "")
	require.Error(t, err)
	require.Equal(t, errors.CodeUnauthenticated, errors.Convert(err).Code)
}

func TestRedisResolver_RevokeToken(t *testing.T) {
	r := makeResolver(t)

	token, err := r.IssueToken(context.Background(), "u1")
	require.NoError(t, err)

	require.NoError(t, r.RevokeToken(context.Background(), token))

	_, err = r.ResolveToken(context.Background(), token)
	require.Equal(t, errors.CodeUnauthenticated, errors.Convert(err).Code)
}

func makeResolver(t *testing.T) *identity.RedisResolver {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	return identity.NewRedisResolver(identity.Config{
		Redis:  rc,
		Prefix: "test",
	})
}
