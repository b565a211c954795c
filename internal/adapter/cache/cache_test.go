package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/girrex/suivi/internal/adapter/memory"
	"github.com/girrex/suivi/internal/domain"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	return server, client
}

func TestDirectory_ReadThrough(t *testing.T) {
	server, client := newRedis(t)
	ctx := context.Background()

	backing := memory.NewDirectory()
	backing.AddScope(domain.Scope{Code: "LFBO", Name: "Toulouse", Active: true})
	backing.AddAgent(domain.Agent{ID: "chef", DisplayName: "Chef", Active: true})
	backing.Assign(domain.RoleAssignment{AgentID: "chef", ScopeCode: "LFBO", Role: domain.RoleScopeLead, Active: true})

	dir := NewDirectory(backing, client, time.Minute, nil)

	agent, err := dir.ResolveRoleHolder(ctx, "lfbo", domain.RoleScopeLead)
	require.NoError(t, err)
	require.NotNil(t, agent)
	assert.Equal(t, "chef", agent.ID)
	assert.True(t, server.Exists("suivi:dir:role:LFBO:CHEF_CENTRE"))

	// later changes in the backing directory are hidden until the entry expires
	backing.AddAgent(domain.Agent{ID: "chef", DisplayName: "Renamed", Active: true})
	agent, err = dir.ResolveRoleHolder(ctx, "LFBO", domain.RoleScopeLead)
	require.NoError(t, err)
	assert.Equal(t, "Chef", agent.DisplayName)

	server.FastForward(2 * time.Minute)
	agent, err = dir.ResolveRoleHolder(ctx, "LFBO", domain.RoleScopeLead)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", agent.DisplayName)
}

func TestDirectory_CachesMissingHolderButNotErrors(t *testing.T) {
	server, client := newRedis(t)
	ctx := context.Background()
	dir := NewDirectory(memory.NewDirectory(), client, time.Minute, nil)

	agent, err := dir.ResolveRoleHolder(ctx, "LFRR", domain.RoleScopeLead)
	require.NoError(t, err)
	assert.Nil(t, agent)
	assert.True(t, server.Exists("suivi:dir:role:LFRR:CHEF_CENTRE"))

	_, err = dir.FindAgent(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)
	assert.False(t, server.Exists("suivi:dir:agent:ghost"))
}

func TestDirectory_FallsBackWhenRedisIsDown(t *testing.T) {
	server, client := newRedis(t)
	backing := memory.NewDirectory()
	backing.AddScope(domain.Scope{Code: "LFBO", Active: true})
	dir := NewDirectory(backing, client, time.Minute, nil)

	server.Close()

	scope, err := dir.FindScope(context.Background(), "LFBO")
	require.NoError(t, err)
	assert.Equal(t, "LFBO", scope.Code)
}

func TestDirectory_Invalidate(t *testing.T) {
	server, client := newRedis(t)
	ctx := context.Background()
	backing := memory.NewDirectory()
	backing.AddScope(domain.Scope{Code: "LFBO", Active: true})
	dir := NewDirectory(backing, client, time.Minute, nil)

	_, err := dir.FindScope(ctx, "LFBO")
	require.NoError(t, err)
	require.NoError(t, server.Set("unrelated", "1"))

	require.NoError(t, dir.Invalidate(ctx))
	assert.False(t, server.Exists("suivi:dir:scope:LFBO"))
	assert.True(t, server.Exists("unrelated"))
}

func TestInvalidateDirectory_ClearsCachedMiss(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()
	backing := memory.NewDirectory()
	backing.AddScope(domain.Scope{Code: "LFRR", Active: true})
	dir := NewDirectory(backing, client, time.Hour, nil)

	holder, err := dir.ResolveRoleHolder(ctx, "LFRR", domain.RoleScopeLead)
	require.NoError(t, err)
	assert.Nil(t, holder)

	// the directory is reseeded behind the cache
	backing.AddAgent(domain.Agent{ID: "chef", Active: true})
	backing.Assign(domain.RoleAssignment{AgentID: "chef", ScopeCode: "LFRR", Role: domain.RoleScopeLead, Active: true})

	holder, err = dir.ResolveRoleHolder(ctx, "LFRR", domain.RoleScopeLead)
	require.NoError(t, err)
	assert.Nil(t, holder, "the miss is still cached")

	require.NoError(t, InvalidateDirectory(ctx, client))

	holder, err = dir.ResolveRoleHolder(ctx, "LFRR", domain.RoleScopeLead)
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, "chef", holder.ID)
}

func TestRateLimiter_Allow(t *testing.T) {
	server, client := newRedis(t)
	ctx := context.Background()
	limiter := NewRateLimiter(client, 2, time.Minute)

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := limiter.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = limiter.Allow(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	server.FastForward(time.Minute + time.Second)
	ok, err = limiter.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}
