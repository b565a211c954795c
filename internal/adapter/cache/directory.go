package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/girrex/suivi/internal/domain"
	"github.com/girrex/suivi/internal/logger"
	"github.com/girrex/suivi/internal/ports"
)

const keyPrefix = "suivi:dir:"

// Directory is a read-through Redis cache in front of another directory. Lookups that
// fail are never cached. When Redis is unreachable it falls back to the wrapped directory.
type Directory struct {
	next   ports.Directory
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// NewDirectory wraps next with a cache whose entries live for ttl
func NewDirectory(next ports.Directory, client *redis.Client, ttl time.Duration, log logger.Logger) *Directory {
	if log == nil {
		log = logger.NewNop()
	}
	return &Directory{next: next, client: client, ttl: ttl, log: log}
}

func readThrough[T any](ctx context.Context, d *Directory, key string, load func() (T, error)) (T, error) {
	var value T

	raw, err := d.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, &value); jsonErr == nil {
			return value, nil
		}
		d.log.Warn(ctx, "discarding unreadable cache entry", map[string]interface{}{"key": key})
	case err != redis.Nil:
		d.log.Warn(ctx, "directory cache unavailable", map[string]interface{}{"key": key, "error": err.Error()})
	}

	value, err = load()
	if err != nil {
		return value, err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return value, nil
	}
	if err := d.client.Set(ctx, key, data, d.ttl).Err(); err != nil {
		d.log.Warn(ctx, "failed to fill directory cache", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return value, nil
}

func (d *Directory) ResolveRoleHolder(ctx context.Context, scopeCode, role string) (*domain.Agent, error) {
	key := fmt.Sprintf("%srole:%s:%s", keyPrefix, strings.ToUpper(scopeCode), role)
	return readThrough(ctx, d, key, func() (*domain.Agent, error) {
		return d.next.ResolveRoleHolder(ctx, scopeCode, role)
	})
}

func (d *Directory) ActiveMembers(ctx context.Context, scopeCode string) ([]domain.Agent, error) {
	key := fmt.Sprintf("%smembers:%s", keyPrefix, strings.ToUpper(scopeCode))
	return readThrough(ctx, d, key, func() ([]domain.Agent, error) {
		return d.next.ActiveMembers(ctx, scopeCode)
	})
}

func (d *Directory) FindAgent(ctx context.Context, id string) (*domain.Agent, error) {
	return readThrough(ctx, d, keyPrefix+"agent:"+id, func() (*domain.Agent, error) {
		return d.next.FindAgent(ctx, id)
	})
}

func (d *Directory) FindScope(ctx context.Context, code string) (*domain.Scope, error) {
	return readThrough(ctx, d, keyPrefix+"scope:"+strings.ToUpper(code), func() (*domain.Scope, error) {
		return d.next.FindScope(ctx, code)
	})
}

func (d *Directory) RolesOf(ctx context.Context, agentID string) ([]domain.RoleAssignment, error) {
	return readThrough(ctx, d, keyPrefix+"roles:"+agentID, func() ([]domain.RoleAssignment, error) {
		return d.next.RolesOf(ctx, agentID)
	})
}

// Invalidate drops every cached directory entry
func (d *Directory) Invalidate(ctx context.Context) error {
	return InvalidateDirectory(ctx, d.client)
}

// InvalidateDirectory drops every cached directory entry, including cached misses.
// Run it after the directory source of truth changes.
func InvalidateDirectory(ctx context.Context, client *redis.Client) error {
	iter := client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}
