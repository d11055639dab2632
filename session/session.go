// Package session builds the gorilla/sessions store that carries carts,
// shipping quotes, chat session ids and the social-login handshake.
package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/sessions"
)

// Options configures the session store
type Options struct {
	Secret        []byte
	MaxAge        int
	Secure        bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func (o Options) cookieOptions() *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   o.MaxAge,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// NewStore returns a Redis-backed store when RedisAddr is set and a signed
// cookie store otherwise. The returned close function releases resources.
func NewStore(ctx context.Context, opts Options) (sessions.Store, func() error, error) {
	if opts.RedisAddr == "" {
		store := sessions.NewCookieStore(opts.Secret)
		store.Options = opts.cookieOptions()
		store.MaxAge(opts.MaxAge)
		return store, func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	store := NewRedisStore(client, opts.Secret)
	store.Options = opts.cookieOptions()
	store.MaxAge(opts.MaxAge)
	return store, client.Close, nil
}
