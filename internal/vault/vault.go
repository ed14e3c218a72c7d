// internal/vault/vault.go
//
// Vault client wrapper for Formaly.
//
// Context
// -------
//   - Wraps the HashiCorp Vault Go SDK for the one job the service needs:
//     turning `vault:<mount>/<path>#<key>` configuration references into
//     plain strings before the config is validated.
//   - Reads KV-v2 secrets, caches each key for a short TTL, and keeps the
//     token alive with a lifetime watcher.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx)                       // during boot.
//  2. pw,  err := cli.Resolve(ctx, "secret/formaly#db") // via config.Load.
//
// Notes
// -----
//   - VAULT_ADDR and VAULT_TOKEN are read by the SDK's ReadEnvironment.
//   - Oxford commas, two spaces after periods.
package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// DefaultTTL is how long a resolved key stays cached.
const DefaultTTL = 5 * time.Minute

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api *vault.Client

	cacheMu sync.RWMutex
	cache   map[string]cached // path#key → value + expiry.
}

type cached struct {
	val string
	exp time.Time
}

// kv is the slice of the SDK the client uses; tests swap it.
type kv interface {
	Get(ctx context.Context, secretPath string) (*vault.KVSecret, error)
}

var kvFor = func(api *vault.Client, mount string) kv { return api.KVv2(mount) }

// New constructs a client from the environment and starts token renewal.
func New(ctx context.Context) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}

	c := &Client{api: apiCli, cache: make(map[string]cached)}
	go c.renewLoop(ctx)
	return c, nil
}

// Resolve accepts "<mount>/<path>#<key>" and returns the secret value.
// It satisfies config.SecretResolver.
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	path, key, ok := strings.Cut(ref, "#")
	if !ok {
		return "", fmt.Errorf("vault ref %q: missing #key", ref)
	}
	return c.GetKV(ctx, path, key, DefaultTTL)
}

// GetKV fetches a single key from a KV-v2 secret.  If ttl > 0 the result is
// cached for that duration.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}

	canonical := secretPath + "#" + key
	if ttl > 0 {
		c.cacheMu.RLock()
		cv, hit := c.cache[canonical]
		c.cacheMu.RUnlock()
		if hit && time.Now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	mount, rel := splitMount(secretPath)
	sec, err := kvFor(c.api, mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s is not a string", canonical)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	return sval, nil
}

// renewLoop keeps a renewable token alive until ctx ends.  Non-renewable
// tokens are left alone.
func (c *Client) renewLoop(ctx context.Context) {
	log := zap.S().With("component", "vault")
	for {
		sec, err := c.api.Auth().Token().LookupSelfWithContext(ctx)
		if err != nil {
			log.Warnw("token lookup failed", "err", err)
			if !sleep(ctx, 30*time.Second) {
				return
			}
			continue
		}
		if renewable, _ := sec.TokenIsRenewable(); !renewable {
			log.Debugw("token is not renewable")
			return
		}

		watcher, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
		if err != nil {
			log.Warnw("lifetime watcher init failed", "err", err)
			if !sleep(ctx, 30*time.Second) {
				return
			}
			continue
		}
		go watcher.Start()

		if !c.watch(ctx, watcher, log) {
			return
		}
	}
}

// watch drains watcher events.  It returns false when ctx is done.
func (c *Client) watch(ctx context.Context, w *vault.LifetimeWatcher, log *zap.SugaredLogger) bool {
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case err := <-w.DoneCh():
			if err != nil {
				log.Warnw("token renewal stopped", "err", err)
			}
			return sleep(ctx, 15*time.Second)
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				log.Debugw("token renewed", "ttl", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return mount, rel
}

// sleep waits d or until ctx ends; it reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
