// internal/config/model.go
//
// Typed configuration model for Formaly.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                           – dotenv values,
//   • `conf/global.yaml`                        – primary static file,
//   • `FORMALY_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* validation, so the model never
// stores Vault URIs, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml`
//     tags unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	ForceHTTPS   bool          `koanf:"force_https"`
	Debug        bool          `koanf:"debug"`
}

//
// Database section
//

// Database holds the DSN template and its secret.
//
// The DSN keeps a single `%s` verb where the password goes, so operators
// can tweak host, port, or flags in YAML while the password itself comes
// from Vault (`password: vault:secret/formaly#db_password`).
type Database struct {
	DSN      string `koanf:"dsn"       validate:"required"`
	Password string `koanf:"password"`
	MaxOpen  int    `koanf:"max_open"  validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle"  validate:"gte=0"`
}

//
// Registry section
//

// Registry configures the remote field-type/preset source.  An empty
// SourceURL means the built-in table is used directly.
type Registry struct {
	SourceURL string        `koanf:"source_url" validate:"omitempty,url"`
	Timeout   time.Duration `koanf:"timeout"`
}

//
// Forms section
//

// Forms holds tunables for the public renderer and submission path.
type Forms struct {
	CSRFKey       string        `koanf:"csrf_key"`
	PublicBaseURL string        `koanf:"public_base_url" validate:"omitempty,url"`
	CacheSize     int           `koanf:"cache_size"      validate:"gte=0"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`
}

//
// Geo section
//

// Geo points at an optional GeoLite2-City database.  Empty disables lookups.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Log section
//

// Log tunes the logger.  Tee forces the console core even without a TTY.
type Log struct {
	Tee bool `koanf:"tee"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // FORMALY_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Registry Registry `koanf:"registry"`
	Forms    Forms    `koanf:"forms"`
	Geo      Geo      `koanf:"geo"`
	Log      Log      `koanf:"log"`
	Paths    Paths    `koanf:"-"`
}

// applyDefaults fills zero values that have a sensible default.
func (c *Config) applyDefaults() {
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.Database.MaxOpen == 0 {
		c.Database.MaxOpen = 15
	}
	if c.Database.MaxIdle == 0 {
		c.Database.MaxIdle = 5
	}
	if c.Registry.Timeout == 0 {
		c.Registry.Timeout = 5 * time.Second
	}
	if c.Forms.CacheSize == 0 {
		c.Forms.CacheSize = 256
	}
	if c.Forms.CacheTTL == 0 {
		c.Forms.CacheTTL = time.Minute
	}
}
