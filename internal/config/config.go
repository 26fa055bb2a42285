// Package config provides configuration types for the embeddable HTTP core.
//
// This schema is intentionally small: the core owns connection handling,
// parsing, routing, and the JWT/static-file subsystems named in the spec.
// It intentionally excludes collaborator concerns that the spec places out
// of scope as external:
//
//   - NO TLS certificate management (callers supply a *tls.Config)
//   - NO telemetry exporters or observability sinks (Prometheus registry is
//     the only built-in signal; wiring it to a backend is the caller's job)
//   - NO CORS-header policy (left to middleware the embedder supplies)
//   - NO CLI wrapper behavior beyond the example `serve` command
package config

import (
	"time"
)

// Config is the top-level configuration for an embedded server instance.
type Config struct {
	// Server configures the listener, connection limits, and keep-alive knobs.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// JWT configures the JWT validation/issuance subsystem (§4.10).
	JWT JWTConfig `yaml:"jwt" mapstructure:"jwt"`

	// Static configures the static-file module (§4.11). Optional: when the
	// root is empty, no static module is mounted.
	Static StaticConfig `yaml:"static" mapstructure:"static"`

	// DevMode enables verbose logging and relaxes a small number of
	// operational defaults (e.g. binding to localhost only is still the
	// default, but log level defaults to debug).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the connection lifecycle (§4.6, §4.9, §5, §6).
type ServerConfig struct {
	// Addr is the address to listen on (e.g. "127.0.0.1:8080", "0.0.0.0:8080").
	// Defaults to "127.0.0.1:8080" if empty.
	Addr string `yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level: debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// MaxRequestHeaderSize bounds the request line + header block (§4.1, §6).
	// Defaults to 16384 if zero.
	MaxRequestHeaderSize int `yaml:"max_request_header_size" mapstructure:"max_request_header_size" validate:"omitempty,min=1"`

	// MaxRequestBodySize bounds the request body, enforced by the parser
	// (§4.1) for Content-Length and chunked bodies alike. Defaults to
	// 4194304 (4 MiB) if zero.
	MaxRequestBodySize int64 `yaml:"max_request_body_size" mapstructure:"max_request_body_size" validate:"omitempty,min=1"`

	// ListenBacklog defaults to 1024 if zero. The listeners do not apply
	// it: sockets are opened through net.ListenConfig, which uses the OS
	// default backlog.
	ListenBacklog int `yaml:"listen_backlog" mapstructure:"listen_backlog" validate:"omitempty,min=1"`

	// ReceiveBufferSize is the size of each read() call's buffer (§4.6).
	// Defaults to 4096 if zero.
	ReceiveBufferSize int `yaml:"receive_buffer_size" mapstructure:"receive_buffer_size" validate:"omitempty,min=1"`

	// ReuseAddress sets SO_REUSEADDR on the listening socket.
	ReuseAddress bool `yaml:"reuse_address" mapstructure:"reuse_address"`

	// ExclusiveAddressUse and ReuseAddress are mutually exclusive; enforced
	// by Config.Validate.
	ExclusiveAddressUse bool `yaml:"exclusive_address_use" mapstructure:"exclusive_address_use"`

	// ReusePort must be true when AcceptPerCore is set (Config.Validate).
	// The flag is not applied on its own: SO_REUSEPORT is set only by the
	// AcceptPerCore listener path.
	ReusePort bool `yaml:"reuse_port" mapstructure:"reuse_port"`

	// DualMode is not read by the listeners; a "tcp" listener on an IPv6
	// wildcard address follows the platform's default dual-stack behaviour
	// whatever its value.
	DualMode bool `yaml:"dual_mode" mapstructure:"dual_mode"`

	// TCPNoDelay disables Nagle's algorithm on accepted connections.
	TCPNoDelay bool `yaml:"tcp_no_delay" mapstructure:"tcp_no_delay"`

	// TCPKeepAlive enables OS-level TCP keep-alive probes.
	TCPKeepAlive bool `yaml:"tcp_keep_alive" mapstructure:"tcp_keep_alive"`

	// TCPKeepAliveTime is the idle duration before the first probe.
	TCPKeepAliveTime string `yaml:"tcp_keep_alive_time" mapstructure:"tcp_keep_alive_time" validate:"omitempty"`

	// TCPKeepAliveInterval is the duration between probes.
	TCPKeepAliveInterval string `yaml:"tcp_keep_alive_interval" mapstructure:"tcp_keep_alive_interval" validate:"omitempty"`

	// TCPKeepAliveRetryCount is the number of unanswered probes before the
	// connection is considered dead.
	TCPKeepAliveRetryCount int `yaml:"tcp_keep_alive_retry_count" mapstructure:"tcp_keep_alive_retry_count" validate:"omitempty,min=1"`

	// AcceptPerCore spawns one acceptor goroutine per logical CPU, each
	// sharing the listening socket via SO_REUSEPORT (Linux only; §4.9).
	AcceptPerCore bool `yaml:"accept_per_core" mapstructure:"accept_per_core"`

	// SessionTimeout is the idle duration after which a connection is
	// closed by the sweeper (§4.9, §5). SetDefaults turns an empty value
	// into "2m"; "0" disables the sweeper.
	SessionTimeout string `yaml:"session_timeout" mapstructure:"session_timeout" validate:"omitempty"`
}

// JWTConfig configures the JWT subsystem (§4.10, §6).
type JWTConfig struct {
	// Secret is the HMAC-SHA-256 signing key. Required if the subsystem is
	// used (callers may also supply one programmatically).
	Secret string `yaml:"secret" mapstructure:"secret"`

	// Skew is the clock-skew tolerance applied to exp/nbf validation.
	// Defaults to "30s" if empty.
	Skew string `yaml:"skew" mapstructure:"skew" validate:"omitempty"`

	// Issuer is the expected `iss` claim. Empty disables issuer validation.
	Issuer string `yaml:"issuer" mapstructure:"issuer"`

	// ValidateExp, ValidateNbf, ValidateIssuer toggle the corresponding checks.
	ValidateExp    bool `yaml:"validate_exp" mapstructure:"validate_exp"`
	ValidateNbf    bool `yaml:"validate_nbf" mapstructure:"validate_nbf"`
	ValidateIssuer bool `yaml:"validate_issuer" mapstructure:"validate_issuer"`
}

// StaticConfig configures the static-file module (§4.11).
type StaticConfig struct {
	// Root is the filesystem directory served. Empty disables the module.
	Root string `yaml:"root" mapstructure:"root"`

	// URLPrefix is the URL path prefix routed to this module.
	// Defaults to "/" if Root is set and this is empty.
	URLPrefix string `yaml:"url_prefix" mapstructure:"url_prefix"`

	// CacheTTL is how long a cached entry is served without a filesystem
	// re-check, independent of watcher invalidation. Empty disables the
	// time-based expiry (cache still respects watcher events and limits).
	CacheTTL string `yaml:"cache_ttl" mapstructure:"cache_ttl" validate:"omitempty"`

	// MaxCachedFileBytes is the largest single file that may be cached;
	// larger files are always streamed from disk. Defaults to 1048576 (1 MiB).
	MaxCachedFileBytes int64 `yaml:"max_cached_file_bytes" mapstructure:"max_cached_file_bytes" validate:"omitempty,min=1"`

	// MaxTotalCacheBytes bounds the cache's aggregate size. Defaults to
	// 67108864 (64 MiB).
	MaxTotalCacheBytes int64 `yaml:"max_total_cache_bytes" mapstructure:"max_total_cache_bytes" validate:"omitempty,min=1"`

	// MaxCacheEntries bounds the cache's entry count. Defaults to 1024.
	MaxCacheEntries int `yaml:"max_cache_entries" mapstructure:"max_cache_entries" validate:"omitempty,min=1"`

	// AutoIndex enables directory-listing rendering when no default
	// document is present.
	AutoIndex bool `yaml:"auto_index" mapstructure:"auto_index"`

	// DefaultDocument is tried before auto-index or 404 for directory
	// requests. Defaults to "index.html".
	DefaultDocument string `yaml:"default_document" mapstructure:"default_document"`
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8080"
	}
	if c.Server.LogLevel == "" {
		if c.DevMode {
			c.Server.LogLevel = "debug"
		} else {
			c.Server.LogLevel = "info"
		}
	}
	if c.Server.MaxRequestHeaderSize == 0 {
		c.Server.MaxRequestHeaderSize = 16384
	}
	if c.Server.MaxRequestBodySize == 0 {
		c.Server.MaxRequestBodySize = 4 << 20
	}
	if c.Server.ListenBacklog == 0 {
		c.Server.ListenBacklog = 1024
	}
	if c.Server.ReceiveBufferSize == 0 {
		c.Server.ReceiveBufferSize = 4096
	}
	if c.Server.SessionTimeout == "" {
		c.Server.SessionTimeout = "2m"
	}
	if c.Server.TCPKeepAliveTime == "" {
		c.Server.TCPKeepAliveTime = "15s"
	}
	if c.Server.TCPKeepAliveInterval == "" {
		c.Server.TCPKeepAliveInterval = "15s"
	}
	if c.Server.TCPKeepAliveRetryCount == 0 {
		c.Server.TCPKeepAliveRetryCount = 3
	}

	if c.JWT.Skew == "" {
		c.JWT.Skew = "30s"
	}

	if c.Static.Root != "" {
		if c.Static.URLPrefix == "" {
			c.Static.URLPrefix = "/"
		}
		if c.Static.MaxCachedFileBytes == 0 {
			c.Static.MaxCachedFileBytes = 1 << 20
		}
		if c.Static.MaxTotalCacheBytes == 0 {
			c.Static.MaxTotalCacheBytes = 64 << 20
		}
		if c.Static.MaxCacheEntries == 0 {
			c.Static.MaxCacheEntries = 1024
		}
		if c.Static.DefaultDocument == "" {
			c.Static.DefaultDocument = "index.html"
		}
	}
}

// SessionTimeoutDuration parses ServerConfig.SessionTimeout, returning 0
// (sweeper disabled) when empty or "0".
func (c *ServerConfig) SessionTimeoutDuration() (time.Duration, error) {
	if c.SessionTimeout == "" || c.SessionTimeout == "0" {
		return 0, nil
	}
	return time.ParseDuration(c.SessionTimeout)
}

// SkewDuration parses JWTConfig.Skew, defaulting to 30s on empty input.
func (j *JWTConfig) SkewDuration() (time.Duration, error) {
	if j.Skew == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(j.Skew)
}
