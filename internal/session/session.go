// Package session holds the connection parameters established by
// initialize and shared by every later query.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"sqlbridge/internal/driver"
)

var (
	ErrInvalidArguments         = errors.New("invalid arguments")
	ErrInvalidURL               = errors.New("invalid connection URL")
	ErrCredentialFileNotFound   = errors.New("credential file not found")
	ErrCredentialFileUnreadable = errors.New("credential file unreadable")
	ErrNotInitialized           = errors.New("connection has not been initialized, run initialize first")
	ErrQueryInProgress          = errors.New("another query is already running")
)

// Config is an immutable snapshot of the session parameters. A new
// Initialize replaces it; queries already holding one keep theirs.
type Config struct {
	URL            string
	Credentials    Credentials
	Location       *time.Location
	ConnectTimeout time.Duration
}

// DriverOptions converts the config into options for driver.Open.
func (c *Config) DriverOptions() driver.Options {
	return driver.Options{
		URL:            c.URL,
		User:           c.Credentials.User(),
		Password:       c.Credentials.Password(),
		Location:       c.Location,
		ConnectTimeout: c.ConnectTimeout,
	}
}

// Option customizes a Session.
type Option func(*Session)

// WithLocation sets the zone zoned date/time values are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(s *Session) { s.location = loc }
}

// WithConnectTimeout hands a dial timeout to the driver.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Session) { s.connectTimeout = d }
}

// Session is the long-lived holder of the current Config. Queries run one
// at a time; Acquire enforces that.
type Session struct {
	mu             sync.RWMutex
	cfg            *Config
	sem            *semaphore.Weighted
	location       *time.Location
	connectTimeout time.Duration
}

func New(opts ...Option) *Session {
	s := &Session{sem: semaphore.NewWeighted(1)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize validates url, loads the credential file and installs the
// resulting Config. On failure the previous Config stays in place.
func (s *Session) Initialize(url, credentialPath string) (*Config, error) {
	url = strings.TrimSpace(url)
	credentialPath = strings.TrimSpace(credentialPath)
	if url == "" || credentialPath == "" {
		return nil, fmt.Errorf("%w: initialize needs a URL and a credential file", ErrInvalidArguments)
	}
	if !driver.Supported(url) {
		return nil, fmt.Errorf("%w: %q must start with one of %s",
			ErrInvalidURL, url, strings.Join(driver.Schemes(), ", "))
	}

	creds, err := LoadCredentials(credentialPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		URL:            url,
		Credentials:    creds,
		Location:       s.location,
		ConnectTimeout: s.connectTimeout,
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	slog.Info("Session initialized", "user", creds.User(), "url", url)
	return cfg, nil
}

// Config returns the current config, or nil before the first successful
// Initialize.
func (s *Session) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Initialized reports whether a Config is installed.
func (s *Session) Initialized() bool {
	return s.Config() != nil
}

// Acquire reserves the session for one query and returns the config to use.
// The caller must call release when the query is finished.
func (s *Session) Acquire() (cfg *Config, release func(), err error) {
	cfg = s.Config()
	if cfg == nil {
		return nil, nil, ErrNotInitialized
	}
	if !s.sem.TryAcquire(1) {
		return nil, nil, ErrQueryInProgress
	}
	var once sync.Once
	return cfg, func() { once.Do(func() { s.sem.Release(1) }) }, nil
}
