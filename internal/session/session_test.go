package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.properties")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCredentials(t *testing.T) {
	path := writeFile(t, "# connection\nuser = alice\n\n! legacy comment\npassword: s3cr=t\n")
	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", creds.User())
	assert.Equal(t, "s3cr=t", creds.Password())
}

func TestLoadCredentialsEmptyPassword(t *testing.T) {
	creds, err := LoadCredentials(writeFile(t, "user=bob\npassword=\n"))
	require.NoError(t, err)
	assert.Equal(t, "bob", creds.User())
	assert.Empty(t, creds.Password())
}

func TestLoadCredentialsErrors(t *testing.T) {
	_, err := LoadCredentials(filepath.Join(t.TempDir(), "missing.properties"))
	assert.ErrorIs(t, err, ErrCredentialFileNotFound)

	_, err = LoadCredentials(t.TempDir())
	assert.ErrorIs(t, err, ErrCredentialFileUnreadable)

	_, err = LoadCredentials(writeFile(t, "password=x\n"))
	assert.ErrorIs(t, err, ErrCredentialFileUnreadable)

	_, err = LoadCredentials(writeFile(t, "user alice\n"))
	assert.ErrorIs(t, err, ErrCredentialFileUnreadable)
}

func TestInitialize(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	s := New(WithLocation(loc), WithConnectTimeout(2*time.Second))
	assert.False(t, s.Initialized())

	path := writeFile(t, "user=alice\npassword=pw\n")
	cfg, err := s.Initialize("jdbc:mysql://localhost:3306/sales", path)
	require.NoError(t, err)
	assert.True(t, s.Initialized())
	assert.Same(t, cfg, s.Config())

	opts := cfg.DriverOptions()
	assert.Equal(t, "jdbc:mysql://localhost:3306/sales", opts.URL)
	assert.Equal(t, "alice", opts.User)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, loc, opts.Location)
	assert.Equal(t, 2*time.Second, opts.ConnectTimeout)
}

func TestInitializeInvalidURL(t *testing.T) {
	s := New()
	path := writeFile(t, "user=alice\npassword=pw\n")

	_, err := s.Initialize("localhost:3306/sales", path)
	assert.ErrorIs(t, err, ErrInvalidURL)
	assert.False(t, s.Initialized())

	_, _, err = s.Acquire()
	assert.ErrorIs(t, err, ErrNotInitialized)

	// A failed re-initialize keeps the earlier config.
	first, err := s.Initialize("postgres://localhost/db", path)
	require.NoError(t, err)
	_, err = s.Initialize("oracle://x", path)
	assert.ErrorIs(t, err, ErrInvalidURL)
	assert.Same(t, first, s.Config())
}

func TestInitializeArguments(t *testing.T) {
	s := New()
	_, err := s.Initialize("", "x")
	assert.ErrorIs(t, err, ErrInvalidArguments)
	_, err = s.Initialize("mysql://h/db", " ")
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestAcquireIsExclusive(t *testing.T) {
	s := New()
	_, err := s.Initialize("sqlite:///tmp/x.db", writeFile(t, "user=u\n"))
	require.NoError(t, err)

	cfg, release, err := s.Acquire()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	_, _, err = s.Acquire()
	assert.ErrorIs(t, err, ErrQueryInProgress)

	release()
	release()

	_, release2, err := s.Acquire()
	require.NoError(t, err)
	release2()
}
