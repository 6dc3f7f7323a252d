package session

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Credentials is the key/value set read from a credential file.
type Credentials map[string]string

// User returns the "user" entry.
func (c Credentials) User() string { return c["user"] }

// Password returns the "password" entry.
func (c Credentials) Password() string { return c["password"] }

// LoadCredentials reads a properties-style credential file:
//
//	user=alice
//	password=secret
//
// Blank lines and lines starting with '#' or '!' are skipped, and either
// '=' or ':' separates key from value.
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCredentialFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrCredentialFileUnreadable, err)
	}

	creds, err := parseCredentials(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCredentialFileUnreadable, path, err)
	}
	return creds, nil
}

func parseCredentials(data []byte) (Credentials, error) {
	creds := Credentials{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' || text[0] == '!' {
			continue
		}
		sep := strings.IndexAny(text, "=:")
		if sep <= 0 {
			return nil, fmt.Errorf("line %d: expected key=value", line)
		}
		key := strings.TrimSpace(text[:sep])
		creds[key] = strings.TrimSpace(text[sep+1:])
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if creds.User() == "" {
		return nil, errors.New("no user entry")
	}
	return creds, nil
}
