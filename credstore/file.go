package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/icontact-sdk/client-go/internal/crypto"
)

// ErrSealed is returned when a sealed file is read without a key.
var ErrSealed = errors.New("credential file is sealed; a key is required")

const sealAAD = "icontact-session"

// fileContents is the on-disk form. Exactly one of Session and Sealed is set.
type fileContents struct {
	Session   *Session              `json:"session,omitempty"`
	Sealed    *crypto.SealedPayload `json:"sealed,omitempty"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// File stores the session in a JSON file with 0600 permissions. Writes go
// through a temporary file and a rename, so readers never see a partial
// file.
type File struct {
	path string
	key  *Key
	mu   sync.Mutex
}

// NewFile returns a store backed by path. When key is not nil the session
// is sealed to it.
func NewFile(path string, key *Key) *File {
	return &File{path: path, key: key}
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Credentials reads the stored session. A missing file yields an empty
// session.
func (f *File) Credentials(ctx context.Context) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("read credentials: %w", err)
	}

	var contents fileContents
	if err := json.Unmarshal(data, &contents); err != nil {
		return Session{}, fmt.Errorf("parse credentials: %w", err)
	}

	switch {
	case contents.Sealed != nil:
		if f.key == nil {
			return Session{}, ErrSealed
		}
		plaintext, err := f.key.open(contents.Sealed)
		if err != nil {
			return Session{}, fmt.Errorf("open credentials: %w", err)
		}
		var s Session
		if err := json.Unmarshal(plaintext, &s); err != nil {
			return Session{}, fmt.Errorf("parse sealed credentials: %w", err)
		}
		return s, nil
	case contents.Session != nil:
		return *contents.Session, nil
	default:
		return Session{}, nil
	}
}

// SetCredentials writes s, replacing the previous session.
func (f *File) SetCredentials(ctx context.Context, s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	contents := fileContents{UpdatedAt: time.Now().UTC()}
	if f.key != nil {
		plaintext, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal credentials: %w", err) //coverage:ignore
		}
		sealed, err := f.key.seal(plaintext)
		if err != nil {
			return fmt.Errorf("seal credentials: %w", err)
		}
		contents.Sealed = sealed
	} else {
		contents.Session = &s
	}

	data, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err) //coverage:ignore
	}

	return writeFileAtomic(f.path, data)
}

// Clear removes the file.
func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}
