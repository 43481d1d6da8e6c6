// Package identity supplies the persisted player id sent with create/join.
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrEmptyID = errors.New("empty player id")

type Provider interface {
	PlayerID() string
}

// Static always returns the same id.
type Static string

func (s Static) PlayerID() string { return string(s) }

// File keeps the player id in a small text file, creating it on first use.
type File struct {
	id string
}

func LoadFile(path string, log *zap.Logger) (*File, error) {
	if log == nil {
		log = zap.NewNop()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		id := strings.TrimSpace(string(data))
		if id == "" {
			return nil, fmt.Errorf("identity file %s: %w", path, ErrEmptyID)
		}
		return &File{id: id}, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read identity file: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create identity dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("write identity file: %w", err)
	}
	log.Info("created player identity", zap.String("path", path), zap.String("player_id", id))
	return &File{id: id}, nil
}

func (f *File) PlayerID() string { return f.id }
