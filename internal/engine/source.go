package engine

import (
	"io/fs"
	"os"
)

// Source supplies the raw local data for one refresh pass. Implementations
// return fs.ErrNotExist-compatible errors when a file is absent so the
// engine can tell "not installed yet" from "unreadable".
type Source interface {
	ProductDB() ([]byte, error)
	ClientConfig() ([]byte, error)
}

// FileSource reads the agent database and client config from disk. An
// empty path reads as an absent file.
type FileSource struct {
	DBPath     string
	ConfigPath string
}

// ProductDB returns the raw product database.
func (s FileSource) ProductDB() ([]byte, error) {
	return readOptional(s.DBPath)
}

// ClientConfig returns the raw client config JSON.
func (s FileSource) ClientConfig() ([]byte, error) {
	return readOptional(s.ConfigPath)
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, fs.ErrNotExist
	}
	return os.ReadFile(path)
}
