package testutil

import (
	"encoding/json"
	"io/fs"
	"sync"
)

// Source is an in-memory stand-in for the engine's file source. A fresh
// Source reports both files missing; tests install content with SetDB and
// SetConfig and can fail reads on demand.
type Source struct {
	mu     sync.Mutex
	db     []byte
	dbErr  error
	cfg    []byte
	cfgErr error
}

// NewSource returns a Source with no database and no config, as on a
// machine the client was never installed on.
func NewSource() *Source {
	return &Source{dbErr: fs.ErrNotExist, cfgErr: fs.ErrNotExist}
}

// SetDB installs raw as the product database.
func (s *Source) SetDB(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db, s.dbErr = raw, nil
}

// RemoveDB makes the product database read as missing again.
func (s *Source) RemoveDB() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db, s.dbErr = nil, fs.ErrNotExist
}

// FailDB makes product database reads fail with err.
func (s *Source) FailDB(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dbErr = err
}

// SetConfig installs raw as the client config.
func (s *Source) SetConfig(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg, s.cfgErr = raw, nil
}

// RemoveConfig makes the client config read as missing again.
func (s *Source) RemoveConfig() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg, s.cfgErr = nil, fs.ErrNotExist
}

// FailConfig makes client config reads fail with err.
func (s *Source) FailConfig(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfgErr = err
}

// ProductDB implements the engine's source contract.
func (s *Source) ProductDB() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dbErr != nil {
		return nil, s.dbErr
	}
	return s.db, nil
}

// ClientConfig implements the engine's source contract.
func (s *Source) ClientConfig() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfgErr != nil {
		return nil, s.cfgErr
	}
	return s.cfg, nil
}

// ConfigGame is one Games entry for BuildClientConfig.
type ConfigGame struct {
	UID        string
	Tag        string
	LastPlayed string
}

// BuildClientConfig renders a client config document with the given locale,
// region and game entries, shaped like the files the desktop client writes.
func BuildClientConfig(locale, region string, games ...ConfigGame) []byte {
	gameMap := make(map[string]any, len(games))
	for _, g := range games {
		gameMap[g.UID] = map[string]any{
			"ServerUid":  g.Tag,
			"LastPlayed": g.LastPlayed,
		}
	}
	doc := map[string]any{
		"User": map[string]any{
			"Client": map[string]any{"Language": locale},
		},
		"Session": map[string]any{
			"Services": map[string]any{"LastLoginRegion": region},
		},
		"Games": gameMap,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		panic("testutil: config document failed to encode: " + err.Error())
	}
	return raw
}
