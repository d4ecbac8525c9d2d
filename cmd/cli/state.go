package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"go.uber.org/zap"

	"karmasri/internal/portal"
	"karmasri/internal/snapshot"
)

type tokenData struct {
	Token string `json:"token"`
	PEN   string `json:"pen,omitempty"`
}

func tokenPath() (string, error) {
	return xdg.ConfigFile(filepath.Join("karmasri", "token.json"))
}

func snapshotDir() string {
	return filepath.Join(xdg.CacheHome, "karmasri", "snapshot")
}

func saveToken(path string, td tokenData) error {
	if td.Token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(td, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (tokenData, error) {
	var td tokenData
	data, err := os.ReadFile(path)
	if err != nil {
		return td, err
	}
	if err := json.Unmarshal(data, &td); err != nil {
		return td, err
	}
	td.Token = strings.TrimSpace(td.Token)
	return td, nil
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func newLogger() *zap.Logger {
	if !debug {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// session is an opened client plus the resources to release afterwards.
type session struct {
	*portal.Client
	cache *snapshot.Cache
}

func (s *session) Close() {
	if s.cache != nil {
		_ = s.cache.Close()
	}
	_ = s.Log.Sync()
}

// openSession builds a client from the flags and the stored token. With
// requireLogin it fails when no token is stored.
func openSession(requireLogin bool) (*session, error) {
	log := newLogger()

	cache, err := snapshot.Open(snapshot.Config{Path: snapshotDir(), TTL: 12 * time.Hour, Log: log})
	if err != nil {
		// the snapshot is an optimisation; work without it
		log.Warn("snapshot unavailable", zap.Error(err))
		cache = nil
	}

	c := portal.NewClient(apiURL, cache, log)
	c.OfficerID = officerID

	path, err := tokenPath()
	if err != nil {
		return nil, fmt.Errorf("token path: %w", err)
	}
	td, err := readToken(path)
	switch {
	case err == nil:
		c.Token = td.Token
	case errors.Is(err, os.ErrNotExist):
	default:
		log.Warn("unreadable token file", zap.String("path", path), zap.Error(err))
	}
	s := &session{Client: c, cache: cache}
	if requireLogin && c.Token == "" {
		s.Close()
		return nil, errors.New("not logged in, run `karmasri login` first")
	}
	return s, nil
}

func websocketURL(baseURL, path string, query url.Values) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme:   scheme,
		Host:     u.Host,
		Path:     path,
		RawQuery: query.Encode(),
	}).String(), nil
}
