package tokenstore

import (
	"context"
	"fmt"
	"sync"
)

// Key is the storage key of the bearer token.
const Key = "token"

// Storage backend types.
const (
	TypeMemory = "memory"
	TypeFile   = "file"
	TypeRedis  = "redis"
)

// TokenStore persists the bearer token.
//
// Get returns an empty string and a nil error when no token is stored.
type TokenStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Memory is an in-memory TokenStore.
type Memory struct {
	mu    sync.RWMutex
	token string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Get returns the stored token.
func (m *Memory) Get(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

// Set replaces the stored token.
func (m *Memory) Set(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// Clear removes the stored token.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// Config selects and configures a TokenStore backend.
type Config struct {
	// Type is the backend type: memory, file or redis (default: file)
	Type string `yaml:"type"`

	// FilePath overrides the token file location for the file backend
	FilePath string `yaml:"file_path"`

	// Redis configures the redis backend
	Redis RedisConfig `yaml:"redis"`
}

// New creates the TokenStore described by config.
func New(ctx context.Context, config Config) (TokenStore, error) {
	switch config.Type {
	case TypeMemory:
		return NewMemory(), nil
	case "", TypeFile:
		if config.FilePath != "" {
			return NewFileAt(config.FilePath), nil
		}
		return NewFile(), nil
	case TypeRedis:
		return NewRedis(ctx, config.Redis)
	default:
		return nil, fmt.Errorf("unsupported token store type %q (supported: memory, file, redis)", config.Type)
	}
}
