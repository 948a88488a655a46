// Package vault lists and reads raw documents for batch ingestion. It is a
// read-only collaborator: the ingestion pipeline decides what to do with
// each document.
package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

type Source interface {
	// List returns the document ids available in the vault.
	List(ctx context.Context) ([]string, error)
	// Read returns the raw bytes of one document.
	Read(ctx context.Context, name string) ([]byte, error)
}

type Factory func(args interface{}) (Source, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(sourceType string, args interface{}) (Source, error) {
	key := strings.ToLower(strings.TrimSpace(sourceType))
	if key == "" {
		return nil, fmt.Errorf("vault.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported vault type: %s", sourceType)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("vault config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode vault config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode vault config: %w", err)
	}
	return nil
}
