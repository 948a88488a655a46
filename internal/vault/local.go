package vault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type localConfig struct {
	Dir     string `json:"dir"`
	Pattern string `json:"pattern"`
}

type localSource struct {
	dir     string
	pattern string
}

func init() {
	Register("local", createLocalSource)
}

func createLocalSource(args interface{}) (Source, error) {
	config := &localConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("local vault dir is required")
	}
	if config.Pattern == "" {
		config.Pattern = "*"
	}
	return &localSource{dir: config.Dir, pattern: config.Pattern}, nil
}

func (s *localSource) List(ctx context.Context) ([]string, error) {
	_ = ctx
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matched, err := filepath.Match(s.pattern, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("invalid vault pattern %s: %w", s.pattern, err)
		}
		if matched {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func (s *localSource) Read(ctx context.Context, name string) ([]byte, error) {
	_ = ctx
	if strings.Contains(name, "/") || strings.Contains(name, "\\") {
		return nil, fmt.Errorf("invalid document name")
	}
	return os.ReadFile(filepath.Join(s.dir, name))
}
