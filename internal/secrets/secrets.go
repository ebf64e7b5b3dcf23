// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads LLM provider API keys from a directory of plain-text
// files. Each file in the directory represents one secret: the filename is
// the key name and the file contents (trimmed) are the value. Environment
// variables fill in keys that have no file.
//
// Supported key files: openai-api-key, anthropic-api-key.
package secrets

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// ErrMissingKey is returned when no key is configured for a provider.
var ErrMissingKey = errors.New("no API key configured")

// keySources maps each provider to its key file name and environment variable.
var keySources = map[types.Provider]struct{ file, env string }{
	types.ProviderOpenAI:    {"openai-api-key", "OPENAI_API_KEY"},
	types.ProviderAnthropic: {"anthropic-api-key", "ANTHROPIC_API_KEY"},
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, logger *slog.Logger) (map[string]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Keyring supplies per-run credentials. Keys stay in memory; nothing here
// writes them anywhere.
type Keyring struct {
	files  map[string]string
	getenv func(string) string
}

// NewKeyring loads key files from dir and falls back to the process
// environment for providers without one.
func NewKeyring(dir string, logger *slog.Logger) (*Keyring, error) {
	files, err := Load(dir, logger)
	if err != nil {
		return nil, err
	}
	return &Keyring{files: files, getenv: os.Getenv}, nil
}

// Credential returns the credential for provider. The returned credential
// always names the provider; its key is empty when err wraps ErrMissingKey.
func (k *Keyring) Credential(provider types.Provider) (types.Credential, error) {
	src, ok := keySources[provider]
	if !ok {
		return types.Credential{}, fmt.Errorf("unsupported provider %q", provider)
	}
	cred := types.Credential{Provider: provider}
	if v := k.files[src.file]; v != "" {
		cred.APIKey = v
		return cred, nil
	}
	if k.getenv != nil {
		if v := strings.TrimSpace(k.getenv(src.env)); v != "" {
			cred.APIKey = v
			return cred, nil
		}
	}
	return cred, fmt.Errorf("%s (file %s or env %s): %w", provider, src.file, src.env, ErrMissingKey)
}

// Names returns the sorted names of loaded key files.
func (k *Keyring) Names() []string {
	names := make([]string, 0, len(k.files))
	for name := range k.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
