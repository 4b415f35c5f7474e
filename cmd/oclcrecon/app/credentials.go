package app

import (
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/catalogops/oclcrecon/internal/worldcat"
	"github.com/catalogops/oclcrecon/pkg/errors"
)

// credentialDocument is the on-disk shape of the credential cache.
type credentialDocument struct {
	WorldCat worldcat.Credential `yaml:"worldcat"`
}

// FileCredentialStore persists the WorldCat bearer credential as a YAML
// file so a still-valid token survives between runs.
type FileCredentialStore struct {
	path string
}

// NewFileCredentialStore creates a store backed by the given file path.
func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: path}
}

// Load reads the cached credential. A missing file is not an error; it just
// means the first request of the run will fetch a fresh token.
func (s *FileCredentialStore) Load() (worldcat.Credential, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return worldcat.Credential{}, nil
	}
	if err != nil {
		return worldcat.Credential{}, &errors.ConfigError{Key: "credential_file", Message: "failed to read credential cache", Err: err}
	}

	var doc credentialDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return worldcat.Credential{}, &errors.ConfigError{Key: "credential_file", Message: "malformed credential cache", Err: err}
	}
	return doc.WorldCat, nil
}

// SaveCredential implements worldcat.CredentialStore. The file is written
// owner-readable only, since it holds a live bearer token.
func (s *FileCredentialStore) SaveCredential(cred worldcat.Credential) error {
	data, err := yaml.Marshal(credentialDocument{WorldCat: cred})
	if err != nil {
		return &errors.ConfigError{Key: "credential_file", Message: "failed to encode credential cache", Err: err}
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &errors.ConfigError{Key: "credential_file", Message: "failed to create credential cache directory", Err: err}
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return &errors.ConfigError{Key: "credential_file", Message: "failed to write credential cache", Err: err}
	}
	return nil
}
