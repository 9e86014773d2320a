package credential

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// FileSource loads account JSON files from a directory. One file per
// account, in the antigravity on-disk format (refresh_token, project_id,
// email, expiry_date in unix ms).
type FileSource struct {
	dir string
}

// NewFileSource builds a source over dir. The caller expands ~ first.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: filepath.Clean(dir)}
}

// Dir returns the backing directory.
func (s *FileSource) Dir() string { return s.dir }

// Load reads every *.json file in the directory. Unreadable or malformed
// files are skipped with a warning so one bad file cannot empty the pool.
func (s *FileSource) Load() ([]*Account, error) {
	if s.dir == "" {
		return nil, fmt.Errorf("account directory not configured")
	}
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read account directory: %w", err)
	}

	var accounts []*Account
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, file.Name()))
		if err != nil {
			log.WithError(err).Warnf("account source: failed to read %s", file.Name())
			continue
		}
		var acct Account
		if err := json.Unmarshal(data, &acct); err != nil {
			log.WithError(err).Warnf("account source: failed to parse %s", file.Name())
			continue
		}
		if acct.RefreshToken == "" && acct.AccessToken == "" {
			log.Warnf("account source: %s has no tokens, skipping", file.Name())
			continue
		}
		acct.ID = file.Name()
		if acct.Email == "" {
			acct.Email = strings.TrimSuffix(file.Name(), ".json")
		}
		acct.init()
		accounts = append(accounts, &acct)
	}
	return accounts, nil
}

// Save writes the account back, preserving the on-disk format. Called
// after a token refresh so restarts keep fresh tokens.
func (s *FileSource) Save(acct *Account) error {
	if acct == nil || acct.ID == "" {
		return fmt.Errorf("account id is required")
	}
	acct.mu.Lock()
	acct.ExpiryTimestamp = acct.ExpiresAt.UnixMilli()
	data, err := json.MarshalIndent(acct, "", "  ")
	acct.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal account %s: %w", acct.Email, err)
	}
	path := filepath.Join(s.dir, acct.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write account %s: %w", acct.Email, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename account %s: %w", acct.Email, err)
	}
	return nil
}
