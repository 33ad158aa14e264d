package zonestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Store implements the content-addressed sharded JSON layout of §4.2:
// path sharding, atomic write-then-rename, delete, and the startup
// validation scan.
type Store struct {
	root string
	log  *logrus.Logger
}

// NewStore creates a Store rooted at root, expanded relative to the
// process working directory if not already absolute.
func NewStore(root string, log *logrus.Logger) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("zonestore: resolve root: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{root: abs, log: log}, nil
}

// Path returns the sharded path for domain under this store's root.
func (s *Store) Path(domain string) string {
	return PathFor(s.root, domain)
}

// Exists reports whether domain has a zone file on disk.
func (s *Store) Exists(domain string) bool {
	_, err := os.Stat(s.Path(domain))
	return err == nil
}

// Read loads and JSON-decodes the zone file for domain. It does not
// re-validate; callers needing a ResolvedZone should call Validate.
func (s *Store) Read(domain string) (Zone, error) {
	raw, err := os.ReadFile(s.Path(domain))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Zone{}, ErrNotFound
		}
		return Zone{}, fmt.Errorf("zonestore: read %s: %w", domain, err)
	}

	var zone Zone
	if err := json.Unmarshal(raw, &zone); err != nil {
		return Zone{}, validationErr("body", "malformed JSON: "+err.Error())
	}
	return zone, nil
}

// Write validates zone and atomically writes it to its sharded path,
// creating parent directories as needed (§4.2 "Atomic write").
func (s *Store) Write(domain string, zone Zone) error {
	if _, err := Validate(zone); err != nil {
		return err
	}

	path := s.Path(domain)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("zonestore: create directories for %s: %w", domain, err)
	}

	body, err := json.Marshal(zone)
	if err != nil {
		return fmt.Errorf("zonestore: marshal %s: %w", domain, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("zonestore: write temp file for %s: %w", domain, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		if errors.Is(err, fs.ErrExist) || isTargetExistsErr(err) {
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				return fmt.Errorf("zonestore: remove stale target for %s: %w", domain, rmErr)
			}
			if err := os.Rename(tmp, path); err != nil {
				return fmt.Errorf("zonestore: rename for %s: %w", domain, err)
			}
			return nil
		}
		return fmt.Errorf("zonestore: rename for %s: %w", domain, err)
	}

	return nil
}

// isTargetExistsErr covers platforms where os.Rename over an existing
// file surfaces something other than fs.ErrExist.
func isTargetExistsErr(err error) bool {
	return strings.Contains(err.Error(), "file exists") || strings.Contains(err.Error(), "already exists")
}

// Delete removes the zone file for domain. An absent file yields
// ErrNotFound, not an error (§4.2 "Delete").
func (s *Store) Delete(domain string) error {
	err := os.Remove(s.Path(domain))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("zonestore: delete %s: %w", domain, err)
	}
	return nil
}

// ScanStartup recursively enumerates *.json under root, validating each
// and logging invalid files with the reason. It never fails the boot
// sequence; invalid files are simply skipped (§4.7).
func (s *Store) ScanStartup() (valid, invalid int) {
	_ = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			s.log.WithError(err).WithField("path", path).Warn("zonestore: startup scan: read failed")
			invalid++
			return nil
		}

		var zone Zone
		if err := json.Unmarshal(raw, &zone); err != nil {
			s.log.WithError(err).WithField("path", path).Warn("zonestore: startup scan: invalid JSON")
			invalid++
			return nil
		}

		if _, err := Validate(zone); err != nil {
			s.log.WithError(err).WithField("path", path).Warn("zonestore: startup scan: schema validation failed")
			invalid++
			return nil
		}

		valid++
		return nil
	})
	return valid, invalid
}
