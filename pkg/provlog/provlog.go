// Package provlog persists per-spec provisioning outcomes. Each spec
// gets one record file, flushed durably before the installer moves
// on, so a crash mid-run loses at most the in-flight record. The
// store is guarded by an exclusive advisory lock: only one run may be
// active against it at a time.
package provlog

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/logging"
	"github.com/arthur-debert/sysup/pkg/paths"
	"github.com/arthur-debert/sysup/pkg/types"
)

const recordExt = ".toml"

// Store is the filesystem-backed provision log.
type Store struct {
	recordsDir string
	lockPath   string
	lock       *flock.Flock
}

// New creates a store rooted at the sysup state directory.
func New(p *paths.Paths) *Store {
	return &Store{
		recordsDir: p.RecordsDir(),
		lockPath:   p.LockFilePath(),
	}
}

// AcquireLock takes the exclusive run lock. A held lock means another
// run is active, which fails fast with a concurrent-run error.
func (s *Store) AcquireLock() error {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0755); err != nil {
		return errors.Wrap(err, errors.ErrStateWrite, "failed to create state directory")
	}

	s.lock = flock.New(s.lockPath)
	locked, err := s.lock.TryLock()
	if err != nil {
		return errors.Wrap(err, errors.ErrStateWrite, "failed to acquire run lock")
	}
	if !locked {
		return errors.Newf(errors.ErrConcurrentRun,
			"another sysup run holds the lock at %s", s.lockPath)
	}
	return nil
}

// ReleaseLock drops the run lock. Safe to call when no lock is held.
func (s *Store) ReleaseLock() {
	if s.lock != nil {
		_ = s.lock.Unlock()
		s.lock = nil
	}
}

// Load reads every record in the store. A store that does not exist
// yet is an empty log, not an error.
func (s *Store) Load() (map[string]types.ProvisionRecord, error) {
	records := make(map[string]types.ProvisionRecord)

	entries, err := os.ReadDir(s.recordsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, errors.Wrap(err, errors.ErrStateLoad, "failed to read provision log")
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.recordsDir, entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrStateLoad,
				"failed to read record %s", entry.Name())
		}
		var record types.ProvisionRecord
		if err := toml.Unmarshal(data, &record); err != nil {
			return nil, errors.Wrapf(err, errors.ErrStateLoad,
				"failed to parse record %s", entry.Name())
		}
		records[record.SpecName] = record
	}
	return records, nil
}

// Get returns the record for one spec, if present.
func (s *Store) Get(specName string) (types.ProvisionRecord, bool, error) {
	records, err := s.Load()
	if err != nil {
		return types.ProvisionRecord{}, false, err
	}
	record, ok := records[specName]
	return record, ok, nil
}

// Save persists a record durably, enforcing the forward-only status
// transitions. The file hits disk before Save returns.
func (s *Store) Save(record types.ProvisionRecord) error {
	logger := logging.GetLogger("provlog")

	existing, ok, err := s.Get(record.SpecName)
	if err != nil {
		return err
	}
	if ok && !existing.Status.CanTransitionTo(record.Status) {
		return errors.Newf(errors.ErrStateWrite,
			"illegal record transition for %q: %s -> %s",
			record.SpecName, existing.Status, record.Status)
	}

	if err := os.MkdirAll(s.recordsDir, 0755); err != nil {
		return errors.Wrap(err, errors.ErrStateWrite, "failed to create records directory")
	}

	data, err := toml.Marshal(record)
	if err != nil {
		return errors.Wrapf(err, errors.ErrStateWrite,
			"failed to encode record for %q", record.SpecName)
	}

	final := s.recordPath(record.SpecName)
	tmp, err := os.CreateTemp(s.recordsDir, "."+record.SpecName+".tmp-")
	if err != nil {
		return errors.Wrap(err, errors.ErrStateWrite, "failed to create temp record")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, errors.ErrStateWrite, "failed to write record")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, errors.ErrStateWrite, "failed to flush record")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrStateWrite, "failed to close record")
	}
	if err := os.Rename(tmpName, final); err != nil {
		return errors.Wrap(err, errors.ErrStateWrite, "failed to commit record")
	}
	syncDir(s.recordsDir)

	logger.Debug().
		Str("spec", record.SpecName).
		Str("status", string(record.Status)).
		Msg("Record saved")
	return nil
}

// Reset removes a spec's record so the next run treats it as never
// attempted. Used by forced re-installation.
func (s *Store) Reset(specName string) error {
	err := os.Remove(s.recordPath(specName))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrStateWrite, "failed to reset record for %q", specName)
	}
	syncDir(s.recordsDir)
	return nil
}

func (s *Store) recordPath(specName string) string {
	return filepath.Join(s.recordsDir, specName+recordExt)
}

// syncDir best-effort fsyncs a directory so a rename survives a crash.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
