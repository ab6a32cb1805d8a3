package persist_service

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"fashion-studio/model"

	"github.com/google/uuid"
)

var (
	ErrDeadLetterNotFound = errors.New("dead letter not found")
	ErrNoPayload          = errors.New("dead letter has no spooled payload")
)

// DeadLetterLog is a directory of failed persistence attempts. Each entry is
// <id>.json, with the payload bytes in <id>.bin when nothing else holds them.
type DeadLetterLog struct {
	dir string
	mu  sync.Mutex
}

func NewDeadLetterLog(dir string) (*DeadLetterLog, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("dead letter dir is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create dead letter dir: %w", err)
	}
	return &DeadLetterLog{dir: dir}, nil
}

func (d *DeadLetterLog) Dir() string {
	return d.dir
}

// Record assigns an id and timestamp to f and writes it, spooling payload
// when it is non-empty.
func (d *DeadLetterLog) Record(f *model.PersistFailure, payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.FailedAt.IsZero() {
		f.FailedAt = time.Now().UTC()
	}
	if len(payload) > 0 {
		f.PayloadFile = f.ID + ".bin"
		if err := writeFileAtomic(filepath.Join(d.dir, f.PayloadFile), payload); err != nil {
			return fmt.Errorf("spool payload: %w", err)
		}
	}
	body, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(d.dir, f.ID+".json"), body); err != nil {
		return fmt.Errorf("write dead letter: %w", err)
	}
	return nil
}

// List returns every entry, oldest first.
func (d *DeadLetterLog) List() ([]*model.PersistFailure, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("read dead letter dir: %w", err)
	}
	out := make([]*model.PersistFailure, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		f, err := d.read(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FailedAt.Before(out[j].FailedAt)
	})
	return out, nil
}

// ListUser is List restricted to one user's entries.
func (d *DeadLetterLog) ListUser(userID string) ([]*model.PersistFailure, error) {
	all, err := d.List()
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, f := range all {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (d *DeadLetterLog) Get(id string) (*model.PersistFailure, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read(id)
}

// Payload returns the spooled bytes of f.
func (d *DeadLetterLog) Payload(f *model.PersistFailure) ([]byte, error) {
	if f.PayloadFile == "" {
		return nil, ErrNoPayload
	}
	if err := validateID(strings.TrimSuffix(f.PayloadFile, ".bin")); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(d.dir, f.PayloadFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoPayload
		}
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return data, nil
}

// Remove deletes an entry and its payload.
func (d *DeadLetterLog) Remove(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.Remove(filepath.Join(d.dir, id+".json")); err != nil {
		if os.IsNotExist(err) {
			return ErrDeadLetterNotFound
		}
		return fmt.Errorf("remove dead letter: %w", err)
	}
	if err := os.Remove(filepath.Join(d.dir, id+".bin")); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove payload: %w", err)
	}
	return nil
}

func (d *DeadLetterLog) read(id string) (*model.PersistFailure, error) {
	body, err := os.ReadFile(filepath.Join(d.dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrDeadLetterNotFound
		}
		return nil, fmt.Errorf("read dead letter: %w", err)
	}
	var f model.PersistFailure
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("decode dead letter %s: %w", id, err)
	}
	return &f, nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrDeadLetterNotFound, id)
	}
	return nil
}

func writeFileAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(name), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}
