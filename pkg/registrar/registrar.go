// Package registrar hands out major numbers to byte-stream endpoints and
// dispatches to their callbacks by number.
package registrar

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/i5heu/GoByteQueue/pkg/logger"
)

// Major number ranges, matching the Linux char device table.
const (
	MaxMajor   = 511
	DynamicMin = 234
	DynamicMax = 254
)

var (
	ErrBusy          = errors.New("major number busy")
	ErrInvalidMajor  = errors.New("invalid major number")
	ErrNotRegistered = errors.New("endpoint not registered")
)

// Operations are the callbacks a registered endpoint serves.
type Operations interface {
	OnOpen() error
	OnClose() error
	OnRead(dst []byte) (int, error)
	OnWrite(src []byte) (int, error)
}

// Registrar binds Operations to a major number.
type Registrar interface {
	// Register binds ops under name. Major 0 requests a dynamic number.
	// It returns the number actually assigned.
	Register(major int, name string, ops Operations) (int, error)
	Unregister(major int, name string) error
}

type entry struct {
	name string
	ops  Operations
}

// Table is an in-memory Registrar.
type Table struct {
	mu      sync.RWMutex
	entries map[int]entry
	log     *zap.Logger
}

// NewTable returns an empty Table. A nil logger disables logging.
func NewTable(log *zap.Logger) *Table {
	return &Table{
		entries: make(map[int]entry),
		log:     logger.For(log, logger.ComponentRegistrar),
	}
}

// Register implements Registrar.
func (t *Table) Register(major int, name string, ops Operations) (int, error) {
	if ops == nil {
		return 0, errors.New("nil operations")
	}
	if major < 0 || major > MaxMajor {
		return 0, errors.Wrapf(ErrInvalidMajor, "%d", major)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if major == 0 {
		// Dynamic numbers are handed out from the top of the range down.
		for m := DynamicMax; m >= DynamicMin; m-- {
			if _, taken := t.entries[m]; !taken {
				major = m
				break
			}
		}
		if major == 0 {
			return 0, errors.Wrapf(ErrBusy, "dynamic range %d-%d exhausted", DynamicMin, DynamicMax)
		}
	} else if e, taken := t.entries[major]; taken {
		return 0, errors.Wrapf(ErrBusy, "%d held by %q", major, e.name)
	}

	t.entries[major] = entry{name: name, ops: ops}
	t.log.Debug("registered", zap.Int("major", major), zap.String("name", name))
	return major, nil
}

// Unregister implements Registrar.
func (t *Table) Unregister(major int, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[major]
	if !ok || e.name != name {
		return errors.Wrapf(ErrNotRegistered, "%d/%s", major, name)
	}
	delete(t.entries, major)
	t.log.Debug("unregistered", zap.Int("major", major), zap.String("name", name))
	return nil
}

// Lookup returns the Operations bound to major.
func (t *Table) Lookup(major int) (Operations, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[major]
	return e.ops, ok
}

// Len returns the number of registered endpoints.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
