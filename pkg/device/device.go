// Package device loads a byte-queue endpoint into a registrar and unloads it again.
package device

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/i5heu/GoByteQueue/pkg/buffered"
	"github.com/i5heu/GoByteQueue/pkg/config"
	"github.com/i5heu/GoByteQueue/pkg/endpoint"
	"github.com/i5heu/GoByteQueue/pkg/linkedqueue"
	"github.com/i5heu/GoByteQueue/pkg/logger"
	"github.com/i5heu/GoByteQueue/pkg/registrar"
	"github.com/i5heu/GoByteQueue/pkg/ringqueue"
	"github.com/i5heu/GoByteQueue/pkg/spscring"
)

// ErrUnknownBackend is returned by NewQueue for a name it does not know.
var ErrUnknownBackend = errors.New("unknown queue backend")

// Queue is what a backend provides to a Device.
type Queue interface {
	endpoint.Queue
	Capacity() uint64
}

// NewQueue constructs an empty queue of the named backend.
func NewQueue(backend string, capacity uint64) (Queue, error) {
	switch backend {
	case config.BackendLinked:
		return linkedqueue.New(capacity), nil
	case config.BackendRing:
		return ringqueue.New(capacity), nil
	case config.BackendSPSC:
		return spscring.New(capacity), nil
	case config.BackendBuffered:
		return buffered.New(capacity), nil
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", backend)
	}
}

// Device is one loaded endpoint and the registration that owns it.
type Device struct {
	name     string
	major    int
	capacity uint64
	ep       *endpoint.Endpoint
	reg      registrar.Registrar
	log      *zap.Logger

	mu       sync.Mutex
	unloaded bool
}

// Load builds the queue and endpoint described by cfg and registers them with reg.
func Load(cfg config.Config, reg registrar.Registrar, log *zap.Logger) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	// Each component tags the untagged base once.
	base := log.With(zap.String("device", cfg.DeviceName))
	log = logger.For(base, logger.ComponentDevice)

	q, err := NewQueue(cfg.Backend, cfg.Capacity)
	if err != nil {
		return nil, err
	}
	mode := endpoint.ReadBounded
	if cfg.ReadMode == config.ReadModeFull {
		mode = endpoint.ReadFullDrain
	}
	ep := endpoint.New(q, endpoint.WithLogger(base), endpoint.WithReadMode(mode))

	major, err := reg.Register(cfg.Major, cfg.DeviceName, ep)
	if err != nil {
		log.Error("could not register a major number", zap.Error(err))
		ep.Release()
		return nil, errors.Wrapf(err, "register %s", cfg.DeviceName)
	}
	log.Info("assigned major number",
		zap.Int("major", major),
		zap.String("backend", cfg.Backend),
		zap.Uint64("capacity", q.Capacity()),
		zap.Stringer("read_mode", mode),
	)

	return &Device{
		name:     cfg.DeviceName,
		major:    major,
		capacity: q.Capacity(),
		ep:       ep,
		reg:      reg,
		log:      log,
	}, nil
}

// Name returns the registered device name.
func (d *Device) Name() string { return d.name }

// Major returns the assigned major number.
func (d *Device) Major() int { return d.major }

// Capacity returns the queue ceiling.
func (d *Device) Capacity() uint64 { return d.capacity }

// Endpoint returns the shared endpoint every open dispatches to.
func (d *Device) Endpoint() *endpoint.Endpoint { return d.ep }

// Unload frees the queue and then drops the registration.
// Only the first call does anything.
func (d *Device) Unload() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.unloaded {
		return nil
	}
	d.unloaded = true
	d.ep.Release()
	if err := d.reg.Unregister(d.major, d.name); err != nil {
		return errors.Wrapf(err, "unregister %s", d.name)
	}
	d.log.Info("unloaded", zap.Int("major", d.major))
	return nil
}
