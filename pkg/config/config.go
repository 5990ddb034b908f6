package config

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/i5heu/GoByteQueue/internal/queue"
	"github.com/i5heu/GoByteQueue/internal/testbench"
)

// Concurrency is an alias for testbench.Config. This allows other programs to import
// the benchmark concurrency shape without pulling in the entire testbench package.
type Concurrency = testbench.Config

// Read modes accepted in Config.ReadMode.
const (
	ReadModeBounded = "bounded"
	ReadModeFull    = "full"
)

// Backends accepted in Config.Backend.
const (
	BackendLinked   = "linked"
	BackendRing     = "ring"
	BackendSPSC     = "spsc"
	BackendBuffered = "buffered"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config describes one byte-queue device.
type Config struct {
	DeviceName string `toml:"device_name"`
	// Major 0 asks the registrar for a dynamic number.
	Major    int    `toml:"major"`
	Capacity uint64 `toml:"capacity"`
	Backend  string `toml:"backend"`
	ReadMode string `toml:"read_mode"`
	Logger   Logger `toml:"logger"`
	Bench    Bench  `toml:"bench"`
}

// Logger is the configuration for the logger
type Logger struct {
	LogLevel    string `toml:"log_level"`
	FileLogName string `toml:"file_log_name"`
	MaxBackups  int    `toml:"max_backups"`
	MaxAge      int    `toml:"max_age"`  // Days
	MaxSize     int    `toml:"max_size"` // Megabytes
	Compress    bool   `toml:"compress"`
}

// Bench is the configuration for cmd/bench
type Bench struct {
	Iterations int      `toml:"iterations"`
	Duration   Duration `toml:"duration"`
	Capacity   uint64   `toml:"capacity"`
	ChunkSizes []int    `toml:"chunk_sizes"`
}

// Duration lets TOML carry values like "5s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "parse duration %q", text)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the reference device: "fjr", dynamic major, 1024 bytes.
func Default() Config {
	return Config{
		DeviceName: "fjr",
		Major:      0,
		Capacity:   1024,
		Backend:    BackendLinked,
		ReadMode:   ReadModeBounded,
		Logger: Logger{
			LogLevel:   "info",
			MaxBackups: 3,
			MaxAge:     28,
			MaxSize:    100,
		},
		Bench: Bench{
			Iterations: 5,
			Duration:   Duration{5 * time.Second},
			Capacity:   1024,
			ChunkSizes: []int{1, 64, 512},
		},
	}
}

// Load reads a TOML file on top of Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrapf(err, "load config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Wrapf(ErrInvalid, "unknown key %q in %s", undecoded[0].String(), path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "load config %s", path)
	}
	return cfg, nil
}

// Validate reports the first field that cannot be used.
func (c Config) Validate() error {
	if c.DeviceName == "" {
		return errors.Wrap(ErrInvalid, "device_name is empty")
	}
	if c.Major < 0 {
		return errors.Wrapf(ErrInvalid, "major %d is negative", c.Major)
	}
	if c.Capacity > queue.MaxCapacity {
		return errors.Wrapf(ErrInvalid, "capacity %d exceeds %d", c.Capacity, queue.MaxCapacity)
	}
	switch c.Backend {
	case BackendLinked, BackendRing, BackendSPSC, BackendBuffered:
	default:
		return errors.Wrapf(ErrInvalid, "unknown backend %q", c.Backend)
	}
	switch c.ReadMode {
	case ReadModeBounded, ReadModeFull:
	default:
		return errors.Wrapf(ErrInvalid, "unknown read_mode %q", c.ReadMode)
	}
	if c.Bench.Iterations < 0 {
		return errors.Wrapf(ErrInvalid, "bench.iterations %d is negative", c.Bench.Iterations)
	}
	for _, size := range c.Bench.ChunkSizes {
		if size <= 0 {
			return errors.Wrapf(ErrInvalid, "bench.chunk_sizes contains %d", size)
		}
	}
	return nil
}
