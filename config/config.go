package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
	ini "gopkg.in/ini.v1"

	"github.com/hupe1980/scoredef/codec"
	"github.com/hupe1980/scoredef/internal/compress"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "SCOREDEF_"

// ErrInvalidConfig is returned by Validate and by loaders for malformed values.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Archive backends.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendMinio  = "minio"
	BackendS3     = "s3"
)

// Config is the complete measurement configuration.
type Config struct {
	// TotalMemory is the size of the definition arena in bytes.
	TotalMemory int64
	// PageSize is the allocator page size in bytes.
	PageSize int64
	// Compression names the block compression of collective frames.
	Compression string
	// Codec names the payload codec of collective frames and archives.
	Codec string
	// HandleChecks enables owner and tag checks on every handle resolve.
	HandleChecks bool
	// Verbose enables debug logging.
	Verbose bool

	Archive Archive
}

// Archive configures where unified definitions are handed off.
type Archive struct {
	Backend   string
	Path      string
	Bucket    string
	Prefix    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Secure    bool
	// Compression names the block compression of archive blobs.
	Compression string
	// IOLimit caps archive write throughput in bytes per second. Zero is
	// unlimited.
	IOLimit int64
	// Workers bounds concurrent blob uploads.
	Workers int
}

// Default returns the built-in configuration: a 16000 KiB arena split into
// 8 KiB pages.
func Default() Config {
	return Config{
		TotalMemory:  16000 * 1024,
		PageSize:     8 * 1024,
		Compression:  compress.LZ4.String(),
		Codec:        codec.Default.Name(),
		HandleChecks: true,
		Archive: Archive{
			Backend:     BackendNone,
			Path:        "scoredef-archive",
			Compression: compress.ZSTD.String(),
			Workers:     4,
		},
	}
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch {
	case c.PageSize < 512:
		return fmt.Errorf("%w: page size %d is below 512 bytes", ErrInvalidConfig, c.PageSize)
	case c.PageSize&(c.PageSize-1) != 0:
		return fmt.Errorf("%w: page size %d is not a power of two", ErrInvalidConfig, c.PageSize)
	case c.TotalMemory < c.PageSize:
		return fmt.Errorf("%w: total memory %d is smaller than one page (%d)", ErrInvalidConfig, c.TotalMemory, c.PageSize)
	}
	if _, err := compress.Parse(c.Compression); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, ok := codec.ByName(c.Codec); !ok {
		return fmt.Errorf("%w: unknown codec %q", ErrInvalidConfig, c.Codec)
	}
	return c.Archive.validate()
}

func (a Archive) validate() error {
	if _, err := compress.Parse(a.Compression); err != nil {
		return fmt.Errorf("%w: archive: %v", ErrInvalidConfig, err)
	}
	if a.IOLimit < 0 || a.Workers < 0 {
		return fmt.Errorf("%w: archive limits must not be negative", ErrInvalidConfig)
	}
	switch a.Backend {
	case BackendNone, BackendMemory:
	case BackendLocal:
		if a.Path == "" {
			return fmt.Errorf("%w: local archive needs a path", ErrInvalidConfig)
		}
	case BackendMinio:
		if a.Endpoint == "" || a.Bucket == "" {
			return fmt.Errorf("%w: minio archive needs an endpoint and a bucket", ErrInvalidConfig)
		}
	case BackendS3:
		if a.Bucket == "" {
			return fmt.Errorf("%w: s3 archive needs a bucket", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown archive backend %q", ErrInvalidConfig, a.Backend)
	}
	return nil
}

// Pages returns the number of whole pages in the arena.
func (c Config) Pages() int64 {
	if c.PageSize <= 0 {
		return 0
	}
	return c.TotalMemory / c.PageSize
}

// String renders the sizes in human form.
func (c Config) String() string {
	return fmt.Sprintf("total memory %s, page size %s (%d pages), codec %s, compression %s, archive %s",
		humanize.IBytes(uint64(max(c.TotalMemory, 0))), //nolint:gosec // clamped
		humanize.IBytes(uint64(max(c.PageSize, 0))),    //nolint:gosec // clamped
		c.Pages(), c.Codec, c.Compression, c.Archive.Backend)
}

// ParseSize parses a byte size. A bare k, m, g or t suffix is binary.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty size", ErrInvalidConfig)
	}
	if n := len(s); n >= 2 && unicode.IsDigit(rune(s[n-2])) && strings.ContainsRune("kKmMgGtT", rune(s[n-1])) {
		s += "iB"
	}
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: size %q: %v", ErrInvalidConfig, s, err)
	}
	if v > 1<<62 {
		return 0, fmt.Errorf("%w: size %q is too large", ErrInvalidConfig, s)
	}
	return int64(v), nil
}

// Load reads an ini file on top of Default. Root keys configure the arena;
// the [archive] section configures the archive.
//
//	TOTAL_MEMORY = 16000k
//	PAGE_SIZE    = 8k
//
//	[archive]
//	BACKEND = local
//	PATH    = /scratch/run
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := ini.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("config: load %s: %w", path, err)
	}
	if err := cfg.apply(f); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadBytes is Load for in-memory ini data.
func LoadBytes(data []byte) (Config, error) {
	cfg := Default()
	f, err := ini.Load(data)
	if err != nil {
		return cfg, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, cfg.apply(f)
}

func (c *Config) apply(f *ini.File) error {
	root := f.Section(ini.DefaultSection)
	if err := sizeKey(root, "TOTAL_MEMORY", &c.TotalMemory); err != nil {
		return err
	}
	if err := sizeKey(root, "PAGE_SIZE", &c.PageSize); err != nil {
		return err
	}
	c.Compression = root.Key("COMPRESSION").MustString(c.Compression)
	c.Codec = root.Key("CODEC").MustString(c.Codec)
	c.HandleChecks = root.Key("HANDLE_CHECKS").MustBool(c.HandleChecks)
	c.Verbose = root.Key("VERBOSE").MustBool(c.Verbose)

	sec := f.Section("archive")
	a := &c.Archive
	a.Backend = sec.Key("BACKEND").MustString(a.Backend)
	a.Path = sec.Key("PATH").MustString(a.Path)
	a.Bucket = sec.Key("BUCKET").MustString(a.Bucket)
	a.Prefix = sec.Key("PREFIX").MustString(a.Prefix)
	a.Endpoint = sec.Key("ENDPOINT").MustString(a.Endpoint)
	a.Region = sec.Key("REGION").MustString(a.Region)
	a.AccessKey = sec.Key("ACCESS_KEY").MustString(a.AccessKey)
	a.SecretKey = sec.Key("SECRET_KEY").MustString(a.SecretKey)
	a.Secure = sec.Key("SECURE").MustBool(a.Secure)
	a.Compression = sec.Key("COMPRESSION").MustString(a.Compression)
	a.Workers = sec.Key("WORKERS").MustInt(a.Workers)
	return sizeKey(sec, "IO_LIMIT", &a.IOLimit)
}

func sizeKey(sec *ini.Section, name string, dst *int64) error {
	if !sec.HasKey(name) {
		return nil
	}
	v, err := ParseSize(sec.Key(name).String())
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = v
	return nil
}

// ApplyEnv overrides c from SCOREDEF_* variables found by lookup, usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	sizes := []struct {
		name string
		dst  *int64
	}{
		{"TOTAL_MEMORY", &c.TotalMemory},
		{"PAGE_SIZE", &c.PageSize},
		{"ARCHIVE_IO_LIMIT", &c.Archive.IOLimit},
	}
	for _, s := range sizes {
		if v, ok := lookup(EnvPrefix + s.name); ok {
			n, err := ParseSize(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, s.name, err)
			}
			*s.dst = n
		}
	}

	strs := []struct {
		name string
		dst  *string
	}{
		{"COMPRESSION", &c.Compression},
		{"CODEC", &c.Codec},
		{"ARCHIVE_BACKEND", &c.Archive.Backend},
		{"ARCHIVE_PATH", &c.Archive.Path},
		{"ARCHIVE_BUCKET", &c.Archive.Bucket},
		{"ARCHIVE_PREFIX", &c.Archive.Prefix},
		{"ARCHIVE_ENDPOINT", &c.Archive.Endpoint},
		{"ARCHIVE_REGION", &c.Archive.Region},
		{"ARCHIVE_ACCESS_KEY", &c.Archive.AccessKey},
		{"ARCHIVE_SECRET_KEY", &c.Archive.SecretKey},
		{"ARCHIVE_COMPRESSION", &c.Archive.Compression},
	}
	for _, s := range strs {
		if v, ok := lookup(EnvPrefix + s.name); ok {
			*s.dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "ARCHIVE_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sARCHIVE_WORKERS=%q", ErrInvalidConfig, EnvPrefix, v)
		}
		c.Archive.Workers = n
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"HANDLE_CHECKS", &c.HandleChecks},
		{"VERBOSE", &c.Verbose},
		{"ARCHIVE_SECURE", &c.Archive.Secure},
	}
	for _, b := range bools {
		if v, ok := lookup(EnvPrefix + b.name); ok {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %s%s=%q", ErrInvalidConfig, EnvPrefix, b.name, v)
			}
			*b.dst = parsed
		}
	}
	return nil
}

// FromEnvironment returns Default overridden by the process environment.
func FromEnvironment() (Config, error) {
	cfg := Default()
	err := cfg.ApplyEnv(os.LookupEnv)
	return cfg, err
}
