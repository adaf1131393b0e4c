package respenvelope

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cast"
)

// ErrInvalidByteSize is returned when a size string cannot be parsed.
var ErrInvalidByteSize = errors.New("respenvelope: invalid byte size")

// ByteSize is a size in bytes written in the PHP ini shorthand: a number
// with an optional K, M or G suffix ("2M", "512K", "1048576").
type ByteSize int64

const (
	KB ByteSize = 1 << 10
	MB ByteSize = 1 << 20
	GB ByteSize = 1 << 30
)

// ParseByteSize parses s into a ByteSize.
func ParseByteSize(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidByteSize)
	}

	mult := ByteSize(1)
	num := strings.TrimSuffix(strings.ToUpper(s), "B")
	switch {
	case strings.HasSuffix(num, "K"):
		mult, num = KB, strings.TrimSuffix(num, "K")
	case strings.HasSuffix(num, "M"):
		mult, num = MB, strings.TrimSuffix(num, "M")
	case strings.HasSuffix(num, "G"):
		mult, num = GB, strings.TrimSuffix(num, "G")
	}

	if num == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidByteSize, s)
	}
	n, err := cast.ToInt64E(num)
	if err != nil || n < 0 || n > math.MaxInt64/int64(mult) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidByteSize, s)
	}
	return ByteSize(n) * mult, nil
}

// String renders the size in the largest whole unit, e.g. "2M".
func (b ByteSize) String() string {
	switch {
	case b >= GB && b%GB == 0:
		return fmt.Sprintf("%dG", b/GB)
	case b >= MB && b%MB == 0:
		return fmt.Sprintf("%dM", b/MB)
	case b >= KB && b%KB == 0:
		return fmt.Sprintf("%dK", b/KB)
	}
	return fmt.Sprintf("%d", int64(b))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Settings is the read-only, process-wide configuration the envelope
// layer consults.
type Settings struct {
	Environment   Environment `toml:"environment"`
	MaxUploadSize ByteSize    `toml:"max_upload_size"`
}

// DefaultSettings redact everything and allow 2M uploads.
func DefaultSettings() Settings {
	return Settings{
		Environment:   EnvProduction,
		MaxUploadSize: 2 * MB,
	}
}

// SettingsSource returns the settings in effect at call time.
type SettingsSource func() Settings

// StaticSettings returns a SettingsSource that always yields s.
func StaticSettings(s Settings) SettingsSource {
	return func() Settings { return s }
}

// Environment variables that override file settings.
const (
	EnvVarEnvironment   = "APP_ENV"
	EnvVarMaxUploadSize = "UPLOAD_MAX_FILESIZE"
)

type fileSettings struct {
	App struct {
		Environment   string   `toml:"environment"`
		MaxUploadSize ByteSize `toml:"max_upload_size"`
	} `toml:"app"`
}

// LoadSettings reads settings from a TOML file and applies environment
// overrides. An empty path skips the file. Missing keys keep their
// defaults.
//
// Example file:
//
//	[app]
//	environment = "staging"
//	max_upload_size = "8M"
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	if path != "" {
		var f fileSettings
		if _, err := toml.DecodeFile(path, &f); err != nil {
			return Settings{}, fmt.Errorf("load settings %s: %w", path, err)
		}
		if f.App.Environment != "" {
			env, err := ParseEnvironment(f.App.Environment)
			if err != nil {
				return Settings{}, fmt.Errorf("load settings %s: %w", path, err)
			}
			s.Environment = env
		}
		if f.App.MaxUploadSize > 0 {
			s.MaxUploadSize = f.App.MaxUploadSize
		}
	}

	if v, ok := os.LookupEnv(EnvVarEnvironment); ok && v != "" {
		env, err := ParseEnvironment(v)
		if err != nil {
			return Settings{}, fmt.Errorf("%s: %w", EnvVarEnvironment, err)
		}
		s.Environment = env
	}
	if v, ok := os.LookupEnv(EnvVarMaxUploadSize); ok && v != "" {
		size, err := ParseByteSize(v)
		if err != nil {
			return Settings{}, fmt.Errorf("%s: %w", EnvVarMaxUploadSize, err)
		}
		s.MaxUploadSize = size
	}

	return s, nil
}
