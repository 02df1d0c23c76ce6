// Package settings loads the dashboard's own configuration: backend
// location, stream tuning, polling, logging, storage and metrics.
//
// Sources are layered, later ones winning: struct defaults, an optional YAML
// file, SMCBOT_* environment variables, then command line overrides.
package settings

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "SMCBOT_"

type Settings struct {
	Backend BackendSettings `koanf:"backend"`
	Stream  StreamSettings  `koanf:"stream"`
	Poll    PollSettings    `koanf:"poll"`
	Log     LogSettings     `koanf:"log"`
	Storage StorageSettings `koanf:"storage"`
	Metrics MetricsSettings `koanf:"metrics"`
}

type BackendSettings struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	Token   string        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout"  validate:"gt=0"`
}

type StreamSettings struct {
	// URL defaults to the backend's /stream endpoint.
	URL            string        `koanf:"url"             validate:"omitempty,url"`
	Transport      string        `koanf:"transport"       validate:"oneof=ws sse"`
	ReconnectDelay time.Duration `koanf:"reconnect_delay" validate:"gt=0"`
	FlushInterval  time.Duration `koanf:"flush_interval"  validate:"gt=0"`
	MaxLines       int           `koanf:"max_lines"       validate:"gt=0"`
}

type PollSettings struct {
	Interval time.Duration `koanf:"interval" validate:"gt=0"`
	Timeout  time.Duration `koanf:"timeout"  validate:"gt=0"`
}

type LogSettings struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	// File receives the log output; empty discards it.
	File string `koanf:"file"`
	JSON bool   `koanf:"json"`
}

type StorageSettings struct {
	RunsDir string `koanf:"runs_dir" validate:"required"`
}

type MetricsSettings struct {
	// Addr enables the /metrics listener when set, e.g. "127.0.0.1:9464".
	Addr string `koanf:"addr" validate:"omitempty,hostname_port"`
}

func Default() *Settings {
	return &Settings{
		Backend: BackendSettings{
			BaseURL: "http://127.0.0.1:8765",
			Timeout: 45 * time.Second,
		},
		Stream: StreamSettings{
			Transport:      "ws",
			ReconnectDelay: 3 * time.Second,
			FlushInterval:  100 * time.Millisecond,
			MaxLines:       5000,
		},
		Poll: PollSettings{
			Interval: time.Second,
			Timeout:  10 * time.Second,
		},
		Log: LogSettings{
			Level: "info",
			File:  "smcbot-tui.log",
		},
		Storage: StorageSettings{
			RunsDir: "runs",
		},
	}
}

// StreamURL returns the push endpoint, derived from the backend URL when
// stream.url is unset.
func (s *Settings) StreamURL() string {
	if s.Stream.URL != "" {
		return s.Stream.URL
	}
	base := strings.TrimRight(s.Backend.BaseURL, "/")
	if s.Stream.Transport == "ws" {
		switch {
		case strings.HasPrefix(base, "https://"):
			base = "wss://" + strings.TrimPrefix(base, "https://")
		case strings.HasPrefix(base, "http://"):
			base = "ws://" + strings.TrimPrefix(base, "http://")
		}
	}
	return base + "/stream"
}

type LoadOptions struct {
	// File is an optional YAML settings file. It must exist when set.
	File string
	// Overrides maps dotted keys such as "poll.interval" to values.
	Overrides map[string]any
}

func Load(opts LoadOptions) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if opts.File != "" {
		data, err := readYAML(opts.File)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawMap(data), nil); err != nil {
			return nil, fmt.Errorf("failed to apply settings file: %w", err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if len(opts.Overrides) > 0 {
		nested := make(map[string]any)
		for key, value := range opts.Overrides {
			if err := setNested(nested, key, value); err != nil {
				return nil, err
			}
		}
		if err := k.Load(rawMap(nested), nil); err != nil {
			return nil, fmt.Errorf("failed to apply overrides: %w", err)
		}
	}

	var cfg Settings
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	cfg.Stream.Transport = strings.ToLower(strings.TrimSpace(cfg.Stream.Transport))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("koanf")
	})
	return v
}()

func Validate(cfg *Settings) error {
	if cfg == nil {
		return fmt.Errorf("settings cannot be nil")
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("settings validation failed: %w", err)
	}
	if u, err := url.Parse(cfg.Backend.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("settings validation failed: backend.base_url must be an http(s) url")
	}
	return nil
}

// transformEnv maps SMCBOT_STREAM_FLUSH_INTERVAL to stream.flush_interval.
func transformEnv(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok || section == "" || rest == "" {
		return "", nil
	}
	return section + "." + rest, value
}

func readYAML(path string) (map[string]any, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	var data map[string]any
	if err := yaml.Unmarshal(blob, &data); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	return filterNil(data), nil
}

func filterNil(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		switch v := value.(type) {
		case nil:
		case map[string]any:
			out[key] = filterNil(v)
		default:
			out[key] = v
		}
	}
	return out
}

func setNested(m map[string]any, path string, value any) error {
	parts := strings.Split(path, ".")
	current := m
	for i := 0; i < len(parts)-1; i++ {
		next, ok := current[parts[i]]
		if !ok {
			child := make(map[string]any)
			current[parts[i]] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("configuration conflict: key %q is not a map", strings.Join(parts[:i+1], "."))
		}
		current = child
	}
	current[parts[len(parts)-1]] = value
	return nil
}

// rawMap adapts a plain map to koanf.Provider.
type rawMap map[string]any

func (r rawMap) Read() (map[string]any, error) {
	return r, nil
}

func (r rawMap) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("ReadBytes not implemented")
}
