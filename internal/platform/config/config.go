package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix       = "GHNB"
	DefaultEndpoint = "https://api.github.com/graphql"

	configFileName = "config.yaml"
)

// DefaultScopes are the OAuth scopes requested when none are configured.
var DefaultScopes = []string{"repo", "workflow"}

type Config struct {
	ConfigFile     string
	ConfigDir      string
	Endpoint       string
	Scopes         []string
	Token          string
	ClientID       string
	StripUserAgent bool
	OpenBrowser    bool
	HistoryPath    string
	TokenStorePath string
	LogLevel       string
}

type Options struct {
	// ConfigFile is an explicit config file; empty means <ConfigDir>/config.yaml when present.
	ConfigFile string
	// ConfigDir overrides the user config directory (tests).
	ConfigDir string
	Flags     *pflag.FlagSet
}

// Source reads configuration from file, environment and flags, and reports
// changes to the config file.
type Source struct {
	vmu       sync.Mutex
	v         *viper.Viper
	configDir string

	mu        sync.Mutex
	watching  bool
	listeners []func(Config)
}

func New(opts Options) (*Source, error) {
	dir := opts.ConfigDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		dir = filepath.Join(base, "ghnb")
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("token", EnvPrefix+"_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("bind token env: %w", err)
	}

	v.SetDefault("endpoint", DefaultEndpoint)
	v.SetDefault("scopes", DefaultScopes)
	v.SetDefault("open_browser", true)
	v.SetDefault("strip_user_agent", false)
	v.SetDefault("history_path", filepath.Join(dir, "history.db"))
	v.SetDefault("token_store_path", filepath.Join(dir, "hosts.yaml"))
	v.SetDefault("log_level", "warn")

	if opts.Flags != nil {
		if err := v.BindPFlags(opts.Flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return &Source{v: v, configDir: dir}, nil
}

func (s *Source) Load() (Config, error) {
	s.vmu.Lock()
	defer s.vmu.Unlock()
	cfg := Config{
		ConfigFile:     s.v.ConfigFileUsed(),
		ConfigDir:      s.configDir,
		Endpoint:       strings.TrimSpace(s.v.GetString("endpoint")),
		Scopes:         NormalizeScopes(s.v.GetStringSlice("scopes")),
		Token:          strings.TrimSpace(s.v.GetString("token")),
		ClientID:       strings.TrimSpace(s.v.GetString("auth.client_id")),
		StripUserAgent: s.v.GetBool("strip_user_agent"),
		OpenBrowser:    s.v.GetBool("open_browser"),
		HistoryPath:    s.v.GetString("history_path"),
		TokenStorePath: s.v.GetString("token_store_path"),
		LogLevel:       s.v.GetString("log_level"),
	}
	if cfg.Endpoint == "" {
		return Config{}, fmt.Errorf("endpoint is required")
	}
	if len(cfg.Scopes) == 0 {
		return Config{}, fmt.Errorf("at least one scope is required")
	}
	return cfg, nil
}

// OnChange registers fn to run with the reloaded config whenever the config
// file changes. When no config file is in use yet, <ConfigDir>/config.yaml is
// awaited until ctx ends and read as soon as it appears.
func (s *Source) OnChange(ctx context.Context, fn func(Config)) error {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	start := !s.watching
	s.watching = true
	s.mu.Unlock()
	if !start {
		return nil
	}
	s.v.OnConfigChange(func(fsnotify.Event) { s.notify() })
	if s.configFileUsed() != "" {
		s.v.WatchConfig()
		return nil
	}
	return s.awaitConfigFile(ctx)
}

func (s *Source) awaitConfigFile(ctx context.Context) error {
	if err := os.MkdirAll(s.configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}
	if err := watcher.Add(s.configDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	target := filepath.Join(s.configDir, configFileName)
	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				s.adoptConfigFile(target)
				return
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// adoptConfigFile switches to a config file created after startup. viper
// watches it from here on, so a file that does not parse yet is picked up on
// its next write.
func (s *Source) adoptConfigFile(path string) {
	s.vmu.Lock()
	s.v.SetConfigFile(path)
	s.vmu.Unlock()
	s.v.WatchConfig()

	s.vmu.Lock()
	err := s.v.ReadInConfig()
	s.vmu.Unlock()
	if err == nil {
		s.notify()
	}
}

func (s *Source) notify() {
	cfg, err := s.Load()
	if err != nil {
		return
	}
	s.mu.Lock()
	listeners := append([]func(Config){}, s.listeners...)
	s.mu.Unlock()
	for _, l := range listeners {
		l(cfg)
	}
}

func (s *Source) configFileUsed() string {
	s.vmu.Lock()
	defer s.vmu.Unlock()
	return s.v.ConfigFileUsed()
}

// NormalizeScopes trims entries and drops empties and duplicates, keeping order.
func NormalizeScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	seen := map[string]struct{}{}
	for _, raw := range scopes {
		for _, part := range strings.Split(raw, ",") {
			scope := strings.TrimSpace(part)
			if scope == "" {
				continue
			}
			if _, ok := seen[scope]; ok {
				continue
			}
			seen[scope] = struct{}{}
			out = append(out, scope)
		}
	}
	return out
}

// SameScopes reports whether a and b hold the same set of scopes.
func SameScopes(a, b []string) bool {
	a, b = NormalizeScopes(a), NormalizeScopes(b)
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
