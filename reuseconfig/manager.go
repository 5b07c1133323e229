// Package reuseconfig loads and hot-reloads the core's tunables:
// thresholds, the alpha/gamma/epsilon schedule, persistence paths and
// intervals, and normalization denylists. Generalized from
// core/config.Manager's atomic-pointer, project/user/local layered
// YAML loader with environment overrides.
package reuseconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"gopkg.in/yaml.v3"
)

// Config is the full set of tunables.
type Config struct {
	Store       StoreConfig       `yaml:"store"`
	Similarity  SimilarityConfig  `yaml:"similarity"`
	Agent       AgentConfig       `yaml:"agent"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
}

// StoreConfig locates the on-disk model files.
type StoreConfig struct {
	BaseDir         string `yaml:"base_dir"`
	PackageName     string `yaml:"package_name"`
	CurrentPlatform string `yaml:"current_platform"`
}

// SimilarityConfig configures the matching threshold and
// normalization denylists.
type SimilarityConfig struct {
	MatchThreshold float64  `yaml:"match_threshold"`
	BrandPrefixes  []string `yaml:"brand_prefixes"`
}

// AgentConfig configures the selection and SARSA-update schedule.
type AgentConfig struct {
	BufferLen       int     `yaml:"buffer_len"`
	AlphaStart      float64 `yaml:"alpha_start"`
	AlphaFloor      float64 `yaml:"alpha_floor"`
	AlphaStep       float64 `yaml:"alpha_step"`
	AlphaThresholds []int64 `yaml:"alpha_thresholds"`
	Gamma           float64 `yaml:"gamma"`
	Epsilon         float64 `yaml:"epsilon"`
}

// PersistenceConfig configures the background saver.
type PersistenceConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// EmbeddingConfig locates the ONNX models and vocabulary.
type EmbeddingConfig struct {
	VocabPath      string `yaml:"vocab_path"`
	TextModelPath  string `yaml:"text_model_path"`
	TextModelName  string `yaml:"text_model_name"`
	OrtLibraryPath string `yaml:"ort_library_path"`
	UseGPU         bool   `yaml:"use_gpu"`
}

// DefaultConfig returns the baseline tunables used when no config overrides them.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			BaseDir:         "/sdcard",
			CurrentPlatform: "phone",
		},
		Similarity: SimilarityConfig{
			MatchThreshold: 0.5,
		},
		Agent: AgentConfig{
			BufferLen:       5,
			AlphaStart:      0.5,
			AlphaFloor:      0.2,
			AlphaStep:       0.1,
			AlphaThresholds: []int64{20000, 50000, 100000, 250000},
			Gamma:           0.9,
			Epsilon:         0.1,
		},
		Persistence: PersistenceConfig{
			IntervalSeconds: 120,
		},
		Embedding: EmbeddingConfig{
			TextModelName: "reuse-text-encoder",
		},
	}
}

// Manager holds the current Config behind an atomic pointer so
// readers on any goroutine never observe a partially-applied reload.
type Manager struct {
	configPtr unsafe.Pointer
	dirs      Dirs

	watcherMu sync.RWMutex
	watchers  []func(*Config)
}

// Dirs names the three layered config locations, applied
// project-then-user-then-local.
type Dirs struct {
	ProjectConfigPath string
	UserConfigPath    string
	LocalConfigPath   string
}

// NewManager builds a Manager seeded with DefaultConfig.
func NewManager(dirs Dirs) *Manager {
	m := &Manager{dirs: dirs}
	cfg := DefaultConfig()
	atomic.StorePointer(&m.configPtr, unsafe.Pointer(cfg))
	return m
}

// Get returns the current Config. Safe for concurrent use; never
// blocks on Load.
func (m *Manager) Get() *Config {
	return (*Config)(atomic.LoadPointer(&m.configPtr))
}

// Load reads project, then user, then local YAML config files over
// DefaultConfig, applies environment overrides, publishes the result
// atomically, and notifies watchers.
func (m *Manager) Load() error {
	cfg := DefaultConfig()

	if err := loadYAMLFile(m.dirs.ProjectConfigPath, cfg); err != nil {
		return fmt.Errorf("reuseconfig: project config: %w", err)
	}
	if err := loadYAMLFile(m.dirs.UserConfigPath, cfg); err != nil {
		return fmt.Errorf("reuseconfig: user config: %w", err)
	}
	if err := loadYAMLFile(m.dirs.LocalConfigPath, cfg); err != nil {
		return fmt.Errorf("reuseconfig: local config: %w", err)
	}

	applyEnvironment(cfg)

	atomic.StorePointer(&m.configPtr, unsafe.Pointer(cfg))
	m.notifyWatchers(cfg)

	return nil
}

func loadYAMLFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvironment(cfg *Config) {
	if v := os.Getenv("REUSE_BASE_DIR"); v != "" {
		cfg.Store.BaseDir = v
	}
	if v := os.Getenv("REUSE_PACKAGE_NAME"); v != "" {
		cfg.Store.PackageName = v
	}
	if v := os.Getenv("REUSE_CURRENT_PLATFORM"); v != "" {
		cfg.Store.CurrentPlatform = v
	}
	if v := os.Getenv("REUSE_MATCH_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Similarity.MatchThreshold = f
		}
	}
	if v := os.Getenv("REUSE_EPSILON"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Agent.Epsilon = f
		}
	}
	if v := os.Getenv("REUSE_PERSISTENCE_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Persistence.IntervalSeconds = n
		}
	}
	if v := os.Getenv("REUSE_VOCAB_PATH"); v != "" {
		cfg.Embedding.VocabPath = v
	}
	if v := os.Getenv("REUSE_TEXT_MODEL_PATH"); v != "" {
		cfg.Embedding.TextModelPath = v
	}
	if v := os.Getenv("REUSE_USE_GPU"); v != "" {
		cfg.Embedding.UseGPU = strings.ToLower(v) == "true"
	}
}

// OnChange registers fn to be called with the new Config after every
// successful Load.
func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}

// PersistenceInterval converts the configured interval to a
// time.Duration.
func (c *Config) PersistenceInterval() time.Duration {
	return time.Duration(c.Persistence.IntervalSeconds) * time.Second
}

// DefaultProjectDirs locates project/user/local config files relative
// to the current working directory and the user config dir.
func DefaultProjectDirs() Dirs {
	userCfg, err := os.UserConfigDir()
	if err != nil {
		userCfg = ""
	}
	return Dirs{
		ProjectConfigPath: filepath.Join(".", ".reusecore", "config.yaml"),
		UserConfigPath:    filepath.Join(userCfg, "reusecore", "config.yaml"),
		LocalConfigPath:   filepath.Join(".", ".reusecore", "config.local.yaml"),
	}
}
