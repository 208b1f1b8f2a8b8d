package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"incident_audit/extract"
)

// Config holds service configuration from the config file and environment.
type Config struct {
	HTTPPort      string
	InputsDir     string
	PolygonsPath  string
	StationsPath  string
	OutDir        string
	DBPath        string
	WeightsPath   string
	Schedule      string
	EnableWatcher bool
	StrictConfig  bool
	LLM           extract.Config
}

type fileConfig struct {
	HTTPPort      string         `json:"http_port" yaml:"http_port"`
	InputsDir     string         `json:"inputs_dir" yaml:"inputs_dir"`
	PolygonsPath  string         `json:"polygons_path" yaml:"polygons_path"`
	StationsPath  string         `json:"stations_path" yaml:"stations_path"`
	OutDir        string         `json:"out_dir" yaml:"out_dir"`
	DBPath        string         `json:"db_path" yaml:"db_path"`
	WeightsPath   string         `json:"weights_path" yaml:"weights_path"`
	Schedule      string         `json:"schedule" yaml:"schedule"`
	EnableWatcher *bool          `json:"enable_watcher" yaml:"enable_watcher"`
	LLM           extract.Config `json:"llm" yaml:"llm"`
}

const (
	defaultPort      = ":8000"
	defaultInputsDir = "runtime/outputs"
	defaultOutDir    = "runtime/reports"
	defaultDBFile    = "audit.db"
	defaultSchedule  = "@every 60m"
)

// Load reads configuration from an optional .env file, a YAML/JSON config
// file, and environment overrides, applying sane defaults throughout.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Schedule:      defaultSchedule,
		EnableWatcher: parseBoolEnvDefault("ENABLE_WATCHER", true),
		StrictConfig:  parseBoolEnv("STRICT_CONFIG"),
	}

	configPath := getEnv("CONFIG_PATH", filepath.Join("config", "config.yaml"))
	fileCfg, fileErr := loadFileConfig(configPath)
	if fileErr != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("config load failed (%s): %w", configPath, fileErr)
		}
		log.Printf("config load failed (%s): %v (using defaults)", configPath, fileErr)
	}

	cfg.InputsDir = firstNonEmpty(os.Getenv("INPUTS_DIR"), fileCfg.InputsDir, defaultInputsDir)
	cfg.PolygonsPath = firstNonEmpty(os.Getenv("POLYGONS_PATH"), fileCfg.PolygonsPath)
	cfg.StationsPath = firstNonEmpty(os.Getenv("STATIONS_PATH"), fileCfg.StationsPath)
	cfg.OutDir = firstNonEmpty(os.Getenv("OUT_DIR"), fileCfg.OutDir, defaultOutDir)
	cfg.WeightsPath = firstNonEmpty(os.Getenv("INCIDENT_WEIGHTS_PATH"), fileCfg.WeightsPath)
	cfg.Schedule = firstNonEmpty(os.Getenv("EXPORT_SCHEDULE"), fileCfg.Schedule, defaultSchedule)

	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	} else if fileCfg.DBPath != "" {
		cfg.DBPath = fileCfg.DBPath
	} else {
		cfg.DBPath = filepath.Join(cfg.OutDir, defaultDBFile)
	}

	cfg.HTTPPort = firstNonEmpty(os.Getenv("HTTP_PORT"), fileCfg.HTTPPort, defaultPort)
	if !strings.HasPrefix(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}

	if fileCfg.EnableWatcher != nil && strings.TrimSpace(os.Getenv("ENABLE_WATCHER")) == "" {
		cfg.EnableWatcher = *fileCfg.EnableWatcher
	}

	cfg.LLM = fileCfg.LLM
	cfg.LLM.Provider = firstNonEmpty(os.Getenv("LLM_PROVIDER"), cfg.LLM.Provider, "ollama")
	cfg.LLM.Model = firstNonEmpty(os.Getenv("OLLAMA_MODEL"), os.Getenv("LLM_MODEL"), cfg.LLM.Model)
	cfg.LLM.BaseURL = firstNonEmpty(os.Getenv("OLLAMA_BASE_URL"), os.Getenv("LLM_BASE_URL"), cfg.LLM.BaseURL)
	if v, ok, err := parseFloatEnv("LLM_TEMPERATURE"); err != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("invalid LLM_TEMPERATURE: %w", err)
		}
		log.Printf("invalid LLM_TEMPERATURE: %v (using default)", err)
	} else if ok {
		cfg.LLM.Temperature = v
	}
	if v, ok, err := parseIntEnv("LLM_MAX_TOKENS"); err != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("invalid LLM_MAX_TOKENS: %w", err)
		}
		log.Printf("invalid LLM_MAX_TOKENS: %v (using default)", err)
	} else if ok && v > 0 {
		cfg.LLM.MaxTokens = v
	}

	if err := validateConfig(cfg); err != nil {
		if cfg.StrictConfig {
			return cfg, err
		}
		log.Printf("config validation failed: %v (continuing)", err)
	}
	return cfg, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.InputsDir) == "" {
		return errors.New("INPUTS_DIR is required")
	}
	if strings.TrimSpace(cfg.HTTPPort) == "" {
		return errors.New("HTTP_PORT is required")
	}
	if strings.TrimSpace(cfg.Schedule) == "" {
		return errors.New("EXPORT_SCHEDULE is required")
	}
	if strings.TrimSpace(cfg.PolygonsPath) == "" {
		return errors.New("POLYGONS_PATH is required for exports")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return val
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return defaultVal
	}
	return parseBoolEnv(key)
}

func parseIntEnv(key string) (int, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.Atoi(raw)
	return val, true, err
}

func parseFloatEnv(key string) (float64, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	return val, true, err
}
