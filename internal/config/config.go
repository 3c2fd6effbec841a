package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                int               `json:"port"`
	YtDlpPath           string            `json:"ytdlp_path"`
	StaticDir           string            `json:"static_dir"`
	DataDir             string            `json:"data_dir"`
	MaxLogs             int               `json:"max_logs"`
	Headers             map[string]string `json:"headers"`
	ProxyTimeoutSeconds int               `json:"proxy_timeout_seconds"`
	HistoryEnabled      bool              `json:"history_enabled"`
}

// Environment variables that override values from config.json.
const (
	EnvPort      = "YTDLP_PANEL_PORT"
	EnvYtDlpPath = "YTDLP_PATH"
	EnvStaticDir = "YTDLP_PANEL_STATIC_DIR"
	EnvDataDir   = "YTDLP_PANEL_DATA_DIR"
	EnvMaxLogs   = "YTDLP_PANEL_MAX_LOGS"
	EnvHistory   = "YTDLP_PANEL_HISTORY"
)

const localWindowsBinary = "yt-dlp.exe"

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:      3001,
		YtDlpPath: "",
		StaticDir: "dist",
		DataDir:   "./data",
		MaxLogs:   1000,
		Headers: map[string]string{
			"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		ProxyTimeoutSeconds: 30,
		HistoryEnabled:      true,
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv overlays environment overrides on cfg. Unparseable numbers are
// ignored and leave the current value in place.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Port = port
		}
	}
	if v := getenv(EnvYtDlpPath); v != "" {
		c.YtDlpPath = v
	}
	if v := getenv(EnvStaticDir); v != "" {
		c.StaticDir = v
	}
	if v := getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := getenv(EnvMaxLogs); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxLogs = n
		}
	}
	if v := getenv(EnvHistory); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.HistoryEnabled = b
		}
	}
}

// Binary returns the yt-dlp executable to spawn. An explicit ytdlp_path wins;
// on Windows a yt-dlp.exe next to the working directory is preferred over PATH.
func (c Config) Binary() string {
	if c.YtDlpPath != "" {
		return c.YtDlpPath
	}
	if runtime.GOOS == "windows" {
		if _, err := os.Stat(localWindowsBinary); err == nil {
			return "." + string(filepath.Separator) + localWindowsBinary
		}
	}
	return "yt-dlp"
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}
