// Package config resolves runtime settings once at startup. Components
// receive values from here by construction and never re-probe the
// environment themselves.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DeploymentMode distinguishes an interactive install from a packaged,
// self-contained distribution where disk caching is disabled.
type DeploymentMode int

const (
	ModeInteractive DeploymentMode = iota
	ModePackaged
)

// Config holds all externally tunable settings.
type Config struct {
	Mode           DeploymentMode
	CacheDir       string        // root of the two-tier upscale cache
	BackendCommand string        // super-resolution binary name or path
	BackendTimeout time.Duration // per-invocation ceiling
	MaxPixels      int           // decode ceiling, pixels
}

const (
	defaultBackendCommand = "realesrgan-ncnn-vulkan"
	defaultBackendTimeout = 300 * time.Second
)

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// Load builds the configuration from the environment.
func Load() *Config {
	mode := ModeInteractive
	if os.Getenv("ETDXPDF_PACKAGED") == "1" {
		mode = ModePackaged
	}

	cacheDir := os.Getenv("ETDXPDF_CACHE_DIR")
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "etdxpdf-upscale-cache")
	}

	return &Config{
		Mode:           mode,
		CacheDir:       cacheDir,
		BackendCommand: envString("ETDXPDF_BACKEND", defaultBackendCommand),
		BackendTimeout: time.Duration(envInt("ETDXPDF_BACKEND_TIMEOUT_SECONDS", int(defaultBackendTimeout/time.Second))) * time.Second,
		MaxPixels:      envInt("ETDXPDF_MAX_PIXELS", 0),
	}
}
