// Package ratecontrol loads per-platform pacing limits from
// config/pacing.yaml and builds the limiters the audit runner uses to space
// out consecutive questions against the same platform.
package ratecontrol

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

type config struct {
	Pacing struct {
		DefaultIntervalMs int `yaml:"default_interval_ms"`
		PlatformOverrides map[string]struct {
			IntervalMs int `yaml:"interval_ms"`
		} `yaml:"platform_overrides"`
	} `yaml:"pacing"`
}

// DefaultInterval is the inter-question delay used when no configuration is
// found.
const DefaultInterval = 600 * time.Millisecond

var (
	mu          sync.RWMutex
	loaded      *config
	initialized bool
)

func candidatePaths() []string {
	return []string{
		os.Getenv("PACING_CONFIG_PATH"),
		"/app/config/pacing.yaml",
		"./config/pacing.yaml",
	}
}

func loadLocked() {
	var cfg config
	for _, p := range candidatePaths() {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var tmp config
		if err := yaml.Unmarshal(data, &tmp); err != nil {
			log.Printf("WARNING: failed to unmarshal pacing config from %s: %v", p, err)
			continue
		}
		cfg = tmp
		log.Printf("Loaded pacing configuration from %s", p)
		break
	}
	if cfg.Pacing.DefaultIntervalMs == 0 && len(cfg.Pacing.PlatformOverrides) == 0 {
		if path, ok := findUpConfig(); ok {
			if data, err := os.ReadFile(path); err == nil {
				var tmp config
				if err := yaml.Unmarshal(data, &tmp); err == nil {
					cfg = tmp
					log.Printf("Loaded pacing configuration from %s", path)
				}
			}
		}
	}
	loaded = &cfg
	initialized = true
}

func findUpConfig() (string, bool) {
	wd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for i := 0; i < 6; i++ {
		cand := filepath.Join(wd, "config", "pacing.yaml")
		if _, err := os.Stat(cand); err == nil {
			return cand, true
		}
		wd = filepath.Dir(wd)
	}
	return "", false
}

func get() *config {
	mu.RLock()
	if initialized {
		defer mu.RUnlock()
		return loaded
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if !initialized {
		loadLocked()
	}
	return loaded
}

// IntervalFor returns the configured inter-question interval for a platform.
func IntervalFor(platform string) time.Duration {
	cfg := get()
	if cfg == nil {
		return DefaultInterval
	}
	key := strings.ToLower(strings.TrimSpace(platform))
	if cfg.Pacing.PlatformOverrides != nil {
		if override, ok := cfg.Pacing.PlatformOverrides[key]; ok && override.IntervalMs > 0 {
			return time.Duration(override.IntervalMs) * time.Millisecond
		}
	}
	if cfg.Pacing.DefaultIntervalMs > 0 {
		return time.Duration(cfg.Pacing.DefaultIntervalMs) * time.Millisecond
	}
	return DefaultInterval
}

// LimiterFor builds the pacing limiter for a platform: one question per
// interval, no burst beyond the first call.
func LimiterFor(platform string) *rate.Limiter {
	return rate.NewLimiter(rate.Every(IntervalFor(platform)), 1)
}

// Reset clears the cached configuration. Test helper.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	loaded = nil
	initialized = false
}
