package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_BetterStackRequiresEndpointWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("BETTERSTACK_ENABLED", "true")
	t.Setenv("BETTERSTACK_ENDPOINT", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when BETTERSTACK_ENABLED=true without BETTERSTACK_ENDPOINT")
	}
}

func TestLoad_BetterStackConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("BETTERSTACK_ENABLED", "true")
	t.Setenv("BETTERSTACK_ENDPOINT", "s1765114.eu-fsn-3.betterstackdata.com")
	t.Setenv("BETTERSTACK_TOKEN", "token-123")
	t.Setenv("BETTERSTACK_TIMEOUT", "4s")
	t.Setenv("BETTERSTACK_MIN_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.BetterStackEnabled {
		t.Fatalf("expected BetterStackEnabled=true")
	}
	if cfg.BetterStackEndpoint != "s1765114.eu-fsn-3.betterstackdata.com" {
		t.Fatalf("unexpected BetterStackEndpoint: %q", cfg.BetterStackEndpoint)
	}
	if cfg.BetterStackToken != "token-123" {
		t.Fatalf("unexpected BetterStackToken")
	}
	if cfg.BetterStackTimeout != 4*time.Second {
		t.Fatalf("unexpected BetterStackTimeout: %s", cfg.BetterStackTimeout)
	}
	if cfg.BetterStackMinLevel.String() != "warn" {
		t.Fatalf("unexpected BetterStackMinLevel: %s", cfg.BetterStackMinLevel.String())
	}
}

func TestLoad_PprofDefaultsAddrWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PPROF_ENABLED", "true")
	t.Setenv("PPROF_ADDR", "  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PprofAddr != ":6060" {
		t.Fatalf("expected default pprof addr :6060, got %q", cfg.PprofAddr)
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("APP_SERVICE_NAME", "fantasy-cricket-engine-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "fantasy-cricket-engine-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_DBDisablePreparedBinaryResultParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("default true", func(t *testing.T) {
		t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.DBDisablePreparedBinary {
			t.Fatalf("expected DBDisablePreparedBinary=true by default")
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "not-bool")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid DB_DISABLE_PREPARED_BINARY_RESULT")
		}
	})
}

func TestLoad_CacheConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("CACHE_ENABLED", "")
		t.Setenv("CACHE_TTL", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.CacheEnabled {
			t.Fatalf("expected cache enabled by default")
		}
		if cfg.CacheTTL != 60*time.Second {
			t.Fatalf("unexpected default cache ttl: %s", cfg.CacheTTL)
		}
	})

	t.Run("invalid ttl", func(t *testing.T) {
		t.Setenv("CACHE_TTL", "bad")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid CACHE_TTL")
		}
	})
}

func TestLoad_PipelineDefaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ScoringRulesetVersion != "2026.1" {
		t.Fatalf("unexpected default ruleset version: %q", cfg.ScoringRulesetVersion)
	}
	if cfg.ScrapeSchedule != "0 1 * * 1" {
		t.Fatalf("unexpected default scrape schedule: %q", cfg.ScrapeSchedule)
	}
	if cfg.ScrapeWindow != 168*time.Hour {
		t.Fatalf("unexpected default scrape window: %s", cfg.ScrapeWindow)
	}
	if cfg.DriftRate != 0.15 {
		t.Fatalf("unexpected default drift rate: %v", cfg.DriftRate)
	}
	if cfg.FuzzyMatchThreshold != 0.85 {
		t.Fatalf("unexpected default fuzzy threshold: %v", cfg.FuzzyMatchThreshold)
	}
	if cfg.DriftSchedule != "" {
		t.Fatalf("expected no standalone drift schedule by default, got %q", cfg.DriftSchedule)
	}
}

func TestLoad_DriftRateBounds(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("DRIFT_RATE", "1.5")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for out-of-range DRIFT_RATE")
	}
}

func TestLoad_PlayCricketConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("disabled by default", func(t *testing.T) {
		t.Setenv("PLAYCRICKET_ENABLED", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.PlayCricketEnabled {
			t.Fatalf("expected PlayCricketEnabled=false by default")
		}
	})

	t.Run("enabled requires token and clubs", func(t *testing.T) {
		t.Setenv("PLAYCRICKET_ENABLED", "true")
		t.Setenv("PLAYCRICKET_TOKEN", "")
		t.Setenv("CONFIGURED_CLUBS", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when PLAYCRICKET_ENABLED=true without token/clubs")
		}
	})

	t.Run("enabled requires a site id per configured club", func(t *testing.T) {
		t.Setenv("PLAYCRICKET_ENABLED", "true")
		t.Setenv("PLAYCRICKET_TOKEN", "token")
		t.Setenv("CONFIGURED_CLUBS", "Amstelveen CC,Rotterdam Rhinos")
		t.Setenv("PLAYCRICKET_SITE_ID_MAP", "Amstelveen CC:1234")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for club without site id")
		}
	})

	t.Run("enabled with valid values", func(t *testing.T) {
		t.Setenv("PLAYCRICKET_ENABLED", "true")
		t.Setenv("PLAYCRICKET_TOKEN", "token")
		t.Setenv("CONFIGURED_CLUBS", "Amstelveen CC, Rotterdam Rhinos")
		t.Setenv("PLAYCRICKET_SITE_ID_MAP", "Amstelveen CC:1234,Rotterdam Rhinos:5678")
		t.Setenv("PLAYCRICKET_TIMEOUT", "15s")
		t.Setenv("PLAYCRICKET_MAX_RETRIES", "3")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.PlayCricketEnabled {
			t.Fatalf("expected PlayCricketEnabled=true")
		}
		if cfg.PlayCricketSiteIDByClub["Amstelveen CC"] != "1234" {
			t.Fatalf("unexpected site id map value")
		}
		if cfg.PlayCricketMaxRetries != 3 {
			t.Fatalf("unexpected max retries: %d", cfg.PlayCricketMaxRetries)
		}
		if len(cfg.ConfiguredClubs) != 2 || cfg.ConfiguredClubs[1] != "Rotterdam Rhinos" {
			t.Fatalf("unexpected configured clubs: %+v", cfg.ConfiguredClubs)
		}
	})
}
