package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/seasonpoints/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Slots, convey.ShouldEqual, 25)
				convey.So(cfg.StorageBackend, convey.ShouldEqual, "memory")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SEASONPOINTS_ADDR", ":8080")
			_ = os.Setenv("SEASONPOINTS_SLOTS", "10")
			_ = os.Setenv("SEASONPOINTS_PUBLIC_URL", "https://points.example.com/")
			_ = os.Setenv("SEASONPOINTS_COOKIE_SECURE", "true")
			_ = os.Setenv("SEASONPOINTS_AUTH_RATE_PER_SECOND", "0.5")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Slots, convey.ShouldEqual, 10)
				convey.So(cfg.PublicURL, convey.ShouldEqual, "https://points.example.com/")
				convey.So(cfg.CookieSecure, convey.ShouldBeTrue)
				convey.So(cfg.AuthRatePerSecond, convey.ShouldEqual, 0.5)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
# storage
storage_backend: sqlite
sqlite_path: /tmp/points.db
slots: 12  # one campaign
client_id: abc
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SEASONPOINTS_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.StorageBackend, convey.ShouldEqual, "sqlite")
				convey.So(cfg.SQLitePath, convey.ShouldEqual, "/tmp/points.db")
				convey.So(cfg.Slots, convey.ShouldEqual, 12)
				convey.So(cfg.ClientID, convey.ShouldEqual, "abc")
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			})
		})

		convey.Convey("When both file and environment variables are set", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nslots: 12\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SEASONPOINTS_CONFIG", tmpFile)
			_ = os.Setenv("SEASONPOINTS_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Slots, convey.ShouldEqual, 12)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SEASONPOINTS_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SEASONPOINTS_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("SEASONPOINTS_SLOTS", "many")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidation(t *testing.T) {
	convey.Convey("Given config validation", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		cases := []struct{ name, key, value, msg string }{
			{"empty addr", "SEASONPOINTS_ADDR", "", "addr must not be empty"},
			{"zero slots", "SEASONPOINTS_SLOTS", "0", "slots must be positive"},
			{"relative url", "SEASONPOINTS_PUBLIC_URL", "/points", "public_url must be an absolute URL"},
			{"bad endpoint", "SEASONPOINTS_API_ENDPOINT", "api.trackmania.com", "api_endpoint must be an absolute URL"},
			{"unknown backend", "SEASONPOINTS_STORAGE_BACKEND", "etcd", "unknown storage_backend"},
			{"empty secret", "SEASONPOINTS_SESSION_SECRET", "", "session_secret must not be empty"},
		}

		for _, tc := range cases {
			convey.Convey("When "+tc.name, func() {
				_ = os.Setenv(tc.key, tc.value)

				cfg, err := config.Load(ctx)

				convey.Convey("Then it should return a validation error", func() {
					convey.So(cfg, convey.ShouldBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(err.Error(), convey.ShouldContainSubstring, tc.msg)
				})
			})
		}
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"SEASONPOINTS_CONFIG",
		"SEASONPOINTS_ADDR",
		"SEASONPOINTS_SLOTS",
		"SEASONPOINTS_PUBLIC_URL",
		"SEASONPOINTS_API_ENDPOINT",
		"SEASONPOINTS_STORAGE_BACKEND",
		"SEASONPOINTS_SESSION_SECRET",
		"SEASONPOINTS_COOKIE_SECURE",
		"SEASONPOINTS_AUTH_RATE_PER_SECOND",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "seasonpoints-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
