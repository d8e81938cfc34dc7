package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/vigil/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"VIGIL_CONFIG",
	"VIGIL_ADDR",
	"VIGIL_LOG_LEVEL",
	"VIGIL_QUEUE_SIZE",
	"VIGIL_WORKER_COUNT",
	"VIGIL_THRESHOLD",
	"VIGIL_IDENTITY_COLUMN",
	"VIGIL_MODEL_BACKEND",
	"VIGIL_STORE_BACKEND",
	"VIGIL_DYNAMO_TABLE",
	"VIGIL_SOURCE_BACKEND",
	"VIGIL_BATCH_SIZE",
}

func clearConfigEnvVars() {
	for _, v := range configEnvVars {
		_ = os.Unsetenv(v)
	}
}

func TestConfigLoader(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Threshold, convey.ShouldEqual, 42)
				convey.So(cfg.ModelBackend, convey.ShouldEqual, config.ModelTree)
			})
		})

		convey.Convey("When loading with environment variables", func() {
			_ = os.Setenv("VIGIL_ADDR", ":8080")
			_ = os.Setenv("VIGIL_WORKER_COUNT", "4")
			_ = os.Setenv("VIGIL_THRESHOLD", "60")
			_ = os.Setenv("VIGIL_IDENTITY_COLUMN", "subject_id")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env vars should override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.Threshold, convey.ShouldEqual, 60)
				convey.So(cfg.IdentityColumn, convey.ShouldEqual, "subject_id")
			})
		})

		convey.Convey("When loading with a YAML file", func() {
			yamlContent := `
addr: ":7070"
worker_count: 3
threshold: 55
store_backend: dynamodb
dynamo_table: alerts-test
`
			tmpFile := filepath.Join(t.TempDir(), "vigil.yaml")
			convey.So(os.WriteFile(tmpFile, []byte(yamlContent), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("VIGIL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then values should come from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.Threshold, convey.ShouldEqual, 55)
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.StoreDyn)
				convey.So(cfg.DynamoTable, convey.ShouldEqual, "alerts-test")
			})

			convey.Convey("And env vars should still win over the file", func() {
				_ = os.Setenv("VIGIL_ADDR", ":6060")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the config is invalid", func() {
			defer clearConfigEnvVars()

			convey.Convey("An unknown model backend is rejected", func() {
				_ = os.Setenv("VIGIL_MODEL_BACKEND", "forest")
				_, err := config.Load(ctx)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})

			convey.Convey("The dynamodb store requires a table name", func() {
				_ = os.Setenv("VIGIL_STORE_BACKEND", "dynamodb")
				_ = os.Setenv("VIGIL_DYNAMO_TABLE", "")
				_, err := config.Load(ctx)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})

			convey.Convey("A missing config file fails the load", func() {
				_ = os.Setenv("VIGIL_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
				_, err := config.Load(ctx)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})
	})
}
