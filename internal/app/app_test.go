package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/blobber/internal/config"
)

func testConfig(base string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "blobber", LogLevel: "error"},
		Storage: config.StorageConfig{
			Type:      "local",
			Container: "exports",
			LocalPath: filepath.Join(base, "blobs"),
		},
		Upload: config.UploadConfig{Prefix: "daily"},
		Sweep: config.SweepConfig{
			Enabled:              true,
			Schedule:             "0 0 3 * * *",
			RetentionDays:        30,
			MaxConcurrentDeletes: 4,
		},
		Metrics: config.MetricsConfig{Job: "blobber"},
	}
}

func TestApp(t *testing.T) {
	Convey("Given an app backed by local storage", t, func() {
		ctx := context.Background()
		tempDir, err := os.MkdirTemp("", "app_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		cfg := testConfig(tempDir)
		a, err := New(cfg)
		So(err, ShouldBeNil)
		defer a.Shutdown()

		container := filepath.Join(cfg.Storage.LocalPath, "exports")

		Convey("Upload stores the file under its base name", func() {
			src := filepath.Join(tempDir, "ledger-2020-01-01.csv")
			So(os.WriteFile(src, []byte("a,b\n1,2\n"), 0644), ShouldBeNil)

			url, err := a.Upload(ctx, src)
			So(err, ShouldBeNil)
			So(url, ShouldStartWith, "file://")
			So(url, ShouldEndWith, "/exports/ledger-2020-01-01.csv")

			Convey("Containers lists the container", func() {
				containers, err := a.Containers(ctx)
				So(err, ShouldBeNil)
				So(len(containers), ShouldEqual, 1)
				So(containers[0].Name, ShouldEqual, "exports")
			})

			Convey("SweepOnce deletes the expired blob", func() {
				today := time.Now().Format("2006-01-02")
				So(os.WriteFile(filepath.Join(container, "fresh-"+today+".csv"), nil, 0644), ShouldBeNil)

				result, err := a.SweepOnce(ctx)
				So(err, ShouldBeNil)
				So(result.Deleted, ShouldResemble, []string{"ledger-2020-01-01.csv"})
				So(result.Retained, ShouldEqual, 1)

				_, err = os.Stat(filepath.Join(container, "ledger-2020-01-01.csv"))
				So(os.IsNotExist(err), ShouldBeTrue)
			})
		})

		Convey("Export turns JSON lines into a dated CSV blob", func() {
			src := filepath.Join(tempDir, "orders.jsonl")
			lines := `{"id": 1, "total": 9.5, "tags": ["a"]}
{"id": 2, "customer": "grace"}
`
			So(os.WriteFile(src, []byte(lines), 0644), ShouldBeNil)

			url, err := a.Export(ctx, src, []string{"id", "customer", "total", "tags"})
			So(err, ShouldBeNil)

			name := stagingName(src, time.Now())
			So(url, ShouldEndWith, "/exports/daily/"+name)

			data, err := os.ReadFile(filepath.Join(container, "daily", name))
			So(err, ShouldBeNil)
			rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
			So(err, ShouldBeNil)
			So(rows, ShouldResemble, [][]string{
				{"id", "customer", "total", "tags"},
				{"1", "", "9.5", `["a"]`},
				{"2", "grace", "", ""},
			})

			Convey("The staging file is removed", func() {
				_, err := os.Stat(filepath.Join(os.TempDir(), name))
				So(os.IsNotExist(err), ShouldBeTrue)
			})
		})

		Convey("Export rejects malformed input", func() {
			src := filepath.Join(tempDir, "broken.jsonl")
			So(os.WriteFile(src, []byte(`{"id": 1}`+"\n{oops"), 0644), ShouldBeNil)

			_, err := a.Export(ctx, src, []string{"id"})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "decode record 2")
		})

		Convey("Run returns once the context is cancelled", func() {
			runCtx, cancel := context.WithCancel(ctx)
			done := make(chan error, 1)
			go func() { done <- a.Run(runCtx) }()
			cancel()

			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(2 * time.Second):
				So("Run did not return", ShouldBeEmpty)
			}
		})
	})

	Convey("Given an unsupported storage type", t, func() {
		cfg := testConfig(os.TempDir())
		cfg.Storage.Type = "ftp"

		_, err := New(cfg)
		So(err, ShouldNotBeNil)
		So(strings.Contains(err.Error(), "ftp"), ShouldBeTrue)
	})
}

func TestStagingName(t *testing.T) {
	Convey("stagingName dates the source base name", t, func() {
		now := time.Date(2023, 7, 5, 12, 0, 0, 0, time.UTC)
		So(stagingName("/data/orders.jsonl", now), ShouldEqual, "orders-2023-07-05.csv")
		So(stagingName("orders", now), ShouldEqual, "orders-2023-07-05.csv")
	})
}
