package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/semmidev/blobber/internal/app"
	"github.com/semmidev/blobber/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	configPath := flag.String("config", "configs/config.yaml", "path to config file, empty to use environment only")
	sweep := flag.Bool("sweep", false, "run one retention sweep and exit")
	upload := flag.String("upload", "", "upload a local file and print its URL")
	export := flag.String("export", "", "upload a JSON lines file as CSV and print its URL")
	fields := flag.String("fields", "", "comma-separated CSV columns for -export")
	containers := flag.Bool("containers", false, "list containers and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *containers:
		list, err := application.Containers(ctx)
		if err != nil {
			return err
		}
		for _, c := range list {
			fmt.Println(c.Name)
		}
		return nil

	case *upload != "":
		url, err := application.Upload(ctx, *upload)
		if err != nil {
			return err
		}
		fmt.Println(url)
		return nil

	case *export != "":
		columns := parseFields(*fields)
		if len(columns) == 0 {
			return fmt.Errorf("-export requires -fields")
		}
		url, err := application.Export(ctx, *export, columns)
		if err != nil {
			return err
		}
		fmt.Println(url)
		return nil

	case *sweep:
		result, err := application.SweepOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Println(result)
		return nil
	}

	return application.Run(ctx)
}

// parseFields splits a comma-separated column list, trimming spaces and
// dropping empty entries.
func parseFields(s string) []string {
	var fields []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
