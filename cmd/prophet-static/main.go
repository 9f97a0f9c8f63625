package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/client"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/config"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/dashboard"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/db"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/render"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/retry"
)

func main() {
	fmt.Println("=== Prophet Static Generator v0 ===")

	configPath := flag.String("config", "", "path to a YAML config file")
	out := flag.String("out", "index.html", "output file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var source dashboard.Source
	if cfg.Prophet.SourceKind == config.SourcePostgres {
		prophetDB, err := db.NewProphetPostgres(cfg.Postgres.DSN)
		if err != nil {
			fmt.Printf("❌ Failed to connect to Prophet DB: %v\n", err)
			os.Exit(1)
		}
		defer prophetDB.Close()
		source = prophetDB
	} else {
		policy := retry.NewPolicy(cfg.Retry.MaxAttempts, cfg.Retry.InitialDelay, client.IsRetryable)
		source = client.NewProphetClient(cfg.Prophet.APIURL, &http.Client{Timeout: cfg.Prophet.HTTPTimeout}, policy)
	}

	service := dashboard.NewService(source, cfg.Dashboard.StartingBankroll)

	info, err := service.CurrentWeek(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to retrieve current week: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Current week %d of %d\n", info.CurrentWeek, info.TotalWeeks)

	weeks, allTime, err := service.Static(ctx, info.TotalWeeks)
	if err != nil {
		fmt.Printf("❌ Failed to load dashboard data: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d weeks\n", len(weeks))

	renderer, err := render.New()
	if err != nil {
		fmt.Printf("❌ Failed to load templates: %v\n", err)
		os.Exit(1)
	}

	var buf bytes.Buffer
	err = renderer.Static(&buf, render.StaticPage{
		CurrentWeek: info.CurrentWeek,
		TotalWeeks:  info.TotalWeeks,
		Weeks:       weeks,
		AllTime:     allTime,
	})
	if err != nil {
		fmt.Printf("❌ Failed to render page: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, buf.Bytes(), 0o644); err != nil {
		fmt.Printf("❌ Failed to write %s: %v\n", *out, err)
		os.Exit(1)
	}

	fmt.Printf("✓ Wrote %s (%d bytes)\n", *out, buf.Len())
}
