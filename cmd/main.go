package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/ohmage/mobility-store/internal/config"
	"github.com/ohmage/mobility-store/internal/logger"
	"github.com/ohmage/mobility-store/internal/model"
	"github.com/ohmage/mobility-store/internal/repository/postgres"
	"github.com/ohmage/mobility-store/internal/service"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	username := flag.String("user", "", "username to summarize")
	createUser := flag.Bool("create-user", false, "create the user if it does not exist")
	hours := flag.Int("hours", 24, "lookback window for location coverage, in hours")
	from := flag.String("from", "", "active-dates range start (RFC 3339), defaults to 30 days ago")
	to := flag.String("to", "", "active-dates range end (RFC 3339), defaults to now")
	version := flag.Bool("version", false, "print build information and exit")
	flag.Parse()

	if *version {
		fmt.Printf("Build version: %s\nBuild date: %s\nBuild commit: %s\n", buildVersion, buildDate, buildCommit)
		return
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	if *username == "" {
		logger.Fatal("missing required flag", "flag", "-user")
	}

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	pointRepo := postgres.NewPointRepository(db)
	mobility := service.NewMobility(pointRepo, userRepo, logger.With("component", "mobility"))

	if *createUser {
		if _, err := userRepo.GetByUsername(ctx, *username); errors.Is(err, model.ErrNotFound) {
			if _, err := userRepo.Create(ctx, *username); err != nil {
				logger.Fatal("failed to create user", "username", *username, "error", err)
			}
			logger.Info("created user", "username", *username)
		} else if err != nil {
			logger.Fatal("failed to look up user", "username", *username, "error", err)
		}
	}

	if err := printSummary(ctx, mobility, *username, *hours, *from, *to); err != nil {
		logger.Fatal("failed to summarize user", "username", *username, "error", err)
	}
}

func printSummary(ctx context.Context, mobility *service.Mobility, username string, hours int, from, to string) error {
	end := time.Now()
	start := end.AddDate(0, 0, -30)
	var err error
	if from != "" {
		if start, err = time.Parse(time.RFC3339, from); err != nil {
			return fmt.Errorf("failed to parse -from: %w", err)
		}
	}
	if to != "" {
		if end, err = time.Parse(time.RFC3339, to); err != nil {
			return fmt.Errorf("failed to parse -to: %w", err)
		}
	}

	lastUpload, err := mobility.LastUpload(ctx, username)
	if err != nil {
		return err
	}
	if lastUpload == nil {
		fmt.Printf("%s: no mobility points\n", username)
		return nil
	}
	fmt.Printf("%s: last upload %s\n", username, lastUpload.Format(time.RFC3339))

	coverage, err := mobility.LocationCoverage(ctx, username, hours)
	if err != nil {
		return err
	}
	if coverage == nil {
		fmt.Printf("location coverage (last %dh): no data\n", hours)
	} else {
		fmt.Printf("location coverage (last %dh): %.1f%%\n", hours, *coverage*100)
	}

	dates, err := mobility.ActiveDates(ctx, username, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return err
	}

	sorted := make([]model.LocalDate, 0, len(dates))
	for d := range dates {
		sorted = append(sorted, d)
	}
	slices.SortFunc(sorted, func(a, b model.LocalDate) int {
		if a.Year != b.Year {
			return a.Year - b.Year
		}
		if a.Month != b.Month {
			return int(a.Month) - int(b.Month)
		}
		return a.Day - b.Day
	})

	fmt.Printf("active dates (%s .. %s):\n", start.Format(time.DateOnly), end.Format(time.DateOnly))
	for _, d := range sorted {
		fmt.Printf("  %04d-%02d-%02d\n", d.Year, d.Month, d.Day)
	}

	return nil
}
