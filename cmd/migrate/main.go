// Command migrate provisions the tables and the feed view.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"pulasafe/internal/config"
	"pulasafe/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|views|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		log.Println("schema applied")
	case "views":
		if err := database.EnsureViews(ctx, db); err != nil {
			return err
		}
		log.Printf("view %s applied", database.PostsViewName)
	case "status":
		status, err := database.Status(ctx, db)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		for _, s := range status {
			log.Printf("%-12s exists=%t", s.Table, s.Exists)
		}
	default:
		return usage()
	}
	return nil
}
