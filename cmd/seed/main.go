// Command seed inserts the reference categories and optional demo posts.
package main

import (
	"context"
	"flag"
	"log"

	"pulasafe/internal/config"
	"pulasafe/internal/database"
	"pulasafe/internal/seed"
)

func main() {
	numPosts := flag.Int("posts", 0, "Number of demo posts to create")
	maxLikes := flag.Int("likes", 5, "Maximum demo likes per post")
	shouldClean := flag.Bool("clean", false, "Remove posts, likes and messages before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible demo content")
	migrate := flag.Bool("migrate", true, "Apply the schema before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() && (*numPosts > 0 || *shouldClean) {
		log.Fatal("Refusing to create or clear demo data in production")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	if *migrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}

	opts := seed.Options{
		Posts:    *numPosts,
		MaxLikes: *maxLikes,
		Clean:    *shouldClean,
		Seed:     *randSeed,
	}
	if err := seed.Run(ctx, db, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeding complete: categories ready, %d demo posts", *numPosts)
}
