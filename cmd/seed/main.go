// Command seed populates a development database with fake users,
// friendships and meal logs.
package main

import (
	"context"
	"flag"
	"log"

	"mealcraft/internal/config"
	"mealcraft/internal/docstore"
	"mealcraft/internal/seed"
)

func main() {
	opts := seed.DefaultOptions()
	flag.IntVar(&opts.NumUsers, "users", opts.NumUsers, "number of users to create")
	flag.IntVar(&opts.MealsPerUser, "meals", opts.MealsPerUser, "meal logs per user")
	flag.Float64Var(&opts.FriendDensity, "density", opts.FriendDensity, "probability two users are friends")
	flag.IntVar(&opts.PendingRequests, "pending", opts.PendingRequests, "pending friend requests to leave")
	flag.StringVar(&opts.Password, "password", opts.Password, "password for all seeded accounts")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	docs, err := docstore.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}
	defer docs.Close()

	if err := seed.Run(context.Background(), docs, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Println("Seeding complete")
}
