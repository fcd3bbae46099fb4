// Package seed provides development fixtures: users, friendships, pending
// requests and meal logs.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"mealcraft/internal/docstore"
	"mealcraft/internal/friendgraph"
	"mealcraft/internal/meallog"
	"mealcraft/internal/models"
	"mealcraft/internal/schema"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	MealsPerUser    int
	FriendDensity   float64 // probability that any two users are friends
	PendingRequests int
	Password        string // shared password for all seeded accounts
}

// DefaultOptions returns a small but connected fixture set.
func DefaultOptions() Options {
	return Options{
		NumUsers:        12,
		MealsPerUser:    5,
		FriendDensity:   0.3,
		PendingRequests: 6,
		Password:        "password123",
	}
}

var mealDescriptions = []string{
	"chicken rice bowl", "avocado toast", "pasta carbonara", "greek salad",
	"beef ramen", "veggie stir fry", "salmon with quinoa", "breakfast burrito",
	"margherita pizza slice", "lentil soup", "pancakes with berries",
	"tuna sandwich", "butter chicken curry", "poke bowl", "caesar wrap",
}

// Run populates the store. Existing documents with colliding ids are
// overwritten; seeding is meant for empty development databases.
func Run(ctx context.Context, docs docstore.Store, opts Options) error {
	gofakeit.Seed(time.Now().UnixNano())
	engine := friendgraph.NewEngine(docs)
	meals := meallog.NewStore(docs)

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed password hash failed: %w", err)
	}

	users := make([]models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		name := gofakeit.Name()
		user := models.User{
			ID:           uuid.NewString(),
			Email:        fmt.Sprintf("%s%d@example.com", strings.ToLower(strings.ReplaceAll(name, " ", ".")), i),
			DisplayName:  name,
			CreatedAt:    time.Now().UnixMilli(),
			PasswordHash: string(hash),
		}
		if err := docs.Set(ctx, schema.UserDoc(user.ID), user); err != nil {
			return fmt.Errorf("seed user %s: %w", user.Email, err)
		}
		users = append(users, user)
	}
	log.Printf("seeded %d users (password %q)", len(users), opts.Password)

	// Friendships: request then accept, exercising the real protocol.
	friendships := 0
	for i := 0; i < len(users); i++ {
		for j := i + 1; j < len(users); j++ {
			if rand.Float64() > opts.FriendDensity {
				continue
			}
			if err := engine.SendRequest(ctx, users[i].ID, users[j].ID); err != nil {
				return fmt.Errorf("seed request: %w", err)
			}
			if err := engine.AcceptRequest(ctx, users[j].ID, users[i].ID); err != nil {
				return fmt.Errorf("seed accept: %w", err)
			}
			friendships++
		}
	}
	log.Printf("seeded %d friendships", friendships)

	// A few requests left pending so the inbox screens have content.
	pending := 0
	for attempt := 0; pending < opts.PendingRequests && attempt < opts.PendingRequests*10; attempt++ {
		from := users[rand.Intn(len(users))]
		to := users[rand.Intn(len(users))]
		if from.ID == to.ID {
			continue
		}
		if err := engine.SendRequest(ctx, from.ID, to.ID); err != nil {
			return fmt.Errorf("seed pending request: %w", err)
		}
		pending++
	}
	log.Printf("seeded %d pending requests", pending)

	logs := 0
	for _, user := range users {
		for i := 0; i < opts.MealsPerUser; i++ {
			desc := mealDescriptions[rand.Intn(len(mealDescriptions))]
			calories := 250 + rand.Intn(800)
			created, err := meals.Add(ctx, user.ID, models.MealLog{
				Description:   desc,
				TotalCalories: calories,
				Dishes: []models.Dish{{
					Name:     desc,
					Calories: calories,
					Macros: models.Macros{
						Carbs:    float64(10 + rand.Intn(80)),
						Fats:     float64(5 + rand.Intn(40)),
						Proteins: float64(10 + rand.Intn(50)),
					},
				}},
				Timestamp: time.Now().Add(-time.Duration(rand.Intn(14*24)) * time.Hour).UnixMilli(),
			})
			if err != nil {
				return fmt.Errorf("seed meal log: %w", err)
			}
			// Roughly half the logs are public so the feed has content.
			if rand.Intn(2) == 0 {
				if err := meals.SetPrivacy(ctx, user.ID, created.ID, true); err != nil {
					return fmt.Errorf("seed privacy: %w", err)
				}
			}
			logs++
		}
	}
	log.Printf("seeded %d meal logs", logs)

	return nil
}
