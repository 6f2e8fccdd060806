package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/beanscene/api/internal/config"
	mongodoc "github.com/beanscene/api/internal/infrastructure/mongo"
	publicapp "github.com/beanscene/api/internal/public/application"
	"github.com/beanscene/api/internal/public/domain"
)

type seedOptions struct {
	drop         bool
	users        int
	cafesPerInst int
	reviews      int
	randomSeed   int64
}

var opts seedOptions

var rootCmd = &cobra.Command{
	Use:          "seed",
	Short:        "Load the institution table and sample cafes, users and reviews",
	SilenceUsage: true,
	RunE:         runSeed,
}

func init() {
	flags := rootCmd.Flags()
	flags.BoolVar(&opts.drop, "drop", false, "drop the collections before seeding")
	flags.IntVar(&opts.users, "users", 8, "number of sample users")
	flags.IntVar(&opts.cafesPerInst, "cafes", 4, "sample cafes per institution")
	flags.IntVar(&opts.reviews, "reviews", 40, "number of sample reviews")
	flags.Int64Var(&opts.randomSeed, "seed", 0, "random seed, 0 picks one from the clock")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var sampleNames = []string{
	"Common Grounds", "Daily Grind", "Bean There", "Brew Lab", "Steep & Pour",
	"Night Owl Coffee", "Campus Roasters", "The Study Cup", "Drip Society", "Ferment & Foam",
}

var sampleBlurbs = []string{
	"Quiet upstairs, good outlets and a solid oat flat white.",
	"Cold brew is strong and the line moves fast between classes.",
	"Pastries sell out by ten but the pour-over is worth the wait.",
	"Loud at lunch, great for group projects, espresso a bit bitter.",
	"Friendly baristas and the matcha is better than most tea shops.",
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	seed := opts.randomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	client, err := mongodoc.Connect(ctx, cfg.MongoURI, cfg.Timeout)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	db := client.Database(cfg.MongoDatabase)

	if opts.drop {
		if err := dropCollections(ctx, db, cfg.Collections); err != nil {
			return err
		}
		logger.Info("dropped collections")
	}
	if err := mongodoc.EnsureIndexes(ctx, db, mongodoc.Collections(cfg.Collections)); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	table, err := publicapp.DefaultInstitutions()
	if err != nil {
		return err
	}
	if err := mongodoc.NewInstitutionRepository(db, cfg.Collections.Institutions).ReplaceAll(ctx, table); err != nil {
		return fmt.Errorf("seed institutions: %w", err)
	}
	logger.Info("seeded institutions", zap.Int("count", len(table)))

	userIDs, err := seedUsers(ctx, db, cfg.Collections, table, rng)
	if err != nil {
		return err
	}
	cafes, err := seedCafes(ctx, db, cfg.Collections, table, rng)
	if err != nil {
		return err
	}
	written, err := seedReviews(ctx, db, cfg.Collections, userIDs, cafes, rng)
	if err != nil {
		return err
	}
	follows, err := seedFollows(ctx, db, cfg.Collections, userIDs, rng)
	if err != nil {
		return err
	}

	logger.Info("seed complete",
		zap.Int64("seed", seed),
		zap.Int("users", len(userIDs)),
		zap.Int("cafes", len(cafes)),
		zap.Int("reviews", written),
		zap.Int("follows", follows))
	return nil
}

func dropCollections(ctx context.Context, db *mongo.Database, c config.Collections) error {
	for _, name := range []string{c.Cafes, c.Reviews, c.Users, c.Follows, c.Institutions} {
		if err := db.Collection(name).Drop(ctx); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
	}
	return nil
}

func seedUsers(ctx context.Context, db *mongo.Database, c config.Collections, table []domain.Institution, rng *rand.Rand) ([]string, error) {
	repo := mongodoc.NewUserRepository(db, c.Users)
	ids := make([]string, 0, opts.users)
	for i := 0; i < opts.users; i++ {
		user := domain.User{
			ID:          fmt.Sprintf("seed-user-%02d", i+1),
			Handle:      fmt.Sprintf("sipper%02d", i+1),
			FirstName:   fmt.Sprintf("Sipper %d", i+1),
			Institution: table[rng.Intn(len(table))].Name,
		}
		if err := repo.Save(ctx, user); err != nil {
			return nil, fmt.Errorf("seed user %s: %w", user.ID, err)
		}
		ids = append(ids, user.ID)
	}
	return ids, nil
}

func seedCafes(ctx context.Context, db *mongo.Database, c config.Collections, table []domain.Institution, rng *rand.Rand) ([]domain.Cafe, error) {
	repo := mongodoc.NewCafeRepository(db, c.Cafes, c.Reviews)
	cafes := make([]domain.Cafe, 0, len(table)*opts.cafesPerInst)
	for _, inst := range table {
		for i := 0; i < opts.cafesPerInst; i++ {
			cafe := domain.Cafe{
				Name:        sampleNames[rng.Intn(len(sampleNames))] + " " + shortName(inst),
				Institution: inst.Name,
				Location:    jitter(inst, rng),
				Categories:  []string{"cafe"},
			}
			if err := repo.Create(ctx, &cafe); err != nil {
				return nil, fmt.Errorf("seed cafe %q: %w", cafe.Name, err)
			}
			cafes = append(cafes, cafe)
		}
	}
	return cafes, nil
}

func seedReviews(ctx context.Context, db *mongo.Database, c config.Collections, userIDs []string, cafes []domain.Cafe, rng *rand.Rand) (int, error) {
	if len(userIDs) == 0 || len(cafes) == 0 {
		return 0, nil
	}
	reviews := mongodoc.NewReviewRepository(db, c.Reviews)
	users := mongodoc.NewUserRepository(db, c.Users)
	now := time.Now().UTC()
	written := 0
	for i := 0; i < opts.reviews; i++ {
		// Spread over ~60 days so the month leaderboard differs from all-time.
		at := now.Add(-time.Duration(rng.Intn(60*24)) * time.Hour)
		review := &domain.Review{
			UserID:    userIDs[rng.Intn(len(userIDs))],
			CafeID:    cafes[rng.Intn(len(cafes))].ID,
			Rating:    math.Round((publicapp.MinRating+rng.Float64()*(publicapp.MaxRating-publicapp.MinRating))*10) / 10,
			Blurb:     sampleBlurbs[rng.Intn(len(sampleBlurbs))],
			CreatedAt: at,
			UpdatedAt: at,
		}
		created, err := reviews.Upsert(ctx, review)
		if err != nil {
			return written, fmt.Errorf("seed review: %w", err)
		}
		if !created {
			continue
		}
		written++
		if err := users.IncrementReviewStats(ctx, review.UserID, at); err != nil {
			return written, fmt.Errorf("seed review stats: %w", err)
		}
	}
	return written, nil
}

func seedFollows(ctx context.Context, db *mongo.Database, c config.Collections, userIDs []string, rng *rand.Rand) (int, error) {
	repo := mongodoc.NewFollowRepository(db, c.Follows)
	count := 0
	for _, follower := range userIDs {
		followee := userIDs[rng.Intn(len(userIDs))]
		if followee == follower {
			continue
		}
		following, err := repo.Toggle(ctx, follower, followee)
		if err != nil {
			return count, fmt.Errorf("seed follow: %w", err)
		}
		if following {
			count++
		}
	}
	return count, nil
}

func shortName(inst domain.Institution) string {
	if len(inst.Aliases) > 0 {
		return inst.Aliases[0]
	}
	return inst.Name
}

// jitter places a point inside the campus window so it gets tagged with it.
func jitter(inst domain.Institution, rng *rand.Rand) domain.Coordinate {
	if inst.Bounds == nil {
		return domain.Coordinate{Lat: inst.Lat + (rng.Float64()-0.5)*0.01, Lng: inst.Lng + (rng.Float64()-0.5)*0.01}
	}
	b := inst.Bounds
	return domain.Coordinate{
		Lat: b.MinLat + rng.Float64()*(b.MaxLat-b.MinLat),
		Lng: b.MinLng + rng.Float64()*(b.MaxLng-b.MinLng),
	}
}
