// Command seed fills the Mongo database with fake users' activity.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	log "github.com/sirupsen/logrus"

	"social/pkg/social"
	"social/pkg/storage/mongo"
)

func main() {
	var (
		opts     seedOptions
		randSeed int64
	)

	flag.IntVar(&opts.Users, "users", 20, "Number of fake users.")
	flag.IntVar(&opts.PostsPerUser, "posts", 3, "Posts per user.")
	flag.IntVar(&opts.MaxComments, "comments", 5, "Maximum comments per post.")
	flag.IntVar(&opts.FollowsPerUser, "follows", 5, "Follow attempts per user.")
	flag.IntVar(&opts.LikeProbability, "likes", 30, "Chance in percent that a user likes a post.")
	flag.Int64Var(&randSeed, "seed", 0, "Random seed, 0 picks a random one.")
	flag.Parse()

	conf, err := mongo.NewConfig()
	if err != nil {
		log.Fatalf("[seed] invalid Mongo configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := mongo.New(ctx, conf)
	if err != nil {
		log.Fatalf("[seed] failed to connect to %v: %v", conf, err)
	}
	defer db.Close(context.Background())

	stats, err := seed(ctx, social.New(db, nil), gofakeit.New(randSeed), opts)
	if err != nil {
		log.Fatalf("[seed] failed: %v", err)
	}

	log.Infof("[seed] created %d posts, %d comments, %d likes, %d follows", stats.Posts, stats.Comments, stats.Likes, stats.Follows)
}
