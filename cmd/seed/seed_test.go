package main

import (
	"context"
	"os"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	log "github.com/sirupsen/logrus"

	"social/pkg/social"
	"social/pkg/storage/memdb"
)

func TestMain(m *testing.M) {
	log.SetLevel(log.PanicLevel)
	exitCode := m.Run()
	os.Exit(exitCode)
}

func Test_seed(t *testing.T) {
	ctx := context.Background()
	svc := social.New(memdb.New(), nil)
	opts := seedOptions{Users: 5, PostsPerUser: 2, MaxComments: 3, FollowsPerUser: 3, LikeProbability: 50}

	stats, err := seed(ctx, svc, gofakeit.New(42), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Posts != opts.Users*opts.PostsPerUser {
		t.Errorf("want %d posts, got %d", opts.Users*opts.PostsPerUser, stats.Posts)
	}

	feed, err := svc.Feed.BuildFeed(ctx, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(feed) != stats.Posts {
		t.Errorf("want %d posts in feed, got %d", stats.Posts, len(feed))
	}

	var comments, likes int
	for _, fp := range feed {
		comments += len(fp.Comments)
		likes += fp.LikeCount
	}
	if comments != stats.Comments {
		t.Errorf("want %d comments in feed, got %d", stats.Comments, comments)
	}
	if likes != stats.Likes {
		t.Errorf("want %d likes in feed, got %d", stats.Likes, likes)
	}
}
