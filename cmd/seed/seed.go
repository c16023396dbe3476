package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
	log "github.com/sirupsen/logrus"

	"social/pkg/models"
	"social/pkg/social"
)

type seedOptions struct {
	Users           int
	PostsPerUser    int
	MaxComments     int
	FollowsPerUser  int
	LikeProbability int // percent
}

type seedStats struct {
	Posts    int
	Comments int
	Likes    int
	Follows  int
}

func fakeUsers(f *gofakeit.Faker, n int) []models.UserRef {
	users := make([]models.UserRef, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, models.UserRef{
			UserID:    f.UUID(),
			FirstName: f.FirstName(),
			LastName:  f.LastName(),
			ImageURL:  f.ImageURL(128, 128),
		})
	}
	return users
}

// seed creates users' posts, comments, likes and follow edges through the
// service so every record passes the same validation as API traffic.
func seed(ctx context.Context, svc *social.Service, f *gofakeit.Faker, opts seedOptions) (seedStats, error) {
	var stats seedStats
	users := fakeUsers(f, opts.Users)

	for _, u := range users {
		for i := 0; i < opts.FollowsPerUser && len(users) > 1; i++ {
			target := users[f.Number(0, len(users)-1)]
			if target.UserID == u.UserID {
				continue
			}
			_, err := svc.Follows.Follow(ctx, u.UserID, target.UserID)
			var dup *social.DuplicateFollowError
			if errors.As(err, &dup) {
				continue
			}
			if err != nil {
				return stats, fmt.Errorf("follow %s -> %s: %w", u.UserID, target.UserID, err)
			}
			stats.Follows++
		}
	}

	for _, u := range users {
		for i := 0; i < opts.PostsPerUser; i++ {
			post, err := svc.Posts.CreatePost(ctx, u, f.Sentence(f.Number(5, 20)), "")
			var verr *social.ValidationError
			if errors.As(err, &verr) {
				log.Debugf("[seed] generated post rejected: %v", err)
				continue
			}
			if err != nil {
				return stats, fmt.Errorf("create post: %w", err)
			}
			stats.Posts++

			for j := f.Number(0, opts.MaxComments); j > 0; j-- {
				commenter := users[f.Number(0, len(users)-1)]
				_, err := svc.Posts.AddComment(ctx, post.ID, commenter, f.Sentence(f.Number(3, 12)))
				if errors.As(err, &verr) {
					continue
				}
				if err != nil {
					return stats, fmt.Errorf("add comment: %w", err)
				}
				stats.Comments++
			}

			for _, liker := range users {
				if f.Number(1, 100) > opts.LikeProbability {
					continue
				}
				if err := svc.Posts.LikePost(ctx, post.ID, liker.UserID); err != nil {
					return stats, fmt.Errorf("like post: %w", err)
				}
				stats.Likes++
			}
		}
	}

	return stats, nil
}
