package social

import (
	"context"

	"github.com/gofrs/uuid"

	"social/pkg/models"
	"social/pkg/storage"
)

type Feed struct {
	posts    storage.PostStore
	comments *Comments
	follows  storage.FollowStore
}

func NewFeed(posts storage.PostStore, comments *Comments, follows storage.FollowStore) *Feed {
	return &Feed{posts: posts, comments: comments, follows: follows}
}

// BuildFeed returns all posts, newest first, projected for viewerID.
// An empty viewerID yields likedByViewer=false everywhere.
func (f *Feed) BuildFeed(ctx context.Context, viewerID string) ([]models.FeedPost, error) {
	posts, err := f.posts.Posts(ctx)
	if err != nil {
		return nil, &StorageError{Op: "find posts", Err: err}
	}
	return compose(ctx, f.comments, posts, viewerID)
}

// BuildFollowingFeed returns the posts of the users viewerID follows and of
// viewerID itself, newest first.
func (f *Feed) BuildFollowingFeed(ctx context.Context, viewerID string) ([]models.FeedPost, error) {
	if err := validateUserID("viewer", viewerID); err != nil {
		return nil, err
	}

	following, err := f.follows.Following(ctx, viewerID)
	if err != nil {
		return nil, &StorageError{Op: "find following", Err: err}
	}

	authors := make([]string, 0, len(following)+1)
	authors = append(authors, viewerID)
	for _, edge := range following {
		if edge.Following != viewerID {
			authors = append(authors, edge.Following)
		}
	}

	posts, err := f.posts.PostsByAuthors(ctx, authors)
	if err != nil {
		return nil, &StorageError{Op: "find posts", Err: err}
	}
	return compose(ctx, f.comments, posts, viewerID)
}

// compose resolves the comments of all posts with a single lookup and builds
// the viewer projection. Post order is preserved.
func compose(ctx context.Context, comments *Comments, posts []models.Post, viewerID string) ([]models.FeedPost, error) {
	owner := make(map[uuid.UUID]uuid.UUID)
	var ids []uuid.UUID
	for _, p := range posts {
		for _, id := range p.CommentIDs {
			owner[id] = p.ID
			ids = append(ids, id)
		}
	}

	resolved, err := comments.CommentsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	// resolved is newest first, so appending keeps each list ordered.
	byPost := make(map[uuid.UUID][]models.Comment, len(posts))
	for _, c := range resolved {
		postID := owner[c.ID]
		byPost[postID] = append(byPost[postID], c)
	}

	feed := make([]models.FeedPost, 0, len(posts))
	for _, p := range posts {
		postComments := byPost[p.ID]
		if postComments == nil {
			postComments = []models.Comment{}
		}
		feed = append(feed, models.FeedPost{
			ID:            p.ID,
			Author:        p.Author,
			Text:          p.Text,
			ImageURL:      p.ImageURL,
			Comments:      postComments,
			LikeCount:     len(p.LikedBy),
			LikedByViewer: viewerID != "" && p.IsLikedBy(viewerID),
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
		})
	}

	return feed, nil
}
