package storage

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"

	"social/pkg/models"
)

var (
	ErrConnectDB       = fmt.Errorf("unable to establish DB connection")
	ErrDBNotResponding = fmt.Errorf("DB not responding")

	ErrNotFound  = fmt.Errorf("record not found")
	ErrDuplicate = fmt.Errorf("duplicate record")
)

// PostStore persists posts. Lists are ordered by creation time, newest first,
// with the post ID breaking ties.
type PostStore interface {
	InsertPost(ctx context.Context, post models.Post) error
	Post(ctx context.Context, id uuid.UUID) (models.Post, error)
	Posts(ctx context.Context) ([]models.Post, error)
	PostsByAuthors(ctx context.Context, userIDs []string) ([]models.Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) error

	// AddLike and RemoveLike are set operations on the post's like list.
	AddLike(ctx context.Context, postID uuid.UUID, userID string) error
	RemoveLike(ctx context.Context, postID uuid.UUID, userID string) error

	// AppendComment pushes commentID to the end of the post's comment list.
	// It is the commit point of a new comment.
	AppendComment(ctx context.Context, postID, commentID uuid.UUID) error
}

// CommentStore persists comments. CommentsByIDs returns newest first.
type CommentStore interface {
	InsertComment(ctx context.Context, comment models.Comment) error
	CommentsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Comment, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error
	DeleteCommentsByPost(ctx context.Context, postID uuid.UUID) error
}

// FollowStore persists follow edges. InsertFollow returns ErrDuplicate when
// an edge for the same (follower, following) pair already exists.
type FollowStore interface {
	InsertFollow(ctx context.Context, follow models.Follow) error
	Follow(ctx context.Context, id uuid.UUID) (models.Follow, error)
	DeleteFollow(ctx context.Context, id uuid.UUID) error
	DeleteFollowPair(ctx context.Context, follower, following string) error
	Followers(ctx context.Context, userID string) ([]models.Follow, error)
	Following(ctx context.Context, userID string) ([]models.Follow, error)
}

type Storage interface {
	PostStore
	CommentStore
	FollowStore
}
