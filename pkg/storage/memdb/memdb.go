package memdb

import (
	"bytes"
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/gofrs/uuid"

	"social/pkg/models"
	"social/pkg/storage"
)

// Store is an in-memory storage.Storage used in development mode and tests.
type Store struct {
	mu       sync.Mutex
	posts    map[uuid.UUID]models.Post
	comments map[uuid.UUID]models.Comment
	follows  map[uuid.UUID]models.Follow
}

func New() *Store {
	db := Store{
		posts:    make(map[uuid.UUID]models.Post),
		comments: make(map[uuid.UUID]models.Comment),
		follows:  make(map[uuid.UUID]models.Follow),
	}

	return &db
}

func (db *Store) InsertPost(ctx context.Context, post models.Post) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.posts[post.ID]; ok {
		return storage.ErrDuplicate
	}
	db.posts[post.ID] = clonePost(post)

	return nil
}

func (db *Store) Post(ctx context.Context, id uuid.UUID) (models.Post, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	post, ok := db.posts[id]
	if !ok {
		return models.Post{}, storage.ErrNotFound
	}

	return clonePost(post), nil
}

func (db *Store) Posts(ctx context.Context) ([]models.Post, error) {
	return db.filterPosts(func(models.Post) bool { return true }), nil
}

func (db *Store) PostsByAuthors(ctx context.Context, userIDs []string) ([]models.Post, error) {
	return db.filterPosts(func(p models.Post) bool {
		return slices.Contains(userIDs, p.Author.UserID)
	}), nil
}

func (db *Store) DeletePost(ctx context.Context, id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.posts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(db.posts, id)

	return nil
}

func (db *Store) AddLike(ctx context.Context, postID uuid.UUID, userID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	post, ok := db.posts[postID]
	if !ok {
		return storage.ErrNotFound
	}
	if !slices.Contains(post.LikedBy, userID) {
		post.LikedBy = append(post.LikedBy, userID)
		db.posts[postID] = post
	}

	return nil
}

func (db *Store) RemoveLike(ctx context.Context, postID uuid.UUID, userID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	post, ok := db.posts[postID]
	if !ok {
		return storage.ErrNotFound
	}
	post.LikedBy = slices.DeleteFunc(post.LikedBy, func(id string) bool { return id == userID })
	db.posts[postID] = post

	return nil
}

func (db *Store) AppendComment(ctx context.Context, postID, commentID uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	post, ok := db.posts[postID]
	if !ok {
		return storage.ErrNotFound
	}
	post.CommentIDs = append(post.CommentIDs, commentID)
	db.posts[postID] = post

	return nil
}

func (db *Store) InsertComment(ctx context.Context, comment models.Comment) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.comments[comment.ID]; ok {
		return storage.ErrDuplicate
	}
	db.comments[comment.ID] = comment

	return nil
}

func (db *Store) CommentsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Comment, error) {
	db.mu.Lock()
	comments := make([]models.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := db.comments[id]; ok {
			comments = append(comments, c)
		}
	}
	db.mu.Unlock()

	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return bytes.Compare(comments[i].ID.Bytes(), comments[j].ID.Bytes()) > 0
	})

	return comments, nil
}

func (db *Store) DeleteComment(ctx context.Context, id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.comments, id)
	return nil
}

func (db *Store) DeleteCommentsByPost(ctx context.Context, postID uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for id, c := range db.comments {
		if c.PostID == postID {
			delete(db.comments, id)
		}
	}
	return nil
}

func (db *Store) InsertFollow(ctx context.Context, follow models.Follow) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, f := range db.follows {
		if f.Follower == follow.Follower && f.Following == follow.Following {
			return storage.ErrDuplicate
		}
	}
	db.follows[follow.ID] = follow

	return nil
}

func (db *Store) Follow(ctx context.Context, id uuid.UUID) (models.Follow, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	f, ok := db.follows[id]
	if !ok {
		return models.Follow{}, storage.ErrNotFound
	}
	return f, nil
}

func (db *Store) DeleteFollow(ctx context.Context, id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.follows, id)
	return nil
}

func (db *Store) DeleteFollowPair(ctx context.Context, follower, following string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for id, f := range db.follows {
		if f.Follower == follower && f.Following == following {
			delete(db.follows, id)
		}
	}
	return nil
}

func (db *Store) Followers(ctx context.Context, userID string) ([]models.Follow, error) {
	return db.filterFollows(func(f models.Follow) bool { return f.Following == userID }), nil
}

func (db *Store) Following(ctx context.Context, userID string) ([]models.Follow, error) {
	return db.filterFollows(func(f models.Follow) bool { return f.Follower == userID }), nil
}

func (db *Store) filterPosts(keep func(models.Post) bool) []models.Post {
	db.mu.Lock()
	posts := make([]models.Post, 0, len(db.posts))
	for _, p := range db.posts {
		if keep(p) {
			posts = append(posts, clonePost(p))
		}
	}
	db.mu.Unlock()

	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return bytes.Compare(posts[i].ID.Bytes(), posts[j].ID.Bytes()) > 0
	})

	return posts
}

func (db *Store) filterFollows(keep func(models.Follow) bool) []models.Follow {
	db.mu.Lock()
	follows := make([]models.Follow, 0)
	for _, f := range db.follows {
		if keep(f) {
			follows = append(follows, f)
		}
	}
	db.mu.Unlock()

	sort.Slice(follows, func(i, j int) bool {
		if !follows[i].CreatedAt.Equal(follows[j].CreatedAt) {
			return follows[i].CreatedAt.After(follows[j].CreatedAt)
		}
		return bytes.Compare(follows[i].ID.Bytes(), follows[j].ID.Bytes()) > 0
	})

	return follows
}

// clonePost copies the slice fields so callers never share backing arrays with the store.
func clonePost(p models.Post) models.Post {
	p.CommentIDs = append(make([]uuid.UUID, 0, len(p.CommentIDs)), p.CommentIDs...)
	p.LikedBy = append(make([]string, 0, len(p.LikedBy)), p.LikedBy...)
	return p
}
