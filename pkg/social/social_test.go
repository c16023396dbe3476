package social

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"

	"social/pkg/models"
	"social/pkg/storage/memdb"
)

func TestMain(m *testing.M) {
	log.SetLevel(log.PanicLevel)
	exitCode := m.Run()
	os.Exit(exitCode)
}

// tickingClock makes every call to now return a strictly later time.
func tickingClock(t *testing.T) {
	t.Helper()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	var n int64
	orig := now
	now = func() time.Time {
		return base.Add(time.Duration(atomic.AddInt64(&n, 1)) * time.Second)
	}
	t.Cleanup(func() { now = orig })
}

type bannedWord string

func (w bannedWord) Check(text string) bool {
	return strings.Contains(strings.ToLower(text), string(w))
}

var (
	alice = models.UserRef{UserID: "alice", FirstName: "Alice", LastName: "Liddell", ImageURL: "https://img/alice.png"}
	bob   = models.UserRef{UserID: "bob", FirstName: "Bob", ImageURL: "https://img/bob.png"}
	carol = models.UserRef{UserID: "carol", FirstName: "Carol"}
)

func TestPosts_CreatePost(t *testing.T) {
	svc := New(memdb.New(), bannedWord("spam"))
	ctx := context.Background()

	tests := []struct {
		name      string
		author    models.UserRef
		text      string
		wantField string
	}{
		{name: "Valid post", author: alice, text: "Hello"},
		{name: "Missing author", author: models.UserRef{FirstName: "Nobody"}, text: "Hello", wantField: "author"},
		{name: "Empty text", author: alice, text: "", wantField: "text"},
		{name: "Whitespace text", author: alice, text: "  \n\t", wantField: "text"},
		{name: "Banned text", author: alice, text: "buy SPAM now", wantField: "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post, err := svc.Posts.CreatePost(ctx, tt.author, tt.text, "")

			if tt.wantField != "" {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("want ValidationError, got %v", err)
				}
				if verr.Field != tt.wantField {
					t.Errorf("want invalid field %q, got %q", tt.wantField, verr.Field)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if post.ID == uuid.Nil {
				t.Error("want generated post id")
			}
			if !post.CreatedAt.Equal(post.UpdatedAt) {
				t.Errorf("want createdAt == updatedAt, got %v and %v", post.CreatedAt, post.UpdatedAt)
			}
			if post.CommentIDs == nil || len(post.CommentIDs) != 0 {
				t.Errorf("want empty comment ids, got %#v", post.CommentIDs)
			}
			if post.LikedBy == nil || len(post.LikedBy) != 0 {
				t.Errorf("want empty likes, got %#v", post.LikedBy)
			}

			got, err := svc.Posts.GetPost(ctx, post.ID)
			if err != nil {
				t.Fatalf("unexpected error retrieving post: %v", err)
			}
			if !reflect.DeepEqual(got, post) {
				t.Errorf("want post\n%+v\n\ngot post\n%+v\n", post, got)
			}
		})
	}
}

func TestPosts_GetPostNotFound(t *testing.T) {
	svc := New(memdb.New(), nil)

	_, err := svc.Posts.GetPost(context.Background(), uuid.Must(uuid.NewV4()))
	var nerr *NotFoundError
	if !errors.As(err, &nerr) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
	if nerr.Kind != "post" {
		t.Errorf("want kind post, got %q", nerr.Kind)
	}
}

func TestPosts_DeletePost(t *testing.T) {
	tickingClock(t)
	svc := New(memdb.New(), nil)
	ctx := context.Background()

	post, err := svc.Posts.CreatePost(ctx, alice, "to be deleted", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	comment, err := svc.Posts.AddComment(ctx, post.ID, bob, "nice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var aerr *AuthorizationError
	if err := svc.Posts.DeletePost(ctx, post.ID, bob.UserID); !errors.As(err, &aerr) {
		t.Fatalf("want AuthorizationError, got %v", err)
	}
	if _, err := svc.Posts.GetPost(ctx, post.ID); err != nil {
		t.Fatalf("post must survive a forbidden delete, got %v", err)
	}

	if err := svc.Posts.DeletePost(ctx, post.ID, alice.UserID); err != nil {
		t.Fatalf("unexpected error deleting post: %v", err)
	}

	var nerr *NotFoundError
	if _, err := svc.Posts.GetPost(ctx, post.ID); !errors.As(err, &nerr) {
		t.Errorf("want NotFoundError after delete, got %v", err)
	}
	if err := svc.Posts.DeletePost(ctx, post.ID, alice.UserID); !errors.As(err, &nerr) {
		t.Errorf("want NotFoundError on second delete, got %v", err)
	}

	left, err := svc.Comments.CommentsByIDs(ctx, []uuid.UUID{comment.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("want comments of deleted post removed, got %+v", left)
	}
}

func TestPosts_LikeUnlike(t *testing.T) {
	svc := New(memdb.New(), nil)
	ctx := context.Background()

	post, err := svc.Posts.CreatePost(ctx, alice, "like me", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	steps := []struct {
		name      string
		like      bool
		userID    string
		wantLikes []string
	}{
		{name: "Like", like: true, userID: "bob", wantLikes: []string{"bob"}},
		{name: "Like again", like: true, userID: "bob", wantLikes: []string{"bob"}},
		{name: "Second user", like: true, userID: "carol", wantLikes: []string{"bob", "carol"}},
		{name: "Unlike not liked", like: false, userID: "dave", wantLikes: []string{"bob", "carol"}},
		{name: "Unlike", like: false, userID: "bob", wantLikes: []string{"carol"}},
		{name: "Unlike again", like: false, userID: "bob", wantLikes: []string{"carol"}},
	}

	for _, st := range steps {
		t.Run(st.name, func(t *testing.T) {
			var err error
			if st.like {
				err = svc.Posts.LikePost(ctx, post.ID, st.userID)
			} else {
				err = svc.Posts.UnlikePost(ctx, post.ID, st.userID)
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			likes, err := svc.Posts.Likes(ctx, post.ID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(likes, st.wantLikes) {
				t.Errorf("want likes %v, got %v", st.wantLikes, likes)
			}
		})
	}

	got, _ := svc.Posts.GetPost(ctx, post.ID)
	if !got.UpdatedAt.Equal(post.UpdatedAt) {
		t.Errorf("likes must not touch updatedAt, want %v got %v", post.UpdatedAt, got.UpdatedAt)
	}

	var nerr *NotFoundError
	if err := svc.Posts.LikePost(ctx, uuid.Must(uuid.NewV4()), "bob"); !errors.As(err, &nerr) {
		t.Errorf("want NotFoundError, got %v", err)
	}
	var verr *ValidationError
	if err := svc.Posts.LikePost(ctx, post.ID, ""); !errors.As(err, &verr) {
		t.Errorf("want ValidationError, got %v", err)
	}
}

func TestPosts_ConcurrentLikes(t *testing.T) {
	svc := New(memdb.New(), nil)
	ctx := context.Background()

	post, err := svc.Posts.CreatePost(ctx, alice, "popular", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const users = 50
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		userID := fmt.Sprintf("user_%d", i)
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := svc.Posts.LikePost(ctx, post.ID, userID); err != nil {
					t.Errorf("unexpected error liking post: %v", err)
				}
			}()
		}
	}
	wg.Wait()

	likes, err := svc.Posts.Likes(ctx, post.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(likes) != users {
		t.Errorf("want %d distinct likes, got %d", users, len(likes))
	}
}

func TestPosts_AddComment(t *testing.T) {
	tickingClock(t)
	svc := New(memdb.New(), bannedWord("scam"))
	ctx := context.Background()

	post, err := svc.Posts.CreatePost(ctx, alice, "comment on me", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, text := range []string{"first", "second", "third"} {
		comment, err := svc.Posts.AddComment(ctx, post.ID, bob, text)
		if err != nil {
			t.Fatalf("unexpected error adding comment %q: %v", text, err)
		}
		if comment.PostID != post.ID {
			t.Errorf("want comment post id %v, got %v", post.ID, comment.PostID)
		}
	}

	comments, err := svc.Posts.Comments(ctx, post.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var gotTexts []string
	for _, c := range comments {
		gotTexts = append(gotTexts, c.Text)
	}
	if want := []string{"third", "second", "first"}; !reflect.DeepEqual(gotTexts, want) {
		t.Errorf("want comments %v, got %v", want, gotTexts)
	}

	var verr *ValidationError
	if _, err := svc.Posts.AddComment(ctx, post.ID, bob, "a scam"); !errors.As(err, &verr) {
		t.Errorf("want ValidationError for banned text, got %v", err)
	}
	if _, err := svc.Posts.AddComment(ctx, post.ID, models.UserRef{}, "anonymous"); !errors.As(err, &verr) {
		t.Errorf("want ValidationError for missing author, got %v", err)
	}

	var nerr *NotFoundError
	if _, err := svc.Posts.AddComment(ctx, uuid.Must(uuid.NewV4()), bob, "orphan"); !errors.As(err, &nerr) {
		t.Errorf("want NotFoundError, got %v", err)
	}

	got, _ := svc.Posts.GetPost(ctx, post.ID)
	if len(got.CommentIDs) != 3 {
		t.Errorf("want 3 comment ids after rejected comments, got %d", len(got.CommentIDs))
	}
}

func TestPosts_ConcurrentComments(t *testing.T) {
	svc := New(memdb.New(), nil)
	ctx := context.Background()

	post, err := svc.Posts.CreatePost(ctx, alice, "busy thread", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.Posts.AddComment(ctx, post.ID, bob, fmt.Sprintf("comment %d", i)); err != nil {
				t.Errorf("unexpected error adding comment: %v", err)
			}
		}(i)
	}
	wg.Wait()

	comments, err := svc.Posts.Comments(ctx, post.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comments) != n {
		t.Errorf("want %d comments, got %d", n, len(comments))
	}
}

var errAppend = errors.New("append failed")

// appendFailingStore records inserted comments and refuses to link them to posts.
type appendFailingStore struct {
	*memdb.Store
	inserted []uuid.UUID
}

func (s *appendFailingStore) InsertComment(ctx context.Context, comment models.Comment) error {
	s.inserted = append(s.inserted, comment.ID)
	return s.Store.InsertComment(ctx, comment)
}

func (s *appendFailingStore) AppendComment(ctx context.Context, postID, commentID uuid.UUID) error {
	return errAppend
}

func TestPosts_AddCommentAppendFails(t *testing.T) {
	db := &appendFailingStore{Store: memdb.New()}
	svc := New(db, nil)
	ctx := context.Background()

	post, err := svc.Posts.CreatePost(ctx, alice, "fragile", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.Posts.AddComment(ctx, post.ID, bob, "lost")
	var serr *StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("want StorageError, got %v", err)
	}
	if !errors.Is(err, errAppend) {
		t.Errorf("want error wrapping %v, got %v", errAppend, err)
	}

	if len(db.inserted) != 1 {
		t.Fatalf("want one provisional comment inserted, got %d", len(db.inserted))
	}
	left, _ := db.Store.CommentsByIDs(ctx, db.inserted)
	if len(left) != 0 {
		t.Errorf("want provisional comment discarded, got %+v", left)
	}

	got, _ := svc.Posts.GetPost(ctx, post.ID)
	if len(got.CommentIDs) != 0 {
		t.Errorf("want no comment ids, got %v", got.CommentIDs)
	}
}

func TestFollows_Follow(t *testing.T) {
	svc := New(memdb.New(), nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		follower  string
		following string
		wantErr   error
	}{
		{name: "New edge", follower: "alice", following: "bob"},
		{name: "Duplicate edge", follower: "alice", following: "bob", wantErr: &DuplicateFollowError{}},
		{name: "Reversed edge", follower: "bob", following: "alice"},
		{name: "Self follow", follower: "carol", following: "carol"},
		{name: "Missing follower", follower: "", following: "bob", wantErr: &ValidationError{}},
		{name: "Missing following", follower: "alice", following: " ", wantErr: &ValidationError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			follow, err := svc.Follows.Follow(ctx, tt.follower, tt.following)

			switch want := tt.wantErr.(type) {
			case nil:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if follow.Follower != tt.follower || follow.Following != tt.following {
					t.Errorf("want edge %s->%s, got %+v", tt.follower, tt.following, follow)
				}
			case *DuplicateFollowError:
				if !errors.As(err, &want) {
					t.Errorf("want DuplicateFollowError, got %v", err)
				}
			case *ValidationError:
				if !errors.As(err, &want) {
					t.Errorf("want ValidationError, got %v", err)
				}
			}
		})
	}

	followers, err := svc.Follows.ListFollowers(ctx, "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(followers) != 1 || followers[0].Follower != "alice" {
		t.Errorf("want single follower alice, got %+v", followers)
	}
}

func TestFollows_Unfollow(t *testing.T) {
	svc := New(memdb.New(), nil)
	ctx := context.Background()

	edge, err := svc.Follows.Follow(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var aerr *AuthorizationError
	if err := svc.Follows.Unfollow(ctx, edge.ID, "bob"); !errors.As(err, &aerr) {
		t.Fatalf("want AuthorizationError, got %v", err)
	}

	if err := svc.Follows.Unfollow(ctx, edge.ID, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Follows.Unfollow(ctx, edge.ID, "alice"); err != nil {
		t.Errorf("want repeated unfollow to succeed, got %v", err)
	}

	following, _ := svc.Follows.ListFollowing(ctx, "alice")
	if len(following) != 0 {
		t.Errorf("want no edges, got %+v", following)
	}

	if _, err := svc.Follows.Follow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("want follow after unfollow to succeed, got %v", err)
	}
	if err := svc.Follows.UnfollowUser(ctx, "alice", "bob"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Follows.UnfollowUser(ctx, "alice", "bob"); err != nil {
		t.Errorf("want repeated unfollow to succeed, got %v", err)
	}
	followers, _ := svc.Follows.ListFollowers(ctx, "bob")
	if len(followers) != 0 {
		t.Errorf("want no followers, got %+v", followers)
	}
}

func TestFeed_BuildFeed(t *testing.T) {
	tickingClock(t)
	svc := New(memdb.New(), nil)
	ctx := context.Background()

	older, err := svc.Posts.CreatePost(ctx, alice, "older", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	newer, err := svc.Posts.CreatePost(ctx, bob, "newer", "https://img/p.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Posts.LikePost(ctx, older.ID, "carol"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Posts.LikePost(ctx, older.ID, "bob"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c1, _ := svc.Posts.AddComment(ctx, older.ID, carol, "c1")
	c2, _ := svc.Posts.AddComment(ctx, older.ID, bob, "c2")
	c3, _ := svc.Posts.AddComment(ctx, newer.ID, alice, "c3")

	tests := []struct {
		name      string
		viewer    string
		wantLiked []bool
	}{
		{name: "Viewer who liked", viewer: "carol", wantLiked: []bool{false, true}},
		{name: "Viewer who did not like", viewer: "alice", wantLiked: []bool{false, false}},
		{name: "Anonymous viewer", viewer: "", wantLiked: []bool{false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed, err := svc.Feed.BuildFeed(ctx, tt.viewer)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(feed) != 2 {
				t.Fatalf("want 2 posts, got %d", len(feed))
			}
			if feed[0].ID != newer.ID || feed[1].ID != older.ID {
				t.Errorf("want newest post first, got %v, %v", feed[0].Text, feed[1].Text)
			}
			if feed[0].LikeCount != 0 || feed[1].LikeCount != 2 {
				t.Errorf("want like counts [0 2], got [%d %d]", feed[0].LikeCount, feed[1].LikeCount)
			}
			for i, fp := range feed {
				if fp.LikedByViewer != tt.wantLiked[i] {
					t.Errorf("post %q: want likedByViewer %v, got %v", fp.Text, tt.wantLiked[i], fp.LikedByViewer)
				}
			}
			if want := []models.Comment{c3}; !reflect.DeepEqual(feed[0].Comments, want) {
				t.Errorf("want comments %+v, got %+v", want, feed[0].Comments)
			}
			if want := []models.Comment{c2, c1}; !reflect.DeepEqual(feed[1].Comments, want) {
				t.Errorf("want comments %+v, got %+v", want, feed[1].Comments)
			}
			if feed[0].ImageURL != "https://img/p.png" {
				t.Errorf("want image url to be carried, got %q", feed[0].ImageURL)
			}
		})
	}

	all, err := svc.Posts.ListAllPosts(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	anon, _ := svc.Feed.BuildFeed(ctx, "")
	if !reflect.DeepEqual(all, anon) {
		t.Errorf("want ListAllPosts to equal the anonymous feed")
	}
}

func TestFeed_BuildFeedEmpty(t *testing.T) {
	svc := New(memdb.New(), nil)

	feed, err := svc.Feed.BuildFeed(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if feed == nil || len(feed) != 0 {
		t.Errorf("want empty non-nil feed, got %#v", feed)
	}
}

func TestFeed_BuildFollowingFeed(t *testing.T) {
	tickingClock(t)
	svc := New(memdb.New(), nil)
	ctx := context.Background()

	own, _ := svc.Posts.CreatePost(ctx, alice, "mine", "")
	followed, _ := svc.Posts.CreatePost(ctx, bob, "followed", "")
	if _, err := svc.Posts.CreatePost(ctx, carol, "stranger", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Follows.Follow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	feed, err := svc.Feed.BuildFollowingFeed(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var gotIDs []uuid.UUID
	for _, fp := range feed {
		gotIDs = append(gotIDs, fp.ID)
	}
	if want := []uuid.UUID{followed.ID, own.ID}; !reflect.DeepEqual(gotIDs, want) {
		t.Errorf("want posts %v, got %v", want, gotIDs)
	}

	var verr *ValidationError
	if _, err := svc.Feed.BuildFollowingFeed(ctx, ""); !errors.As(err, &verr) {
		t.Errorf("want ValidationError for anonymous viewer, got %v", err)
	}
}
