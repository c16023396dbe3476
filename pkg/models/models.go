package models

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

// UserRef is a snapshot of the author's display fields taken when a post or
// comment is created. It is never updated afterwards.
type UserRef struct {
	UserID    string `bson:"user_id" json:"userId"`
	FirstName string `bson:"first_name" json:"firstName"`
	LastName  string `bson:"last_name,omitempty" json:"lastName,omitempty"`
	ImageURL  string `bson:"image_url" json:"imageUrl"`
}

func (u UserRef) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type Post struct {
	ID         uuid.UUID   `bson:"_id" json:"id"`
	Author     UserRef     `bson:"author" json:"author"`
	Text       string      `bson:"text" json:"text"`
	ImageURL   string      `bson:"image_url,omitempty" json:"imageUrl,omitempty"`
	CommentIDs []uuid.UUID `bson:"comment_ids" json:"commentIds"`
	LikedBy    []string    `bson:"liked_by" json:"likedBy"`
	CreatedAt  time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time   `bson:"updated_at" json:"updatedAt"`
}

// IsLikedBy reports whether userID is in the post's like set.
func (p Post) IsLikedBy(userID string) bool {
	for _, id := range p.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

type Comment struct {
	ID        uuid.UUID `bson:"_id" json:"id"`
	PostID    uuid.UUID `bson:"post_id" json:"postId"`
	Author    UserRef   `bson:"author" json:"author"`
	Text      string    `bson:"text" json:"text"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Follow is a directed edge: Follower follows Following.
type Follow struct {
	ID        uuid.UUID `bson:"_id" json:"id"`
	Follower  string    `bson:"follower" json:"follower"`
	Following string    `bson:"following" json:"following"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// FeedPost is the read-side projection of a post for a particular viewer.
type FeedPost struct {
	ID            uuid.UUID `json:"id"`
	Author        UserRef   `json:"author"`
	Text          string    `json:"text"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	Comments      []Comment `json:"comments"`
	LikeCount     int       `json:"likeCount"`
	LikedByViewer bool      `json:"likedByViewer"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
