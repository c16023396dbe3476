package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"social/pkg/models"
	"social/pkg/storage"
)

const (
	postsColl    = "posts"
	commentsColl = "comments"
	followsColl  = "follows"
)

// newestFirst orders documents by creation time descending with _id as tie-break.
var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

type Storage struct {
	client *mongo.Client
	dbName string
}

func New(ctx context.Context, conf *Config) (*Storage, error) {
	client, err := mongo.Connect(ctx, conf.Options())
	if err != nil {
		return nil, err
	}

	s := Storage{client: client, dbName: conf.DBName}
	for _, name := range []string{postsColl, commentsColl, followsColl} {
		if err := s.createCollection(ctx, name); err != nil {
			return nil, err
		}
	}
	if err := s.createIndexes(ctx); err != nil {
		return nil, err
	}

	return &s, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Storage) coll(name string) *mongo.Collection {
	return s.client.Database(s.dbName).Collection(name)
}

func (s *Storage) InsertPost(ctx context.Context, post models.Post) error {
	_, err := s.coll(postsColl).InsertOne(ctx, post)
	if mongo.IsDuplicateKeyError(err) {
		return storage.ErrDuplicate
	}
	return err
}

func (s *Storage) Post(ctx context.Context, id uuid.UUID) (models.Post, error) {
	var post models.Post
	err := s.coll(postsColl).FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Post{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Post{}, err
	}

	return post, nil
}

func (s *Storage) Posts(ctx context.Context) ([]models.Post, error) {
	return s.findPosts(ctx, bson.M{})
}

func (s *Storage) PostsByAuthors(ctx context.Context, userIDs []string) ([]models.Post, error) {
	if len(userIDs) == 0 {
		return []models.Post{}, nil
	}
	return s.findPosts(ctx, bson.M{"author.user_id": bson.M{"$in": userIDs}})
}

func (s *Storage) DeletePost(ctx context.Context, id uuid.UUID) error {
	res, err := s.coll(postsColl).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *Storage) AddLike(ctx context.Context, postID uuid.UUID, userID string) error {
	return s.updatePost(ctx, postID, bson.M{"$addToSet": bson.M{"liked_by": userID}})
}

func (s *Storage) RemoveLike(ctx context.Context, postID uuid.UUID, userID string) error {
	return s.updatePost(ctx, postID, bson.M{"$pull": bson.M{"liked_by": userID}})
}

// AppendComment is a single-document update, so the reference appears atomically.
func (s *Storage) AppendComment(ctx context.Context, postID, commentID uuid.UUID) error {
	return s.updatePost(ctx, postID, bson.M{"$push": bson.M{"comment_ids": commentID}})
}

func (s *Storage) InsertComment(ctx context.Context, comment models.Comment) error {
	_, err := s.coll(commentsColl).InsertOne(ctx, comment)
	if mongo.IsDuplicateKeyError(err) {
		return storage.ErrDuplicate
	}
	return err
}

func (s *Storage) CommentsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Comment, error) {
	comments := []models.Comment{}
	if len(ids) == 0 {
		return comments, nil
	}

	opts := options.Find().SetSort(newestFirst)
	cur, err := s.coll(commentsColl).Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	if err := cur.All(ctx, &comments); err != nil {
		return nil, err
	}

	return comments, nil
}

func (s *Storage) DeleteComment(ctx context.Context, id uuid.UUID) error {
	_, err := s.coll(commentsColl).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *Storage) DeleteCommentsByPost(ctx context.Context, postID uuid.UUID) error {
	_, err := s.coll(commentsColl).DeleteMany(ctx, bson.M{"post_id": postID})
	return err
}

// InsertFollow relies on the unique (follower, following) index to reject duplicates,
// so two concurrent inserts for the same pair cannot both succeed.
func (s *Storage) InsertFollow(ctx context.Context, follow models.Follow) error {
	_, err := s.coll(followsColl).InsertOne(ctx, follow)
	if mongo.IsDuplicateKeyError(err) {
		return storage.ErrDuplicate
	}
	return err
}

func (s *Storage) Follow(ctx context.Context, id uuid.UUID) (models.Follow, error) {
	var follow models.Follow
	err := s.coll(followsColl).FindOne(ctx, bson.M{"_id": id}).Decode(&follow)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Follow{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Follow{}, err
	}

	return follow, nil
}

func (s *Storage) DeleteFollow(ctx context.Context, id uuid.UUID) error {
	_, err := s.coll(followsColl).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *Storage) DeleteFollowPair(ctx context.Context, follower, following string) error {
	_, err := s.coll(followsColl).DeleteOne(ctx, bson.M{"follower": follower, "following": following})
	return err
}

func (s *Storage) Followers(ctx context.Context, userID string) ([]models.Follow, error) {
	return s.findFollows(ctx, bson.M{"following": userID})
}

func (s *Storage) Following(ctx context.Context, userID string) ([]models.Follow, error) {
	return s.findFollows(ctx, bson.M{"follower": userID})
}

func (s *Storage) findPosts(ctx context.Context, filter bson.M) ([]models.Post, error) {
	opts := options.Find().SetSort(newestFirst)
	cur, err := s.coll(postsColl).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}

	return posts, nil
}

func (s *Storage) findFollows(ctx context.Context, filter bson.M) ([]models.Follow, error) {
	opts := options.Find().SetSort(newestFirst)
	cur, err := s.coll(followsColl).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	follows := []models.Follow{}
	if err := cur.All(ctx, &follows); err != nil {
		return nil, err
	}

	return follows, nil
}

func (s *Storage) updatePost(ctx context.Context, postID uuid.UUID, update bson.M) error {
	res, err := s.coll(postsColl).UpdateOne(ctx, bson.M{"_id": postID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *Storage) createIndexes(ctx context.Context) error {
	_, err := s.coll(followsColl).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "follower", Value: 1}, {Key: "following", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("follower_following_unique"),
		},
		{Keys: bson.D{{Key: "following", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create %s indexes: %w", followsColl, err)
	}

	_, err = s.coll(postsColl).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: newestFirst},
		{Keys: bson.D{{Key: "author.user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create %s indexes: %w", postsColl, err)
	}

	_, err = s.coll(commentsColl).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "post_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create %s indexes: %w", commentsColl, err)
	}

	return nil
}

// createCollection creates a collection with the given name in the database if it doesn't already exist.
func (s *Storage) createCollection(ctx context.Context, collName string) error {
	collExists, err := collectionExists(ctx, s.client.Database(s.dbName), collName)
	if err != nil {
		return err
	}

	if !collExists {
		err := s.client.Database(s.dbName).CreateCollection(ctx, collName)
		if err != nil {
			return err
		}
	}

	return nil
}

// collectionExists checks if a collection with the given name exists in the database.
func collectionExists(ctx context.Context, db *mongo.Database, collName string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return false, fmt.Errorf("failed to list collection names: %w", err)
	}

	for _, name := range names {
		if name == collName {
			return true, nil
		}
	}

	return false, nil
}
