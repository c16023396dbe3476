package postgres

import (
	"context"
	_ "embed"
	"errors"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"social/pkg/models"
	"social/pkg/storage"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

const postColumns = `id, author_id, author_first_name, author_last_name, author_image_url,
	text, image_url, comment_ids, liked_by, created_at, updated_at`

const commentColumns = `id, post_id, author_id, author_first_name, author_last_name, author_image_url,
	text, created_at, updated_at`

type Store struct {
	db *pgxpool.Pool
}

func New(ctx context.Context, conStr string) (*Store, error) {
	db, err := pgxpool.Connect(ctx, conStr)
	if err != nil {
		return nil, err
	}
	s := Store{
		db: db,
	}

	return &s, nil
}

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	s.db.Close()
	return nil
}

func (s *Store) InsertPost(ctx context.Context, post models.Post) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		post.ID,
		post.Author.UserID,
		post.Author.FirstName,
		post.Author.LastName,
		post.Author.ImageURL,
		post.Text,
		post.ImageURL,
		idStrings(post.CommentIDs),
		nonNil(post.LikedBy),
		post.CreatedAt,
		post.UpdatedAt,
	)
	return translate(err)
}

func (s *Store) Post(ctx context.Context, id uuid.UUID) (models.Post, error) {
	row := s.db.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	post, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Post{}, storage.ErrNotFound
	}
	return post, err
}

func (s *Store) Posts(ctx context.Context) ([]models.Post, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id DESC`)
}

func (s *Store) PostsByAuthors(ctx context.Context, userIDs []string) ([]models.Post, error) {
	if len(userIDs) == 0 {
		return []models.Post{}, nil
	}
	return s.queryPosts(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE author_id = ANY($1::text[])
		ORDER BY created_at DESC, id DESC
	`, userIDs)
}

func (s *Store) DeletePost(ctx context.Context, id uuid.UUID) error {
	return s.execOne(ctx, `DELETE FROM posts WHERE id = $1`, id)
}

// AddLike and RemoveLike rewrite the array in a single UPDATE, so the row lock
// serialises concurrent changes to the same post.
func (s *Store) AddLike(ctx context.Context, postID uuid.UUID, userID string) error {
	return s.execOne(ctx, `
		UPDATE posts SET liked_by = CASE
			WHEN $2::text = ANY(liked_by) THEN liked_by
			ELSE array_append(liked_by, $2::text)
		END
		WHERE id = $1
	`, postID, userID)
}

func (s *Store) RemoveLike(ctx context.Context, postID uuid.UUID, userID string) error {
	return s.execOne(ctx, `UPDATE posts SET liked_by = array_remove(liked_by, $2::text) WHERE id = $1`, postID, userID)
}

func (s *Store) AppendComment(ctx context.Context, postID, commentID uuid.UUID) error {
	return s.execOne(ctx, `UPDATE posts SET comment_ids = array_append(comment_ids, $2::uuid) WHERE id = $1`, postID, commentID.String())
}

func (s *Store) InsertComment(ctx context.Context, c models.Comment) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO comments (`+commentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		c.ID,
		c.PostID,
		c.Author.UserID,
		c.Author.FirstName,
		c.Author.LastName,
		c.Author.ImageURL,
		c.Text,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return translate(err)
}

func (s *Store) CommentsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Comment, error) {
	comments := []models.Comment{}
	if len(ids) == 0 {
		return comments, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+commentColumns+` FROM comments
		WHERE id = ANY($1::uuid[])
		ORDER BY created_at DESC, id DESC
	`, idStrings(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Comment
		err := rows.Scan(
			&c.ID,
			&c.PostID,
			&c.Author.UserID,
			&c.Author.FirstName,
			&c.Author.LastName,
			&c.Author.ImageURL,
			&c.Text,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		c.CreatedAt, c.UpdatedAt = c.CreatedAt.UTC(), c.UpdatedAt.UTC()
		comments = append(comments, c)
	}

	return comments, rows.Err()
}

func (s *Store) DeleteComment(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	return err
}

func (s *Store) DeleteCommentsByPost(ctx context.Context, postID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM comments WHERE post_id = $1`, postID)
	return err
}

func (s *Store) InsertFollow(ctx context.Context, f models.Follow) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO follows (id, follower, following, created_at)
		VALUES ($1, $2, $3, $4)
	`, f.ID, f.Follower, f.Following, f.CreatedAt)
	return translate(err)
}

func (s *Store) Follow(ctx context.Context, id uuid.UUID) (models.Follow, error) {
	var f models.Follow
	err := s.db.QueryRow(ctx, `
		SELECT id, follower, following, created_at FROM follows WHERE id = $1
	`, id).Scan(&f.ID, &f.Follower, &f.Following, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Follow{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Follow{}, err
	}

	f.CreatedAt = f.CreatedAt.UTC()
	return f, nil
}

func (s *Store) DeleteFollow(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM follows WHERE id = $1`, id)
	return err
}

func (s *Store) DeleteFollowPair(ctx context.Context, follower, following string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM follows WHERE follower = $1 AND following = $2`, follower, following)
	return err
}

func (s *Store) Followers(ctx context.Context, userID string) ([]models.Follow, error) {
	return s.queryFollows(ctx, `
		SELECT id, follower, following, created_at FROM follows
		WHERE following = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
}

func (s *Store) Following(ctx context.Context, userID string) ([]models.Follow, error) {
	return s.queryFollows(ctx, `
		SELECT id, follower, following, created_at FROM follows
		WHERE follower = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
}

func (s *Store) queryPosts(ctx context.Context, sql string, args ...interface{}) ([]models.Post, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}

	return posts, rows.Err()
}

func (s *Store) queryFollows(ctx context.Context, sql string, args ...interface{}) ([]models.Follow, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	follows := []models.Follow{}
	for rows.Next() {
		var f models.Follow
		if err := rows.Scan(&f.ID, &f.Follower, &f.Following, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.CreatedAt = f.CreatedAt.UTC()
		follows = append(follows, f)
	}

	return follows, rows.Err()
}

// execOne runs a statement that must touch exactly one row.
func (s *Store) execOne(ctx context.Context, sql string, args ...interface{}) error {
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanPost(row pgx.Row) (models.Post, error) {
	var (
		p          models.Post
		commentIDs []string
	)
	err := row.Scan(
		&p.ID,
		&p.Author.UserID,
		&p.Author.FirstName,
		&p.Author.LastName,
		&p.Author.ImageURL,
		&p.Text,
		&p.ImageURL,
		&commentIDs,
		&p.LikedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return models.Post{}, err
	}

	p.CommentIDs = make([]uuid.UUID, 0, len(commentIDs))
	for _, s := range commentIDs {
		id, err := uuid.FromString(s)
		if err != nil {
			return models.Post{}, err
		}
		p.CommentIDs = append(p.CommentIDs, id)
	}
	p.LikedBy = nonNil(p.LikedBy)
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()

	return p, nil
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return storage.ErrDuplicate
	}
	return err
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
