// Package postgres provides the durable entity store. Referential integrity
// lives here: foreign keys cascade deletes from users and posts down to
// reactions, and a unique (post_id, user_id) index makes concurrent reaction
// creates fail instead of double-inserting.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/postboard/backend/api"
	"github.com/postboard/backend/auth"
)

// Postgres provides storage in PostgreSQL.
type Postgres struct {
	bun *bun.DB
}

// Connect connects to the database and pings the DB to ensure the connection
// is working.
func Connect(ctx context.Context, connStr string) (*Postgres, error) {
	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db := bun.NewDB(sqlDB, pgdialect.New())
	return &Postgres{
		bun: db,
	}, nil
}

// CreateSchema creates the tables, foreign keys and indexes if they do not
// exist yet.
func (pg *Postgres) CreateSchema(ctx context.Context) error {
	if _, err := pg.bun.NewCreateTable().
		Model((*user)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create users: %w", err)
	}

	if _, err := pg.bun.NewCreateTable().
		Model((*post)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create posts: %w", err)
	}

	if _, err := pg.bun.NewCreateTable().
		Model((*reaction)(nil)).
		IfNotExists().
		ForeignKey(`("post_id") REFERENCES "posts" ("id") ON DELETE CASCADE`).
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create reactions: %w", err)
	}

	// One reaction of either kind per (post, user) pair. This is what breaks
	// the check-then-insert race between concurrent creates.
	if _, err := pg.bun.NewCreateIndex().
		Model((*reaction)(nil)).
		Index("reactions_post_id_user_id_key").
		Unique().
		Column("post_id", "user_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create reaction index: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}

// ListPosts returns a page of posts ordered by creation time, newest first,
// each with its reactions loaded.
func (pg *Postgres) ListPosts(ctx context.Context, limit, offset int, excludePostIDs ...string) ([]api.Post, error) {
	var posts []post
	q := pg.bun.NewSelect().
		Model(&posts).
		Relation("Reactions").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)

	if len(excludePostIDs) > 0 {
		q = q.Where("id NOT IN (?)", bun.In(excludePostIDs))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	out := make([]api.Post, len(posts))
	for i, p := range posts {
		out[i] = p.APIPost()
	}

	return out, nil
}

// GetPost returns the post with the given id and its reactions. The second
// return value is false when no such post exists.
func (pg *Postgres) GetPost(ctx context.Context, postID string) (api.Post, bool, error) {
	var p post
	err := pg.bun.NewSelect().
		Model(&p).
		Relation("Reactions").
		Where("id = ?", postID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Post{}, false, nil
	}
	if err != nil {
		return api.Post{}, false, fmt.Errorf("scan: %w", err)
	}
	return p.APIPost(), true, nil
}

// InsertPost inserts a post into the database, generating its id.
func (pg *Postgres) InsertPost(ctx context.Context, in api.Post) (api.Post, error) {
	p := &post{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		UserID:      in.UserID,
	}
	if _, err := pg.bun.NewInsert().Model(p).Returning("*").Exec(ctx); err != nil {
		return api.Post{}, fmt.Errorf("insert: %w", err)
	}
	return p.APIPost(), nil
}

// UpdatePost replaces the title and description of the post and returns the
// updated row.
func (pg *Postgres) UpdatePost(ctx context.Context, postID, title, description string) (api.Post, error) {
	if _, err := pg.bun.NewUpdate().
		Model((*post)(nil)).
		Set("title = ?", title).
		Set("description = ?", description).
		Where("id = ?", postID).
		Exec(ctx); err != nil {
		return api.Post{}, fmt.Errorf("update: %w", err)
	}

	p, ok, err := pg.GetPost(ctx, postID)
	if err != nil {
		return api.Post{}, err
	}
	if !ok {
		return api.Post{}, fmt.Errorf("post %s: %w", postID, api.ErrNotFound)
	}
	return p, nil
}

// DeletePost deletes the post. Its reactions go with it through the foreign
// key cascade.
func (pg *Postgres) DeletePost(ctx context.Context, postID string) error {
	if _, err := pg.bun.NewDelete().
		Model((*post)(nil)).
		Where("id = ?", postID).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// FindReaction returns the reaction of the given kind held by userID on the
// post, if any.
func (pg *Postgres) FindReaction(ctx context.Context, postID, userID string, kind api.Kind) (api.Reaction, bool, error) {
	var r reaction
	err := pg.bun.NewSelect().
		Model(&r).
		Where("post_id = ?", postID).
		Where("user_id = ?", userID).
		Where("kind = ?", string(kind)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Reaction{}, false, nil
	}
	if err != nil {
		return api.Reaction{}, false, fmt.Errorf("scan: %w", err)
	}
	return r.APIReaction(), true, nil
}

// GetReaction returns the reaction with the given id, if any.
func (pg *Postgres) GetReaction(ctx context.Context, reactionID string) (api.Reaction, bool, error) {
	var r reaction
	err := pg.bun.NewSelect().
		Model(&r).
		Where("id = ?", reactionID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Reaction{}, false, nil
	}
	if err != nil {
		return api.Reaction{}, false, fmt.Errorf("scan: %w", err)
	}
	return r.APIReaction(), true, nil
}

// InsertReaction inserts a reaction, generating its id. A unique-constraint
// violation on the (post_id, user_id) pair surfaces as api.ErrConflict.
func (pg *Postgres) InsertReaction(ctx context.Context, in api.Reaction) (api.Reaction, error) {
	r := &reaction{
		ID:     uuid.NewString(),
		PostID: in.PostID,
		UserID: in.UserID,
		Kind:   string(in.Kind),
	}
	if _, err := pg.bun.NewInsert().Model(r).Returning("*").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return api.Reaction{}, fmt.Errorf("reaction for post %s by user %s: %w", in.PostID, in.UserID, api.ErrConflict)
		}
		return api.Reaction{}, fmt.Errorf("insert: %w", err)
	}
	return r.APIReaction(), nil
}

// DeleteReaction deletes the reaction with the given id.
func (pg *Postgres) DeleteReaction(ctx context.Context, reactionID string) error {
	if _, err := pg.bun.NewDelete().
		Model((*reaction)(nil)).
		Where("id = ?", reactionID).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// InsertUser inserts an account, generating its id. A taken email surfaces as
// api.ErrConflict.
func (pg *Postgres) InsertUser(ctx context.Context, in auth.StoredUser) (auth.User, error) {
	u := &user{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Surname:      in.Surname,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
	}
	if _, err := pg.bun.NewInsert().Model(u).Returning("*").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return auth.User{}, fmt.Errorf("email %s: %w", in.Email, api.ErrConflict)
		}
		return auth.User{}, fmt.Errorf("insert: %w", err)
	}
	return u.storedUser().User, nil
}

// GetUserByEmail returns the account registered under email, if any.
func (pg *Postgres) GetUserByEmail(ctx context.Context, email string) (auth.StoredUser, bool, error) {
	var u user
	err := pg.bun.NewSelect().
		Model(&u).
		Where("email = ?", email).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.StoredUser{}, false, nil
	}
	if err != nil {
		return auth.StoredUser{}, false, fmt.Errorf("scan: %w", err)
	}
	return u.storedUser(), true, nil
}
