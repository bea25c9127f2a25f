// Package redis caches the most recent posts and their reactions so the feed
// does not hit PostgreSQL for every list request.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/postboard/backend/api"
)

// Redis provides caching in Redis.
type Redis struct {
	cli *redis.Client
}

// Connect connects to the Redis server and pings the server to ensure the
// connection is working.
func Connect(ctx context.Context, addr string) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{
		cli: cli,
	}, nil
}

const (
	postPrefix = "posts"
	maxSize    = 10
)

func postKey(postID string) string {
	return fmt.Sprintf("%s:%s", postPrefix, postID)
}

func reactionSetKey(postID string) string {
	return fmt.Sprintf("%s:%s:reactions", postPrefix, postID)
}

// ListPosts returns the cached posts sorted by creation time in descending
// order, each with its cached reactions.
func (r *Redis) ListPosts(ctx context.Context) ([]api.Post, error) {
	vals, err := r.cli.ZRevRangeByScore(ctx, postPrefix, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", time.Now().UnixNano()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange: %w", err)
	}

	out := make([]api.Post, len(vals))
	for i, key := range vals {
		var p post
		if err := r.cli.HGetAll(ctx, key).Scan(&p); err != nil {
			return nil, fmt.Errorf("hgetall: %w", err)
		}

		reactions, err := r.listReactions(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list reactions: %w", err)
		}

		p.Reactions = reactions
		out[i] = p.APIPost()
	}

	return out, nil
}

// InsertPost adds the post to Redis under posts:POST_ID and adds the key to
// the sorted feed set.
func (r *Redis) InsertPost(ctx context.Context, in api.Post) error {
	p := &post{
		ID:          in.ID,
		Title:       in.Title,
		Description: in.Description,
		UserID:      in.UserID,
		CreatedAt:   in.CreatedAt,
	}

	err := r.cli.Watch(ctx, func(tx *redis.Tx) error {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			key := postKey(p.ID)
			pipe.HSet(ctx, key, p)
			pipe.ZAdd(ctx, postPrefix, redis.Z{
				Score:  float64(in.CreatedAt.UnixNano()),
				Member: key,
			})
			return nil
		})
		return err
	}, p.ID)
	if err != nil {
		return fmt.Errorf("redis insert post: %w", err)
	}

	// Keep only the newest posts; drop the oldest once the cap is exceeded.
	if err := r.evictOldest(ctx); err != nil {
		return fmt.Errorf("evict oldest: %w", err)
	}
	return nil
}

// InsertReaction adds a reaction to the cached post identified by postID.
func (r *Redis) InsertReaction(ctx context.Context, postID string, in api.Reaction) error {
	rc := &reaction{
		ID:        in.ID,
		PostID:    in.PostID,
		UserID:    in.UserID,
		Kind:      string(in.Kind),
		CreatedAt: in.CreatedAt,
	}

	err := r.cli.Watch(ctx, func(tx *redis.Tx) error {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			setKey := reactionSetKey(postID)
			key := fmt.Sprintf("%s:%s", setKey, in.ID)
			pipe.HSet(ctx, key, rc)
			pipe.ZAdd(ctx, setKey, redis.Z{
				Score:  float64(in.CreatedAt.UnixNano()),
				Member: key,
			})
			return nil
		})
		return err
	}, in.ID)
	if err != nil {
		return fmt.Errorf("redis insert reaction: %w", err)
	}

	return nil
}

// RemovePost drops the post, its feed entry and all of its cached reactions.
func (r *Redis) RemovePost(ctx context.Context, postID string) error {
	key := postKey(postID)
	setKey := reactionSetKey(postID)

	reactionKeys, err := r.cli.ZRange(ctx, setKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("zrange: %w", err)
	}

	_, err = r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, postPrefix, key)
		pipe.Del(ctx, key)
		if len(reactionKeys) > 0 {
			pipe.Del(ctx, reactionKeys...)
		}
		pipe.Del(ctx, setKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis remove post: %w", err)
	}
	return nil
}

// RemoveReaction drops one cached reaction from the post.
func (r *Redis) RemoveReaction(ctx context.Context, postID, reactionID string) error {
	setKey := reactionSetKey(postID)
	key := fmt.Sprintf("%s:%s", setKey, reactionID)

	_, err := r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, setKey, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis remove reaction: %w", err)
	}
	return nil
}

// listReactions fetches all cached reactions associated with a post.
func (r *Redis) listReactions(ctx context.Context, postID string) ([]reaction, error) {
	vals, err := r.cli.ZRangeByScore(ctx, reactionSetKey(postID), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", time.Now().UnixNano()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange: %w", err)
	}

	out := make([]reaction, len(vals))
	for i, key := range vals {
		var rc reaction
		if err := r.cli.HGetAll(ctx, key).Scan(&rc); err != nil {
			return nil, fmt.Errorf("hgetall: %w", err)
		}
		out[i] = rc
	}

	return out, nil
}

func (r *Redis) evictOldest(ctx context.Context) error {
	vals, err := r.cli.ZRange(ctx, postPrefix, 0, int64(-maxSize-1)).Result()
	if err != nil {
		return fmt.Errorf("zrange: %w", err)
	}

	for _, key := range vals {
		_ = r.cli.ZRem(ctx, postPrefix, key).Err()
		_ = r.cli.Del(ctx, key).Err()
		_ = r.cli.Del(ctx, fmt.Sprintf("%s:reactions", key)).Err()
	}

	return nil
}
