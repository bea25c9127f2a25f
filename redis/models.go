package redis

import (
	"time"

	"github.com/postboard/backend/api"
)

// A post represents a cached post.
type post struct {
	ID          string    `redis:"id"`
	Title       string    `redis:"title"`
	Description string    `redis:"description"`
	UserID      string    `redis:"user_id"`
	CreatedAt   time.Time `redis:"created_at"`
	Reactions   []reaction
}

// A reaction represents a cached like or dislike.
type reaction struct {
	ID        string    `redis:"id"`
	PostID    string    `redis:"post_id"`
	UserID    string    `redis:"user_id"`
	Kind      string    `redis:"kind"`
	CreatedAt time.Time `redis:"created_at"`
}

func (p post) APIPost() api.Post {
	out := api.Post{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		UserID:      p.UserID,
		CreatedAt:   p.CreatedAt,
		Likes:       []api.Reaction{},
		Dislikes:    []api.Reaction{},
	}
	for _, r := range p.Reactions {
		switch api.Kind(r.Kind) {
		case api.KindLike:
			out.Likes = append(out.Likes, r.APIReaction())
		case api.KindDislike:
			out.Dislikes = append(out.Dislikes, r.APIReaction())
		}
	}
	return out
}

func (r reaction) APIReaction() api.Reaction {
	return api.Reaction{
		ID:        r.ID,
		PostID:    r.PostID,
		UserID:    r.UserID,
		Kind:      api.Kind(r.Kind),
		CreatedAt: r.CreatedAt,
	}
}
