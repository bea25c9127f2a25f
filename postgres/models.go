package postgres

import (
	"time"

	"github.com/postboard/backend/api"
	"github.com/postboard/backend/auth"
)

// A user represents an account in the database.
type user struct {
	ID           string    `bun:",pk,type:uuid"`
	Name         string    `bun:",notnull"`
	Surname      string    `bun:",notnull"`
	Email        string    `bun:",notnull,unique"`
	PasswordHash string    `bun:",notnull"`
	CreatedAt    time.Time `bun:",nullzero,default:now()"`
}

// A post represents a post in the database.
type post struct {
	ID          string     `bun:",pk,type:uuid"`
	Title       string     `bun:",notnull"`
	Description string     `bun:",notnull"`
	UserID      string     `bun:",notnull,type:uuid"`
	CreatedAt   time.Time  `bun:",nullzero,default:now()"`
	Reactions   []reaction `bun:"rel:has-many,join:id=post_id"`
}

// A reaction represents one like or dislike row. The kind is data, not a
// table choice; the unique (post_id, user_id) index holds across both kinds.
type reaction struct {
	ID        string    `bun:",pk,type:uuid"`
	PostID    string    `bun:",notnull,type:uuid"`
	UserID    string    `bun:",notnull,type:uuid"`
	Kind      string    `bun:",notnull"`
	CreatedAt time.Time `bun:",nullzero,default:now()"`
}

func (u user) storedUser() auth.StoredUser {
	return auth.StoredUser{
		User: auth.User{
			ID:        u.ID,
			Name:      u.Name,
			Surname:   u.Surname,
			Email:     u.Email,
			CreatedAt: u.CreatedAt,
		},
		PasswordHash: u.PasswordHash,
	}
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
