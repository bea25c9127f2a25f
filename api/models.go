package api

import "time"

// A Kind discriminates the two reaction flavors. A (post, user) pair holds at
// most one reaction of either kind.
type Kind string

const (
	KindLike    Kind = "like"
	KindDislike Kind = "dislike"
)

// Opposite returns the other reaction kind.
func (k Kind) Opposite() Kind {
	if k == KindLike {
		return KindDislike
	}
	return KindLike
}

// Label returns the capitalized kind name used in client-facing messages.
func (k Kind) Label() string {
	if k == KindDislike {
		return "Dislike"
	}
	return "Like"
}

// A Post represents a persisted post together with the reactions it has
// collected.
type Post struct {
	ID          string
	Title       string
	Description string
	UserID      string
	CreatedAt   time.Time
	Likes       []Reaction
	Dislikes    []Reaction
}

// A Reaction links one user to one post as a like or a dislike.
type Reaction struct {
	ID        string
	PostID    string
	UserID    string
	Kind      Kind
	CreatedAt time.Time
}
