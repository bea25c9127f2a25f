package api

import (
	"context"
	"fmt"
)

// A ReactionStore provides the lookups and mutations the reaction engine
// needs. Lookups report absence through the bool result, never through an
// error.
type ReactionStore interface {
	GetPost(ctx context.Context, postID string) (Post, bool, error)
	FindReaction(ctx context.Context, postID, userID string, kind Kind) (Reaction, bool, error)
	GetReaction(ctx context.Context, reactionID string) (Reaction, bool, error)
	InsertReaction(ctx context.Context, r Reaction) (Reaction, error)
	DeleteReaction(ctx context.Context, reactionID string) error
}

// A ReactionEngine applies the rules governing creation and deletion of likes
// and dislikes. Both kinds run the same transitions, parameterized by Kind.
type ReactionEngine struct {
	Store ReactionStore
}

// Create records a reaction of the given kind by userID on the post. The
// preconditions are checked in a fixed order, and the first failing check
// decides the reported error:
//
//  1. the post must exist (ErrNotFound),
//  2. the actor must not own the post (ErrForbidden),
//  3. no opposing-kind reaction may exist for the pair (ErrForbidden),
//  4. no same-kind reaction may exist for the pair (ErrForbidden).
//
// A duplicate create is rejected, not treated as a no-op. Two creates racing
// past the checks are broken by the store's unique constraint, which surfaces
// as ErrConflict.
func (e *ReactionEngine) Create(ctx context.Context, kind Kind, postID, userID string) (Reaction, error) {
	post, ok, err := e.Store.GetPost(ctx, postID)
	if err != nil {
		return Reaction{}, fmt.Errorf("get post: %w", err)
	}
	if !ok {
		return Reaction{}, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	if !CanReact(post, userID) {
		return Reaction{}, fmt.Errorf("own post: %w", ErrForbidden)
	}

	if _, ok, err = e.Store.FindReaction(ctx, postID, userID, kind.Opposite()); err != nil {
		return Reaction{}, fmt.Errorf("find %s: %w", kind.Opposite(), err)
	} else if ok {
		return Reaction{}, fmt.Errorf("%s exists: %w", kind.Opposite(), ErrForbidden)
	}
	if _, ok, err = e.Store.FindReaction(ctx, postID, userID, kind); err != nil {
		return Reaction{}, fmt.Errorf("find %s: %w", kind, err)
	} else if ok {
		return Reaction{}, fmt.Errorf("%s exists: %w", kind, ErrForbidden)
	}

	reaction, err := e.Store.InsertReaction(ctx, Reaction{
		PostID: postID,
		UserID: userID,
		Kind:   kind,
	})
	if err != nil {
		return Reaction{}, fmt.Errorf("insert reaction: %w", err)
	}
	return reaction, nil
}

// Delete removes the reaction with the given id on behalf of userID. A
// reaction reached through the wrong kind is reported as absent, matching the
// per-kind lookup semantics of the delete routes. Only the creator may
// delete; anyone else gets ErrForbidden. Returns the deleted reaction.
func (e *ReactionEngine) Delete(ctx context.Context, kind Kind, reactionID, userID string) (Reaction, error) {
	reaction, ok, err := e.Store.GetReaction(ctx, reactionID)
	if err != nil {
		return Reaction{}, fmt.Errorf("get reaction: %w", err)
	}
	if !ok || reaction.Kind != kind {
		return Reaction{}, fmt.Errorf("%s %s: %w", kind, reactionID, ErrNotFound)
	}
	if !CanMutateReaction(reaction, userID) {
		return Reaction{}, fmt.Errorf("not reaction owner: %w", ErrForbidden)
	}
	if err := e.Store.DeleteReaction(ctx, reactionID); err != nil {
		return Reaction{}, fmt.Errorf("delete reaction: %w", err)
	}
	return reaction, nil
}
