package api

import "testing"

func TestCanReact(t *testing.T) {
	post := Post{ID: "p1", UserID: "u1"}

	if CanReact(post, "u1") {
		t.Error("Owner may not react to their own post")
	}
	if !CanReact(post, "u2") {
		t.Error("Non-owner should be allowed to react")
	}
}

func TestCanMutateReaction(t *testing.T) {
	reaction := Reaction{ID: "r1", PostID: "p1", UserID: "u2", Kind: KindLike}

	if !CanMutateReaction(reaction, "u2") {
		t.Error("Creator should be allowed to delete their reaction")
	}
	if CanMutateReaction(reaction, "u1") {
		t.Error("Only the creator may delete a reaction")
	}
}

func TestCanMutatePost(t *testing.T) {
	post := Post{ID: "p1", UserID: "u1"}

	if !CanMutatePost(post, "u1") {
		t.Error("Owner should be allowed to mutate their post")
	}
	if CanMutatePost(post, "u2") {
		t.Error("Only the owner may mutate a post")
	}
}
