package api

// CanReact reports whether userID may react to the post. Owners never react
// to their own posts.
func CanReact(post Post, userID string) bool {
	return post.UserID != userID
}

// CanMutateReaction reports whether userID may delete the reaction. Only the
// user who created a reaction may remove it.
func CanMutateReaction(r Reaction, userID string) bool {
	return r.UserID == userID
}

// CanMutatePost reports whether userID may update or delete the post.
func CanMutatePost(post Post, userID string) bool {
	return post.UserID == userID
}
