package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/postboard/backend/auth"
)

// A DB provides the storage layer that persists posts and reactions.
type DB interface {
	ReactionStore
	ListPosts(ctx context.Context, limit int, offset int, excludePostIDs ...string) ([]Post, error)
	InsertPost(ctx context.Context, post Post) (Post, error)
	UpdatePost(ctx context.Context, postID, title, description string) (Post, error)
	DeletePost(ctx context.Context, postID string) error
}

// A Cache provides a storage layer that caches recent posts and their
// reactions. Cache failures are never fatal to a request.
type Cache interface {
	ListPosts(ctx context.Context) ([]Post, error)
	InsertPost(ctx context.Context, post Post) error
	InsertReaction(ctx context.Context, postID string, reaction Reaction) error
	RemovePost(ctx context.Context, postID string) error
	RemoveReaction(ctx context.Context, postID, reactionID string) error
}

// API provides the REST endpoints for the application.
type API struct {
	Logger *slog.Logger
	DB     DB
	Cache  Cache
	Val    *Validator
	Auth   *auth.Service

	once sync.Once
	mux  *http.ServeMux
}

// pageSize defines the default number of items displayed on a single page in pagination.
var pageSize = 10

func (a *API) setupRoutes() {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", a.register)
	mux.HandleFunc("POST /auth/login", a.login)

	mux.HandleFunc("GET /posts", a.authenticated(a.listPosts))
	mux.HandleFunc("GET /posts/{postID}", a.authenticated(a.getPost))
	mux.HandleFunc("POST /posts", a.authenticated(a.createPost))
	mux.HandleFunc("PATCH /posts/{postID}", a.authenticated(a.updatePost))
	mux.HandleFunc("DELETE /posts/{postID}", a.authenticated(a.deletePost))

	mux.HandleFunc("POST /likes/{postID}", a.authenticated(a.createReaction(KindLike)))
	mux.HandleFunc("DELETE /likes/{reactionID}", a.authenticated(a.deleteReaction(KindLike)))
	mux.HandleFunc("POST /dislikes/{postID}", a.authenticated(a.createReaction(KindDislike)))
	mux.HandleFunc("DELETE /dislikes/{reactionID}", a.authenticated(a.deleteReaction(KindDislike)))

	a.mux = mux
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.once.Do(a.setupRoutes)
	a.Logger.Info("Request received", "method", r.Method, "path", r.URL.Path)
	a.mux.ServeHTTP(w, r)
}

func (a *API) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Logger.Error("Could not encode JSON body", "error", err.Error())
	}
}

func (a *API) respondError(w http.ResponseWriter, status int, err error, msg string) {
	type response struct {
		Error string `json:"error"`
	}
	a.Logger.Error("Error", "error", err.Error())
	a.respond(w, status, response{Error: msg})
}

// respondCoreError maps the error kinds of the reaction and storage layers to
// HTTP statuses. Store failures stay internal; the client only sees msg.
func (a *API) respondCoreError(w http.ResponseWriter, err error, notFoundMsg, internalMsg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		a.respondError(w, http.StatusNotFound, err, notFoundMsg)
	case errors.Is(err, ErrForbidden):
		a.respondError(w, http.StatusForbidden, err, "No permission for this action")
	case errors.Is(err, ErrConflict):
		a.respondError(w, http.StatusConflict, err, "Already exists")
	default:
		a.respondError(w, http.StatusInternalServerError, err, internalMsg)
	}
}

func (a *API) validateBody(w http.ResponseWriter, s interface{}) bool {
	errs := a.Val.ValidateStruct(s)
	type response struct {
		Errors []ValidationError `json:"errors"`
	}

	if len(errs) > 0 {
		a.respond(w, http.StatusBadRequest, &response{
			Errors: errs,
		})
		return false
	}
	return true
}

// sessionCookie carries the token for clients that do not send an
// Authorization header.
const sessionCookie = "session"

func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// authenticated resolves the acting user from the request credentials and
// threads the user id into the wrapped handler. Requests without a valid
// token never reach the core.
func (a *API) authenticated(next func(w http.ResponseWriter, r *http.Request, userID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := requestToken(r)
		if token == "" {
			a.respondError(w, http.StatusUnauthorized, errors.New("no token in request"), "Missing credentials")
			return
		}
		userID, err := a.Auth.VerifyToken(token)
		if err != nil {
			a.respondError(w, http.StatusUnauthorized, err, "Invalid credentials")
			return
		}
		next(w, r, userID)
	}
}

type reactionResponse struct {
	ID        string `json:"id"`
	PostID    string `json:"post_id"`
	UserID    string `json:"user_id"`
	CreatedAt string `json:"created_at"`
}

type postResponse struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	UserID      string             `json:"user_id"`
	CreatedAt   string             `json:"created_at"`
	Likes       []reactionResponse `json:"likes"`
	Dislikes    []reactionResponse `json:"dislikes"`
}

func toReactionResponse(r Reaction) reactionResponse {
	return reactionResponse{
		ID:        r.ID,
		PostID:    r.PostID,
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toPostResponse(p Post) postResponse {
	likes := make([]reactionResponse, len(p.Likes))
	for i, r := range p.Likes {
		likes[i] = toReactionResponse(r)
	}
	dislikes := make([]reactionResponse, len(p.Dislikes))
	for i, r := range p.Dislikes {
		dislikes[i] = toReactionResponse(r)
	}
	return postResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		UserID:      p.UserID,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
		Likes:       likes,
		Dislikes:    dislikes,
	}
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	type (
		request struct {
			Name     string `json:"name" validate:"required,max=100"`
			Surname  string `json:"surname" validate:"required,max=100"`
			Email    string `json:"email" validate:"required,email,max=150"`
			Password string `json:"password" validate:"required"`
		}
		response struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Surname string `json:"surname"`
			Email   string `json:"email"`
		}
	)

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return
	}
	if valid := a.validateBody(w, &body); !valid {
		return
	}

	user, err := a.Auth.Register(r.Context(), auth.Registration{
		Name:     body.Name,
		Surname:  body.Surname,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		var policyErr *auth.PolicyError
		switch {
		case errors.As(err, &policyErr):
			a.respondError(w, http.StatusBadRequest, err, policyErr.Reason)
		case errors.Is(err, ErrConflict):
			a.respondError(w, http.StatusConflict, err, "Email is already registered")
		default:
			a.respondError(w, http.StatusInternalServerError, err, "Could not register user")
		}
		return
	}

	a.respond(w, http.StatusCreated, response{
		ID:      user.ID,
		Name:    user.Name,
		Surname: user.Surname,
		Email:   user.Email,
	})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	type (
		request struct {
			Email    string `json:"email" validate:"required"`
			Password string `json:"password" validate:"required"`
		}
		response struct {
			Token string `json:"token"`
		}
	)

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return
	}
	if valid := a.validateBody(w, &body); !valid {
		return
	}

	token, err := a.Auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			a.respondError(w, http.StatusUnauthorized, err, "Invalid email or password")
			return
		}
		a.respondError(w, http.StatusInternalServerError, err, "Could not log in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.Auth.TokenTTL.Seconds()),
		HttpOnly: true,
	})
	a.respond(w, http.StatusOK, response{Token: token})
}

func (a *API) listPosts(w http.ResponseWriter, r *http.Request, _ string) {
	type response struct {
		Posts []postResponse `json:"posts"`
	}

	page := 1

	// Get recent posts from cache. A failing cache degrades to the DB, it
	// never fails the request.
	posts, err := a.Cache.ListPosts(r.Context())
	if err != nil {
		a.Logger.Error("Could not list posts from cache", "error", err.Error())
		posts = nil
	}
	a.Logger.Info("Got posts from cache", "count", len(posts))

	// Get any remaining posts from DB
	postIDs := make([]string, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	dbPosts, err := a.DB.ListPosts(r.Context(), pageSize, pageSize*(page-1), postIDs...)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not list posts")
		return
	}
	a.Logger.Info("Got remaining posts from DB", "count", len(dbPosts))

	posts = append(posts, dbPosts...)
	res := response{
		Posts: make([]postResponse, len(posts)),
	}
	for i, p := range posts {
		res.Posts[i] = toPostResponse(p)
	}

	a.respond(w, http.StatusOK, res)
}

func (a *API) getPost(w http.ResponseWriter, r *http.Request, _ string) {
	postID := r.PathValue("postID")

	post, ok, err := a.DB.GetPost(r.Context(), postID)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not get post")
		return
	}
	if !ok {
		a.respondError(w, http.StatusNotFound, fmt.Errorf("post %s: %w", postID, ErrNotFound), "Post does not exist")
		return
	}

	a.respond(w, http.StatusOK, toPostResponse(post))
}

func (a *API) createPost(w http.ResponseWriter, r *http.Request, userID string) {
	type request struct {
		Title       string `json:"title" validate:"required,max=50"`
		Description string `json:"description" validate:"required,max=150"`
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return
	}
	if valid := a.validateBody(w, &body); !valid {
		return
	}

	post, err := a.DB.InsertPost(r.Context(), Post{
		Title:       body.Title,
		Description: body.Description,
		UserID:      userID,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not insert post")
		return
	}

	if err := a.Cache.InsertPost(r.Context(), post); err != nil {
		a.Logger.Error("Could not cache post", "error", err.Error())
	}

	a.respond(w, http.StatusCreated, toPostResponse(post))
}

func (a *API) updatePost(w http.ResponseWriter, r *http.Request, userID string) {
	type request struct {
		Title       string `json:"title" validate:"required,max=50"`
		Description string `json:"description" validate:"required,max=150"`
	}

	postID := r.PathValue("postID")
	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return
	}
	if valid := a.validateBody(w, &body); !valid {
		return
	}

	post, ok, err := a.DB.GetPost(r.Context(), postID)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not get post")
		return
	}
	if !ok {
		a.respondError(w, http.StatusNotFound, fmt.Errorf("post %s: %w", postID, ErrNotFound), "Post does not exist")
		return
	}
	if !CanMutatePost(post, userID) {
		a.respondError(w, http.StatusForbidden, fmt.Errorf("post %s: %w", postID, ErrForbidden), "No permission for this action")
		return
	}

	post, err = a.DB.UpdatePost(r.Context(), postID, body.Title, body.Description)
	if err != nil {
		// The post may vanish between the existence check and the update.
		a.respondCoreError(w, err, "Post does not exist", "Could not update post")
		return
	}

	// The cached copy is stale now. Drop it and let the DB serve the post.
	if err := a.Cache.RemovePost(r.Context(), postID); err != nil {
		a.Logger.Error("Could not evict cached post", "error", err.Error())
	}

	a.respond(w, http.StatusOK, toPostResponse(post))
}

func (a *API) deletePost(w http.ResponseWriter, r *http.Request, userID string) {
	type response struct {
		ID string `json:"id"`
	}

	postID := r.PathValue("postID")

	post, ok, err := a.DB.GetPost(r.Context(), postID)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not get post")
		return
	}
	if !ok {
		a.respondError(w, http.StatusNotFound, fmt.Errorf("post %s: %w", postID, ErrNotFound), "Post does not exist")
		return
	}
	if !CanMutatePost(post, userID) {
		a.respondError(w, http.StatusForbidden, fmt.Errorf("post %s: %w", postID, ErrForbidden), "No permission for this action")
		return
	}

	// Reactions referencing the post go with it, enforced by the schema.
	if err := a.DB.DeletePost(r.Context(), postID); err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not delete post")
		return
	}

	if err := a.Cache.RemovePost(r.Context(), postID); err != nil {
		a.Logger.Error("Could not evict cached post", "error", err.Error())
	}

	a.respond(w, http.StatusOK, response{ID: postID})
}

func (a *API) createReaction(kind Kind) func(w http.ResponseWriter, r *http.Request, userID string) {
	return func(w http.ResponseWriter, r *http.Request, userID string) {
		postID := r.PathValue("postID")

		engine := &ReactionEngine{Store: a.DB}
		reaction, err := engine.Create(r.Context(), kind, postID, userID)
		if err != nil {
			a.respondCoreError(w, err, "Post does not exist", fmt.Sprintf("Could not create %s", kind))
			return
		}

		if err := a.Cache.InsertReaction(r.Context(), reaction.PostID, reaction); err != nil {
			a.Logger.Error("Could not cache reaction", "error", err.Error())
		}

		a.respond(w, http.StatusCreated, toReactionResponse(reaction))
	}
}

func (a *API) deleteReaction(kind Kind) func(w http.ResponseWriter, r *http.Request, userID string) {
	return func(w http.ResponseWriter, r *http.Request, userID string) {
		type response struct {
			ID string `json:"id"`
		}

		reactionID := r.PathValue("reactionID")

		engine := &ReactionEngine{Store: a.DB}
		reaction, err := engine.Delete(r.Context(), kind, reactionID, userID)
		if err != nil {
			a.respondCoreError(w, err, fmt.Sprintf("%s does not exist", kind.Label()), fmt.Sprintf("Could not delete %s", kind))
			return
		}

		if err := a.Cache.RemoveReaction(r.Context(), reaction.PostID, reaction.ID); err != nil {
			a.Logger.Error("Could not evict cached reaction", "error", err.Error())
		}

		a.respond(w, http.StatusOK, response{ID: reaction.ID})
	}
}
