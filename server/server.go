// Package server handles HTTP endpoints and view rendering for the blog
// front end. All business logic lives behind the external API and identity
// provider; this layer renders views, collects input and issues calls.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"blogfront/api"
	"blogfront/editor"
	"blogfront/identity"
	"blogfront/pkg/blog"
	"blogfront/reactions"
	"blogfront/session"
	"blogfront/storage"
)

//go:embed tmpl/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"safe": func(s string) template.HTML { return template.HTML(s) }, //nolint:gosec // post bodies are rendered as authored
}).ParseFS(templateFS, "tmpl/*.tmpl"))

// celebrationTTL is how long the liked-state celebration animation runs.
const celebrationTTL = 3 * time.Second

// API is the gateway to the external blog REST API.
type API interface {
	ListPosts(ctx context.Context) ([]*blog.Post, error)
	PostBySlug(ctx context.Context, slug string) (*blog.Post, error)
	CreatePost(ctx context.Context, in api.CreatePostInput) (*blog.Post, error)
	UpdatePost(ctx context.Context, id string, patch map[string]any) (*blog.Post, error)
	DeletePost(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, id string) (*blog.LikeStatus, error)
	AddComment(ctx context.Context, postID, text string) error
}

// Identity is the external email/password identity provider.
type Identity interface {
	SignIn(ctx context.Context, email, password string) (*identity.Account, error)
	SignUp(ctx context.Context, email, password string) (*identity.Account, error)
}

// Server handles HTTP requests.
type Server struct {
	api      API
	identity Identity
	sessions *session.Manager
	store    *storage.Store
	logger   *slog.Logger
	effects  *reactions.EffectQueue

	mu      sync.Mutex
	ledgers map[string]*reactions.Ledger
	likes   map[string]blog.LikeStatus // post id -> last authoritative server response
	draft   draft
}

// draft is the transient, in-memory state of the post being composed. It
// is discarded on successful submission, never persisted.
type draft struct {
	Title     string
	Slug      string
	Tags      string
	Published bool
	Editor    *editor.Editor
}

// Config holds server configuration.
type Config struct {
	API      API
	Identity Identity
	Sessions *session.Manager
	Store    *storage.Store
	Logger   *slog.Logger
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	return &Server{
		api:      cfg.API,
		identity: cfg.Identity,
		sessions: cfg.Sessions,
		store:    cfg.Store,
		logger:   cfg.Logger,
		effects:  reactions.NewEffectQueue(),
		ledgers:  make(map[string]*reactions.Ledger),
		likes:    make(map[string]blog.LikeStatus),
		draft:    draft{Editor: editor.New()},
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/post/", s.handlePost)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/admin-login", s.handleAdminLogin)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.HandleFunc("/admin", s.handleAdmin)
	mux.HandleFunc("/admin/editor", s.handleEditorCommand)
	mux.HandleFunc("/admin/create", s.handleCreatePost)
	mux.HandleFunc("/admin/publish", s.handlePublishToggle)
	mux.HandleFunc("/admin/delete", s.handleDeletePost)
	return mux
}

// ListenAndServe starts the front end with timeouts to prevent resource
// exhaustion.
func (s *Server) ListenAndServe(port string) error {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "port", port)
	return server.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, `{"status":"healthy"}`); err != nil {
		s.logger.Warn("Failed to write health response", "error", err)
	}
}

func setHTMLHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	setHTMLHeaders(w)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("Failed to render template", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// notices maps short redirect codes to the static user-facing messages of
// the front end. Failures are distinguished by message text only.
var notices = map[string]string{
	"login_required": "Please log in to continue.",
	"missing_fields": "Title, slug and content are required.",
	"create_failed":  "Failed to create post. Please try again.",
	"update_failed":  "Failed to update post. Please try again.",
	"comment_empty":  "Comment text is required.",
	"comment_failed": "Failed to add comment. Please try again.",
	"created":        "Post created.",
}

func noticeText(r *http.Request) string {
	return notices[r.URL.Query().Get("notice")]
}

// ledgerFor returns the reaction ledger for a post, creating and loading
// it from local storage (seeded with server counts) on first use.
func (s *Server) ledgerFor(ctx context.Context, post *blog.Post) (*reactions.Ledger, error) {
	s.mu.Lock()
	if l, ok := s.ledgers[post.Slug]; ok {
		s.mu.Unlock()
		return l, nil
	}
	s.mu.Unlock()

	serverCounts := make(map[string]map[reactions.Type]int)
	for _, c := range post.Comments {
		if len(c.Reactions) == 0 {
			continue
		}
		byType := make(map[reactions.Type]int, len(c.Reactions))
		for name, n := range c.Reactions {
			byType[reactions.Type(name)] = n
		}
		serverCounts[c.ID] = byType
	}

	l := reactions.NewLedger(s.store, post.Slug, s.effects, s.logger)
	if err := l.Load(ctx, serverCounts); err != nil {
		return nil, fmt.Errorf("load reaction ledger for %s: %w", post.Slug, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.ledgers[post.Slug]; ok {
		return existing, nil
	}
	s.ledgers[post.Slug] = l
	return l, nil
}

// likeStatus overlays the last authoritative toggle response, if any, on
// top of a freshly fetched post.
func (s *Server) likeStatus(post *blog.Post) (likes int, liked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.likes[post.ID]; ok {
		return st.Likes, st.Liked
	}
	return post.Likes, post.Liked
}

// setLikeStatus records a toggle response. Whatever response arrives last
// wins and fully replaces the previous state.
func (s *Server) setLikeStatus(postID string, st blog.LikeStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likes[postID] = st
}
