package server

import (
	"net/http"
	"net/url"
	"strings"

	"blogfront/api"
	"blogfront/pkg/blog"
	"blogfront/reactions"
)

// reactionEmoji is the glyph shown for each reaction type.
var reactionEmoji = map[reactions.Type]string{
	reactions.Like:      "👍",
	reactions.Love:      "❤️",
	reactions.Celebrate: "🎉",
}

type homeView struct {
	Posts   []*blog.Post
	Session *blog.Session
	Notice  string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	posts, err := s.api.ListPosts(r.Context())
	if err != nil {
		s.logger.Error("Failed to list posts", "error", err)
		s.render(w, "index.tmpl", homeView{
			Session: s.sessions.Current(r.Context()),
			Notice:  "Failed to load posts. Please try again.",
		})
		return
	}

	// The public listing shows published posts only.
	published := make([]*blog.Post, 0, len(posts))
	for _, p := range posts {
		if p.Published {
			published = append(published, p)
		}
	}

	s.render(w, "index.tmpl", homeView{
		Posts:   published,
		Session: s.sessions.Current(r.Context()),
		Notice:  noticeText(r),
	})
}

type reactionView struct {
	Type   reactions.Type
	Emoji  string
	Count  int
	Chosen bool
}

type commentView struct {
	*blog.Comment
	Reactions []reactionView
}

type postView struct {
	Post     *blog.Post
	Likes    int
	Liked    bool
	Comments []commentView
	Effects  []reactions.Effect
	Session  *blog.Session
	Notice   string
}

// handlePost dispatches /post/{slug} and its action sub-routes.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/post/"), "/")
	parts := strings.Split(rest, "/")
	slug := parts[0]
	if slug == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleArticle(w, r, slug)
	case len(parts) == 2 && r.Method == http.MethodPost:
		switch parts[1] {
		case "like":
			s.handleLike(w, r, slug)
		case "comment":
			s.handleComment(w, r, slug)
		case "react":
			s.handleReact(w, r, slug)
		default:
			http.NotFound(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request, slug string) {
	post, err := s.api.PostBySlug(r.Context(), slug)
	if err != nil {
		s.logger.Error("Failed to fetch post", "slug", slug, "error", err)
		http.NotFound(w, r)
		return
	}

	ledger, err := s.ledgerFor(r.Context(), post)
	if err != nil {
		s.logger.Error("Failed to load reactions", "slug", slug, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	comments := make([]commentView, 0, len(post.Comments))
	for _, c := range post.Comments {
		cv := commentView{Comment: c}
		choice, hasChoice := ledger.Choice(c.ID)
		for _, t := range reactions.Types {
			cv.Reactions = append(cv.Reactions, reactionView{
				Type:   t,
				Emoji:  reactionEmoji[t],
				Count:  ledger.Count(c.ID, t),
				Chosen: hasChoice && choice == t,
			})
		}
		comments = append(comments, cv)
	}

	likes, liked := s.likeStatus(post)
	s.render(w, "post.tmpl", postView{
		Post:     post,
		Likes:    likes,
		Liked:    liked,
		Comments: comments,
		Effects:  s.effects.Active(),
		Session:  s.sessions.Current(r.Context()),
		Notice:   noticeText(r),
	})
}

func redirectToPost(w http.ResponseWriter, r *http.Request, slug, notice string) {
	target := "/post/" + url.PathEscape(slug)
	if notice != "" {
		target += "?notice=" + url.QueryEscape(notice)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// handleLike flips like state through the API. The response is
// authoritative: no optimistic increment happens locally, and the last
// response to arrive wins.
func (s *Server) handleLike(w http.ResponseWriter, r *http.Request, slug string) {
	postID := r.FormValue("id")
	if postID == "" {
		http.Error(w, "Missing post id", http.StatusBadRequest)
		return
	}

	status, err := s.api.ToggleLike(r.Context(), postID)
	if err != nil {
		if api.IsUnauthorized(err) {
			s.logger.Info("Like rejected, not authenticated", "post", postID)
			redirectToPost(w, r, slug, "login_required")
			return
		}
		s.logger.Error("Failed to toggle like", "post", postID, "error", err)
		redirectToPost(w, r, slug, "update_failed")
		return
	}

	s.setLikeStatus(postID, *status)
	if status.Liked {
		s.effects.Add(reactions.KindCelebration, postID, "", celebrationTTL)
	}

	s.logger.Info("Like toggled", "post", postID, "likes", status.Likes, "liked", status.Liked)
	redirectToPost(w, r, slug, "")
}

// handleComment submits a comment and redirects back; the article view
// re-fetches the post rather than trusting a partial response.
func (s *Server) handleComment(w http.ResponseWriter, r *http.Request, slug string) {
	postID := r.FormValue("id")
	text := strings.TrimSpace(r.FormValue("text"))
	if postID == "" {
		http.Error(w, "Missing post id", http.StatusBadRequest)
		return
	}
	if text == "" {
		redirectToPost(w, r, slug, "comment_empty")
		return
	}

	if err := s.api.AddComment(r.Context(), postID, text); err != nil {
		if api.IsUnauthorized(err) {
			redirectToPost(w, r, slug, "login_required")
			return
		}
		s.logger.Error("Failed to add comment", "post", postID, "error", err)
		redirectToPost(w, r, slug, "comment_failed")
		return
	}

	redirectToPost(w, r, slug, "")
}

// handleReact applies a local reaction transition. This never contacts
// the server.
func (s *Server) handleReact(w http.ResponseWriter, r *http.Request, slug string) {
	commentID := r.FormValue("comment_id")
	reactionType := reactions.Type(r.FormValue("type"))
	if commentID == "" || !reactionType.Valid() {
		http.Error(w, "Invalid reaction", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	ledger, ok := s.ledgers[slug]
	s.mu.Unlock()
	if !ok {
		// Reacting without having viewed the post first.
		post, err := s.api.PostBySlug(r.Context(), slug)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		ledger, err = s.ledgerFor(r.Context(), post)
		if err != nil {
			s.logger.Error("Failed to load reactions", "slug", slug, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	if err := ledger.React(r.Context(), commentID, reactionType); err != nil {
		s.logger.Error("Failed to apply reaction", "slug", slug, "comment", commentID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	redirectToPost(w, r, slug, "")
}
