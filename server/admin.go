package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"blogfront/api"
	"blogfront/editor"
	"blogfront/pkg/blog"
)

// maxUploadBytes bounds the multipart create-post form.
const maxUploadBytes = 32 << 20

// requireAdmin gates the administrative screens. "Logged in" is defined
// solely as a token being present locally; the role flag is the UI-only
// admin marker. Both are verified for real by the API on every request it
// receives.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !s.sessions.LoggedIn(r.Context()) || !s.sessions.IsAdmin(r.Context()) {
		http.Redirect(w, r, "/admin-login", http.StatusSeeOther)
		return false
	}
	return true
}

type adminView struct {
	Posts     []*blog.Post
	Title     string
	Slug      string
	Tags      string
	Published bool
	DraftHTML string
	Preview   bool
	Session   *blog.Session
	Notice    string
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	// The management list shows every post, unpublished included.
	posts, err := s.api.ListPosts(r.Context())
	if err != nil {
		s.logger.Error("Failed to list posts for admin", "error", err)
	}

	s.mu.Lock()
	view := adminView{
		Posts:     posts,
		Title:     s.draft.Title,
		Slug:      s.draft.Slug,
		Tags:      s.draft.Tags,
		Published: s.draft.Published,
		DraftHTML: s.draft.Editor.HTML(),
		Preview:   s.draft.Editor.Mode() == editor.ModePreview,
	}
	s.mu.Unlock()

	view.Session = s.sessions.Current(r.Context())
	view.Notice = noticeText(r)
	s.render(w, "admin.tmpl", view)
}

// handleEditorCommand applies one toolbar action to the draft editor and
// re-renders. The surface gains focus from the interaction; the command
// operates on the submitted selection range.
func (s *Server) handleEditorCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	action := r.FormValue("action")

	s.mu.Lock()
	ed := s.draft.Editor
	ed.Focus()
	if start, err := strconv.Atoi(r.FormValue("sel_start")); err == nil {
		end, endErr := strconv.Atoi(r.FormValue("sel_end"))
		if endErr != nil {
			end = start
		}
		ed.Select(start, end)
	}

	switch action {
	case "bold":
		ed.Bold()
	case "italic":
		ed.Italic()
	case "underline":
		ed.Underline()
	case "strike":
		ed.Strikethrough()
	case "heading":
		level, err := strconv.Atoi(r.FormValue("level"))
		if err == nil {
			ed.Heading(level)
		}
	case "ul":
		ed.UnorderedList()
	case "ol":
		ed.OrderedList()
	case "align":
		ed.Align(editor.Alignment(r.FormValue("dir")))
	case "link":
		// An empty URL means the prompt was cancelled; the editor
		// treats that as a no-op.
		ed.Link(strings.TrimSpace(r.FormValue("url")))
	case "unlink":
		ed.Unlink()
	case "code":
		ed.InlineCode()
	case "quote":
		ed.Blockquote()
	case "clear":
		ed.ClearFormatting()
	case "preview":
		ed.TogglePreview()
	case "text":
		ed.InsertText(r.FormValue("text"))
	case "set":
		// Direct typing: the surface's current HTML replaces the draft.
		ed.SetHTML(r.FormValue("html"))
	default:
		s.logger.Warn("Unknown editor action", "action", action)
	}
	s.mu.Unlock()

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// handleCreatePost packages the draft into a single multipart request.
// Required fields and a stored token are checked locally first; either
// failure surfaces a message and makes no network call. On failure the
// draft is preserved so the administrator can retry.
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.draft.Title = strings.TrimSpace(r.FormValue("title"))
	s.draft.Slug = strings.TrimSpace(r.FormValue("slug"))
	s.draft.Tags = strings.TrimSpace(r.FormValue("tags"))
	s.draft.Published = r.FormValue("published") == "true"
	title, slug, tags, published := s.draft.Title, s.draft.Slug, s.draft.Tags, s.draft.Published
	content := s.draft.Editor.HTML()
	s.mu.Unlock()

	if title == "" || slug == "" || strings.TrimSpace(content) == "" {
		http.Redirect(w, r, "/admin?notice=missing_fields", http.StatusSeeOther)
		return
	}
	if !s.sessions.LoggedIn(r.Context()) {
		s.logger.Info("Post submission blocked, no session token")
		http.Redirect(w, r, "/admin?notice=login_required", http.StatusSeeOther)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	files, err := s.uploads(r)
	if err != nil {
		s.logger.Error("Failed to read uploads", "error", err)
		http.Redirect(w, r, "/admin?notice=create_failed", http.StatusSeeOther)
		return
	}

	in := api.CreatePostInput{
		Title:     title,
		Slug:      slug,
		Content:   content,
		Excerpt:   editor.Excerpt(content), // always recomputed, never user-edited
		Tags:      tags,
		Published: published,
		Files:     files,
	}

	post, err := s.api.CreatePost(r.Context(), in)
	if err != nil {
		s.logger.Error("Failed to create post", "slug", slug, "error", err)
		http.Redirect(w, r, "/admin?notice=create_failed", http.StatusSeeOther)
		return
	}

	// Success: discard the draft and switch back to the management list,
	// which re-fetches posts.
	s.mu.Lock()
	s.draft = draft{Editor: editor.New()}
	s.mu.Unlock()

	s.logger.Info("Post created", "id", post.ID, "slug", post.Slug, "published", post.Published)
	http.Redirect(w, r, "/admin?notice=created", http.StatusSeeOther)
}

func (s *Server) uploads(r *http.Request) ([]api.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	var files []api.Upload
	for _, header := range r.MultipartForm.File["files"] {
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		closeErr := f.Close()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			s.logger.Warn("Failed to close upload", "file", header.Filename, "error", closeErr)
		}
		files = append(files, api.Upload{Name: header.Filename, Data: data})
	}
	return files, nil
}

func (s *Server) handlePublishToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	id := r.FormValue("id")
	if id == "" {
		http.Error(w, "Missing post id", http.StatusBadRequest)
		return
	}
	published := r.FormValue("published") == "true"

	if _, err := s.api.UpdatePost(r.Context(), id, map[string]any{"published": published}); err != nil {
		s.logger.Error("Failed to update post", "post", id, "error", err)
		http.Redirect(w, r, "/admin?notice=update_failed", http.StatusSeeOther)
		return
	}

	s.logger.Info("Post publish state changed", "post", id, "published", published)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	id := r.FormValue("id")
	if id == "" {
		http.Error(w, "Missing post id", http.StatusBadRequest)
		return
	}

	if err := s.api.DeletePost(r.Context(), id); err != nil {
		s.logger.Error("Failed to delete post", "post", id, "error", err)
		http.Redirect(w, r, "/admin?notice=update_failed", http.StatusSeeOther)
		return
	}

	s.logger.Info("Post deleted", "post", id)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}
