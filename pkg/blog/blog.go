// Package blog contains the core domain types shared across the front end.
package blog

import "time"

// Post represents a blog article as served by the external API.
type Post struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Slug       string     `json:"slug"`
	Content    string     `json:"content"`
	Excerpt    string     `json:"excerpt"`
	Tags       []string   `json:"tags"`
	Published  bool       `json:"published"`
	CoverImage string     `json:"coverImage,omitempty"`
	Likes      int        `json:"likes"`
	Liked      bool       `json:"liked"`
	CreatedAt  time.Time  `json:"createdAt"`
	Comments   []*Comment `json:"comments,omitempty"`
}

// Comment is a reader comment embedded in a post.
type Comment struct {
	ID        string         `json:"id"`
	Author    string         `json:"author,omitempty"`
	Text      string         `json:"text"`
	CreatedAt time.Time      `json:"createdAt"`
	Reactions map[string]int `json:"reactions,omitempty"` // Server-supplied seed counts by reaction type
}

// DisplayAuthor returns the comment author, or a placeholder when the
// commenter left no name.
func (c *Comment) DisplayAuthor() string {
	if c.Author == "" {
		return "Anonymous"
	}
	return c.Author
}

// LikeStatus is the authoritative like state returned by the API after a
// toggle. It fully replaces any displayed state.
type LikeStatus struct {
	Likes int  `json:"likes"`
	Liked bool `json:"liked"`
}

// Session is the locally cached proof of authentication plus the UI-only
// role flag. All fields are optional strings mirrored into local storage.
type Session struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	UserEmail string `json:"userEmail"`
	UserID    string `json:"userId"`
}

// LoggedIn reports whether a bearer token is present. There is no local
// expiry check; a stale token is indistinguishable from a valid one until
// the server rejects it.
func (s *Session) LoggedIn() bool {
	return s != nil && s.Token != ""
}

// IsAdmin reports the locally stored role flag. This is a UI convenience,
// not a security boundary.
func (s *Session) IsAdmin() bool {
	return s.LoggedIn() && s.Role == "admin"
}
