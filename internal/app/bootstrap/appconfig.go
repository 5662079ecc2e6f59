// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/coursediscuss/internal/app/system/forumlocator"
	"github.com/dalemusser/coursediscuss/internal/domain/models"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig covers ports, TLS, logging, CORS and request limits.
// AppConfig carries the backends this service talks to and the site-wide
// discussion settings an LMS administrator would normally set.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database holding both the LMS collections and the binding tables
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: coursediscuss-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Redis forum binding cache (blank RedisAddr disables it)
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	ForumBindingCacheTTL time.Duration

	// Per-user write limit on new discussions and posts (0 disables it)
	PostRateLimit  int
	PostRateWindow time.Duration

	// Database operation timeouts
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Discussion settings
	DisplayErrorIfNoForum bool
	NoForumMessage        string
	ForumNamePatterns     string // comma-separated, checked in order
	PostingUserID         int64  // 0 means the requesting user authors seed posts
	LinkInitialPostToPage bool
	AllowEdit             bool
	MaxEditTime           time.Duration
	ShowViewThreadLink    bool
	HeaderTitle           string
	HeaderTagline         string
	PostSortOrder         string // "newest" or "oldest"
	LMSBaseURL            string // e.g., "https://lms.example.edu"
}

// DiscussSettings returns the discussion settings handed to the features.
func (c AppConfig) DiscussSettings() models.DiscussSettings {
	return models.DiscussSettings{
		DisplayErrorIfNoForum: c.DisplayErrorIfNoForum,
		NoForumMessage:        c.NoForumMessage,
		ForumNamePatterns:     forumlocator.ParseMatchRules(c.ForumNamePatterns),
		PostingUserID:         c.PostingUserID,
		LinkInitialPostToPage: c.LinkInitialPostToPage,
		AllowEdit:             c.AllowEdit,
		MaxEditTime:           c.MaxEditTime,
		ShowViewThreadLink:    c.ShowViewThreadLink,
		HeaderTitle:           c.HeaderTitle,
		HeaderTagline:         c.HeaderTagline,
		PostSortOrder:         c.PostSortOrder,
		LMSBaseURL:            c.LMSBaseURL,
	}
}
