// internal/domain/models/discusssettings.go
package models

import "time"

// Post sort orders understood by the forum collaborator.
const (
	SortNewestFirst = "newest"
	SortOldestFirst = "oldest"
)

// DefaultHeaderTitle is shown above the discussion when no title is configured.
const DefaultHeaderTitle = "Comments"

// DefaultNoForumMessage is used when the notice is enabled but no text is set.
const DefaultNoForumMessage = `No Forum activity exists in this course. Please create one of type "Standard forum for general use" for use by this block.`

// DiscussSettings is the site-wide configuration of page discussions.
type DiscussSettings struct {
	DisplayErrorIfNoForum bool
	NoForumMessage        string

	// ForumNamePatterns is an ordered list of case-insensitive substrings
	// used to pick the course forum before falling back to the lowest id.
	ForumNamePatterns []string

	// PostingUserID, when non-zero, authors every seed post.
	PostingUserID int64

	LinkInitialPostToPage bool
	AllowEdit             bool
	MaxEditTime           time.Duration
	ShowViewThreadLink    bool
	HeaderTitle           string
	HeaderTagline         string
	PostSortOrder         string

	// LMSBaseURL prefixes links to pages, profiles, and the forum UI.
	LMSBaseURL string
}
