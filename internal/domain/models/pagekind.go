// internal/domain/models/pagekind.go
package models

import (
	"fmt"
	"strings"
)

// PageKind is the category of course content a discussion is attached to.
// The meaning of a page internal id depends on the kind:
//   - section: course_sections._id
//   - book: book_chapters._id
//   - page and every other activity kind: course_modules._id
type PageKind string

const (
	PageKindSection  PageKind = "section"
	PageKindPage     PageKind = "page"
	PageKindBook     PageKind = "book"
	PageKindSCORM    PageKind = "scorm"
	PageKindAssign   PageKind = "assign"
	PageKindLesson   PageKind = "lesson"
	PageKindWorkshop PageKind = "workshop"
	PageKindFolder   PageKind = "folder"
	PageKindResource PageKind = "resource"
)

// AllowedPageKinds lists the kinds the discussion block may attach to.
var AllowedPageKinds = []PageKind{
	PageKindSection,
	PageKindPage,
	PageKindBook,
	PageKindSCORM,
	PageKindAssign,
	PageKindLesson,
	PageKindWorkshop,
	PageKindFolder,
	PageKindResource,
}

// ParsePageKind normalizes s and reports an error for unknown kinds.
func ParsePageKind(s string) (PageKind, error) {
	k := PageKind(strings.ToLower(strings.TrimSpace(s)))
	for _, allowed := range AllowedPageKinds {
		if k == allowed {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown page kind %q", s)
}

// Label returns the kind with its first letter upper-cased ("Scorm", "Page").
func (k PageKind) Label() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// IsModule reports whether the page internal id for this kind is a course
// module id.
func (k PageKind) IsModule() bool {
	return k != PageKindSection && k != PageKindBook
}
