// Package posttree turns the flat post list of a discussion into a reply
// tree decorated with what the view needs per post.
package posttree

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/coursediscuss/internal/app/system/timeago"
	"github.com/dalemusser/coursediscuss/internal/domain/models"
)

// Config holds the site settings that affect decoration.
type Config struct {
	AllowEdit   bool
	MaxEditTime time.Duration
	LMSBaseURL  string
}

// Input is everything one assembly needs. Posts are in the order the forum
// returned them; siblings keep that order.
type Input struct {
	Posts      []models.Post
	Discussion models.Discussion
	ForumType  string
	CourseID   int64
	ViewerID   int64
	// EditAny is the viewer's elevated "edit any post" capability.
	EditAny bool
	Authors map[int64]models.User
	Now     time.Time
}

// RenderNode is one visible post and its replies.
type RenderNode struct {
	Post         models.Post
	DisplayName  string
	ProfileURL   string
	PictureURL   string
	RelativeTime string
	CanEdit      bool
	EditURL      string
	Children     []*RenderNode
}

// Assembler builds reply trees.
type Assembler struct {
	cfg Config
}

// New creates an Assembler.
func New(cfg Config) *Assembler {
	return &Assembler{cfg: cfg}
}

// Assemble returns the replies under the discussion's root post as a
// forest, in pre-order. The root post itself is not included. Posts whose
// parent is not in the input are omitted, and a cycle in parent links is
// cut at the first repeated post.
func (a *Assembler) Assemble(in Input) []*RenderNode {
	root, ok := findRoot(in.Posts, in.Discussion.FirstPostID)
	if !ok {
		return nil
	}

	children := make(map[int64][]models.Post, len(in.Posts))
	for _, p := range in.Posts {
		if p.ID == root.ID {
			continue
		}
		children[p.ParentID] = append(children[p.ParentID], p)
	}

	visited := map[int64]bool{root.ID: true}
	var build func(parentID int64) []*RenderNode
	build = func(parentID int64) []*RenderNode {
		var nodes []*RenderNode
		for _, p := range children[parentID] {
			if visited[p.ID] {
				continue
			}
			visited[p.ID] = true
			n := a.decorate(p, root.ID, in)
			n.Children = build(p.ID)
			nodes = append(nodes, n)
		}
		return nodes
	}
	return build(root.ID)
}

// findRoot prefers the discussion's recorded first post and falls back to
// the post without a parent.
func findRoot(posts []models.Post, firstPostID int64) (models.Post, bool) {
	if firstPostID != 0 {
		for _, p := range posts {
			if p.ID == firstPostID {
				return p, true
			}
		}
	}
	for _, p := range posts {
		if p.IsRoot() {
			return p, true
		}
	}
	return models.Post{}, false
}

func (a *Assembler) decorate(p models.Post, rootID int64, in Input) *RenderNode {
	base := strings.TrimRight(a.cfg.LMSBaseURL, "/")
	n := &RenderNode{
		Post:       p,
		ProfileURL: fmt.Sprintf("%s/user/view.php?id=%d&course=%d", base, p.UserID, in.CourseID),
		PictureURL: base + "/pix/u/f2.png",
	}

	if u, ok := in.Authors[p.UserID]; ok {
		n.DisplayName = u.FullName()
		if u.PictureURL != "" {
			n.PictureURL = u.PictureURL
		}
	} else {
		n.DisplayName = "Unknown user"
	}

	modified := p.ModifiedAt
	if modified.IsZero() {
		modified = p.CreatedAt
	}
	n.RelativeTime = timeago.Format(modified, in.Now)

	if a.canEdit(p, rootID, in) {
		n.CanEdit = true
		n.EditURL = fmt.Sprintf("%s/mod/forum/post.php?edit=%d", base, p.ID)
	}
	return n
}

// canEdit: editing must be enabled, and the viewer either holds edit-any or
// owns the post and is still inside the edit window. Replies directly under
// the root of a news discussion that has not started yet have not aged.
func (a *Assembler) canEdit(p models.Post, rootID int64, in Input) bool {
	if !a.cfg.AllowEdit {
		return false
	}
	if in.EditAny {
		return true
	}
	if in.ViewerID == 0 || p.UserID != in.ViewerID {
		return false
	}

	age := in.Now.Sub(p.CreatedAt)
	if p.ParentID == rootID && in.ForumType == models.ForumTypeNews && in.Discussion.TimeStart.After(in.Now) {
		age = 0
	}
	return age < a.cfg.MaxEditTime
}

// Walk visits nodes in pre-order, passing each node's nesting depth
// (0 for direct replies to the root).
func Walk(nodes []*RenderNode, fn func(n *RenderNode, depth int)) {
	var walk func([]*RenderNode, int)
	walk = func(ns []*RenderNode, depth int) {
		for _, n := range ns {
			fn(n, depth)
			walk(n.Children, depth+1)
		}
	}
	walk(nodes, 0)
}

// Count returns the number of nodes in the forest.
func Count(nodes []*RenderNode) int {
	total := 0
	Walk(nodes, func(*RenderNode, int) { total++ })
	return total
}
