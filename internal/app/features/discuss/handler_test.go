package discuss_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/coursediscuss/internal/app/features/discuss"
	forumstore "github.com/dalemusser/coursediscuss/internal/app/store/forums"
	pagebindingstore "github.com/dalemusser/coursediscuss/internal/app/store/pagebindings"
	"github.com/dalemusser/coursediscuss/internal/app/system/forumlocator"
	"github.com/dalemusser/coursediscuss/internal/app/system/pagediscussion"
	"github.com/dalemusser/coursediscuss/internal/app/system/ratelimit"
	"github.com/dalemusser/coursediscuss/internal/domain/models"
	"github.com/dalemusser/coursediscuss/internal/testutil"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// views is booted once from the sets registered by the discuss and shared
// packages.
var views = bootViews()

func bootViews() *templates.Engine {
	eng := templates.New(false)
	if err := eng.Boot(zap.NewNop()); err != nil {
		panic("boot templates: " + err.Error())
	}
	return eng
}

// recordingViews notes each snippet name before rendering it.
type recordingViews struct {
	names []string
}

func (v *recordingViews) RenderSnippet(w templates.Writer, name string, data any) error {
	v.names = append(v.names, name)
	return views.RenderSnippet(w, name, data)
}

// fakes

type fakeLocator struct {
	forumID int64
	err     error
}

func (f *fakeLocator) Resolve(ctx context.Context, courseID int64) (int64, error) {
	return f.forumID, f.err
}

type fakePages struct {
	discussion models.Discussion
	lookupErr  error

	result    pagediscussion.EnsureResult
	ensureErr error
	ensured   []pagediscussion.EnsureInput
}

func (f *fakePages) Lookup(ctx context.Context, courseID int64, kind models.PageKind, pageInternalID int64) (models.Discussion, error) {
	if f.lookupErr != nil {
		return models.Discussion{}, f.lookupErr
	}
	return f.discussion, nil
}

func (f *fakePages) Ensure(ctx context.Context, in pagediscussion.EnsureInput) (pagediscussion.EnsureResult, error) {
	f.ensured = append(f.ensured, in)
	return f.result, f.ensureErr
}

type fakeForums struct {
	forums      map[int64]models.Forum
	discussions map[int64]models.Discussion
	posts       map[int64][]models.Post

	canPost bool
	canEdit bool

	createErr  error
	nextPostID int64
	created    []forumstore.NewPost
}

func newFakeForums() *fakeForums {
	return &fakeForums{
		forums: map[int64]models.Forum{
			5: {ID: 5, CourseID: 1, Name: "General", Type: models.ForumTypeGeneral},
			6: {ID: 6, CourseID: 2, Name: "Elsewhere", Type: models.ForumTypeGeneral},
		},
		discussions: map[int64]models.Discussion{
			50: {ID: 50, CourseID: 1, ForumID: 5, Name: "Discuss Week 1", FirstPostID: 500},
		},
		posts:      map[int64][]models.Post{},
		canPost:    true,
		nextPostID: 900,
	}
}

func (f *fakeForums) CanUserPost(ctx context.Context, forumID, discussionID, userID int64) (bool, error) {
	return f.canPost, nil
}

func (f *fakeForums) CanUserEdit(ctx context.Context, userID, postID int64) (bool, error) {
	return f.canEdit, nil
}

func (f *fakeForums) ForumByID(ctx context.Context, forumID int64) (models.Forum, error) {
	fo, ok := f.forums[forumID]
	if !ok {
		return models.Forum{}, forumstore.ErrNotFound
	}
	return fo, nil
}

func (f *fakeForums) FetchDiscussion(ctx context.Context, discussionID int64) (models.Discussion, error) {
	d, ok := f.discussions[discussionID]
	if !ok {
		return models.Discussion{}, forumstore.ErrNotFound
	}
	return d, nil
}

func (f *fakeForums) FetchPostsForDiscussion(ctx context.Context, discussionID int64, sortOrder string) ([]models.Post, error) {
	return f.posts[discussionID], nil
}

func (f *fakeForums) CreatePost(ctx context.Context, in forumstore.NewPost) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created = append(f.created, in)
	f.nextPostID++
	return f.nextPostID, nil
}

type fakeAuthors struct {
	users map[int64]models.User
}

func (f *fakeAuthors) ByIDs(ctx context.Context, ids []int64) (map[int64]models.User, error) {
	out := map[int64]models.User{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// helpers

type env struct {
	Status       string `json:"status"`
	DiscussionID int64  `json:"discussionId"`
	PostID       int64  `json:"postId"`
	ForumID      int64  `json:"forumId"`
	Subject      string `json:"subject"`
	HTML         string `json:"html"`
	Warning      string `json:"warning"`
	ErrorMessage string `json:"errorMessage"`
}

type fixture struct {
	locator *fakeLocator
	pages   *fakePages
	forums  *fakeForums
	authors *fakeAuthors
	h       *discuss.Handler
}

func newFixture(settings models.DiscussSettings) *fixture {
	fx := &fixture{
		locator: &fakeLocator{forumID: 5},
		pages:   &fakePages{lookupErr: pagebindingstore.ErrNotFound},
		forums:  newFakeForums(),
		authors: &fakeAuthors{users: map[int64]models.User{
			100: {ID: 100, FirstName: "Sam", LastName: "Student"},
			200: {ID: 200, FirstName: "Tia", LastName: "Teacher"},
		}},
	}
	if settings.LMSBaseURL == "" {
		settings.LMSBaseURL = "https://lms.example"
	}
	fx.h = discuss.NewHandler(fx.locator, fx.pages, fx.forums, fx.authors, views, settings, zap.NewNop())
	return fx
}

func seedPosts(fx *fixture) {
	now := time.Now()
	fx.forums.posts[50] = []models.Post{
		{ID: 502, DiscussionID: 50, ParentID: 501, UserID: 200, Message: "<p>Reply to Sam</p>", CreatedAt: now, ModifiedAt: now},
		{ID: 501, DiscussionID: 50, ParentID: 500, UserID: 100, Message: "First!<script>alert(1)</script>", CreatedAt: now, ModifiedAt: now},
		{ID: 500, DiscussionID: 50, ParentID: 0, UserID: 200, Message: "Discuss Week 1 here.", CreatedAt: now, ModifiedAt: now},
	}
}

var student = testutil.StudentUser(100)

// create-discussion

func TestCreateDiscussion_Success(t *testing.T) {
	fx := newFixture(models.DiscussSettings{})
	fx.pages.result = pagediscussion.EnsureResult{DiscussionID: 50, Subject: "Discuss Week 1", Created: true}

	req := testutil.NewJSONRequest(http.MethodPost, "/discuss/discussions", map[string]any{
		"courseId": 1, "forumId": 5, "contextId": 77, "message": "Hello\nworld",
		"pageInternalId": 12, "pageKind": "Section",
	}, student)
	rec := testutil.NewRecorder()
	fx.h.CreateDiscussion(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	var got env
	rec.DecodeJSON(t, &got)
	if got.Status != discuss.StatusCreated {
		t.Errorf("status: got %q, want %q", got.Status, discuss.StatusCreated)
	}
	if got.DiscussionID != 50 || got.Subject != "Discuss Week 1" {
		t.Errorf("envelope: got %+v", got)
	}
	if got.PostID == 0 {
		t.Error("expected first reply post id")
	}

	if len(fx.pages.ensured) != 1 {
		t.Fatalf("Ensure calls: got %d, want 1", len(fx.pages.ensured))
	}
	in := fx.pages.ensured[0]
	if in.Kind != models.PageKindSection || in.PageInternalID != 12 || in.UserID != 100 {
		t.Errorf("EnsureInput: got %+v", in)
	}
	if len(fx.forums.created) != 1 {
		t.Fatalf("CreatePost calls: got %d, want 1", len(fx.forums.created))
	}
	if msg := fx.forums.created[0].Message; msg != "Hello<br>world" {
		t.Errorf("message: got %q, want %q", msg, "Hello<br>world")
	}
	if fx.forums.created[0].ParentID != 0 {
		t.Errorf("first reply parent: got %d, want 0", fx.forums.created[0].ParentID)
	}
}

func TestCreateDiscussion_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"empty message", map[string]any{"courseId": 1, "forumId": 5, "message": "   ", "pageInternalId": 12, "pageKind": "section"}, "Please add a message"},
		{"unknown kind", map[string]any{"courseId": 1, "forumId": 5, "message": "x", "pageInternalId": 12, "pageKind": "quiz"}, "Invalid pageKind"},
		{"missing course", map[string]any{"forumId": 5, "message": "x", "pageInternalId": 12, "pageKind": "page"}, "Invalid courseId"},
		{"missing page id", map[string]any{"courseId": 1, "forumId": 5, "message": "x", "pageKind": "page"}, "Invalid pageInternalId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(models.DiscussSettings{})
			rec := testutil.NewRecorder()
			fx.h.CreateDiscussion(rec, testutil.NewJSONRequest(http.MethodPost, "/discuss/discussions", tt.body, student))

			rec.AssertStatus(t, http.StatusBadRequest)
			var got env
			rec.DecodeJSON(t, &got)
			if got.Status != discuss.StatusNotCreated {
				t.Errorf("status: got %q, want %q", got.Status, discuss.StatusNotCreated)
			}
			if got.ErrorMessage != tt.want {
				t.Errorf("errorMessage: got %q, want %q", got.ErrorMessage, tt.want)
			}
			if len(fx.pages.ensured) != 0 {
				t.Error("Ensure should not be called on invalid input")
			}
		})
	}
}

func TestCreateDiscussion_PermissionDenied(t *testing.T) {
	fx := newFixture(models.DiscussSettings{})
	fx.pages.ensureErr = &pagediscussion.CreateError{Subject: "Discuss Week 1", Err: forumstore.ErrPermissionDenied}

	rec := testutil.NewRecorder()
	fx.h.CreateDiscussion(rec, testutil.NewJSONRequest(http.MethodPost, "/discuss/discussions", map[string]any{
		"courseId": 1, "forumId": 5, "message": "hi", "pageInternalId": 12, "pageKind": "section",
	}, student))

	rec.AssertStatus(t, http.StatusOK)
	var got env
	rec.DecodeJSON(t, &got)
	if got.Status != discuss.StatusNotCreated {
		t.Errorf("status: got %q, want %q", got.Status, discuss.StatusNotCreated)
	}
	if got.ErrorMessage != "Sorry, you are not permitted to post in this discussion." {
		t.Errorf("errorMessage: got %q", got.ErrorMessage)
	}
	if got.Subject != "Discuss Week 1" {
		t.Errorf("subject: got %q", got.Subject)
	}
	if len(fx.forums.created) != 0 {
		t.Error("no post should be created")
	}
}

func TestCreateDiscussion_ExistingDiscussionNotPostable(t *testing.T) {
	fx := newFixture(models.DiscussSettings{})
	fx.pages.result = pagediscussion.EnsureResult{DiscussionID: 50, Subject: "Discuss Week 1", Created: false}
	fx.forums.canPost = false

	rec := testutil.NewRecorder()
	fx.h.CreateDiscussion(rec, testutil.NewJSONRequest(http.MethodPost, "/discuss/discussions", map[string]any{
		"courseId": 1, "forumId": 5, "message": "sneaking in", "pageInternalId": 12, "pageKind": "section",
	}, student))

	rec.AssertStatus(t, http.StatusOK)
	var got env
	rec.DecodeJSON(t, &got)
	if got.Status != discuss.StatusNotCreated {
		t.Errorf("status: got %q, want %q", got.Status, discuss.StatusNotCreated)
	}
	if got.ErrorMessage != "Sorry, you are not permitted to post in this discussion." {
		t.Errorf("errorMessage: got %q", got.ErrorMessage)
	}
	if got.PostID != 0 {
		t.Errorf("postId: got %d, want 0", got.PostID)
	}
	if len(fx.forums.created) != 0 {
		t.Errorf("CreatePost calls: got %d, want 0", len(fx.forums.created))
	}
}

func TestCreateDiscussion_ForumInOtherCourse(t *testing.T) {
	fx := newFixture(models.DiscussSettings{})

	rec := testutil.NewRecorder()
	fx.h.CreateDiscussion(rec, testutil.NewJSONRequest(http.MethodPost, "/discuss/discussions", map[string]any{
		"courseId": 1, "forumId": 6, "message": "hi", "pageInternalId": 12, "pageKind": "section",
	}, student))

	rec.AssertStatus(t, http.StatusOK)
	var got env
	rec.DecodeJSON(t, &got)
	if got.Status != discuss.StatusNotCreated {
		t.Errorf("status: got %q, want %q", got.Status, discuss.StatusNotCreated)
	}
	if len(fx.pages.ensured) != 0 {
		t.Error("Ensure should not be called for a forum outside the course")
	}
}

func TestCreateDiscussion_WarningPassedThrough(t *testing.T) {
	fx := newFixture(models.DiscussSettings{})
	fx.pages.result = pagediscussion.EnsureResult{
		DiscussionID: 50, Subject: "Discuss Week 1", Created: true,
		Warning: "Warning, link not created for discussion id 50",
	}
	fx.forums.createErr = errors.New("boom")

	rec := testutil.NewRecorder()
	fx.h.CreateDiscussion(rec, testutil.NewJSONRequest(http.MethodPost, "/discuss/discussions", map[string]any{
		"courseId": 1, "forumId": 5, "message": "hi", "pageInternalId": 12, "pageKind": "section",
	}, student))

	var got env
	rec.DecodeJSON(t, &got)
	if got.Status != discuss.StatusCreated {
		t.Errorf("status: got %q, want %q", got.Status, discuss.StatusCreated)
	}
	if !strings.Contains(got.Warning, "link not created for discussion id 50") {
		t.Errorf("warning missing bind failure: %q", got.Warning)
	}
	if !strings.Contains(got.Warning, "Discussion created but possible internal error.") {
		t.Errorf("warning missing first reply failure: %q", got.Warning)
	}
}

func TestCreateDiscussion_InfrastructureFailure(t *testing.T) {
	fx := newFixture(models.DiscussSettings{})
	fx.pages.ensureErr = errors.New("mongo down")

	rec := testutil.NewRecorder()
	fx.h.CreateDiscussion(rec, testutil.NewJSONRequest(http.MethodPost, "/discuss/discussions", map[string]any{
		"courseId": 1, "forumId": 5, "message": "hi", "pageInternalId": 12, "pageKind": "section",
	}, student))

	rec.AssertStatus(t, http.StatusInternalServerError)
	var got env
	rec.DecodeJSON(t, &got)
	if got.Status != discuss.StatusNotCreated {
		t.Errorf("status: got %q, want %q", got.Status, discuss.StatusNotCreated)
	}
	if strings.Contains(got.ErrorMessage, "mongo") {
		t.Errorf("internal error leaked: %q", got.ErrorMessage)
	}
}

func TestCreateDiscussion_Unauthenticated(t *testing.T) {
	fx := newFixture(models.DiscussSettings{})
	rec := testutil.NewRecorder()
	fx.h.CreateDiscussion(rec, testutil.NewRequest(http.MethodPost, "/discuss/discussions"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestCreatePost_Throttled(t *testing.T) {
	fx := newFixture(models.DiscussSettings{})
	fx.h.Throttle = ratelimit.NewPostLimiter(1, time.Minute)

	body := map[string]any{
		"courseId": 1, "forumId": 5, "discussionId": 50, "parentPostId": 501, "message": "one",
	}
	first := testutil.NewRecorder()
	fx.h.CreatePost(first, testutil.NewJSONRequest(http.MethodPost, "/discuss/posts", body, student))
	first.AssertStatus(t, http.StatusOK)

	second := testutil.NewRecorder()
	fx.h.CreatePost(second, testutil.NewJSONRequest(http.MethodPost, "/discuss/posts", body, student))
	second.AssertStatus(t, http.StatusTooManyRequests)

	var got env
	second.DecodeJSON(t, &got)
	if got.Status != discuss.StatusNotCreated || got.ErrorMessage == "" {
		t.Errorf("envelope: got %+v", got)
	}
	if len(fx.forums.created) != 1 {
		t.Errorf("CreatePost calls: got %d, want 1", len(fx.forums.created))
	}
}

// create-post

func TestCreatePost_Success(t *testing.T) {
	fx := newFixture(models.DiscussSettings{})

	rec := testutil.NewRecorder()
	fx.h.CreatePost(rec, testutil.NewJSONRequest(http.MethodPost, "/discuss/posts", map[string]any{
		"courseId": 1, "forumId": 5, "discussionId": 50, "parentPostId": 501,
		"message": "<b>agreed</b><script>x()</script>", "subject": "",
	}, student))

	rec.AssertStatus(t, http.StatusOK)
	var got env
	rec.DecodeJSON(t, &got)
	if got.Status != discuss.StatusCreated || got.PostID == 0 {
		t.Errorf("envelope: got %+v", got)
	}
	if len(fx.forums.created) != 1 {
		t.Fatalf("CreatePost calls: got %d, want 1", len(fx.forums.created))
	}
	p := fx.forums.created[0]
	if p.ParentID != 501 || p.DiscussionID != 50 || p.UserID != 100 {
		t.Errorf("NewPost: got %+v", p)
	}
	if strings.Contains(p.Message, "script") {
		t.Errorf("message not sanitized: %q", p.Message)
	}
}

func TestCreatePost_Failures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(fx *fixture)
		body      map[string]any
		wantCode  int
		wantError string
	}{
		{
			name:      "empty message",
			body:      map[string]any{"courseId": 1, "forumId": 5, "discussionId": 50, "message": ""},
			wantCode:  http.StatusBadRequest,
			wantError: "Please add a message",
		},
		{
			name:      "unknown discussion",
			body:      map[string]any{"courseId": 1, "forumId": 5, "discussionId": 99, "message": "x"},
			wantCode:  http.StatusOK,
			wantError: "Failed to add post. Invalid discussion id.",
		},
		{
			name:      "discussion in other forum",
			body:      map[string]any{"courseId": 1, "forumId": 6, "discussionId": 50, "message": "x"},
			wantCode:  http.StatusOK,
			wantError: "Failed to add post. Invalid discussion id.",
		},
		{
			name:      "not permitted",
			setup:     func(fx *fixture) { fx.forums.canPost = false },
			body:      map[string]any{"courseId": 1, "forumId": 5, "discussionId": 50, "message": "x"},
			wantCode:  http.StatusOK,
			wantError: "Sorry, you are not permitted to post in this discussion.",
		},
		{
			name:      "invalid parent",
			setup:     func(fx *fixture) { fx.forums.createErr = forumstore.ErrInvalidParent },
			body:      map[string]any{"courseId": 1, "forumId": 5, "discussionId": 50, "parentPostId": 7, "message": "x"},
			wantCode:  http.StatusOK,
			wantError: "Failed to add post. Invalid parent post id.",
		},
		{
			name:     "store failure",
			setup:    func(fx *fixture) { fx.forums.createErr = errors.New("write failed") },
			body:     map[string]any{"courseId": 1, "forumId": 5, "discussionId": 50, "message": "x"},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(models.DiscussSettings{})
			if tt.setup != nil {
				tt.setup(fx)
			}
			rec := testutil.NewRecorder()
			fx.h.CreatePost(rec, testutil.NewJSONRequest(http.MethodPost, "/discuss/posts", tt.body, student))

			rec.AssertStatus(t, tt.wantCode)
			var got env
			rec.DecodeJSON(t, &got)
			if got.Status != discuss.StatusNotCreated {
				t.Errorf("status: got %q, want %q", got.Status, discuss.StatusNotCreated)
			}
			if tt.wantError != "" && got.ErrorMessage != tt.wantError {
				t.Errorf("errorMessage: got %q, want %q", got.ErrorMessage, tt.wantError)
			}
		})
	}
}

// display-discussion

func displayRequest(target string) *http.Request {
	req := testutil.NewAuthenticatedRequest(http.MethodGet, target, student)
	return testutil.WithChiURLParam(req, "discussionId", "50")
}

func TestDisplayDiscussion_RendersTree(t *testing.T) {
	fx := newFixture(models.DiscussSettings{AllowEdit: true, MaxEditTime: 30 * time.Minute})
	seedPosts(fx)

	rec := testutil.NewRecorder()
	fx.h.DisplayDiscussion(rec, displayRequest("/discuss/discussions/50?courseId=1&forumId=5&allowReply=1"))

	rec.AssertStatus(t, http.StatusOK)
	var got env
	rec.DecodeJSON(t, &got)
	if got.Status != discuss.StatusReturned {
		t.Errorf("status: got %q, want %q", got.Status, discuss.StatusReturned)
	}

	html := got.HTML
	if strings.Contains(html, "Discuss Week 1 here.") {
		t.Error("root post should not be rendered")
	}
	first := strings.Index(html, `id="post_501"`)
	second := strings.Index(html, `id="post_502"`)
	if first < 0 || second < 0 || first > second {
		t.Errorf("expected post 501 before its reply 502")
	}
	if !strings.Contains(html, "block_activity_discuss_depth_1") {
		t.Error("nested reply should carry depth 1")
	}
	if strings.Contains(html, "<script>") {
		t.Error("post message not sanitized")
	}
	if !strings.Contains(html, "Sam Student") || !strings.Contains(html, "Tia Teacher") {
		t.Error("author names missing")
	}
	if !strings.Contains(html, "https://lms.example/mod/forum/post.php?edit=501") {
		t.Error("own recent post should have an edit link")
	}
	if strings.Contains(html, "post.php?edit=502") {
		t.Error("someone else's post should not have an edit link")
	}
	if !strings.Contains(html, "course-discuss-create-reply") {
		t.Error("reply form should be shown when allowReply is set")
	}
}

func TestPage_RendersThroughEngine(t *testing.T) {
	fx := newFixture(models.DiscussSettings{})
	seedPosts(fx)
	fx.pages.lookupErr = nil
	fx.pages.discussion = fx.forums.discussions[50]
	rv := &recordingViews{}
	fx.h.Views = rv

	rec := testutil.NewRecorder()
	fx.h.Page(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/discuss/page?courseId=1&pageKind=section&pageInternalId=12", student))

	rec.AssertStatus(t, http.StatusOK)
	want := []string{"discussion", "page"}
	if strings.Join(rv.names, ",") != strings.Join(want, ",") {
		t.Errorf("snippets: got %v, want %v", rv.names, want)
	}
	var got env
	rec.DecodeJSON(t, &got)
	// post_author comes from the shared set.
	if !strings.Contains(got.HTML, `class="block_activity_discuss_author_name"`) {
		t.Error("shared author partial not rendered")
	}
	if !strings.Contains(got.HTML, "block_activity_discuss_headline_primary") {
		t.Error("page wrapper not rendered")
	}
}

func TestReplyForm_RendersIntoBuffer(t *testing.T) {
	var buf strings.Builder
	err := views.RenderSnippet(&buf, "reply_form", map[string]any{
		"CourseID": 1, "ForumID": 5, "PageKind": "section", "PageInternalID": 12,
		"DiscussionID": 42, "ParentPostID": 500, "ButtonID": "course-discuss-create-reply",
		"ShowViewThread": false, "ThreadURL": "",
	})
	if err != nil {
		t.Fatalf("RenderSnippet failed: %v", err)
	}
	if !strings.Contains(buf.String(), `name="discussionId" value="42"`) {
		t.Errorf("reply form missing discussion id: %s", buf.String())
	}
}

func TestDisplayDiscussion_NoReplyFormWithoutPermission(t *testing.T) {
	fx := newFixture(models.DiscussSettings{})
	seedPosts(fx)
	fx.forums.canPost = false

	rec := testutil.NewRecorder()
	fx.h.DisplayDiscussion(rec, displayRequest("/discuss/discussions/50?courseId=1&forumId=5&allowReply=1"))

	var got env
	rec.DecodeJSON(t, &got)
	if strings.Contains(got.HTML, "course-discuss-create-reply") {
		t.Error("reply form should be hidden for users who cannot post")
	}
	if strings.Contains(got.HTML, "course-discuss-reply-link") {
		t.Error("reply links should be hidden for users who cannot post")
	}
}

func TestDisplayDiscussion_Mismatch(t *testing.T) {
	fx := newFixture(models.DiscussSettings{})
	seedPosts(fx)

	rec := testutil.NewRecorder()
	fx.h.DisplayDiscussion(rec, displayRequest("/discuss/discussions/50?courseId=2&forumId=5"))

	rec.AssertStatus(t, http.StatusOK)
	var got env
	rec.DecodeJSON(t, &got)
	if got.Status != discuss.StatusNotCreated || got.HTML != "" {
		t.Errorf("envelope: got %+v", got)
	}
}

func TestDisplayDiscussion_MissingForumID(t *testing.T) {
	fx := newFixture(models.DiscussSettings{})
	rec := testutil.NewRecorder()
	fx.h.DisplayDiscussion(rec, displayRequest("/discuss/discussions/50?courseId=1"))
	rec.AssertStatus(t, http.StatusBadRequest)
}

// reply-form

func TestReplyForm(t *testing.T) {
	fx := newFixture(models.DiscussSettings{ShowViewThreadLink: true})

	rec := testutil.NewRecorder()
	fx.h.ReplyForm(rec, testutil.NewAuthenticatedRequest(http.MethodGet,
		"/discuss/reply-form?courseId=1&forumId=5&pageKind=section&pageInternalId=12&discussionId=50&parentPostId=501", student))

	rec.AssertStatus(t, http.StatusOK)
	var got env
	rec.DecodeJSON(t, &got)
	if got.Status != discuss.StatusReturned {
		t.Errorf("status: got %q, want %q", got.Status, discuss.StatusReturned)
	}
	for _, want := range []string{
		`name="parentPostId" value="501"`,
		`name="pageKind" value="section"`,
		`id="course-discuss-create-reply"`,
		"https://lms.example/mod/forum/discuss.php?d=50",
	} {
		if !strings.Contains(got.HTML, want) {
			t.Errorf("form missing %q", want)
		}
	}
}

func TestReplyForm_NewDiscussionHasNoThreadLink(t *testing.T) {
	fx := newFixture(models.DiscussSettings{ShowViewThreadLink: true})

	rec := testutil.NewRecorder()
	fx.h.ReplyForm(rec, testutil.NewAuthenticatedRequest(http.MethodGet,
		"/discuss/reply-form?courseId=1&forumId=5&pageKind=page&pageInternalId=3", student))

	var got env
	rec.DecodeJSON(t, &got)
	if strings.Contains(got.HTML, "discuss.php") {
		t.Error("view thread link should need a discussion")
	}
	if !strings.Contains(got.HTML, `id="course-discuss-create-post"`) {
		t.Error("new discussion form should use the create-post button")
	}
}

func TestReplyForm_ForumInOtherCourse(t *testing.T) {
	fx := newFixture(models.DiscussSettings{})

	rec := testutil.NewRecorder()
	fx.h.ReplyForm(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/discuss/reply-form?courseId=1&forumId=6", student))

	var got env
	rec.DecodeJSON(t, &got)
	if got.Status != discuss.StatusNotCreated {
		t.Errorf("status: got %q, want %q", got.Status, discuss.StatusNotCreated)
	}
}

// page view

func TestPage_NoForum(t *testing.T) {
	tests := []struct {
		name     string
		settings models.DiscussSettings
		want     string
	}{
		{"notice disabled", models.DiscussSettings{}, ""},
		{"default notice", models.DiscussSettings{DisplayErrorIfNoForum: true}, "No Forum activity exists in this course."},
		{"custom notice", models.DiscussSettings{DisplayErrorIfNoForum: true, NoForumMessage: "Ask your teacher"}, "Ask your teacher"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(tt.settings)
			fx.locator.err = forumlocator.ErrNoForum

			rec := testutil.NewRecorder()
			fx.h.Page(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/discuss/page?courseId=1&pageKind=section&pageInternalId=12", student))

			rec.AssertStatus(t, http.StatusOK)
			var got env
			rec.DecodeJSON(t, &got)
			if got.Status != discuss.StatusReturned {
				t.Errorf("status: got %q, want %q", got.Status, discuss.StatusReturned)
			}
			if tt.want == "" && got.HTML != "" {
				t.Errorf("expected no markup, got %q", got.HTML)
			}
			if tt.want != "" && !strings.Contains(got.HTML, tt.want) {
				t.Errorf("html %q does not contain %q", got.HTML, tt.want)
			}
		})
	}
}

func TestPage_NewDiscussionForm(t *testing.T) {
	fx := newFixture(models.DiscussSettings{HeaderTagline: "Have your say"})

	rec := testutil.NewRecorder()
	fx.h.Page(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/discuss/page?courseId=1&pageKind=book&pageInternalId=33", student))

	rec.AssertStatus(t, http.StatusOK)
	var got env
	rec.DecodeJSON(t, &got)
	if got.ForumID != 5 || got.DiscussionID != 0 {
		t.Errorf("ids: got forum %d discussion %d", got.ForumID, got.DiscussionID)
	}
	for _, want := range []string{">Comments</h3>", "Have your say", `id="course-discuss-create-post"`, `name="pageInternalId" value="33"`} {
		if !strings.Contains(got.HTML, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestPage_ExistingDiscussion(t *testing.T) {
	fx := newFixture(models.DiscussSettings{HeaderTitle: "Page comments"})
	seedPosts(fx)
	fx.pages.lookupErr = nil
	fx.pages.discussion = fx.forums.discussions[50]

	rec := testutil.NewRecorder()
	fx.h.Page(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/discuss/page?courseId=1&pageKind=section&pageInternalId=12", student))

	var got env
	rec.DecodeJSON(t, &got)
	if got.DiscussionID != 50 {
		t.Errorf("discussionId: got %d, want 50", got.DiscussionID)
	}
	if !strings.Contains(got.HTML, ">Page comments</h3>") {
		t.Error("configured header title missing")
	}
	if !strings.Contains(got.HTML, `id="post_501"`) {
		t.Error("discussion posts missing")
	}
}

func TestPage_InvalidKind(t *testing.T) {
	fx := newFixture(models.DiscussSettings{})
	rec := testutil.NewRecorder()
	fx.h.Page(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/discuss/page?courseId=1&pageKind=quiz&pageInternalId=1", student))
	rec.AssertStatus(t, http.StatusBadRequest)
}
