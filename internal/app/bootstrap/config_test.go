package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/coursediscuss/internal/domain/models"
	"github.com/dalemusser/coursediscuss/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validAppConfig() AppConfig {
	return AppConfig{
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "lms",
		SessionKey:    strings.Repeat("k", minSessionKeyLen),
		SessionName:   "coursediscuss-session",
		SessionMaxAge: time.Hour,
		MaxEditTime:   30 * time.Minute,
		PostSortOrder: models.SortNewestFirst,
		LMSBaseURL:    "https://lms.example.edu",
		TimeoutPing:   2 * time.Second,
		TimeoutLong:   30 * time.Second,
	}
}

func TestValidateConfig(t *testing.T) {
	prod := &config.CoreConfig{Env: "prod"}
	dev := &config.CoreConfig{Env: "dev"}

	tests := []struct {
		name    string
		core    *config.CoreConfig
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "valid", core: prod, mutate: func(*AppConfig) {}},
		{name: "oldest order", core: prod, mutate: func(c *AppConfig) { c.PostSortOrder = models.SortOldestFirst }},
		{name: "bad mongo uri", core: dev, mutate: func(c *AppConfig) { c.MongoURI = "postgres://nope" }, wantErr: "MongoDB URI"},
		{name: "no database", core: dev, mutate: func(c *AppConfig) { c.MongoDatabase = " " }, wantErr: "mongo_database"},
		{name: "short key in prod", core: prod, mutate: func(c *AppConfig) { c.SessionKey = "short" }, wantErr: "session_key"},
		{name: "short key in dev", core: dev, mutate: func(c *AppConfig) { c.SessionKey = "short" }},
		{name: "unknown sort order", core: dev, mutate: func(c *AppConfig) { c.PostSortOrder = "random" }, wantErr: "post_sort_order"},
		{name: "negative posting user", core: dev, mutate: func(c *AppConfig) { c.PostingUserID = -1 }, wantErr: "posting_user_id"},
		{name: "negative rate limit", core: dev, mutate: func(c *AppConfig) { c.PostRateLimit = -1 }, wantErr: "post_rate_limit"},
		{name: "rate limit without window", core: dev, mutate: func(c *AppConfig) { c.PostRateLimit = 5; c.PostRateWindow = 0 }, wantErr: "post_rate_window"},
		{name: "rate limit with window", core: dev, mutate: func(c *AppConfig) { c.PostRateLimit = 5; c.PostRateWindow = time.Minute }},
		{name: "negative edit window", core: dev, mutate: func(c *AppConfig) { c.MaxEditTime = -time.Second }, wantErr: "max_edit_time"},
		{name: "relative base url", core: dev, mutate: func(c *AppConfig) { c.LMSBaseURL = "/moodle" }, wantErr: "lms_base_url"},
		{name: "ftp base url", core: dev, mutate: func(c *AppConfig) { c.LMSBaseURL = "ftp://lms.example.edu" }, wantErr: "lms_base_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAppConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(tt.core, cfg, testLogger())
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error: got %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestAppConfigKeys_PostSortOrderDefaultsToNewest(t *testing.T) {
	for _, k := range appConfigKeys {
		if k.Name != "post_sort_order" {
			continue
		}
		if k.Default != models.SortNewestFirst {
			t.Errorf("post_sort_order default: got %v, want %q", k.Default, models.SortNewestFirst)
		}
		return
	}
	t.Fatal("post_sort_order key not registered")
}

func TestDiscussSettings(t *testing.T) {
	cfg := validAppConfig()
	cfg.DisplayErrorIfNoForum = true
	cfg.NoForumMessage = "No forum yet"
	cfg.ForumNamePatterns = " Page discussions , ,general "
	cfg.PostingUserID = 7
	cfg.LinkInitialPostToPage = true
	cfg.AllowEdit = true
	cfg.ShowViewThreadLink = true
	cfg.HeaderTitle = "Talk"
	cfg.HeaderTagline = "Be kind"

	s := cfg.DiscussSettings()

	wantPatterns := []string{"Page discussions", "general"}
	if len(s.ForumNamePatterns) != len(wantPatterns) {
		t.Fatalf("ForumNamePatterns: got %v, want %v", s.ForumNamePatterns, wantPatterns)
	}
	for i := range wantPatterns {
		if s.ForumNamePatterns[i] != wantPatterns[i] {
			t.Errorf("ForumNamePatterns[%d]: got %q, want %q", i, s.ForumNamePatterns[i], wantPatterns[i])
		}
	}
	if !s.DisplayErrorIfNoForum || s.NoForumMessage != "No forum yet" {
		t.Errorf("no-forum notice not carried over: %+v", s)
	}
	if s.PostingUserID != 7 {
		t.Errorf("PostingUserID: got %d, want 7", s.PostingUserID)
	}
	if !s.LinkInitialPostToPage || !s.AllowEdit || !s.ShowViewThreadLink {
		t.Errorf("flags not carried over: %+v", s)
	}
	if s.MaxEditTime != 30*time.Minute {
		t.Errorf("MaxEditTime: got %v, want 30m", s.MaxEditTime)
	}
	if s.HeaderTitle != "Talk" || s.HeaderTagline != "Be kind" {
		t.Errorf("header: got %q / %q", s.HeaderTitle, s.HeaderTagline)
	}
	if s.PostSortOrder != models.SortNewestFirst {
		t.Errorf("PostSortOrder: got %q", s.PostSortOrder)
	}
	if s.LMSBaseURL != "https://lms.example.edu" {
		t.Errorf("LMSBaseURL: got %q", s.LMSBaseURL)
	}
}

func TestEnsureSchema_CreatesBindingCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db}
	if err := EnsureSchema(ctx, &config.CoreConfig{Env: "dev"}, validAppConfig(), deps, testLogger()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	// Running it again must be a no-op.
	if err := EnsureSchema(ctx, &config.CoreConfig{Env: "dev"}, validAppConfig(), deps, testLogger()); err != nil {
		t.Fatalf("second EnsureSchema failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"forum_bindings", "page_bindings", "counters"} {
		if !have[want] {
			t.Errorf("expected collection %q", want)
		}
	}
}

func TestBuildHandler_Routes(t *testing.T) {
	db := testutil.SetupTestDB(t)

	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db}
	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, validAppConfig(), deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}

	t.Run("health is public", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status: got %d, want %d", rec.Code, http.StatusOK)
		}
		if !strings.Contains(rec.Body.String(), `"cache":"disabled"`) {
			t.Errorf("expected disabled cache in body, got %s", rec.Body.String())
		}
	})

	t.Run("discuss requires a session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/discuss/page?courseId=1&pageKind=page&pageInternalId=2", nil)
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})
}
