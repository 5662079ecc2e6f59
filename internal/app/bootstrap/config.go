// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/coursediscuss/internal/app/system/timeouts"
	"github.com/dalemusser/coursediscuss/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minSessionKeyLen is the shortest session signing key accepted in production.
const minSessionKeyLen = 32

// appConfigKeys defines the configuration keys for coursediscuss.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, forum_name_patterns, etc.
//   - Environment variables: COURSEDISCUSS_MONGO_URI, COURSEDISCUSS_ALLOW_EDIT, etc.
//   - Command-line flags: --mongo_uri, --allow_edit, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "lms", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "coursediscuss-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie lifetime"},

	// Redis forum binding cache
	{Name: "redis_addr", Default: "", Desc: "Redis address for the forum binding cache (blank disables it)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "forum_binding_cache_ttl", Default: "10m", Desc: "How long a cached forum binding is trusted"},

	// Write throttling
	{Name: "post_rate_limit", Default: 20, Desc: "Discussions and posts one user may create per window (0 disables the limit)"},
	{Name: "post_rate_window", Default: "1m", Desc: "Window for post_rate_limit"},

	// Database timeouts
	{Name: "db_timeout_ping", Default: "2s", Desc: "Timeout for health check pings"},
	{Name: "db_timeout_short", Default: "5s", Desc: "Timeout for single-document reads and writes"},
	{Name: "db_timeout_medium", Default: "10s", Desc: "Timeout for queries that return lists"},
	{Name: "db_timeout_long", Default: "30s", Desc: "Timeout for discussion creation and schema setup"},

	// Discussion settings
	{Name: "display_error_if_no_forum", Default: false, Desc: "Show a notice on pages of courses without a forum"},
	{Name: "no_forum_message", Default: "", Desc: "Notice shown when a course has no forum (blank uses the built-in text)"},
	{Name: "forum_name_patterns", Default: "", Desc: "Comma-separated substrings used to pick the course forum by name, in order"},
	{Name: "posting_user_id", Default: 0, Desc: "User id that authors seed posts (0 uses the requesting user)"},
	{Name: "link_initial_post_to_page", Default: true, Desc: "Link the seed post to the page it discusses"},
	{Name: "allow_edit", Default: false, Desc: "Let authors edit their posts from the page"},
	{Name: "max_edit_time", Default: "30m", Desc: "How long after posting an author may edit"},
	{Name: "show_view_thread_link", Default: false, Desc: "Show a link to the full forum thread"},
	{Name: "header_title", Default: models.DefaultHeaderTitle, Desc: "Heading shown above the discussion"},
	{Name: "header_tagline", Default: "", Desc: "Text shown under the heading"},
	{Name: "post_sort_order", Default: models.SortNewestFirst, Desc: "Post order: 'newest' (default) or 'oldest'"},
	{Name: "lms_base_url", Default: "http://localhost", Desc: "Base URL of the LMS for page, profile and forum links"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, COURSEDISCUSS_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "COURSEDISCUSS", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),

		// Redis
		RedisAddr:            appValues.String("redis_addr"),
		RedisPassword:        appValues.String("redis_password"),
		RedisDB:              appValues.Int("redis_db"),
		ForumBindingCacheTTL: appValues.Duration("forum_binding_cache_ttl", 10*time.Minute),

		// Write throttling
		PostRateLimit:  appValues.Int("post_rate_limit"),
		PostRateWindow: appValues.Duration("post_rate_window", time.Minute),

		// Timeouts
		TimeoutPing:   appValues.Duration("db_timeout_ping", timeouts.DefaultPing),
		TimeoutShort:  appValues.Duration("db_timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("db_timeout_medium", timeouts.DefaultMedium),
		TimeoutLong:   appValues.Duration("db_timeout_long", timeouts.DefaultLong),

		// Discussion settings
		DisplayErrorIfNoForum: appValues.Bool("display_error_if_no_forum"),
		NoForumMessage:        appValues.String("no_forum_message"),
		ForumNamePatterns:     appValues.String("forum_name_patterns"),
		PostingUserID:         int64(appValues.Int("posting_user_id")),
		LinkInitialPostToPage: appValues.Bool("link_initial_post_to_page"),
		AllowEdit:             appValues.Bool("allow_edit"),
		MaxEditTime:           appValues.Duration("max_edit_time", 30*time.Minute),
		ShowViewThreadLink:    appValues.Bool("show_view_thread_link"),
		HeaderTitle:           appValues.String("header_title"),
		HeaderTagline:         appValues.String("header_tagline"),
		PostSortOrder:         strings.ToLower(strings.TrimSpace(appValues.String("post_sort_order"))),
		LMSBaseURL:            strings.TrimRight(appValues.String("lms_base_url"), "/"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if strings.TrimSpace(appCfg.MongoDatabase) == "" {
		return fmt.Errorf("mongo_database must be set")
	}

	if coreCfg != nil && coreCfg.Env == "prod" && len(appCfg.SessionKey) < minSessionKeyLen {
		return fmt.Errorf("session_key must be at least %d characters in production", minSessionKeyLen)
	}

	switch appCfg.PostSortOrder {
	case models.SortNewestFirst, models.SortOldestFirst:
	default:
		return fmt.Errorf("post_sort_order must be %q or %q, got %q",
			models.SortNewestFirst, models.SortOldestFirst, appCfg.PostSortOrder)
	}

	if appCfg.PostingUserID < 0 {
		return fmt.Errorf("posting_user_id must not be negative")
	}

	if appCfg.PostRateLimit < 0 {
		return fmt.Errorf("post_rate_limit must not be negative")
	}
	if appCfg.PostRateLimit > 0 && appCfg.PostRateWindow <= 0 {
		return fmt.Errorf("post_rate_window must be positive when post_rate_limit is set")
	}

	if appCfg.MaxEditTime < 0 {
		return fmt.Errorf("max_edit_time must not be negative")
	}

	u, err := url.Parse(appCfg.LMSBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("lms_base_url must be an absolute http(s) URL, got %q", appCfg.LMSBaseURL)
	}

	return nil
}
