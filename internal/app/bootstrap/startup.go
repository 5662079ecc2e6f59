// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/coursediscuss/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})
	t := timeouts.Current()
	logger.Info("database timeouts configured",
		zap.Duration("ping", t.Ping),
		zap.Duration("short", t.Short),
		zap.Duration("medium", t.Medium),
		zap.Duration("long", t.Long))

	s := appCfg.DiscussSettings()
	logger.Info("discussion settings",
		zap.Strings("forum_name_patterns", s.ForumNamePatterns),
		zap.Int64("posting_user_id", s.PostingUserID),
		zap.Bool("link_initial_post_to_page", s.LinkInitialPostToPage),
		zap.Bool("allow_edit", s.AllowEdit),
		zap.Duration("max_edit_time", s.MaxEditTime),
		zap.String("post_sort_order", s.PostSortOrder),
		zap.Bool("binding_cache", deps.Redis != nil))
	return nil
}
