package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/adapter/axe"
	"github.com/user/a11y-auditor/internal/adapter/chromedp_browser"
	"github.com/user/a11y-auditor/internal/adapter/filestore"
	"github.com/user/a11y-auditor/internal/adapter/memory"
	"github.com/user/a11y-auditor/internal/adapter/postgres"
	redis_adapter "github.com/user/a11y-auditor/internal/adapter/redis"
	"github.com/user/a11y-auditor/internal/adapter/sqlite"
	"github.com/user/a11y-auditor/internal/consent"
	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/internal/proxy"
	"github.com/user/a11y-auditor/internal/report"
	"github.com/user/a11y-auditor/internal/repository"
	"github.com/user/a11y-auditor/internal/usecase"
	"github.com/user/a11y-auditor/pkg/config"
)

// auditEnv holds the stores shared by every command.
type auditEnv struct {
	Sites     *config.Sites
	Sessions  *filestore.SessionRepoImpl
	Reports   *filestore.ReportRepoImpl
	Artifacts *filestore.ArtifactRepoImpl
	Scores    repository.ScoreRepository      // nil with store driver none
	Failures  repository.FailedUnitRepository // nil with store driver none

	closers []func()
}

// Close releases database and redis connections.
func (e *auditEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// initEnv loads the site matrix and opens the file stores and the score history store.
// Callers should defer env.Close().
func initEnv(ctx context.Context) (*auditEnv, error) {
	sites, err := config.LoadSites(cfg.Sites.File)
	if err != nil {
		return nil, err
	}

	filter := entity.CookieFilter{DenyPrefixes: cfg.Sessions.DenyPrefixes, DenyNames: cfg.Sessions.DenyNames}
	env := &auditEnv{
		Sites:     sites,
		Sessions:  filestore.NewSessionRepo(cfg.Sessions.Dir, filter, zap.L()),
		Reports:   filestore.NewReportRepo(cfg.Reports.Dir),
		Artifacts: filestore.NewArtifactRepo(cfg.Reports.Dir),
	}
	if err := initStore(ctx, env); err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}

func initStore(ctx context.Context, env *auditEnv) error {
	switch cfg.Store.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.Store.DatabaseURL); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return eris.Wrap(err, "create sqlite directory")
			}
		}
		db, err := sqlite.Open(cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		env.closers = append(env.closers, func() { _ = db.Close() })
		if err := sqlite.Migrate(ctx, db); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		env.Scores = sqlite.NewScoreRepo(db)
		env.Failures = sqlite.NewFailedUnitRepo(db)
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		env.closers = append(env.closers, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		env.Scores = postgres.NewScoreRepo(pool)
		env.Failures = postgres.NewFailedUnitRepo(pool)
	default:
		zap.L().Debug("Score history store disabled")
		return nil
	}
	zap.L().Info("Score history store ready", zap.String("driver", cfg.Store.Driver))
	return nil
}

// initLocker returns a redis lock when redis.addr is set and an in-process lock otherwise.
func initLocker(ctx context.Context, env *auditEnv) (repository.DomainLockRepository, error) {
	if cfg.Redis.Addr == "" {
		return memory.NewDomainLockRepo(), nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, eris.Wrap(err, "connect to redis")
	}
	env.closers = append(env.closers, func() { _ = rdb.Close() })
	zap.L().Info("Redis domain lock enabled", zap.String("addr", cfg.Redis.Addr))
	return redis_adapter.NewDomainLockRepo(rdb, cfg.Redis.LockTTL, zap.L()), nil
}

func newBrowser(headless bool) *chromedp_browser.ChromedpBrowser {
	pm := proxy.NewManager(cfg.Browser.Proxies, cfg.Browser.UserAgents)
	return chromedp_browser.NewChromedpBrowser(chromedp_browser.Config{
		Headless: headless,
		ExecPath: cfg.Browser.ExecPath,
	}, pm, zap.L())
}

// newAuditUseCase wires the browser, rule engine and consent automation around the stores.
func newAuditUseCase(ctx context.Context, env *auditEnv, resume bool) (*usecase.AuditUseCase, error) {
	rules, err := axe.NewAxeClient(cfg.Audit.AxeScript, zap.L())
	if err != nil {
		return nil, err
	}
	catalog, err := consent.LoadCatalog(cfg.Consent.CatalogFile)
	if err != nil {
		return nil, err
	}
	engine, err := consent.NewEngine(catalog, consent.Config{
		ConsentSettle: cfg.Audit.ConsentSettle,
		CountrySettle: cfg.Audit.CountrySettle,
	}, zap.L())
	if err != nil {
		return nil, err
	}
	locker, err := initLocker(ctx, env)
	if err != nil {
		return nil, err
	}

	return usecase.NewAuditUseCase(
		newBrowser(cfg.Browser.Headless),
		rules,
		engine,
		env.Sessions,
		env.Reports,
		env.Artifacts,
		env.Failures,
		locker,
		usecase.AuditConfig{
			NavigationTimeout: cfg.Audit.NavigationTimeout,
			AnalysisTimeout:   cfg.Audit.AnalysisTimeout,
			CookieSettle:      cfg.Audit.CookieSettle,
			ScrollStep:        cfg.Audit.ScrollStep,
			ScrollDelay:       cfg.Audit.ScrollDelay,
			ScrollSettle:      cfg.Audit.ScrollSettle,
			ThumbnailWidth:    cfg.Audit.ThumbnailWidth,
			Tags:              cfg.Audit.Tags,
			Resume:            resume,
		},
		zap.L(),
	), nil
}

func newReportUseCase(env *auditEnv) (*usecase.ReportUseCase, error) {
	renderer, err := report.NewRenderer()
	if err != nil {
		return nil, err
	}
	return usecase.NewReportUseCase(env.Reports, env.Artifacts, env.Scores, renderer,
		env.Sites.Matrix, env.Sites.Viewports, cfg.Audit.Tags, zap.L()), nil
}

// parseDate returns today's run date for an empty flag.
func parseDate(s string) (entity.RunDate, error) {
	if s == "" {
		return entity.NewRunDate(time.Now()), nil
	}
	return entity.ParseRunDate(s)
}
