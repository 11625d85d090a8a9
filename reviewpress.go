// Package reviewpress serves a product review blog and the two functions
// that feed it: a repository push webhook and an AI post generator.
//
// The site is read-only. Posts are written only by the generator, which
// turns product photos into a review through a multimodal completion API.
package reviewpress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/reviewpress/reviewpress/ingest"
	"github.com/reviewpress/reviewpress/store"
	"github.com/reviewpress/reviewpress/views"
)

// ViewFuncs holds the components the handlers render. DefaultViews returns
// the built-in set; replace individual fields to customize a page.
type ViewFuncs struct {
	Home        func(views.HomePage) templ.Component
	Posts       func(views.PostsPage) templ.Component
	Post        func(views.PostPage) templ.Component
	About       func(views.SiteConfig) templ.Component
	Privacy     func(views.SiteConfig) templ.Component
	Terms       func(views.SiteConfig) templ.Component
	NotFound    func(views.SiteConfig) templ.Component
	ServerError func(views.SiteConfig) templ.Component
}

// DefaultViews returns the built-in page components.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:        views.Home,
		Posts:       views.Posts,
		Post:        views.Post,
		About:       views.About,
		Privacy:     views.Privacy,
		Terms:       views.Terms,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

// App is the central reviewpress application. It wires together the store,
// cache, ingestion pipeline, handlers and middleware.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  store.Store
	Posts  *PostCache
	Views  ViewFuncs

	Generator *ingest.Generator
	Webhook   *ingest.Webhook
	Runs      *ingest.RunLog

	completer    ingest.Completer
	redis        *redis.Client
	limiter      *RateLimiter
	stopCleanup  func()
	customRoutes []func(*App)
	ready        bool

	closeOnce sync.Once
	closeErr  error
}

// New creates a new App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  DefaultViews(),
	}
	a.Echo.HideBanner = true
	a.Echo.Logger = log.New("reviewpress")

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup opens the store, run log and cache, builds the ingestion pipeline
// and registers middleware and routes. Start calls it; tests call it directly.
func (a *App) Setup(ctx context.Context) error {
	if a.ready {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("reviewpress: %w", err)
	}
	for _, w := range a.Config.Warnings() {
		a.Echo.Logger.Warn(w)
	}

	if a.Store == nil {
		s, err := store.Open(ctx, a.Config.Store)
		if err != nil {
			return fmt.Errorf("reviewpress: init store: %w", err)
		}
		a.Store = s
	}

	a.Posts = NewPostCache(a.Store, a.Config.Cache.TTL())
	if a.Config.Cache.RedisURL != "" && a.Config.Cache.TTL() > 0 {
		opt, err := redis.ParseURL(a.Config.Cache.RedisURL)
		if err != nil {
			return fmt.Errorf("reviewpress: parse redis url: %w", err)
		}
		a.redis = redis.NewClient(opt)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Echo.Logger.Warnf("redis unavailable, post cache stays local: %v", err)
			a.redis.Close()
			a.redis = nil
		} else {
			a.Posts.WithRedis(a.redis)
		}
	}

	runs, err := ingest.NewRunLog(a.Config.Ingest.RunLogPath)
	if err != nil {
		return fmt.Errorf("reviewpress: init run log: %w", err)
	}
	a.Runs = runs
	a.stopCleanup = runs.StartCleanupScheduler(a.Config.Ingest.RetentionDays, 24*time.Hour)

	if a.completer == nil {
		a.completer = ingest.NewAIClient(a.Config.AI)
	}
	a.Generator = ingest.NewGenerator(a.completer, a.Store, a.Config.Ingest.ImageBaseURL)
	a.Generator.Author = a.Config.Author
	a.Generator.Logger = a.Echo.Logger

	a.Webhook = &ingest.Webhook{
		Prefix:        a.Config.Ingest.ImagePrefix,
		GroupByCommit: a.Config.Ingest.GroupByCommit,
		Async:         a.Config.Ingest.Async,
		Trigger:       a.trigger(),
		Runs:          a.Runs,
		Logger:        a.Echo.Logger,
	}

	if a.Config.Functions.RateLimit > 0 {
		a.limiter = NewRateLimiter(a.Config.Functions.RateLimit, time.Minute)
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// trigger picks where webhook work runs: a remote generator when one is
// configured, otherwise this process.
func (a *App) trigger() ingest.Trigger {
	if a.Config.Ingest.GeneratorURL != "" {
		return ingest.NewHTTPTrigger(a.Config.Ingest.GeneratorURL, a.Config.Ingest.GeneratorToken)
	}
	return ingest.LocalTrigger{
		Generator:   a.Generator,
		OnGenerated: a.postCreated,
	}
}

// postCreated drops cached lists so a new post shows up at once.
func (a *App) postCreated(p store.Post) {
	if err := a.Posts.Invalidate(context.Background()); err != nil {
		a.Echo.Logger.Warnf("invalidate post cache after post %d: %v", p.ID, err)
	}
}

// Start runs Setup and serves until the server is shut down.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for background webhook work.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if a.Webhook != nil {
		a.Webhook.Wait()
	}
	return err
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.Config.StaticDir)
	e.GET("/favicon.ico", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/healthz", a.handleHealth)

	e.GET("/", a.handleHome)
	e.GET("/posts", a.handlePosts)
	e.GET("/posts/:id", a.handlePost)
	e.GET("/about", a.handleAbout)
	e.GET("/privacy", a.handlePrivacy)
	e.GET("/terms", a.handleTerms)

	fnMW := a.functionsMiddleware()
	e.POST("/functions/github-webhook", a.handleGitHubWebhook, fnMW...)
	e.POST("/functions/ai-blog-generator", a.handleGenerate, append(fnMW, jwtAuth(a.Config.Functions.JWTSecret))...)
}

// Close cleans up resources. Call this when the app is shutting down; later
// calls return the first call's result.
func (a *App) Close() error {
	a.closeOnce.Do(func() { a.closeErr = a.close() })
	return a.closeErr
}

func (a *App) close() error {
	if a.stopCleanup != nil {
		a.stopCleanup()
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.Webhook != nil {
		a.Webhook.Wait()
	}
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.Runs != nil {
		errs = append(errs, a.Runs.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
