package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/containeroo/tinyflags"
	"golang.org/x/sync/errgroup"

	"github.com/gi8lino/tasklens/internal/cache"
	"github.com/gi8lino/tasklens/internal/config"
	"github.com/gi8lino/tasklens/internal/connector"
	"github.com/gi8lino/tasklens/internal/entity"
	"github.com/gi8lino/tasklens/internal/flag"
	"github.com/gi8lino/tasklens/internal/logging"
	"github.com/gi8lino/tasklens/internal/query"
	"github.com/gi8lino/tasklens/internal/render"
	"github.com/gi8lino/tasklens/internal/terms"
	"github.com/gi8lino/tasklens/internal/update"
)

// Run executes one tasklens command. Results go to out, logs to errOut.
func Run(ctx context.Context, version string, args []string, out, errOut io.Writer, getEnv func(string) string) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	flags, err := flag.ParseArgs(version, args, out, getEnv)
	if err != nil {
		if tinyflags.IsHelpRequested(err) || tinyflags.IsVersionRequested(err) {
			fmt.Fprint(out, err.Error()) // nolint:errcheck
			return nil
		}
		return fmt.Errorf("parsing error: %w", err)
	}

	logger := logging.SetupLogger(flags.LogFormat, flags.Debug, errOut)
	logger.Debug("starting tasklens", "version", version, "mode", flags.Mode)

	cfg, err := config.LoadConfig(flags.Config)
	if err != nil {
		return fmt.Errorf("loading config error: %w", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("validating config error: %w", err)
	}
	if flags.CacheDir != "" {
		cfg.Cache.Dir = flags.CacheDir
	}

	env, err := newEnvironment(cfg, flags.Format, logger)
	if err != nil {
		return err
	}

	kind, err := entity.ParseKind(flags.Kind)
	if err != nil {
		return err
	}

	switch flags.Mode {
	case flag.ModeGet:
		return env.get(ctx, out, kind, flags.ID)
	case flag.ModeUpdate:
		return env.update(ctx, out, flags.ID, flags.Set, flags.DryRun)
	case flag.ModeWarm:
		return env.warm(ctx)
	default:
		if flags.Refresh {
			if err := env.cache.Remove(flags.Key); err != nil {
				return err
			}
		}
		return env.list(ctx, out, kind, flags.Key, query.Filters{Text: flags.Query, Assignee: flags.Assignee})
	}
}

// environment bundles the wired components of one run.
type environment struct {
	cache    *cache.DiskCache
	service  *query.Service
	builder  *update.Builder
	renderer *render.Renderer
	logger   *slog.Logger
}

// newEnvironment wires connector, cache, query service and update builder from cfg.
func newEnvironment(cfg config.Config, format string, logger *slog.Logger) (*environment, error) {
	auth, method, err := connector.ResolveAuth(cfg.API.BearerToken, cfg.API.Email, cfg.API.Token)
	if err != nil {
		return nil, err
	}
	logger.Debug("api auth",
		"method", method,
		"header", connector.ObfuscateHeader(connector.AuthorizationHeader(auth)),
	)

	base, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api.baseURL: %w", err)
	}

	dict := terms.New(cfg.Terms)
	conn, err := connector.New(connector.Options{
		BaseURL:       base,
		Auth:          auth,
		SkipTLSVerify: cfg.API.SkipTLSVerify,
		Timeout:       cfg.API.Timeout,
		Terms:         dict,
		Identity:      connector.Identity{Email: cfg.User.Email, Name: cfg.User.Name},
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	renderer, err := render.New(format)
	if err != nil {
		return nil, err
	}

	dc := cache.NewDiskCache(cfg.Cache.Dir, logger)
	return &environment{
		cache: dc,
		service: &query.Service{
			Cache:     dc,
			Connector: conn,
			Mapper:    entity.Mapper{Terms: dict},
			Logger:    logger,
		},
		builder:  &update.Builder{Connector: conn, Terms: dict},
		renderer: renderer,
		logger:   logger,
	}, nil
}

func (e *environment) list(ctx context.Context, out io.Writer, kind entity.Kind, key string, f query.Filters) error {
	list, err := e.service.List(ctx, kind, key, f)
	if err != nil {
		return err
	}
	e.logger.Debug("listed", "kind", kind, "key", key, "count", len(list))
	return e.renderer.List(out, kind, list)
}

func (e *environment) get(ctx context.Context, out io.Writer, kind entity.Kind, id int) error {
	ent, ok, err := e.service.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s %d not found", kind, id)
	}
	return e.renderer.One(out, ent)
}

func (e *environment) update(ctx context.Context, out io.Writer, id int, set map[string]string, dryRun bool) error {
	draft := make(update.Draft, len(set))
	for k, v := range set {
		draft[k] = v
	}

	if dryRun {
		payload, err := e.builder.Build(ctx, id, draft)
		if err != nil {
			return err
		}
		return e.renderer.Payload(out, payload)
	}

	payload, _, err := e.builder.Apply(ctx, id, draft)
	if err != nil {
		return err
	}
	e.logger.Info("item updated", "number", id)
	return e.renderer.Payload(out, payload)
}

// warm fills the cache for every kind concurrently.
func (e *environment) warm(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range entity.Kinds {
		g.Go(func() error {
			list, err := e.service.List(gctx, kind, kind.CacheKey(), query.Filters{})
			if err != nil {
				return fmt.Errorf("warm %s: %w", kind, err)
			}
			e.logger.Info("cache warmed", "kind", kind, "count", len(list))
			return nil
		})
	}
	return g.Wait()
}
