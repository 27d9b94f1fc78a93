package main

import (
	"context"
	"database/sql"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/hirableedge/go-auth"
	"github.com/hirableedge/go-auth/activitymap"
	"github.com/hirableedge/go-auth/config"
	"github.com/hirableedge/go-auth/repository"
)

type server struct {
	http    router.Server[*fiber.App]
	auther  *auth.Auther
	closers []func()
}

func (s *server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newServer opens the store and wires the auth components onto the router
func newServer(ctx context.Context, cfg config.Config, logger auth.Logger) (*server, error) {
	srv := &server{}

	store, err := openStore(ctx, cfg, srv)
	if err != nil {
		srv.Close()
		return nil, err
	}

	hasher := auth.NewBcryptHasher(auth.WithCost(cfg.Auth.BcryptCost))
	sink := activitySink(logger)

	auther, err := auth.NewAuthenticator(store, cfg)
	if err != nil {
		srv.Close()
		return nil, err
	}

	auther = auther.
		WithLogger(logger).
		WithActivitySink(sink).
		WithIdentityVerifier(
			auth.NewUserProvider(store).
				WithHasher(hasher).
				WithLogger(logger),
		)
	srv.auther = auther

	registerer := auth.NewRegisterUserHandler(store).
		WithLogger(logger).
		WithHasher(hasher).
		WithActivitySink(sink).
		WithDeterministicIDs(cfg.Auth.DeterministicIDs)

	resolver := auth.NewPrincipalResolver(store, auther.TokenService()).
		WithLogger(logger)

	httpSrv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		app := fiber.New(fiber.Config{
			AppName:               "hirable-auth",
			ErrorHandler:          auth.NewHTTPErrorHandler(logger),
			DisableStartupMessage: true,
		})
		app.Use(recover.New())
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(cfg.HTTP.CORSOrigins, ","),
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
			AllowCredentials: allowCredentials(cfg.HTTP.CORSOrigins),
		}))
		return app
	})

	auth.RegisterAuthRoutes(httpSrv.Router(),
		auth.WithControllerLogger(logger),
		auth.WithStore(store),
		auth.WithAuther(auther),
		auth.WithRegisterer(registerer),
		auth.WithProtectedRoute(auth.ProtectedRoute(resolver, cfg)),
		auth.WithDefaultRegion(cfg.HTTP.PhoneRegion),
		auth.WithDebug(!cfg.IsProduction()),
	)

	srv.http = httpSrv
	return srv, nil
}

// activitySink writes normalized audit records when the logger is zerolog
// backed and falls back to plain log lines otherwise.
func activitySink(logger auth.Logger) auth.ActivitySink {
	if zl, ok := logger.(*auth.ZerologLogger); ok {
		return activitymap.NewSink(zl.Zerolog().With().Str("stream", "audit").Logger())
	}
	return auth.NewLoggerActivitySink(logger)
}

func openStore(ctx context.Context, cfg config.Config, srv *server) (auth.UserStore, error) {
	switch cfg.DB.Driver {
	case config.DriverMemory:
		return repository.NewMemoryUsers(), nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open postgres pool")
		}
		srv.closers = append(srv.closers, pool.Close)

		store := repository.NewPostgresUsers(pool)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil

	default:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DB.DSN)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite database")
		}
		db := bun.NewDB(sqldb, sqlitedialect.New())
		srv.closers = append(srv.closers, func() { _ = db.Close() })

		store := auth.NewUsersRepository(db)
		if err := store.CreateSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
}

// fiber rejects credentials combined with a wildcard origin
func allowCredentials(origins []string) bool {
	return len(origins) > 0 && !slices.Contains(origins, "*")
}
