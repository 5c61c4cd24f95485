package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/palimpsest-cms/palimpsest"
	"github.com/palimpsest-cms/palimpsest/internal/config"
	"github.com/palimpsest-cms/palimpsest/internal/infra/database"
	"github.com/palimpsest-cms/palimpsest/internal/infra/repository"
	"github.com/palimpsest-cms/palimpsest/internal/present/rest"
	"github.com/palimpsest-cms/palimpsest/internal/present/rest/middleware"
	"github.com/palimpsest-cms/palimpsest/internal/registry"
	"github.com/palimpsest-cms/palimpsest/internal/service"
	"github.com/palimpsest-cms/palimpsest/internal/telemetry"
	"github.com/palimpsest-cms/palimpsest/internal/usecase"
	"github.com/palimpsest-cms/palimpsest/schemas"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error(
			"Failed to load config",
			slog.String("error", err.Error()),
			slog.String("path", *configPath),
		)
		os.Exit(1)
	}

	ctx := context.Background()

	if conf.Server.EnableTrace {
		shutdown, err := telemetry.SetupTraceProvider(ctx, conf.Server.TraceEndpoint, "palimpsest")
		if err != nil {
			slog.Error(
				"Failed to setup trace provider",
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		defer func() {
			if err := shutdown(ctx); err != nil {
				slog.Error(
					"Failed to shutdown trace provider",
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		slog.Error(
			"Failed to connect database",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	err = database.MigratePostgres(db)
	if err != nil {
		slog.Error(
			"Failed to migrate database",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, "", conf.Server.RedisDB)
	if err := database.PingRedis(ctx, rdb); err != nil {
		slog.Error(
			"Failed to connect redis",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	mc := database.NewMemcached(conf.Server.MemcachedAddr)

	reg := registry.New()
	for _, ct := range schemas.Builtins() {
		if err := reg.Register(ct); err != nil {
			slog.Error(
				"Failed to register builtin content type",
				slog.String("error", err.Error()),
				slog.String("collection", ct.Name),
			)
			os.Exit(1)
		}
	}
	for _, decl := range conf.Content.Collections {
		ct := palimpsest.ContentType{
			Name:          decl.Name,
			SchemaVersion: decl.SchemaVersion,
		}
		for _, f := range decl.Fields {
			ct.Fields = append(ct.Fields, palimpsest.Field{
				Name:     f.Name,
				Type:     palimpsest.FieldType(f.Type),
				Required: f.Required,
			})
		}
		if err := reg.Register(ct); err != nil {
			slog.Error(
				"Failed to register content type",
				slog.String("error", err.Error()),
				slog.String("collection", decl.Name),
			)
			os.Exit(1)
		}
	}

	variantRepo := repository.NewVariantRepository(db)
	revisionRepo := repository.NewRevisionRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	cachedReader := repository.NewCachedVariantReader(variantRepo, mc)

	transactor := database.NewTransactor(db)
	policyService := service.NewPolicyService(settingsRepo)
	signalService := service.NewSignalService(rdb)
	authService := service.NewAuthService(conf.Auth.Secret, conf.Auth.Issuer, conf.Auth.TokenTTL)

	contentUsecase := usecase.NewContentUsecase(
		reg,
		variantRepo,
		revisionRepo,
		policyService,
		transactor,
		signalService,
		cachedReader,
		conf.Content.DefaultLocale,
	)

	handler := rest.NewHandler(contentUsecase, policyService, signalService, cachedReader, conf.Content.DefaultLocale)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("palimpsest"))
	}

	handler.RegisterRoutes(e, authMiddleware)

	slog.Info(
		"Starting server",
		slog.String("listen", conf.Server.ListenAddr),
		slog.Any("collections", reg.Names()),
	)

	e.Logger.Fatal(e.Start(conf.Server.ListenAddr))
}
