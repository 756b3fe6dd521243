package main

import (
	"context"
	"expvar"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/apps/di"
	"github.com/trezcool/shule/core"
	cachesvc "github.com/trezcool/shule/services/cache"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger, err := logsvc.New(conf)
	if err != nil {
		panic(fmt.Sprintf("setting up logger: %v", err))
	}
	defer logger.Sync()
	logger.Enable(!conf.Debug)

	ctx := context.Background()

	// set up DB
	db, err := setUpDB(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("failed to close database", err)
		}
	}()

	cache, err := cachesvc.New(ctx, conf.Redis)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up cache: %v", err), err)
	}
	if closer, ok := cache.(io.Closer); ok {
		defer closer.Close()
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	core.ParseEmailTemplates(conf, logger)
	container := di.New(conf, logger, db, cache, mailSvc)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.NewOptions(container))

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		if err != nil {
			logger.Fatal(fmt.Sprintf("server error: %v", err), err)
		}

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.MigrateUp(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
