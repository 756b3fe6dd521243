package main

import (
	"context"
	"fmt"
	"os"

	"github.com/trezcool/shule/apps/di"
	"github.com/trezcool/shule/core"
	cachesvc "github.com/trezcool/shule/services/cache"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database"
)

func main() {
	conf := core.NewConfig()

	logger, err := logsvc.New(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}
	logger.Enable(!conf.Debug)

	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	cache, err := cachesvc.New(context.Background(), conf.Redis)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up cache: %v", err), err)
	}

	// the CLI never mails anyone: log instead
	mailSvc := emailsvc.NewConsoleService(conf, logger)

	cli := &commandLine{c: di.New(conf, logger, db, cache, mailSvc)}
	err = cli.run(os.Args[1:])

	_ = db.Close()
	logger.Sync()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
