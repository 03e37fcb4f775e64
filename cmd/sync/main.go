// Package main runs a single account sync from the command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/creator-sync/internal/app"
	"github.com/creator-sync/internal/config"
	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/models"
	"github.com/creator-sync/internal/service"
	"github.com/creator-sync/internal/types"
)

func main() {
	var (
		accountID = flag.String("account", "", "Tracked account ID")
		orgID     = flag.String("org", "", "Organization ID")
		projectID = flag.String("project", "", "Project ID")
	)
	flag.Parse()

	if *accountID == "" || *orgID == "" || *projectID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	ctx := logging.WithLogger(context.Background(), logger)

	application, err := app.Build(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize")
	}
	defer application.Close()

	result, err := application.Sync.SyncAccount(ctx, service.SyncRequest{
		AccountID: *accountID,
		Scope:     models.Scope{OrgID: *orgID, ProjectID: *projectID},
		Origin:    types.OriginScheduler,
	})
	if err != nil {
		logger.WithError(err).Error("Sync failed")
		application.Close()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}
