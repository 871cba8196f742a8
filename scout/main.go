package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scout/scout/config"
	"scout/scout/controllers"
	"scout/scout/routes"
	"scout/scout/services/crawler"
	"scout/scout/services/llm"
	"scout/scout/services/scraper"
	"scout/scout/services/websearch"
	"scout/scout/sources/psql"
	"scout/scout/sources/psql/dao"
	"scout/scout/sources/storage"
	"scout/scout/utils/logging"

	"go.uber.org/zap"
)

func main() {
	logging.InitLogger()
	defer logging.Sync()
	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := psql.NewDatabase(dbCtx, cfg)
	cancel()
	if err != nil {
		logging.ErrorLogger.Error("database connection error", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	knowledge := dao.NewWebKnowledgeDAO(db.DB)

	var (
		archive crawler.PageArchive
		pages   controllers.PageReader
	)
	if cfg.MinIOEndpoint != "" {
		minioClient, err := storage.NewMinIOClient(ctx, cfg)
		if err != nil {
			logging.ErrorLogger.Error("minio connection error", zap.Error(err))
			os.Exit(1)
		}
		archive = minioClient
		pages = minioClient
	}

	agent, err := llm.New(cfg)
	if err != nil {
		logging.ErrorLogger.Error("agent setup error", zap.Error(err))
		os.Exit(1)
	}
	fetcher, closeFetcher, err := scraper.NewFromConfig(cfg)
	if err != nil {
		logging.ErrorLogger.Error("renderer setup error", zap.Error(err))
		os.Exit(1)
	}
	defer closeFetcher()

	factory := &websearch.Factory{Config: cfg, Agent: agent, Fetcher: fetcher, Store: knowledge, Archive: archive}
	searchCtrl := controllers.NewSearchController(ctx, factory, knowledge)
	authCtrl := controllers.NewAuthController(dao.NewUserDAO(db.DB), cfg)
	pageCtrl := controllers.NewPageController(pages)
	healthCtrl := controllers.NewHealthController(searchCtrl.ActiveSessions)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: routes.NewRouter(cfg, authCtrl, searchCtrl, pageCtrl, healthCtrl),
	}
	go func() {
		logging.AppLogger.Info("server listening", zap.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorLogger.Error("server listen error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
	}
	// crawl sessions observe ctx and stop at their next suspension point
	searchCtrl.Wait()
	logging.AppLogger.Info("server shutdown complete")
}
