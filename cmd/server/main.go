package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/arduino-watcher/internal/calendar"
	"github.com/aristath/arduino-watcher/internal/capture"
	"github.com/aristath/arduino-watcher/internal/clients/eastmoney"
	"github.com/aristath/arduino-watcher/internal/config"
	"github.com/aristath/arduino-watcher/internal/database"
	"github.com/aristath/arduino-watcher/internal/events"
	"github.com/aristath/arduino-watcher/internal/kline"
	"github.com/aristath/arduino-watcher/internal/scheduler"
	"github.com/aristath/arduino-watcher/internal/server"
	"github.com/aristath/arduino-watcher/internal/store"
	"github.com/aristath/arduino-watcher/pkg/logger"
)

func main() {
	bootLog := logger.New(logger.Config{Level: "info", Pretty: true})

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})
	log.Info().Msg("Starting market-monitoring core")

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	st := store.New(db, log)
	ftsPath := filepath.Join(filepath.Dir(cfg.DatabasePath), "knowledge_fts.db")
	if err := st.OpenKnowledgeIndex(ftsPath); err != nil {
		log.Error().Err(err).Msg("Failed to open knowledge FTS index; knowledge search disabled")
	} else {
		defer st.CloseKnowledgeIndex()
	}

	client := eastmoney.NewClient(eastmoney.Config{
		UserAgent: cfg.MarketUserAgent,
		Referer:   cfg.MarketReferer,
		Timeout:   cfg.HTTPTimeout(),
	}, log)

	cache := kline.New(time.Duration(cfg.KlineCacheTTLSeconds)*time.Second, cfg.KlineCacheMaxEntries)
	bars := kline.NewService(cache, client)

	cal := calendar.New(log)

	em := events.NewManager(log)
	hub := events.NewHub(log)
	em.AttachHub(hub)

	capturer := capture.NoOp{}

	alerts := scheduler.NewAlertDispatcher(st, client, em, log)
	indicators := scheduler.NewIndicatorDispatcher(st, bars, em, log)
	scheduledTasks := scheduler.NewScheduledTaskDispatcher(st, em, log)
	agentPlans := scheduler.NewAgentPlanDispatcher(st, client, capturer, em, log)
	tick := scheduler.NewTickJob(cal, alerts, indicators, scheduledTasks, agentPlans, log)

	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	tickSchedule := fmt.Sprintf("@every %ds", cfg.SchedulerTickSeconds)
	if err := sched.AddJob(tickSchedule, tick); err != nil {
		log.Fatal().Err(err).Msg("Failed to register tick job")
	}

	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		Store:   st,
		Bars:    bars,
		Client:  client,
		Events:  em,
		Hub:     hub,
		DevMode: cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
