// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ai-asa/chat-websearch/internal/app"
	"github.com/ai-asa/chat-websearch/internal/common/camunda"
	"github.com/ai-asa/chat-websearch/internal/common/config"
	"github.com/ai-asa/chat-websearch/internal/common/logger"
	"github.com/ai-asa/chat-websearch/internal/common/observability"
	"github.com/ai-asa/chat-websearch/pkg/registry"

	ibr "github.com/ai-asa/chat-websearch/internal/workers/research/icebreak-briefing"
	rag "github.com/ai-asa/chat-websearch/internal/workers/research/research-aggregate"
	rtn "github.com/ai-asa/chat-websearch/internal/workers/research/research-turn"
)

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}
	_ = bootLog.Sync()

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...", zap.String("version", cfg.App.Version))

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.New(ctx, cfg, log, app.Options{Obs: obs})
	if err != nil {
		zapLog.Fatal("pipeline init failed", zap.Error(err))
	}
	defer pipeline.Close()

	// --- Init Zeebe Client with retry ---
	zeebe, err := camunda.Dial(ctx, camunda.OptionsFromConfig(cfg.Camunda), log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}

	reg := registry.Default()
	var workers []*camunda.CamundaWorker

	// --- Research Workers (3) ---
	turnCfg := rtn.LoadConfig(config.GetWorkerConfig(cfg, rtn.TaskType))
	turnHandler, err := rtn.NewHandler(turnCfg, rtn.Deps{
		Orchestrator: pipeline.Orchestrator,
		Registry:     reg,
		Obs:          obs,
	}, &turnLoggerAdapter{log})
	if err != nil {
		zapLog.Fatal("research-turn handler init failed", zap.Error(err))
	}
	workers = startWorker(zeebe, reg, workers, rtn.TaskType, turnCfg.Enabled, turnCfg.MaxJobsActive, turnCfg.Timeout, turnHandler, zapLog)

	aggCfg := rag.LoadConfig(config.GetWorkerConfig(cfg, rag.TaskType))
	aggHandler, err := rag.NewHandler(aggCfg, rag.Deps{
		Researcher: pipeline.Aggregator,
		Registry:   reg,
		Obs:        obs,
	}, &aggregateLoggerAdapter{log})
	if err != nil {
		zapLog.Fatal("research-aggregate handler init failed", zap.Error(err))
	}
	workers = startWorker(zeebe, reg, workers, rag.TaskType, aggCfg.Enabled, aggCfg.MaxJobsActive, aggCfg.Timeout, aggHandler, zapLog)

	iceCfg := ibr.LoadConfig(config.GetWorkerConfig(cfg, ibr.TaskType))
	iceHandler, err := ibr.NewHandler(iceCfg, ibr.Deps{
		Briefer:  pipeline.Briefer,
		Registry: reg,
		Obs:      obs,
	}, &icebreakLoggerAdapter{log})
	if err != nil {
		zapLog.Fatal("icebreak-briefing handler init failed", zap.Error(err))
	}
	workers = startWorker(zeebe, reg, workers, ibr.TaskType, iceCfg.Enabled, iceCfg.MaxJobsActive, iceCfg.Timeout, iceHandler, zapLog)

	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		topo, err := zeebe.Topology(r.Context())
		if err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "zeebe unavailable", nil)
			return
		}
		writeStatus(w, http.StatusOK, "ready", &topo)
	})
	mux.Handle("/metrics", promhttp.Handler())
	healthSrv := &http.Server{Addr: cfg.Server.MetricsAddress, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.MetricsAddress))
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

type statusBody struct {
	Status string            `json:"status"`
	Time   string            `json:"time"`
	Zeebe  *camunda.Topology `json:"zeebe,omitempty"`
}

func writeStatus(w http.ResponseWriter, code int, status string, topo *camunda.Topology) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(statusBody{
		Status: status,
		Time:   time.Now().Format(time.RFC3339),
		Zeebe:  topo,
	})
}

// Logger adapters for workers that declare their own Logger interfaces
type turnLoggerAdapter struct {
	logger.Logger
}

func (a *turnLoggerAdapter) With(fields map[string]interface{}) rtn.Logger {
	return &turnLoggerAdapter{a.Logger.With(fields)}
}

type aggregateLoggerAdapter struct {
	logger.Logger
}

func (a *aggregateLoggerAdapter) With(fields map[string]interface{}) rag.Logger {
	return &aggregateLoggerAdapter{a.Logger.With(fields)}
}

type icebreakLoggerAdapter struct {
	logger.Logger
}

func (a *icebreakLoggerAdapter) With(fields map[string]interface{}) ibr.Logger {
	return &icebreakLoggerAdapter{a.Logger.With(fields)}
}

func startWorker(client *camunda.Client, reg *registry.ActivityRegistry, started []*camunda.CamundaWorker, taskType string, enabled bool, maxJobsActive int, timeout time.Duration, handler camunda.JobHandler, log *zap.Logger) []*camunda.CamundaWorker {
	if !enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return started
	}
	if activity, ok := reg.Find(taskType); !ok || !activity.Deployable() {
		log.Warn("activity not deployable, skipping worker", zap.String("taskType", taskType))
		return started
	}
	w := camunda.NewWorker(client.Zeebe(), camunda.WorkerOptions{
		TaskType:      taskType,
		MaxJobsActive: maxJobsActive,
		Timeout:       timeout,
	}, handler, log)
	return append(started, w)
}
