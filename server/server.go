package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"WaveSplit/cache"
	"WaveSplit/config"
	"WaveSplit/core/splitter"
	"WaveSplit/core/watcher"
	"WaveSplit/core/workflow"
	"WaveSplit/db"
	"WaveSplit/logger"
	"WaveSplit/notify"
	"WaveSplit/repository"
	"WaveSplit/storage"

	"github.com/gorilla/mux"
)

// Start wires every component and runs the HTTP server until a signal
// arrives.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     14,
		Compress:   true,
	})

	if err := db.ConnectDB(cfg); err != nil {
		log.Fatalf("Failed to open project store: %v", err)
	}
	defer db.CloseDB()

	projectRepo, err := repository.NewSQLiteProjectRepository(db.DB)
	if err != nil {
		log.Fatalf("Failed to load projects: %v", err)
	}

	// Redis only accelerates segment previews; run without it when absent.
	var segmentCache workflow.SegmentCache
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis unavailable, segment previews are uncached", logger.ErrorField(err))
	} else {
		defer db.CloseRedis()
		segmentCache = cache.NewRedisSegmentCache(db.RedisClient)
	}

	// The export archive is optional as well.
	var archive workflow.Archiver
	if cfg.MinioEndpoint != "" {
		a, err := storage.NewArchive(cfg)
		if err != nil {
			logger.Warn("archive unavailable, exports are not mirrored", logger.ErrorField(err))
		} else {
			archive = a
		}
	}

	hub := notify.NewHub()
	notifier := notify.Multi{notify.LogNotifier{}, hub}

	client := splitter.NewClient(cfg.SplitterBaseURL, cfg.SplitterTimeout)
	engine := workflow.NewEngine(projectRepo, client, notifier, workflow.Options{
		DetachedSplit:   cfg.DetachedSplit,
		FailOnConflict:  cfg.ConflictPolicy == config.ConflictFail,
		Exists:          fileExists,
		DefaultFileType: cfg.DefaultFileType,
		NameTemplate:    cfg.NameTemplate,
		Cache:           segmentCache,
		Archive:         archive,
	})

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.WatchDir != "" {
		w := watcher.New(projectRepo, notifier, cfg.WatchDir, cfg.InboxProject)
		go func() {
			if err := w.Run(rootCtx); err != nil {
				logger.Error("watch folder stopped", logger.ErrorField(err))
			}
		}()
	}

	apiHandler := NewAPIHandler(projectRepo, engine, hub, cfg)
	router := newRouter(apiHandler)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // splits of long recordings are slow
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-stop
	logger.Info("shutting down server")
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	hub.Close()
	logger.Info("server stopped")
}

// newRouter builds the route table. Split out so tests can mount the API
// without a listening socket.
func newRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/api/projects", h.GetProjectsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/projects", h.CreateProjectHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/projects", h.DeleteAllProjectsHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/projects/{id}", h.GetProjectHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/projects/{id}", h.UpdateProjectHandler).Methods(http.MethodPatch)
	router.HandleFunc("/api/projects/{id}", h.DeleteProjectHandler).Methods(http.MethodDelete)

	router.HandleFunc("/api/projects/{id}/files/{index}/split", h.SplitFileHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/projects/{id}/files/{index}/state", h.FileStateHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/projects/{id}/files/{index}/commit", h.CommitFileHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/projects/{id}/files/{index}/peaks", h.FilePeaksHandler).Methods(http.MethodGet)

	router.HandleFunc("/api/projects/{id}/files/{index}/segments/{seg}/merge", h.MergeSegmentsHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/projects/{id}/files/{index}/segments/{seg}/split", h.SplitSegmentHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/projects/{id}/files/{index}/segments/{seg}/trim", h.TrimSegmentHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/projects/{id}/files/{index}/segments/{seg}/meta", h.SelectMetadataHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/projects/{id}/files/{index}/segments/{seg}/export", h.ExportSegmentHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/projects/{id}/files/{index}/segments/{seg}/audio", h.SegmentAudioHandler).Methods(http.MethodGet)

	router.HandleFunc("/api/presets", h.GetPresetsHandler).Methods(http.MethodGet)
	router.HandleFunc("/ws/notifications", h.NotificationsHandler).Methods(http.MethodGet)

	return router
}

// corsMiddleware lets the locally served UI shell talk to the API from any
// dev origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
