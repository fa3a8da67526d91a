// Package dashboard serves the local HTTP API and WebSocket stream the
// desktop frontend talks to.
package dashboard

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/noder-app/noder/pkg/bus"
	"github.com/noder-app/noder/pkg/config"
	"github.com/noder-app/noder/pkg/files"
	"github.com/noder-app/noder/pkg/logger"
	"github.com/noder-app/noder/pkg/providers"
	"github.com/noder-app/noder/pkg/scheduler"
	"github.com/noder-app/noder/pkg/storage"
	"github.com/noder-app/noder/pkg/updater"
	"github.com/noder-app/noder/pkg/whatsapp"
)

// StorageFactory creates a storage instance for connection tests.
type StorageFactory func(cfg storage.Config) (storage.Storage, error)

type Server struct {
	config         config.DashboardConfig
	cfg            *config.Config // Full config for settings endpoints
	monitor        *whatsapp.Monitor
	dispatcher     *whatsapp.Dispatcher
	registry       *whatsapp.Registry
	store          storage.Storage
	sched          *scheduler.Scheduler
	events         *bus.EventBus
	version        string
	llm            *providers.DynamicProvider
	filesSvc       *files.Service
	upd            *updater.Updater
	hub            *Hub
	httpServer     *http.Server
	startTime      time.Time
	storageFactory StorageFactory
}

func NewServer(
	dashboardCfg config.DashboardConfig,
	fullCfg *config.Config,
	monitor *whatsapp.Monitor,
	dispatcher *whatsapp.Dispatcher,
	registry *whatsapp.Registry,
	store storage.Storage,
	sched *scheduler.Scheduler,
	events *bus.EventBus,
	version string,
) *Server {
	dataDir, err := config.AppDataDir()
	if err != nil {
		dataDir = os.TempDir()
	}
	downloadsDir, err := files.DefaultDownloadsDir()
	if err != nil {
		downloadsDir = dataDir
	}

	return &Server{
		config:         dashboardCfg,
		cfg:            fullCfg,
		monitor:        monitor,
		dispatcher:     dispatcher,
		registry:       registry,
		store:          store,
		sched:          sched,
		events:         events,
		version:        version,
		llm:            providers.NewDynamicProvider(fullCfg),
		filesSvc: files.NewService(downloadsDir, dataDir, func() string {
			return fullCfg.Clone().Providers.Replicate.APIKey
		}),
		upd:            updater.New(fullCfg.Clone().Updates.Repo, dataDir),
		storageFactory: storage.NewStorage,
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.startTime = time.Now()

	s.hub = NewHub(s.events)
	go s.hub.Run(ctx)

	mux := http.NewServeMux()

	// API routes (require auth)
	mux.HandleFunc("/api/v1/status", s.authMiddleware(s.handleStatus))
	mux.HandleFunc("/api/v1/whatsapp/status", s.authMiddleware(s.handleWhatsAppStatus))
	mux.HandleFunc("/api/v1/whatsapp/init", s.authMiddleware(s.handleWhatsAppInit))
	mux.HandleFunc("/api/v1/whatsapp/qr", s.authMiddleware(s.handleWhatsAppQR))
	mux.HandleFunc("/api/v1/whatsapp/send", s.authMiddleware(s.handleWhatsAppSend))
	mux.HandleFunc("/api/v1/whatsapp/listeners", s.authMiddleware(s.handleListeners))
	mux.HandleFunc("/api/v1/whatsapp/listeners/", s.authMiddleware(s.handleListenerDetail))
	mux.HandleFunc("/api/v1/workflows", s.authMiddleware(s.handleWorkflows))
	mux.HandleFunc("/api/v1/workflows/", s.authMiddleware(s.handleWorkflowDetail))
	mux.HandleFunc("/api/v1/credentials", s.authMiddleware(s.handleCredentials))
	mux.HandleFunc("/api/v1/credentials/", s.authMiddleware(s.handleCredentialDetail))
	mux.HandleFunc("/api/v1/jobs", s.authMiddleware(s.handleJobs))
	mux.HandleFunc("/api/v1/jobs/", s.authMiddleware(s.handleJobDetail))
	mux.HandleFunc("/api/v1/settings", s.authMiddleware(s.handleSettings))

	// AI, file and self-update endpoints
	mux.HandleFunc("/api/v1/models", s.authMiddleware(s.handleModels))
	mux.HandleFunc("/api/v1/chat", s.authMiddleware(s.handleChat))
	mux.HandleFunc("/api/v1/files/download", s.authMiddleware(s.handleFileDownload))
	mux.HandleFunc("/api/v1/update/check", s.authMiddleware(s.handleUpdateCheck))
	mux.HandleFunc("/api/v1/update/apply", s.authMiddleware(s.handleUpdateApply))

	// Storage configuration endpoints
	mux.HandleFunc("/api/v1/config/storage", s.authMiddleware(s.handleGetStorageConfig))
	mux.HandleFunc("/api/v1/config/storage/update", s.authMiddleware(s.handleUpdateStorageConfig))
	mux.HandleFunc("/api/v1/config/storage/test", s.authMiddleware(s.handleTestStorageConnection))

	// WebSocket (auth via query param)
	mux.HandleFunc("/ws", s.handleWebSocket)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.corsMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	go func() {
		logger.InfoCF("dashboard", "Dashboard server started", map[string]interface{}{
			"address": addr,
		})
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("dashboard", "Dashboard server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	return nil
}

func (s *Server) Stop() {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
		logger.InfoC("dashboard", "Dashboard server stopped")
	}
}

// authMiddleware wraps a handler with bearer token authentication.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := s.extractToken(r)
		if token != s.config.Token {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// extractToken gets the bearer token from Authorization header.
func (s *Server) extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	// Fallback: query parameter (for WebSocket)
	return r.URL.Query().Get("token")
}

// corsMiddleware adds CORS headers for same-origin requests.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
