// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"

	"evimap/internal/adapter/storage"
	"evimap/internal/cache"
	"evimap/internal/config"
	"evimap/internal/dataset"
	"evimap/internal/server/handlers"
	"evimap/internal/worker"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.ServerConfig,
	natsConn *nats.Conn,
	ds *dataset.Dataset,
	mapWorker *worker.Worker,
	resultCache *cache.MemoryCache,
	snapshots *storage.SnapshotStore,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create handler dependencies
	mapHandler := handlers.NewMapHandler(ds, mapWorker, resultCache)
	filterHandler := handlers.NewFilterHandler(ds)
	stateHandler := handlers.NewStateHandler(ds, snapshots)
	historyHandler := handlers.NewHistoryHandler(ds)
	lookupHandler := handlers.NewLookupHandler(ds)

	// Routes
	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			// Map API
			r.Route("/map", func(r chi.Router) {
				r.Get("/", mapHandler.GetMap)
				r.Post("/zoom", mapHandler.SetZoom)
				r.Post("/mode", mapHandler.SetMapMode)
				r.Post("/display-mode", mapHandler.SetDisplayMode)
				r.Get("/hierarchy", mapHandler.GetHierarchy)
			})

			// Filters API
			r.Route("/filters", func(r chi.Router) {
				r.Get("/", filterHandler.GetFilters)
				r.Put("/religion", filterHandler.SetReligion)
				r.Put("/time", filterHandler.SetTime)
				r.Put("/sources", filterHandler.SetSources)
				r.Put("/confidence", filterHandler.SetConfidence)
				r.Put("/tags", filterHandler.SetTags)
				r.Put("/places", filterHandler.SetPlaces)
				r.Put("/location", filterHandler.SetLocation)
			})

			// State export/import and snapshots
			r.Route("/state", func(r chi.Router) {
				r.Get("/", stateHandler.GetState)
				r.Post("/", stateHandler.SetState)
			})
			r.Route("/snapshots", func(r chi.Router) {
				r.Get("/", stateHandler.ListSnapshots)
				r.Post("/", stateHandler.SaveSnapshot)
				r.Get("/{id}", stateHandler.GetSnapshot)
				r.Post("/{id}/apply", stateHandler.ApplySnapshot)
				r.Delete("/{id}", stateHandler.DeleteSnapshot)
			})

			// History API
			r.Route("/history", func(r chi.Router) {
				r.Get("/", historyHandler.GetHistory)
				r.Post("/back", historyHandler.Back)
				r.Post("/forward", historyHandler.Forward)
				r.Post("/goto/{id}", historyHandler.GoTo)
				r.Post("/prune", historyHandler.Prune)
				r.Post("/condense", historyHandler.Condense)
			})

			// Brushing/linking lookups
			r.Route("/lookup", func(r chi.Router) {
				r.Get("/place/{id}", lookupHandler.ByPlace)
				r.Get("/religion/{id}", lookupHandler.ByReligion)
				r.Get("/source/{id}", lookupHandler.BySource)
				r.Get("/tag/{id}", lookupHandler.ByTag)
			})
		})
	})

	// WebSocket endpoint for real-time map updates
	router.Get("/ws/map", handlers.MapWebSocketHandler(natsConn, mapWorker))

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
