package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/acrane/parlor/internal/board"
	"github.com/acrane/parlor/internal/config"
	"github.com/acrane/parlor/internal/database"
	"github.com/acrane/parlor/internal/stats"
	"github.com/gorilla/handlers"
)

type ParlorApp struct {
	log        *log.Logger
	db         database.ParlorRepository
	board      *board.Board
	stats      stats.StatsProvider
	mux        *http.Server
	signingKey []byte
}

func NewParlorApp(mux *http.ServeMux, logger *log.Logger, b *board.Board, db database.ParlorRepository, sp stats.StatsProvider, cfg *config.Config) *ParlorApp {
	s := &ParlorApp{
		log:        logger,
		db:         db,
		board:      b,
		stats:      sp,
		signingKey: cfg.SigningKey,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.Handle("POST /api/admin/login", s.sessionMiddleware(s.adminLogin))
	mux.Handle("GET /api/admin/sessions", s.sessionMiddleware(s.adminMiddleware(s.sessionCount)))
	mux.Handle("GET /api/rooms", s.sessionMiddleware(s.adminMiddleware(s.listRooms)))
	mux.Handle("POST /api/rooms", s.sessionMiddleware(s.adminMiddleware(s.createRoom)))
	mux.Handle("DELETE /api/rooms/{name}", s.sessionMiddleware(s.adminMiddleware(s.deleteRoom)))
	mux.Handle("PUT /api/rooms/{name}/password", s.sessionMiddleware(s.adminMiddleware(s.changeRoomPassword)))
	mux.Handle("POST /api/rooms/login", s.sessionMiddleware(s.roomLogin))
	mux.Handle("GET /api/rooms/{name}/updates", s.sessionMiddleware(s.getUpdates))
	mux.Handle("POST /api/rooms/{name}/messages", s.sessionMiddleware(s.postMessage))
	mux.Handle("GET /api/welcome", s.sessionMiddleware(s.getWelcome))
	mux.Handle("PUT /api/welcome", s.sessionMiddleware(s.adminMiddleware(s.setWelcome)))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(s.requestIdMiddleware(h))

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *ParlorApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ParlorApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
