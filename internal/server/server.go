// Package server provides the HTTP REST API for the citation export
// service: job submission, status polling, SSE progress streaming,
// cancellation, and artifact download.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mkoval/scholarcsv/internal/jobs"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	manager    *jobs.Manager
	validate   *validator.Validate
}

// Config holds server configuration
type Config struct {
	Port int
}

// New creates a new server instance around a job manager.
func New(cfg Config, manager *jobs.Manager) *Server {
	s := &Server{
		manager:  manager,
		validate: validator.New(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs", s.handleSubmit)
	mux.HandleFunc("GET /jobs/{id}", s.handleStatus)
	mux.HandleFunc("GET /jobs/{id}/events", s.handleEvents)
	mux.HandleFunc("POST /jobs/{id}/cancel", s.handleCancel)
	mux.HandleFunc("GET /jobs/{id}/download", s.handleDownload)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		// No write timeout: SSE streams stay open for the life of a job.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests and blocks until shutdown.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.manager.Close()
	log.Println("Server stopped")
	return nil
}
