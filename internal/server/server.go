package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mkadlec/kviz-backend/internal"
	"github.com/mkadlec/kviz-backend/internal/config"
	"github.com/mkadlec/kviz-backend/internal/store"
)

// Server carries the HTTP control plane's dependencies. The store is nil when
// no database is configured; quiz lookups then fall back to the YAML bank.
type Server struct {
	port          int
	allowedOrigin string
	store         *store.Store
	bank          map[string]*internal.Quiz
}

// New builds the http.Server for the control plane and websocket endpoint.
func New(cfg *config.Config, st *store.Store, quizzes []internal.Quiz) *http.Server {
	s := &Server{
		port:          cfg.Port,
		allowedOrigin: cfg.AllowedOrigin,
		store:         st,
		bank:          make(map[string]*internal.Quiz, len(quizzes)),
	}
	for i := range quizzes {
		s.bank[quizzes[i].Id] = &quizzes[i]
	}
	log.Printf("[Server] %d quizzes in the bank, store=%v", len(s.bank), st != nil)

	return &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.RegisterRoutes(),
		IdleTimeout: time.Minute,
	}
}
