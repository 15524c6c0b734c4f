package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkadlec/kviz-backend/internal"
	"github.com/mkadlec/kviz-backend/internal/config"
	"github.com/mkadlec/kviz-backend/internal/game"
	"github.com/mkadlec/kviz-backend/internal/server"
	"github.com/mkadlec/kviz-backend/internal/store"
	"github.com/mkadlec/kviz-backend/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st *store.Store
	if cfg.DatabaseURL != "" {
		st, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[main] store: %v", err)
		}
		defer st.Close()

		game.SaveResults = func(g *internal.Game, results internal.FinalResults) {
			saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := st.SaveGameResult(saveCtx, g.Id, g.QuizID, results); err != nil {
				log.Printf("[main] saving results for game %s failed: %v", g.Id, err)
			}
		}
	} else {
		log.Println("[main] DATABASE_URL not set, running without persistence")
	}

	quizzes := utils.LoadQuizDir(cfg.QuestionsDir)
	if len(quizzes) == 0 && st == nil {
		log.Printf("[main] warning: no quizzes loaded and no store configured")
	}

	srv := server.New(cfg, st, quizzes)
	go func() {
		log.Printf("[main] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[main] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] shutdown: %v", err)
	}
}
