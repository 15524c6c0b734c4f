package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkadlec/kviz-backend/internal"
)

// =============================================================================
// POSTGRES STORE
// =============================================================================

// Store persists quizzes and finished game results. The server runs fine
// without one; persistence is wired in only when DATABASE_URL is set.
type Store struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS quizzes (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	questions  JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS game_results (
	id          BIGSERIAL PRIMARY KEY,
	game_id     TEXT NOT NULL,
	quiz_id     TEXT NOT NULL DEFAULT '',
	results     JSONB NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// New connects, pings and ensures the schema exists.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// UpsertQuiz writes a quiz, replacing any previous version with the same id.
func (s *Store) UpsertQuiz(ctx context.Context, quiz *internal.Quiz) error {
	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quizzes (id, name, questions)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = $2, questions = $3`,
		quiz.Id, quiz.Name, questions)
	if err != nil {
		return fmt.Errorf("upsert quiz %s: %w", quiz.Id, err)
	}
	return nil
}

// ListQuizzes returns every stored quiz, questions included.
func (s *Store) ListQuizzes(ctx context.Context) ([]internal.Quiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, questions FROM quizzes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []internal.Quiz
	for rows.Next() {
		var quiz internal.Quiz
		var questions []byte
		if err := rows.Scan(&quiz.Id, &quiz.Name, &questions); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		if err := json.Unmarshal(questions, &quiz.Questions); err != nil {
			return nil, fmt.Errorf("unmarshal quiz %s: %w", quiz.Id, err)
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

// GetQuiz returns one quiz or an error when the id is unknown.
func (s *Store) GetQuiz(ctx context.Context, id string) (*internal.Quiz, error) {
	var quiz internal.Quiz
	var questions []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, questions FROM quizzes WHERE id = $1`, id).
		Scan(&quiz.Id, &quiz.Name, &questions)
	if err != nil {
		return nil, fmt.Errorf("get quiz %s: %w", id, err)
	}
	if err := json.Unmarshal(questions, &quiz.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal quiz %s: %w", id, err)
	}
	return &quiz, nil
}

// SaveGameResult records the final standings of one finished game.
func (s *Store) SaveGameResult(ctx context.Context, gameID, quizID string, results internal.FinalResults) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO game_results (game_id, quiz_id, results)
		VALUES ($1, $2, $3)`,
		gameID, quizID, payload)
	if err != nil {
		return fmt.Errorf("save result for game %s: %w", gameID, err)
	}
	log.Printf("[SaveGameResult] game=%s: standings persisted", gameID)
	return nil
}
