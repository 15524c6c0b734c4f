package store

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mkadlec/kviz-backend/internal"
)

// newTestStore spins up a throwaway postgres. Skips when docker is not
// available (CI without a daemon, -short runs).
func newTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("kviz"),
		postgres.WithUsername("kviz"),
		postgres.WithPassword("kviz"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	st, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting store: %v", err)
	}
	t.Cleanup(st.Close)
	return st
}

func TestQuizRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	quiz := &internal.Quiz{
		Id:   "vlastiveda",
		Name: "Vlastivěda",
		Questions: []internal.Question{
			{
				Id:            "q1",
				Type:          internal.QuestionABCD,
				Text:          "Hlavní město ČR?",
				Options:       []string{"Brno", "Praha"},
				CorrectOption: 1,
			},
			{
				Id:       "q2",
				Type:     internal.QuestionBlindMap,
				Text:     "Najdi město",
				City:     "Plzeň",
				Lat:      49.7384,
				Lon:      13.3736,
				MapScope: internal.MapCzech,
			},
		},
	}
	if err := st.UpsertQuiz(ctx, quiz); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetQuiz(ctx, "vlastiveda")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Vlastivěda" || len(got.Questions) != 2 {
		t.Errorf("got %q with %d questions", got.Name, len(got.Questions))
	}
	if got.Questions[1].City != "Plzeň" {
		t.Errorf("blind map payload lost: %+v", got.Questions[1])
	}

	// Upsert replaces.
	quiz.Name = "Vlastivěda 2"
	quiz.Questions = quiz.Questions[:1]
	if err := st.UpsertQuiz(ctx, quiz); err != nil {
		t.Fatal(err)
	}
	listed, err := st.ListQuizzes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0].Name != "Vlastivěda 2" || len(listed[0].Questions) != 1 {
		t.Errorf("after upsert: %+v", listed)
	}

	if _, err := st.GetQuiz(ctx, "missing"); err == nil {
		t.Error("unknown quiz id must error")
	}
}

func TestSaveGameResult(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	results := internal.FinalResults{
		Leaderboard: []internal.AnswerResultData{
			{PlayerID: "p1", Name: "Anna", Points: 420, Position: 1},
			{PlayerID: "p2", Name: "Petr", Points: 300, Position: 2},
		},
		QuestionCount: 5,
		TotalPlayers:  2,
	}
	if err := st.SaveGameResult(ctx, "ABCD", "vlastiveda", results); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := st.pool.QueryRow(ctx,
		`SELECT count(*) FROM game_results WHERE game_id = $1`, "ABCD").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("stored results = %d, want 1", count)
	}
}
