package game

import (
	"testing"
	"time"

	"github.com/mkadlec/kviz-backend/internal"
)

func TestCalculateAnswerPoints(t *testing.T) {
	limit := 30 * time.Second

	tests := []struct {
		name      string
		timeTaken time.Duration
		position  int
		want      int
	}{
		{name: "instant first", timeTaken: 0, position: 1, want: 225},
		{name: "instant second", timeTaken: 0, position: 2, want: 202},
		{name: "instant third", timeTaken: 0, position: 3, want: 180},
		{name: "instant fourth", timeTaken: 0, position: 4, want: 157},
		{name: "under half time", timeTaken: 10 * time.Second, position: 1, want: 187},
		{name: "under three quarters", timeTaken: 20 * time.Second, position: 1, want: 150},
		{name: "last moment", timeTaken: 29 * time.Second, position: 1, want: 112},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateAnswerPoints(tt.timeTaken, limit, tt.position)
			if got != tt.want {
				t.Errorf("CalculateAnswerPoints(%v, %v, %d) = %d, want %d",
					tt.timeTaken, limit, tt.position, got, tt.want)
			}
		})
	}

	// Zero limit counts as slowest tier, not a division crash.
	if got := CalculateAnswerPoints(time.Second, 0, 1); got != 112 {
		t.Errorf("zero limit = %d, want 112", got)
	}
}

func TestAveragePoints(t *testing.T) {
	tests := []struct {
		name    string
		average float64
		answer  float64
		want    int
	}{
		{name: "spot on", average: 100, answer: 100, want: 200},
		{name: "within five percent", average: 104, answer: 100, want: 200},
		{name: "within fifteen percent", average: 110, answer: 100, want: 150},
		{name: "within thirty percent", average: 75, answer: 100, want: 100},
		{name: "within half", average: 55, answer: 100, want: 50},
		{name: "way off", average: 300, answer: 100, want: 0},
		{name: "zero answer uses absolute scale", average: 0.4, answer: 0, want: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := averagePoints(tt.average, tt.answer); got != tt.want {
				t.Errorf("averagePoints(%v, %v) = %d, want %d",
					tt.average, tt.answer, got, tt.want)
			}
		})
	}
}

func TestDistancePoints(t *testing.T) {
	tests := []struct {
		name  string
		km    float64
		scope internal.MapScope
		want  int
	}{
		{name: "cz bullseye", km: 5, scope: internal.MapCzech, want: 200},
		{name: "cz close", km: 40, scope: internal.MapCzech, want: 150},
		{name: "cz region", km: 90, scope: internal.MapCzech, want: 100},
		{name: "cz far", km: 150, scope: internal.MapCzech, want: 50},
		{name: "cz out", km: 300, scope: internal.MapCzech, want: 0},
		{name: "eu is judged looser", km: 150, scope: internal.MapEurope, want: 150},
		{name: "eu far", km: 500, scope: internal.MapEurope, want: 50},
		{name: "eu out", km: 700, scope: internal.MapEurope, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := distancePoints(tt.km, tt.scope); got != tt.want {
				t.Errorf("distancePoints(%v, %s) = %d, want %d",
					tt.km, tt.scope, got, tt.want)
			}
		})
	}
}

func TestCalculateFinalResults(t *testing.T) {
	g, players := newTestGame(t, 3)
	players[0].Score = 100
	players[1].Score = 300
	players[2].Score = 200

	g.Stats = []internal.QuestionStats{
		{
			QuestionIndex: 0,
			CorrectAnswers: []internal.PlayerAnswer{
				{PlayerID: players[0].Id, Name: players[0].Name, AnswerTime: 4200},
				{PlayerID: players[1].Id, Name: players[1].Name, AnswerTime: 1800},
			},
		},
	}

	results := CalculateFinalResults(g)

	if results.MVP == nil || results.MVP.PlayerID != players[1].Id {
		t.Fatalf("MVP = %+v, want %s", results.MVP, players[1].Id)
	}
	if results.Leaderboard[0].Position != 1 || results.Leaderboard[0].Points != 300 {
		t.Errorf("leaderboard head = %+v", results.Leaderboard[0])
	}
	if results.FastestAnswer == nil || results.FastestAnswer.TimeToAnswer != 1800 {
		t.Errorf("fastest = %+v, want 1800ms", results.FastestAnswer)
	}
	if results.TotalPlayers != 3 || results.QuestionCount != 1 {
		t.Errorf("totals = %d players, %d questions", results.TotalPlayers, results.QuestionCount)
	}
}
