package internal

import (
	"context"
	"sync"
	"time"
)

const (
	// Results auto-advance to the scoreboard; the scoreboard waits for the
	// host's next_question.
	ResultsPhaseDuration = 8 * time.Second

	DefaultQuestionTime = 30 * time.Second
	MaxPlayersPerGame   = 12
	MinPlayersToStart   = 2
)

type GamePhase string

const (
	PhaseLobby      GamePhase = "lobby"
	PhaseQuestion   GamePhase = "question"
	PhaseResults    GamePhase = "results"
	PhaseScoreboard GamePhase = "scoreboard"
	PhaseEnded      GamePhase = "ended"
)

type TeamColor string

const (
	TeamBlue TeamColor = "blue"
	TeamRed  TeamColor = "red"
	TeamNone TeamColor = ""
)

// PlayerColors is the palette phones pick from when joining. A color is
// exclusive within one game.
var PlayerColors = []string{
	"#e53935", "#d81b60", "#8e24aa", "#5e35b1", "#3949ab", "#1e88e5",
	"#00897b", "#43a047", "#fdd835", "#fb8c00", "#6d4c41", "#546e7a",
}

type GameTimer struct {
	StartTime     time.Time     `json:"start_time"`
	Duration      time.Duration `json:"duration"`
	TimeRemaining time.Duration `json:"time_remaining"`
	IsActive      bool          `json:"is_active"`
	Context       context.Context
	Cancel        context.CancelFunc
}

type PlayerAnswer struct {
	PlayerID   string `json:"player_id"`
	Name       string `json:"name"`
	AnswerTime int64  `json:"answer_time_ms"`
	IsCorrect  bool   `json:"is_correct"`
	Points     int    `json:"points"`
}

type QuestionStats struct {
	QuestionIndex  int            `json:"question_index"`
	Type           QuestionType   `json:"type"`
	CorrectAnswers []PlayerAnswer `json:"correct_answers"`
	TotalAnswers   int            `json:"total_answers"`
	StartTime      time.Time      `json:"start_time"`
	EndTime        time.Time      `json:"end_time"`
}

type Response struct {
	StatusCode    int    `json:"status_code"`
	RespStartTime int64  `json:"resp_time_start_ms"`
	RespEndTime   int64  `json:"resp_time_end_ms"`
	NetRespTime   int64  `json:"net_resp_time_ms"`
	Error         string `json:"error,omitempty"`
	Data          any    `json:"data,omitempty"`
}

// QuestionRuntime is what the active question handler hangs its per-question
// state off. Handlers own the concrete type behind State. StartedAt anchors
// answer timing; the phase timer is armed only after the question broadcast,
// so it is not a safe time reference for early answers.
type QuestionRuntime struct {
	Question  *Question `json:"question"`
	SubPhase  string    `json:"sub_phase,omitempty"`
	StartedAt time.Time `json:"-"`
	State     any       `json:"-"`
}

type Game struct {
	Id       string
	QuizID   string
	QuizName string
	Players  map[string]*Player

	// Game state
	Phase        GamePhase `json:"phase"`
	Questions    []Question
	CurrentIndex int `json:"current_index"`
	Runtime      *QuestionRuntime

	// Team play (guess_number voting needs two teams)
	TeamMode bool

	Stats          []QuestionStats
	HasGameStarted bool

	// Timer
	Timer *GameTimer `json:"timer"`

	// Concurrency control
	Mu sync.RWMutex `json:"-"`

	// Context for cleanup
	Context context.Context    `json:"-"`
	Cancel  context.CancelFunc `json:"-"`

	CreatedAt time.Time
}

type GameStateData struct {
	Phase         GamePhase         `json:"phase"`
	SubPhase      string            `json:"sub_phase,omitempty"`
	QuestionIndex int               `json:"question_index"`
	QuestionCount int               `json:"question_count"`
	Question      *QuestionPublic   `json:"question,omitempty"`
	TimeRemaining int64             `json:"time_remaining_ms"`
	Players       []*PlayerSnapshot `json:"players"`
	TeamMode      bool              `json:"team_mode"`
	TeamScores    map[TeamColor]int `json:"team_scores,omitempty"`
}

type AnswerResultData struct {
	PlayerID     string `json:"player_id"`
	Name         string `json:"name"`
	IsCorrect    bool   `json:"is_correct"`
	Points       int    `json:"points"`
	Position     int    `json:"position"`
	TimeToAnswer int64  `json:"time_to_answer_ms"`
}

type QuestionEndData struct {
	QuestionIndex  int               `json:"question_index"`
	Type           QuestionType      `json:"type"`
	CorrectAnswer  any               `json:"correct_answer"`
	CorrectAnswers []PlayerAnswer    `json:"correct_answers"`
	TotalAnswers   int               `json:"total_answers"`
	Scoreboard     []*PlayerSnapshot `json:"scoreboard"`
	IsLastQuestion bool              `json:"is_last_question"`
}
