package internal

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Player struct {
	Id    string          `json:"id"`
	Conn  *websocket.Conn `json:"-"`
	Game  *Game           `json:"-"` // Avoid circular reference in JSON
	Name  string          `json:"name"`
	Color string          `json:"color"`
	Team  TeamColor       `json:"team"`
	Score int             `json:"score"`

	// Host screens join the same channel but never answer and never score.
	IsHost bool `json:"is_host"`

	// Per-question state
	HasAnswered    bool      `json:"has_answered"`
	LastAnswerTime time.Time `json:"last_answer_time"`
	Lives          int       `json:"lives"`
	IsEliminated   bool      `json:"is_eliminated"`

	IsConnected bool      `json:"is_connected"`
	JoinedAt    time.Time `json:"joined_at"`

	// Statistics
	TotalAnswers   int `json:"total_answers"`
	CorrectAnswers int `json:"correct_answers"`

	Mu sync.Mutex `json:"-"`
}

type PlayerSnapshot struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Color          string    `json:"color"`
	Team           TeamColor `json:"team"`
	Score          int       `json:"score"`
	HasAnswered    bool      `json:"has_answered"`
	Lives          int       `json:"lives"`
	IsEliminated   bool      `json:"is_eliminated"`
	IsConnected    bool      `json:"is_connected"`
	TotalAnswers   int       `json:"total_answers"`
	CorrectAnswers int       `json:"correct_answers"`
}

func (p *Player) ResetQuestionState() {
	p.HasAnswered = false
	p.IsEliminated = false
	p.Lives = 0
	p.LastAnswerTime = time.Time{}
}

func (p *Player) Snapshot() *PlayerSnapshot {
	return &PlayerSnapshot{
		ID:             p.Id,
		Name:           p.Name,
		Color:          p.Color,
		Team:           p.Team,
		Score:          p.Score,
		HasAnswered:    p.HasAnswered,
		Lives:          p.Lives,
		IsEliminated:   p.IsEliminated,
		IsConnected:    p.IsConnected,
		TotalAnswers:   p.TotalAnswers,
		CorrectAnswers: p.CorrectAnswers,
	}
}

// SafeWriteJSON serializes writes to the websocket; gorilla allows only one
// concurrent writer per connection.
func (p *Player) SafeWriteJSON(v any) error {
	p.Mu.Lock()
	defer p.Mu.Unlock()
	if p.Conn == nil {
		return websocket.ErrCloseSent
	}
	return p.Conn.WriteJSON(v)
}
