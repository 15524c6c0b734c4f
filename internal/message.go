package internal

type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

type TimerUpdateData struct {
	TimeRemaining int64     `json:"time_remaining_ms"`
	Phase         GamePhase `json:"phase"`
	IsActive      bool      `json:"is_active"`
}

type PlayerJoinedData struct {
	Player      *PlayerSnapshot `json:"player"`
	PlayerCount int             `json:"player_count"`
	CanStart    bool            `json:"can_start"`
}

type PlayerLeftData struct {
	PlayerID    string `json:"player_id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"player_count"`
}

// Per-type answer submissions, parsed by the active question handler.

type ChoiceAnswer struct {
	Option int `json:"option"`
}

type OpenAnswer struct {
	Text string `json:"text"`
}

type NumberAnswer struct {
	Value float64 `json:"value"`
}

type NumberVote struct {
	// "more" or "less" relative to the shown team average.
	Vote string `json:"vote"`
}

type MathAnswer struct {
	Sequence int     `json:"sequence"`
	Value    float64 `json:"value"`
}

type AnagramAnswer struct {
	Text string `json:"text"`
}

type LocationAnswer struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type WordChainWord struct {
	Word string `json:"word"`
}

type FinalResults struct {
	Leaderboard   []AnswerResultData `json:"leaderboard"` // sorted by score
	MVP           *AnswerResultData  `json:"mvp,omitempty"`
	FastestAnswer *AnswerResultData  `json:"fastest_answer,omitempty"`
	TeamScores    map[TeamColor]int  `json:"team_scores,omitempty"`
	WinningTeam   TeamColor          `json:"winning_team,omitempty"`
	QuestionCount int                `json:"question_count"`
	TotalPlayers  int                `json:"total_players"`
}
