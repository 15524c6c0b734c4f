package internal

import "time"

type QuestionType string

const (
	QuestionABCD        QuestionType = "abcd"
	QuestionTrueFalse   QuestionType = "true_false"
	QuestionOpenAnswer  QuestionType = "open_answer"
	QuestionGuessNumber QuestionType = "guess_number"
	QuestionMathQuiz    QuestionType = "math_quiz"
	QuestionBlindMap    QuestionType = "blind_map"
	QuestionWordChain   QuestionType = "word_chain"
	QuestionDrawing     QuestionType = "drawing"
)

type MapScope string

const (
	MapCzech  MapScope = "cz"
	MapEurope MapScope = "eu"
)

type Equation struct {
	Text   string  `json:"text" yaml:"text"`
	Result float64 `json:"result" yaml:"result"`
}

// Question carries every payload variant; the Type field decides which
// fields are meaningful. Mirrors the ad-hoc JSON bodies the phone and
// host clients exchange.
type Question struct {
	Id        string       `json:"id" yaml:"id"`
	Type      QuestionType `json:"type" yaml:"type"`
	Text      string       `json:"text" yaml:"text"`
	TimeLimit int          `json:"time_limit,omitempty" yaml:"time_limit,omitempty"` // seconds, 0 = default

	// abcd / true_false
	Options       []string `json:"options,omitempty" yaml:"options,omitempty"`
	CorrectOption int      `json:"correct_option,omitempty" yaml:"correct_option,omitempty"`

	// open_answer
	Answer string `json:"answer,omitempty" yaml:"answer,omitempty"`

	// guess_number
	NumberAnswer float64 `json:"number_answer,omitempty" yaml:"number_answer,omitempty"`

	// math_quiz
	Equations []Equation `json:"equations,omitempty" yaml:"equations,omitempty"`

	// blind_map
	City     string   `json:"city,omitempty" yaml:"city,omitempty"`
	Lat      float64  `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lon      float64  `json:"lon,omitempty" yaml:"lon,omitempty"`
	MapScope MapScope `json:"map_scope,omitempty" yaml:"map_scope,omitempty"`

	// word_chain
	FirstWord string `json:"first_word,omitempty" yaml:"first_word,omitempty"`

	// drawing
	DrawWord string `json:"draw_word,omitempty" yaml:"draw_word,omitempty"`
}

// QuestionPublic is the broadcast-safe view: no answers, no full city name,
// no draw word. Handlers fill the per-type public fields they need.
type QuestionPublic struct {
	Id        string       `json:"id"`
	Type      QuestionType `json:"type"`
	Text      string       `json:"text"`
	TimeLimit int          `json:"time_limit"`
	Options   []string     `json:"options,omitempty"`
	Masked    string       `json:"masked,omitempty"`
	Anagram   string       `json:"anagram,omitempty"`
	MapScope  MapScope     `json:"map_scope,omitempty"`
	FirstWord string       `json:"first_word,omitempty"`
}

func (q *Question) Duration() time.Duration {
	if q.TimeLimit <= 0 {
		return DefaultQuestionTime
	}
	return time.Duration(q.TimeLimit) * time.Second
}

// ToPublic strips everything a guesser must not see.
func (q *Question) ToPublic() *QuestionPublic {
	return &QuestionPublic{
		Id:        q.Id,
		Type:      q.Type,
		Text:      q.Text,
		TimeLimit: int(q.Duration().Seconds()),
		Options:   q.Options,
		MapScope:  q.MapScope,
		FirstWord: q.FirstWord,
	}
}

type Quiz struct {
	Id        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Questions []Question `json:"questions" yaml:"questions"`
}
