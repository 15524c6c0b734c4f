package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/mkadlec/kviz-backend/internal"
	"github.com/mkadlec/kviz-backend/internal/game"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// Apply CORS middleware
	r.Use(s.corsMiddleware)

	// No method filters: the CORS middleware must see OPTIONS preflights.
	r.HandleFunc("/", s.HealthHandler)
	r.HandleFunc("/server_time", s.GetServerTime)
	r.HandleFunc("/server_ip", s.GetServerIP)
	r.HandleFunc("/available_colors", s.GetAvailableColors)
	r.HandleFunc("/get_existing_questions", s.GetExistingQuestions)

	r.HandleFunc("/create_game", s.CreateGame)
	r.HandleFunc("/join", s.JoinGame)
	r.HandleFunc("/activate_quiz", s.ActivateQuiz)
	r.HandleFunc("/start_game", s.StartGame)
	r.HandleFunc("/next_question", s.NextQuestion)
	r.HandleFunc("/reset_game", s.ResetGame)

	r.HandleFunc("/ws/{gameId}", func(w http.ResponseWriter, r *http.Request) {
		game.HandleWebSocket(w, r, mux.Vars(r)["gameId"])
	})

	return r
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		// If it's a websocket upgrade, skip further CORS checks
		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeResponse fills in the timing fields and sends the envelope.
func writeResponse(w http.ResponseWriter, resp internal.Response) {
	endTime := time.Now().UnixMilli()
	resp.RespEndTime = endTime
	resp.NetRespTime = endTime - resp.RespStartTime

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[writeResponse] encoding failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, startTime int64, status int, err error) {
	writeResponse(w, internal.Response{
		StatusCode:    status,
		RespStartTime: startTime,
		Error:         err.Error(),
	})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	writeResponse(w, internal.Response{
		StatusCode:    http.StatusOK,
		RespStartTime: startTime,
		Data:          map[string]string{"service": "kviz-backend"},
	})
}

// GetServerTime returns the server clock in ms so phones can sync countdowns.
func (s *Server) GetServerTime(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	writeResponse(w, internal.Response{
		StatusCode:    http.StatusOK,
		RespStartTime: startTime,
		Data:          map[string]int64{"server_time_ms": startTime},
	})
}

// GetServerIP reports the LAN address phones should point at. The UDP dial
// never sends a packet; it only resolves the outbound interface.
func (s *Server) GetServerIP(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		writeError(w, startTime, http.StatusInternalServerError,
			fmt.Errorf("no outbound interface: %w", err))
		return
	}
	localAddr := conn.LocalAddr().(*net.UDPAddr)
	conn.Close()

	writeResponse(w, internal.Response{
		StatusCode:    http.StatusOK,
		RespStartTime: startTime,
		Data: map[string]any{
			"ip":   localAddr.IP.String(),
			"port": s.port,
		},
	})
}

func (s *Server) GetAvailableColors(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	colors := game.AvailableColors(r.URL.Query().Get("game_id"))
	writeResponse(w, internal.Response{
		StatusCode:    http.StatusOK,
		RespStartTime: startTime,
		Data:          map[string]any{"colors": colors},
	})
}

// GetExistingQuestions lists quiz summaries from the YAML bank and, when a
// store is configured, the database. Bank entries win on id collision.
func (s *Server) GetExistingQuestions(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	type summary struct {
		Id            string `json:"id"`
		Name          string `json:"name"`
		QuestionCount int    `json:"question_count"`
	}
	seen := make(map[string]bool, len(s.bank))
	summaries := make([]summary, 0, len(s.bank))
	for id, quiz := range s.bank {
		seen[id] = true
		summaries = append(summaries, summary{
			Id:            quiz.Id,
			Name:          quiz.Name,
			QuestionCount: len(quiz.Questions),
		})
	}
	if s.store != nil {
		stored, err := s.store.ListQuizzes(r.Context())
		if err != nil {
			log.Printf("[GetExistingQuestions] store listing failed: %v", err)
		}
		for _, quiz := range stored {
			if seen[quiz.Id] {
				continue
			}
			summaries = append(summaries, summary{
				Id:            quiz.Id,
				Name:          quiz.Name,
				QuestionCount: len(quiz.Questions),
			})
		}
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })

	writeResponse(w, internal.Response{
		StatusCode:    http.StatusOK,
		RespStartTime: startTime,
		Data:          map[string]any{"quizzes": summaries},
	})
}

// CreateGame opens a fresh lobby; the host screen calls this, then connects
// to /ws/{gameId}?role=host.
func (s *Server) CreateGame(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	var body struct {
		TeamMode bool `json:"team_mode"`
	}
	if r.Body != nil {
		// Empty body means a free-for-all lobby.
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	g := game.CreateGame(body.TeamMode)
	writeResponse(w, internal.Response{
		StatusCode:    http.StatusCreated,
		RespStartTime: startTime,
		Data: map[string]any{
			"game_id":   g.Id,
			"team_mode": body.TeamMode,
		},
	})
}

// JoinGame reserves a slot; the phone opens the websocket afterwards with the
// returned player_id. Omitting game_id joins any open lobby.
func (s *Server) JoinGame(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	var body struct {
		GameID string `json:"game_id"`
		Name   string `json:"name"`
		Color  string `json:"color"`
		Team   string `json:"team"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, startTime, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		writeError(w, startTime, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}

	g, player, err := game.JoinGame(body.GameID, body.Name, body.Color, internal.TeamColor(body.Team))
	if err != nil {
		writeError(w, startTime, http.StatusConflict, err)
		return
	}

	writeResponse(w, internal.Response{
		StatusCode:    http.StatusOK,
		RespStartTime: startTime,
		Data: map[string]any{
			"game_id":   g.Id,
			"player_id": player.Id,
			"color":     player.Color,
			"team":      player.Team,
		},
	})
}

// lookupQuiz resolves a quiz id against the bank first, then the store.
func (s *Server) lookupQuiz(ctx context.Context, id string) (*internal.Quiz, error) {
	if quiz, ok := s.bank[id]; ok {
		return quiz, nil
	}
	if s.store != nil {
		return s.store.GetQuiz(ctx, id)
	}
	return nil, fmt.Errorf("quiz %s not found", id)
}

func (s *Server) ActivateQuiz(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	var body struct {
		GameID string `json:"game_id"`
		QuizID string `json:"quiz_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, startTime, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}

	g := game.GetGame(body.GameID)
	if g == nil {
		writeError(w, startTime, http.StatusNotFound, fmt.Errorf("game %s not found", body.GameID))
		return
	}
	quiz, err := s.lookupQuiz(r.Context(), body.QuizID)
	if err != nil {
		writeError(w, startTime, http.StatusNotFound, err)
		return
	}
	if err := game.ActivateQuiz(g, quiz); err != nil {
		writeError(w, startTime, http.StatusConflict, err)
		return
	}

	writeResponse(w, internal.Response{
		StatusCode:    http.StatusOK,
		RespStartTime: startTime,
		Data: map[string]any{
			"game_id":        g.Id,
			"quiz_id":        quiz.Id,
			"question_count": len(quiz.Questions),
		},
	})
}

func (s *Server) StartGame(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	g, ok := s.gameFromBody(w, r, startTime)
	if !ok {
		return
	}
	if err := game.StartGame(g, false); err != nil {
		writeError(w, startTime, http.StatusConflict, err)
		return
	}
	writeResponse(w, internal.Response{
		StatusCode:    http.StatusOK,
		RespStartTime: startTime,
		Data:          map[string]any{"game_id": g.Id},
	})
}

func (s *Server) NextQuestion(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	g, ok := s.gameFromBody(w, r, startTime)
	if !ok {
		return
	}
	game.NextQuestion(g)
	writeResponse(w, internal.Response{
		StatusCode:    http.StatusOK,
		RespStartTime: startTime,
		Data:          map[string]any{"game_id": g.Id},
	})
}

func (s *Server) ResetGame(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	g, ok := s.gameFromBody(w, r, startTime)
	if !ok {
		return
	}
	game.ResetGame(g)
	writeResponse(w, internal.Response{
		StatusCode:    http.StatusOK,
		RespStartTime: startTime,
		Data:          map[string]any{"game_id": g.Id},
	})
}

// gameFromBody parses {"game_id": ...} and resolves the game, writing the
// error response itself when either step fails.
func (s *Server) gameFromBody(w http.ResponseWriter, r *http.Request, startTime int64) (*internal.Game, bool) {
	var body struct {
		GameID string `json:"game_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, startTime, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return nil, false
	}
	g := game.GetGame(body.GameID)
	if g == nil {
		writeError(w, startTime, http.StatusNotFound, fmt.Errorf("game %s not found", body.GameID))
		return nil, false
	}
	return g, true
}
