package internal

// Methods (Game struct). Callers hold g.Mu unless noted.

func (g *Game) GetPlayerCount() int {
	count := 0
	for _, player := range g.Players {
		if player.IsConnected && !player.IsHost {
			count++
		}
	}
	return count
}

func (g *Game) CanStartGame() bool {
	return g.GetPlayerCount() >= MinPlayersToStart && len(g.Questions) > 0
}

func (g *Game) CurrentQuestion() *Question {
	if g.CurrentIndex < 0 || g.CurrentIndex >= len(g.Questions) {
		return nil
	}
	return &g.Questions[g.CurrentIndex]
}

func (g *Game) ResetPlayerAnswerState() {
	for _, player := range g.Players {
		player.ResetQuestionState()
	}
}

func (g *Game) HasEveryoneAnswered() bool {
	for _, player := range g.Players {
		if player.IsHost || !player.IsConnected {
			continue
		}
		if !player.HasAnswered {
			return false
		}
	}
	return true
}

// ActivePlayers returns connected non-host players. Map order, so callers
// needing a stable order sort by JoinedAt.
func (g *Game) ActivePlayers() []*Player {
	players := make([]*Player, 0, len(g.Players))
	for _, p := range g.Players {
		if p.IsConnected && !p.IsHost {
			players = append(players, p)
		}
	}
	return players
}

func (g *Game) TeamScores() map[TeamColor]int {
	if !g.TeamMode {
		return nil
	}
	scores := map[TeamColor]int{TeamBlue: 0, TeamRed: 0}
	for _, p := range g.Players {
		if p.IsHost || p.Team == TeamNone {
			continue
		}
		scores[p.Team] += p.Score
	}
	return scores
}

func (g *Game) TeamPlayers(team TeamColor) []*Player {
	players := make([]*Player, 0)
	for _, p := range g.Players {
		if p.IsConnected && !p.IsHost && p.Team == team {
			players = append(players, p)
		}
	}
	return players
}

// TakenColors reports colors already claimed by connected players.
func (g *Game) TakenColors() map[string]bool {
	taken := make(map[string]bool, len(g.Players))
	for _, p := range g.Players {
		if p.Color != "" {
			taken[p.Color] = true
		}
	}
	return taken
}

func (g *Game) PlayerSnapshots() []*PlayerSnapshot {
	snaps := make([]*PlayerSnapshot, 0, len(g.Players))
	for _, p := range g.Players {
		if p.IsHost {
			continue
		}
		snaps = append(snaps, p.Snapshot())
	}
	return snaps
}
