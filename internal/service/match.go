package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/stumpscore/stumpscore/internal/cache"
	"github.com/stumpscore/stumpscore/internal/model"
)

// MatchSource supplies the current scoreboard.
type MatchSource interface {
	LiveMatches(ctx context.Context) ([]model.Match, error)
}

// ClockSource derives a scoreboard from the wall clock so the feed moves
// without an upstream data provider.
type ClockSource struct {
	Now func() time.Time
}

type fixture struct {
	id, venue, team1, team2 string
	status                  string
	startHour               int
}

var fixtures = []fixture{
	{id: "match-001", venue: "IPL 2025 - Wankhede Stadium", team1: "Mumbai Indians", team2: "Chennai Super Kings", status: model.MatchStatusLive},
	{id: "match-002", venue: "World Cup 2025 - MCG", team1: "India", team2: "Australia", status: model.MatchStatusLive},
	{id: "match-003", venue: "IPL 2025 - Eden Gardens", team1: "Kolkata Knight Riders", team2: "Royal Challengers Bengaluru", status: model.MatchStatusUpcoming, startHour: 19},
}

func (c ClockSource) LiveMatches(_ context.Context) ([]model.Match, error) {
	now := c.Now()
	hours, minutes := now.Hour(), now.Minute()

	matches := make([]model.Match, 0, len(fixtures))
	for i, f := range fixtures {
		m := model.Match{
			ID:     f.id,
			Status: f.status,
			Venue:  f.venue,
			Team1:  model.TeamScore{Name: f.team1},
			Team2:  model.TeamScore{Name: f.team2},
		}

		if f.status != model.MatchStatusLive {
			m.CurrentStatus = fmt.Sprintf("Starts at %02d:00", f.startHour)
			matches = append(matches, m)
			continue
		}

		score1 := 180 + (hours%12)*10 + minutes/10 + i*15
		score2 := 120 + (hours%12)*8 + minutes/8 + i*10
		m.Team1 = innings(f.team1, score1, 60, 20, minutes)
		m.Team2 = innings(f.team2, score2, 50, 15, minutes+3)
		m.CurrentStatus = chaseStatus(f.team1, f.team2, score1, score2, 30+minutes%30)

		matches = append(matches, m)
	}

	return matches, nil
}

func innings(name string, score, runsPerWicket, runsPerOver, minutes int) model.TeamScore {
	wickets := min(score/runsPerWicket, 9)
	overs := fmt.Sprintf("%d.%d", min(score/runsPerOver, 49), minutes%6)
	return model.TeamScore{Name: name, Score: &score, Wickets: &wickets, Overs: &overs}
}

func chaseStatus(team1, team2 string, score1, score2, balls int) string {
	if score1 > score2 {
		return fmt.Sprintf("%s needs %d runs from %d balls", team2, score1-score2+1, balls)
	}
	return fmt.Sprintf("%s leads by %d runs", team2, score2-score1)
}

type MatchService struct {
	source MatchSource
	cache  *cache.TTL[[]model.Match]
}

func NewMatchService(source MatchSource, cache *cache.TTL[[]model.Match]) *MatchService {
	return &MatchService{source: source, cache: cache}
}

func (s *MatchService) Live(ctx context.Context) ([]model.Match, error) {
	return s.cache.GetOrLoad("live", func() ([]model.Match, error) {
		return s.source.LiveMatches(ctx)
	})
}

// Predictions estimates win probabilities for live matches from the runs
// each side has on the board.
func (s *MatchService) Predictions(ctx context.Context) ([]model.Prediction, error) {
	matches, err := s.Live(ctx)
	if err != nil {
		return nil, err
	}

	predictions := []model.Prediction{}
	for _, m := range matches {
		if m.Status != model.MatchStatusLive || m.Team1.Score == nil || m.Team2.Score == nil {
			continue
		}

		total := float64(*m.Team1.Score + *m.Team2.Score)
		p1 := 50.0
		if total > 0 {
			p1 = math.Round(float64(*m.Team1.Score)/total*1000) / 10
		}
		p2 := math.Round((100-p1)*10) / 10

		confidence := "Medium"
		if math.Abs(p1-p2) >= 20 {
			confidence = "High"
		} else if math.Abs(p1-p2) < 5 {
			confidence = "Low"
		}

		predictions = append(predictions, model.Prediction{
			MatchID:     m.ID,
			Team1:       m.Team1.Name,
			Team2:       m.Team2.Name,
			Team1WinPct: p1,
			Team2WinPct: p2,
			Confidence:  confidence,
		})
	}

	return predictions, nil
}
