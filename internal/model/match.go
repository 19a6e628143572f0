package model

const (
	MatchStatusLive      = "LIVE"
	MatchStatusUpcoming  = "UPCOMING"
	MatchStatusCompleted = "COMPLETED"
)

type TeamScore struct {
	Name    string  `json:"name"`
	Score   *int    `json:"score"`
	Wickets *int    `json:"wickets"`
	Overs   *string `json:"overs"`
}

type Match struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	Venue         string    `json:"venue"`
	Team1         TeamScore `json:"team1"`
	Team2         TeamScore `json:"team2"`
	CurrentStatus string    `json:"currentStatus"`
}

// Prediction is premium-only content derived from a live match.
type Prediction struct {
	MatchID     string  `json:"matchId"`
	Team1       string  `json:"team1"`
	Team2       string  `json:"team2"`
	Team1WinPct float64 `json:"team1WinProbability"`
	Team2WinPct float64 `json:"team2WinProbability"`
	Confidence  string  `json:"confidence"`
}
