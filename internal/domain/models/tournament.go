// internal/domain/models/tournament.go
package models

import "time"

type TournamentStatus string

const (
	TournamentUpcoming  TournamentStatus = "upcoming"
	TournamentOngoing   TournamentStatus = "ongoing"
	TournamentCompleted TournamentStatus = "completed"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case TournamentUpcoming, TournamentOngoing, TournamentCompleted:
		return true
	}
	return false
}

// Tournament groups matches between teams (team ids in Teams).
type Tournament struct {
	ID        string           `bson:"id" json:"id"`
	Name      string           `bson:"name" json:"name"`
	Game      Game             `bson:"game" json:"game"`
	StartDate time.Time        `bson:"startDate" json:"startDate"`
	EndDate   time.Time        `bson:"endDate" json:"endDate"`
	Teams     []string         `bson:"teams" json:"teams"`
	Matches   []Match          `bson:"matches" json:"matches"`
	Status    TournamentStatus `bson:"status" json:"status"`
	Prize     string           `bson:"prize,omitempty" json:"prize,omitempty"`
}

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchOngoing   MatchStatus = "ongoing"
	MatchCompleted MatchStatus = "completed"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchScheduled, MatchOngoing, MatchCompleted:
		return true
	}
	return false
}

type Score struct {
	Team1 int `bson:"team1" json:"team1"`
	Team2 int `bson:"team2" json:"team2"`
}

type Match struct {
	ID           string      `bson:"id" json:"id"`
	TournamentID string      `bson:"tournamentId" json:"tournamentId"`
	Team1ID      string      `bson:"team1Id" json:"team1Id"`
	Team2ID      string      `bson:"team2Id" json:"team2Id"`
	Score        *Score      `bson:"score,omitempty" json:"score,omitempty"`
	Status       MatchStatus `bson:"status" json:"status"`
	StartTime    time.Time   `bson:"startTime" json:"startTime"`
	EndTime      *time.Time  `bson:"endTime,omitempty" json:"endTime,omitempty"`
}
