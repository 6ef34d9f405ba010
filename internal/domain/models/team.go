// internal/domain/models/team.go
package models

import "time"

// TeamLevel is the competitive tier a team plays at.
type TeamLevel string

const (
	TeamHobbyist   TeamLevel = "hobbyist"
	TeamAmateur    TeamLevel = "amateur"
	TeamCompetitor TeamLevel = "competitor"
	TeamPro        TeamLevel = "pro"
)

func (l TeamLevel) Valid() bool {
	switch l {
	case TeamHobbyist, TeamAmateur, TeamCompetitor, TeamPro:
		return true
	}
	return false
}

// MemberRole is a user's role inside a team.
type MemberRole string

const (
	MemberOwner      MemberRole = "owner"
	MemberCaptain    MemberRole = "captain"
	MemberPlayer     MemberRole = "player"
	MemberSubstitute MemberRole = "substitute"
	MemberCoach      MemberRole = "coach"
)

func (r MemberRole) Valid() bool {
	switch r {
	case MemberOwner, MemberCaptain, MemberPlayer, MemberSubstitute, MemberCoach:
		return true
	}
	return false
}

// Team is a forward-declared shape for team pages. Members and Followers
// reference users by id.
type Team struct {
	ID              string           `bson:"_id" json:"id"`
	Name            string           `bson:"name" json:"name"`
	Logo            string           `bson:"logo" json:"logo"`
	BackgroundImage *string          `bson:"backgroundImage,omitempty" json:"backgroundImage,omitempty"`
	Description     string           `bson:"description" json:"description"`
	Country         string           `bson:"country" json:"country"`
	Timezone        string           `bson:"timezone" json:"timezone"`
	Level           TeamLevel        `bson:"level" json:"level"`
	Game            Game             `bson:"game" json:"game"`
	Ranking         *int             `bson:"ranking,omitempty" json:"ranking,omitempty"`
	Members         []TeamMembership `bson:"members" json:"members"`
	OwnerID         string           `bson:"ownerId" json:"ownerId"`
	Stats           TeamStats        `bson:"stats" json:"stats"`
	Posts           []Post           `bson:"posts" json:"posts"`
	Followers       []string         `bson:"followers" json:"followers"`
	Tournaments     []Tournament     `bson:"tournaments" json:"tournaments"`
	CreatedAt       time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time        `bson:"updatedAt" json:"updatedAt"`
}

// TeamMembership links a user to a team. Stored in User.Teams and Team.Members.
type TeamMembership struct {
	UserID   string     `bson:"userId" json:"userId"`
	TeamID   string     `bson:"teamId" json:"teamId"`
	Role     MemberRole `bson:"role" json:"role"`
	JoinedAt time.Time  `bson:"joinedAt" json:"joinedAt"`
}

// TeamStats is UserStats plus a ranking.
type TeamStats struct {
	Wins           int `bson:"wins" json:"wins"`
	Losses         int `bson:"losses" json:"losses"`
	Draws          int `bson:"draws" json:"draws"`
	TournamentWins int `bson:"tournamentWins" json:"tournamentWins"`
	MatchesPlayed  int `bson:"matchesPlayed" json:"matchesPlayed"`
	Ranking        int `bson:"ranking" json:"ranking"`
}
