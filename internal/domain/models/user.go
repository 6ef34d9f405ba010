// internal/domain/models/user.go
package models

import (
	"time"
)

// Role is the self-declared role a user picks at signup.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleScouter    Role = "scouter"
	RoleCoach      Role = "coach"
	RoleTeamOwner  Role = "team_owner"
	RoleInfluencer Role = "influencer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleScouter, RoleCoach, RoleTeamOwner, RoleInfluencer:
		return true
	}
	return false
}

// User is the root social entity. One document per user in the "users"
// collection, keyed by the auth provider's subject id.
//
// NOTE:
//   - GamesPlayed, Teams and Achievements are owned by the user document and
//     are always written as whole arrays.
//   - Followers/Following hold user ids (lookup keys, not ownership).
type User struct {
	ID       string `bson:"_id" json:"id"`
	Email    string `bson:"email" json:"email"`
	Username string `bson:"username" json:"username"`
	Role     Role   `bson:"role" json:"role"`

	ProfileImage    *string `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	BackgroundImage *string `bson:"backgroundImage,omitempty" json:"backgroundImage,omitempty"`

	Bio      string `bson:"bio,omitempty" json:"bio,omitempty"`
	Country  string `bson:"country,omitempty" json:"country,omitempty"`
	Timezone string `bson:"timezone,omitempty" json:"timezone,omitempty"`
	Age      *int   `bson:"age,omitempty" json:"age,omitempty"`
	Gender   string `bson:"gender,omitempty" json:"gender,omitempty"`
	Location string `bson:"location,omitempty" json:"location,omitempty"`

	GamesPlayed  []Game           `bson:"gamesPlayed" json:"gamesPlayed"`
	Teams        []TeamMembership `bson:"teams" json:"teams"`
	Achievements []Achievement    `bson:"achievements" json:"achievements"`
	Stats        UserStats        `bson:"stats" json:"stats"`

	Followers []string `bson:"followers" json:"followers"`
	Following []string `bson:"following" json:"following"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// UserStats aggregates a user's competitive record.
type UserStats struct {
	Wins           int `bson:"wins" json:"wins"`
	Losses         int `bson:"losses" json:"losses"`
	Draws          int `bson:"draws" json:"draws"`
	TournamentWins int `bson:"tournamentWins" json:"tournamentWins"`
	MatchesPlayed  int `bson:"matchesPlayed" json:"matchesPlayed"`
}

// NewUser builds a freshly registered user: empty collections, zeroed stats.
func NewUser(id, email, username string, role Role, now time.Time) User {
	return User{
		ID:           id,
		Email:        email,
		Username:     username,
		Role:         role,
		GamesPlayed:  []Game{},
		Teams:        []TeamMembership{},
		Achievements: []Achievement{},
		Stats:        UserStats{},
		Followers:    []string{},
		Following:    []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsFollowedBy reports whether userID is in u.Followers.
func (u *User) IsFollowedBy(userID string) bool {
	for _, id := range u.Followers {
		if id == userID {
			return true
		}
	}
	return false
}
