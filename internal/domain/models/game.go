// internal/domain/models/game.go
package models

// SkillLevel is a player's self-assessed level in a game.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillExpert       SkillLevel = "expert"
	SkillPro          SkillLevel = "pro"
)

// SkillLevels lists the accepted values in display order.
var SkillLevels = []SkillLevel{SkillBeginner, SkillIntermediate, SkillAdvanced, SkillExpert, SkillPro}

// Valid reports whether s is one of SkillLevels.
func (s SkillLevel) Valid() bool {
	for _, v := range SkillLevels {
		if s == v {
			return true
		}
	}
	return false
}

// Game is one entry of User.GamesPlayed. It only exists inside that array.
type Game struct {
	ID          string     `bson:"id" json:"id"`
	Name        string     `bson:"name" json:"name"`
	SkillLevel  SkillLevel `bson:"skillLevel" json:"skillLevel"`
	HoursPlayed float64    `bson:"hoursPlayed" json:"hoursPlayed"`
	Rank        string     `bson:"rank,omitempty" json:"rank,omitempty"`
}
