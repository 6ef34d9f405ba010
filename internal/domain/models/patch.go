// internal/domain/models/patch.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// UserPatch lists exactly the User fields a partial update may write.
// A nil field is left untouched. For ProfileImage/BackgroundImage a pointer
// to "" clears the field (stored as null).
//
// Collection fields (GamesPlayed, Teams, Achievements, Followers, Following)
// replace the stored array whole; callers compute the full next value.
type UserPatch struct {
	Username        *string
	Role            *Role
	ProfileImage    *string
	BackgroundImage *string
	Bio             *string
	Country         *string
	Timezone        *string
	Age             *int
	Gender          *string
	Location        *string

	GamesPlayed  *[]Game
	Teams        *[]TeamMembership
	Achievements *[]Achievement
	Stats        *UserStats
	Followers    *[]string
	Following    *[]string
}

// Empty reports whether the patch sets no field.
func (p UserPatch) Empty() bool {
	return len(p.Fields(time.Time{})) == 0
}

// Fields renders the patch as a field map using the persisted field names.
// If updatedAt is non-zero it is included.
func (p UserPatch) Fields(updatedAt time.Time) bson.M {
	set := bson.M{}
	str := func(name string, v *string) {
		if v != nil {
			set[name] = *v
		}
	}
	image := func(name string, v *string) {
		if v == nil {
			return
		}
		if *v == "" {
			set[name] = nil
			return
		}
		set[name] = *v
	}

	str("username", p.Username)
	if p.Role != nil {
		set["role"] = string(*p.Role)
	}
	image("profileImage", p.ProfileImage)
	image("backgroundImage", p.BackgroundImage)
	str("bio", p.Bio)
	str("country", p.Country)
	str("timezone", p.Timezone)
	if p.Age != nil {
		set["age"] = *p.Age
	}
	str("gender", p.Gender)
	str("location", p.Location)

	if p.GamesPlayed != nil {
		set["gamesPlayed"] = nonNil(*p.GamesPlayed)
	}
	if p.Teams != nil {
		set["teams"] = nonNil(*p.Teams)
	}
	if p.Achievements != nil {
		set["achievements"] = nonNil(*p.Achievements)
	}
	if p.Stats != nil {
		set["stats"] = *p.Stats
	}
	if p.Followers != nil {
		set["followers"] = nonNil(*p.Followers)
	}
	if p.Following != nil {
		set["following"] = nonNil(*p.Following)
	}

	if !updatedAt.IsZero() {
		set["updatedAt"] = updatedAt
	}
	return set
}

// Apply copies the patch onto u, mirroring what the store does with Fields.
func (p UserPatch) Apply(u *User, updatedAt time.Time) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.ProfileImage != nil {
		u.ProfileImage = imageValue(*p.ProfileImage)
	}
	if p.BackgroundImage != nil {
		u.BackgroundImage = imageValue(*p.BackgroundImage)
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Country != nil {
		u.Country = *p.Country
	}
	if p.Timezone != nil {
		u.Timezone = *p.Timezone
	}
	if p.Age != nil {
		age := *p.Age
		u.Age = &age
	}
	if p.Gender != nil {
		u.Gender = *p.Gender
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.GamesPlayed != nil {
		u.GamesPlayed = nonNil(*p.GamesPlayed)
	}
	if p.Teams != nil {
		u.Teams = nonNil(*p.Teams)
	}
	if p.Achievements != nil {
		u.Achievements = nonNil(*p.Achievements)
	}
	if p.Stats != nil {
		u.Stats = *p.Stats
	}
	if p.Followers != nil {
		u.Followers = nonNil(*p.Followers)
	}
	if p.Following != nil {
		u.Following = nonNil(*p.Following)
	}
	if !updatedAt.IsZero() {
		u.UpdatedAt = updatedAt
	}
}

func imageValue(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// nonNil keeps empty arrays as [] rather than null in the document.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
