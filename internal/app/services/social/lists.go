package social

import (
	"context"
	"time"

	"github.com/dalemusser/gamerie/internal/app/system/apperr"
	"github.com/dalemusser/gamerie/internal/app/system/htmlsanitize"
	"github.com/dalemusser/gamerie/internal/app/system/inputval"
	"github.com/dalemusser/gamerie/internal/app/system/normalize"
	"github.com/dalemusser/gamerie/internal/domain/models"
)

// GameInput is the user-supplied part of a Game.
type GameInput struct {
	Name        string  `json:"name" validate:"required,max=100" label:"Game name"`
	SkillLevel  string  `json:"skillLevel" validate:"required,skilllevel" label:"Skill level"`
	HoursPlayed float64 `json:"hoursPlayed" validate:"gte=0" label:"Hours played"`
	Rank        string  `json:"rank" validate:"max=64" label:"Rank"`
}

func (in GameInput) clean() GameInput {
	in.Name = normalize.Text(htmlsanitize.PlainText(in.Name))
	in.SkillLevel = normalize.Text(in.SkillLevel)
	in.Rank = normalize.Text(htmlsanitize.PlainText(in.Rank))
	return in
}

// AchievementInput is the user-supplied part of an Achievement. A zero Date
// means now.
type AchievementInput struct {
	Title       string    `json:"title" validate:"required,max=100" label:"Title"`
	Description string    `json:"description" validate:"max=1000" label:"Description"`
	Game        string    `json:"game" validate:"max=100" label:"Game"`
	Date        time.Time `json:"date"`
	Proof       string    `json:"proof" validate:"omitempty,httpurl" label:"Proof"`
}

func (in AchievementInput) clean() AchievementInput {
	in.Title = normalize.Text(htmlsanitize.PlainText(in.Title))
	in.Description = normalize.Text(htmlsanitize.PlainText(in.Description))
	in.Game = normalize.Text(htmlsanitize.PlainText(in.Game))
	in.Proof = normalize.Text(in.Proof)
	return in
}

// TeamInput names the team to join and the role held in it.
type TeamInput struct {
	TeamID string `json:"teamId" validate:"required,max=64" label:"Team"`
	Role   string `json:"role" validate:"required,memberrole" label:"Team role"`
}

func (in TeamInput) clean() TeamInput {
	in.TeamID = normalize.Text(in.TeamID)
	in.Role = normalize.Text(in.Role)
	return in
}

func validate(op string, v any) error {
	if res := inputval.Validate(v); res.HasErrors() {
		return apperr.Validation(op, res.First())
	}
	return nil
}

// AddGame validates in, gives it a fresh id and appends it to the user's
// games. Invalid input is rejected before any store call.
func (m *Manager) AddGame(ctx context.Context, userID string, in GameInput) (models.Game, error) {
	in = in.clean()
	if err := validate(OpAddGame, in); err != nil {
		return models.Game{}, m.fail(ctx, OpAddGame, err)
	}

	unlock := m.lock(userID)
	defer unlock()

	u, err := m.snapshot(ctx, OpAddGame, userID)
	if err != nil {
		return models.Game{}, m.fail(ctx, OpAddGame, err)
	}
	g := models.Game{
		ID:          m.newID(),
		Name:        in.Name,
		SkillLevel:  models.SkillLevel(in.SkillLevel),
		HoursPlayed: in.HoursPlayed,
		Rank:        in.Rank,
	}
	next := append(u.GamesPlayed, g)
	if err := m.commit(ctx, OpAddGame, userID, models.UserPatch{GamesPlayed: &next}, "Failed to add game"); err != nil {
		return models.Game{}, m.fail(ctx, OpAddGame, err)
	}
	m.notifier.Success(ctx, OpAddGame, "Game added successfully")
	return g, nil
}

// UpdateGame replaces the editable fields of gameID, keeping its id.
func (m *Manager) UpdateGame(ctx context.Context, userID, gameID string, in GameInput) (models.Game, error) {
	in = in.clean()
	if err := validate(OpUpdateGame, in); err != nil {
		return models.Game{}, m.fail(ctx, OpUpdateGame, err)
	}

	unlock := m.lock(userID)
	defer unlock()

	u, err := m.snapshot(ctx, OpUpdateGame, userID)
	if err != nil {
		return models.Game{}, m.fail(ctx, OpUpdateGame, err)
	}
	idx := -1
	for i, g := range u.GamesPlayed {
		if g.ID == gameID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Game{}, m.fail(ctx, OpUpdateGame, apperr.New(apperr.KindNotFound, OpUpdateGame, "Game not found", nil))
	}

	next := u.GamesPlayed
	next[idx] = models.Game{
		ID:          gameID,
		Name:        in.Name,
		SkillLevel:  models.SkillLevel(in.SkillLevel),
		HoursPlayed: in.HoursPlayed,
		Rank:        in.Rank,
	}
	if err := m.commit(ctx, OpUpdateGame, userID, models.UserPatch{GamesPlayed: &next}, "Failed to update game"); err != nil {
		return models.Game{}, m.fail(ctx, OpUpdateGame, err)
	}
	m.notifier.Success(ctx, OpUpdateGame, "Game updated successfully")
	return next[idx], nil
}

// RemoveGame drops gameID from the user's games. An unknown id writes
// nothing.
func (m *Manager) RemoveGame(ctx context.Context, userID, gameID string) error {
	unlock := m.lock(userID)
	defer unlock()

	u, err := m.snapshot(ctx, OpRemoveGame, userID)
	if err != nil {
		return m.fail(ctx, OpRemoveGame, err)
	}
	next := make([]models.Game, 0, len(u.GamesPlayed))
	for _, g := range u.GamesPlayed {
		if g.ID != gameID {
			next = append(next, g)
		}
	}
	if len(next) != len(u.GamesPlayed) {
		if err := m.commit(ctx, OpRemoveGame, userID, models.UserPatch{GamesPlayed: &next}, "Failed to remove game"); err != nil {
			return m.fail(ctx, OpRemoveGame, err)
		}
	}
	m.notifier.Success(ctx, OpRemoveGame, "Game removed successfully")
	return nil
}

// AddAchievement appends a new achievement with a fresh id.
func (m *Manager) AddAchievement(ctx context.Context, userID string, in AchievementInput) (models.Achievement, error) {
	in = in.clean()
	if err := validate(OpAddAchievement, in); err != nil {
		return models.Achievement{}, m.fail(ctx, OpAddAchievement, err)
	}

	unlock := m.lock(userID)
	defer unlock()

	u, err := m.snapshot(ctx, OpAddAchievement, userID)
	if err != nil {
		return models.Achievement{}, m.fail(ctx, OpAddAchievement, err)
	}
	date := in.Date.UTC()
	if in.Date.IsZero() {
		date = m.now().UTC()
	}
	a := models.Achievement{
		ID:          m.newID(),
		Title:       in.Title,
		Description: in.Description,
		Game:        in.Game,
		Date:        date,
		Proof:       in.Proof,
	}
	next := append(u.Achievements, a)
	if err := m.commit(ctx, OpAddAchievement, userID, models.UserPatch{Achievements: &next}, "Failed to add achievement"); err != nil {
		return models.Achievement{}, m.fail(ctx, OpAddAchievement, err)
	}
	m.notifier.Success(ctx, OpAddAchievement, "Achievement added successfully")
	return a, nil
}

// RemoveAchievement drops achievementID. An unknown id writes nothing.
func (m *Manager) RemoveAchievement(ctx context.Context, userID, achievementID string) error {
	unlock := m.lock(userID)
	defer unlock()

	u, err := m.snapshot(ctx, OpRemoveAchievement, userID)
	if err != nil {
		return m.fail(ctx, OpRemoveAchievement, err)
	}
	next := make([]models.Achievement, 0, len(u.Achievements))
	for _, a := range u.Achievements {
		if a.ID != achievementID {
			next = append(next, a)
		}
	}
	if len(next) != len(u.Achievements) {
		if err := m.commit(ctx, OpRemoveAchievement, userID, models.UserPatch{Achievements: &next}, "Failed to remove achievement"); err != nil {
			return m.fail(ctx, OpRemoveAchievement, err)
		}
	}
	m.notifier.Success(ctx, OpRemoveAchievement, "Achievement removed successfully")
	return nil
}

// JoinTeam records a membership in in.TeamID. A user holds at most one
// membership per team.
func (m *Manager) JoinTeam(ctx context.Context, userID string, in TeamInput) (models.TeamMembership, error) {
	in = in.clean()
	if err := validate(OpJoinTeam, in); err != nil {
		return models.TeamMembership{}, m.fail(ctx, OpJoinTeam, err)
	}

	unlock := m.lock(userID)
	defer unlock()

	u, err := m.snapshot(ctx, OpJoinTeam, userID)
	if err != nil {
		return models.TeamMembership{}, m.fail(ctx, OpJoinTeam, err)
	}
	for _, t := range u.Teams {
		if t.TeamID == in.TeamID {
			return models.TeamMembership{}, m.fail(ctx, OpJoinTeam,
				apperr.New(apperr.KindConflict, OpJoinTeam, "Already a member of this team", nil))
		}
	}
	tm := models.TeamMembership{
		UserID:   userID,
		TeamID:   in.TeamID,
		Role:     models.MemberRole(in.Role),
		JoinedAt: m.now().UTC(),
	}
	next := append(u.Teams, tm)
	if err := m.commit(ctx, OpJoinTeam, userID, models.UserPatch{Teams: &next}, "Failed to join team"); err != nil {
		return models.TeamMembership{}, m.fail(ctx, OpJoinTeam, err)
	}
	m.notifier.Success(ctx, OpJoinTeam, "Joined team successfully")
	return tm, nil
}

// LeaveTeam drops the membership in teamID. Not being a member writes
// nothing.
func (m *Manager) LeaveTeam(ctx context.Context, userID, teamID string) error {
	unlock := m.lock(userID)
	defer unlock()

	u, err := m.snapshot(ctx, OpLeaveTeam, userID)
	if err != nil {
		return m.fail(ctx, OpLeaveTeam, err)
	}
	next := make([]models.TeamMembership, 0, len(u.Teams))
	for _, t := range u.Teams {
		if t.TeamID != teamID {
			next = append(next, t)
		}
	}
	if len(next) != len(u.Teams) {
		if err := m.commit(ctx, OpLeaveTeam, userID, models.UserPatch{Teams: &next}, "Failed to leave team"); err != nil {
			return m.fail(ctx, OpLeaveTeam, err)
		}
	}
	m.notifier.Success(ctx, OpLeaveTeam, "Left team successfully")
	return nil
}
