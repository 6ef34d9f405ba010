// internal/domain/models/event.go
package models

import "time"

type EventType string

const (
	EventTournament EventType = "tournament"
	EventMatch      EventType = "match"
	EventPractice   EventType = "practice"
	EventMeeting    EventType = "meeting"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTournament, EventMatch, EventPractice, EventMeeting:
		return true
	}
	return false
}

// Event is a calendar entry. Participants are user ids.
type Event struct {
	ID           string     `bson:"_id" json:"id"`
	Title        string     `bson:"title" json:"title"`
	Description  string     `bson:"description" json:"description"`
	Type         EventType  `bson:"type" json:"type"`
	StartTime    time.Time  `bson:"startTime" json:"startTime"`
	EndTime      time.Time  `bson:"endTime" json:"endTime"`
	Participants []string   `bson:"participants" json:"participants"`
	Location     string     `bson:"location,omitempty" json:"location,omitempty"`
	Reminders    []Reminder `bson:"reminders" json:"reminders"`
}

type ReminderType string

const (
	ReminderEmail ReminderType = "email"
	ReminderPush  ReminderType = "push"
	ReminderInApp ReminderType = "in_app"
)

func (t ReminderType) Valid() bool {
	switch t {
	case ReminderEmail, ReminderPush, ReminderInApp:
		return true
	}
	return false
}

type Reminder struct {
	ID      string       `bson:"id" json:"id"`
	EventID string       `bson:"eventId" json:"eventId"`
	UserID  string       `bson:"userId" json:"userId"`
	Time    time.Time    `bson:"time" json:"time"`
	Type    ReminderType `bson:"type" json:"type"`
	Sent    bool         `bson:"sent" json:"sent"`
}
