// internal/domain/models/post.go
package models

import "time"

// Post is a wall entry. Likes hold user ids.
type Post struct {
	ID        string    `bson:"id" json:"id"`
	AuthorID  string    `bson:"authorId" json:"authorId"`
	Content   string    `bson:"content" json:"content"`
	Media     []string  `bson:"media,omitempty" json:"media,omitempty"`
	Likes     []string  `bson:"likes" json:"likes"`
	Comments  []Comment `bson:"comments" json:"comments"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type Comment struct {
	ID        string    `bson:"id" json:"id"`
	AuthorID  string    `bson:"authorId" json:"authorId"`
	Content   string    `bson:"content" json:"content"`
	Likes     []string  `bson:"likes" json:"likes"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Achievement is one entry of User.Achievements.
type Achievement struct {
	ID          string    `bson:"id" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	Game        string    `bson:"game" json:"game"`
	Date        time.Time `bson:"date" json:"date"`
	Proof       string    `bson:"proof,omitempty" json:"proof,omitempty"`
}
