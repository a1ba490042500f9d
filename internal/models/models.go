package models

import (
	"time"
)

// RecentWindow is how far back a poll still counts as recently published.
const RecentWindow = 24 * time.Hour

// Poll is a question with a publication timestamp and a set of choices.
type Poll struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Text        string    `gorm:"not null" json:"text"`
	PublishDate time.Time `gorm:"not null;index" json:"publishDate"`
	Choices     []Choice  `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE" json:"choices,omitempty"` // Has-many relationship
}

// Choice is one selectable answer to a Poll.
type Choice struct {
	ID     uint   `gorm:"primarykey" json:"id"`
	PollID uint   `gorm:"not null;index" json:"pollId"`
	Text   string `gorm:"not null" json:"text"`
	Votes  int64  `gorm:"not null;default:0" json:"votes"` // Only ever changed by an in-place increment
}

// IsVisible reports whether p is published at now.
func (p Poll) IsVisible(now time.Time) bool {
	return !p.PublishDate.After(now)
}

// WasPublishedRecently reports whether p was published within the last day.
// Future polls are never recent.
func (p Poll) WasPublishedRecently(now time.Time) bool {
	return !p.PublishDate.Before(now.Add(-RecentWindow)) && !p.PublishDate.After(now)
}

func (p Poll) TotalVotes() int64 {
	var total int64
	for _, c := range p.Choices {
		total += c.Votes
	}
	return total
}

// AllModels lists every model AutoMigrate must know about.
func AllModels() []interface{} {
	return []interface{}{&Poll{}, &Choice{}}
}
