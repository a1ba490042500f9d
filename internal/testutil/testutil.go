// Package testutil provides a throwaway database and fixtures for tests.
package testutil

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sujalbistaa/polls/internal/db"
	"github.com/sujalbistaa/polls/internal/models"
)

// Now is the fixed clock used by tests.
var Now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

// Clock returns Now.
func Clock() time.Time { return Now }

// SetupTestDB opens a fresh in-memory SQLite database with the schema applied.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := db.Init("sqlite://:memory:", zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return database
}

// CreateTestPoll creates a poll published days away from Now
// (negative is the past) and returns it.
func CreateTestPoll(t *testing.T, database *gorm.DB, text string, days int) *models.Poll {
	t.Helper()

	poll := &models.Poll{
		Text:        text,
		PublishDate: Now.AddDate(0, 0, days),
	}
	if err := database.Create(poll).Error; err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}
	return poll
}

// AddTestChoice adds a choice with zero votes to a poll.
func AddTestChoice(t *testing.T, database *gorm.DB, pollID uint, text string) *models.Choice {
	t.Helper()

	choice := &models.Choice{PollID: pollID, Text: text}
	if err := database.Create(choice).Error; err != nil {
		t.Fatalf("Failed to create test choice: %v", err)
	}
	return choice
}

// Votes reads a choice's current counter.
func Votes(t *testing.T, database *gorm.DB, choiceID uint) int64 {
	t.Helper()

	var choice models.Choice
	if err := database.First(&choice, choiceID).Error; err != nil {
		t.Fatalf("Failed to read choice %d: %v", choiceID, err)
	}
	return choice.Votes
}
