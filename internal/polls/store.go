package polls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sujalbistaa/polls/internal/models"
)

// Store is the storage the visibility filter and vote recorder need.
type Store interface {
	ListPublished(ctx context.Context, now time.Time, limit int) ([]models.Poll, error)
	GetPublished(ctx context.Context, id uint, now time.Time) (*models.Poll, error)
	GetAny(ctx context.Context, id uint) (*models.Poll, error)
	FindChoice(ctx context.Context, pollID, choiceID uint) (*models.Choice, error)
	// IncrementVotes adds delta to the choice's counter in place and returns
	// the row as it is after the update.
	IncrementVotes(ctx context.Context, choiceID uint, delta int64) (*models.Choice, error)
}

// AdminStore creates and removes polls.
type AdminStore interface {
	CreatePoll(ctx context.Context, text string, publishDate time.Time, choices []string) (*models.Poll, error)
	AddChoice(ctx context.Context, pollID uint, text string) (*models.Choice, error)
	DeletePoll(ctx context.Context, id uint) error
}

// GormStore implements Store and AdminStore on top of gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func orderedChoices(db *gorm.DB) *gorm.DB {
	return db.Order("id asc")
}

func (s *GormStore) ListPublished(ctx context.Context, now time.Time, limit int) ([]models.Poll, error) {
	polls := make([]models.Poll, 0, limit)
	err := s.db.WithContext(ctx).
		Where("publish_date <= ?", now.UTC()).
		Order("publish_date desc").
		Order("id asc").
		Limit(limit).
		Find(&polls).Error
	if err != nil {
		return nil, fmt.Errorf("list published polls: %w", err)
	}
	return polls, nil
}

func (s *GormStore) GetPublished(ctx context.Context, id uint, now time.Time) (*models.Poll, error) {
	var poll models.Poll
	err := s.db.WithContext(ctx).
		Preload("Choices", orderedChoices).
		Where("publish_date <= ?", now.UTC()).
		First(&poll, id).Error
	if err != nil {
		return nil, notFound(err, "get published poll")
	}
	return &poll, nil
}

func (s *GormStore) GetAny(ctx context.Context, id uint) (*models.Poll, error) {
	var poll models.Poll
	err := s.db.WithContext(ctx).
		Preload("Choices", orderedChoices).
		First(&poll, id).Error
	if err != nil {
		return nil, notFound(err, "get poll")
	}
	return &poll, nil
}

func (s *GormStore) FindChoice(ctx context.Context, pollID, choiceID uint) (*models.Choice, error) {
	var choice models.Choice
	err := s.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		First(&choice, choiceID).Error
	if err != nil {
		return nil, notFound(err, "find choice")
	}
	return &choice, nil
}

func (s *GormStore) IncrementVotes(ctx context.Context, choiceID uint, delta int64) (*models.Choice, error) {
	var choice models.Choice

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Choice{}).
			Where("id = ?", choiceID).
			UpdateColumn("votes", gorm.Expr("votes + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.First(&choice, choiceID).Error
	})
	if err != nil {
		return nil, notFound(err, "increment votes")
	}
	return &choice, nil
}

func (s *GormStore) CreatePoll(ctx context.Context, text string, publishDate time.Time, choices []string) (*models.Poll, error) {
	poll := models.Poll{
		Text:        text,
		PublishDate: publishDate.UTC(),
	}
	for _, c := range choices {
		poll.Choices = append(poll.Choices, models.Choice{Text: c})
	}

	if err := s.db.WithContext(ctx).Create(&poll).Error; err != nil {
		return nil, fmt.Errorf("create poll: %w", err)
	}
	return &poll, nil
}

func (s *GormStore) AddChoice(ctx context.Context, pollID uint, text string) (*models.Choice, error) {
	choice := models.Choice{PollID: pollID, Text: text}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Poll{}, pollID).Error; err != nil {
			return err
		}
		return tx.Create(&choice).Error
	})
	if err != nil {
		return nil, notFound(err, "add choice")
	}
	return &choice, nil
}

func (s *GormStore) DeletePoll(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("poll_id = ?", id).Delete(&models.Choice{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Poll{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return notFound(err, "delete poll")
	}
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
