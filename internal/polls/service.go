package polls

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sujalbistaa/polls/internal/models"
)

// LatestLimit is the number of polls shown on the index page.
const LatestLimit = 5

// VoteOutcome describes a recorded vote.
type VoteOutcome struct {
	PollID   uint
	Choice   models.Choice
	Redirect string
}

// ResultsPath is the results page a successful vote redirects to.
func ResultsPath(pollID uint) string {
	return fmt.Sprintf("/polls/%d/results/", pollID)
}

// Service gates reads on the publication date and records votes.
type Service struct {
	store  Store
	now    func() time.Time
	logger *zap.SugaredLogger
}

type Option func(*Service)

// WithClock replaces time.Now as the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service's notion of the current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// LatestPolls returns the most recently published polls, newest first.
func (s *Service) LatestPolls(ctx context.Context) ([]models.Poll, error) {
	return s.store.ListPublished(ctx, s.now(), LatestLimit)
}

// Detail returns a published poll with its choices.
func (s *Service) Detail(ctx context.Context, id uint) (*models.Poll, error) {
	return s.published(ctx, id)
}

// Results returns a published poll with its choices and their vote counts.
func (s *Service) Results(ctx context.Context, id uint) (*models.Poll, error) {
	return s.published(ctx, id)
}

func (s *Service) published(ctx context.Context, id uint) (*models.Poll, error) {
	now := s.now()
	poll, err := s.store.GetPublished(ctx, id, now)
	if err != nil {
		return nil, err
	}
	// The store filters on the same rule; a future poll must never leak.
	if !poll.IsVisible(now) {
		return nil, ErrNotFound
	}
	return poll, nil
}

// Vote records one vote for the choice identified by selection. ok is false
// when the request carried no choice field at all.
//
// The poll only has to exist; it does not have to be published.
// Rejected votes are returned as *VoteError.
func (s *Service) Vote(ctx context.Context, pollID uint, selection string, ok bool) (*VoteOutcome, error) {
	poll, err := s.store.GetAny(ctx, pollID)
	if err != nil {
		return nil, err
	}

	selection = strings.TrimSpace(selection)
	if !ok || selection == "" {
		return nil, s.reject(poll, ErrMissingSelection, selection)
	}

	choiceID, err := strconv.ParseUint(selection, 10, 0)
	if err != nil {
		return nil, s.reject(poll, ErrInvalidChoice, selection)
	}

	choice, err := s.store.FindChoice(ctx, poll.ID, uint(choiceID))
	if errors.Is(err, ErrNotFound) {
		return nil, s.reject(poll, ErrInvalidChoice, selection)
	}
	if err != nil {
		return nil, err
	}

	updated, err := s.store.IncrementVotes(ctx, choice.ID, 1)
	if errors.Is(err, ErrNotFound) {
		// Choice was deleted between lookup and update.
		return nil, s.reject(poll, ErrInvalidChoice, selection)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Debugw("vote recorded", "poll_id", poll.ID, "choice_id", updated.ID, "votes", updated.Votes)

	return &VoteOutcome{
		PollID:   poll.ID,
		Choice:   *updated,
		Redirect: ResultsPath(poll.ID),
	}, nil
}

func (s *Service) reject(poll *models.Poll, kind error, selection string) error {
	s.logger.Debugw("vote rejected", "poll_id", poll.ID, "selection", selection, "reason", kind)
	return &VoteError{Kind: kind, Poll: poll}
}
