package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sujalbistaa/polls/internal/models"
	"github.com/sujalbistaa/polls/internal/polls"
)

// --- JSON views ---

type PollSummary struct {
	ID                uint      `json:"id"`
	Text              string    `json:"text"`
	PublishDate       time.Time `json:"publishDate"`
	RecentlyPublished bool      `json:"recentlyPublished"`
}

type ChoiceView struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

type PollDetail struct {
	PollSummary
	Choices []ChoiceView `json:"choices"`
}

type PollResults struct {
	PollSummary
	Choices    []models.Choice `json:"choices"`
	TotalVotes int64           `json:"totalVotes"`
}

type VoteInput struct {
	Choice *uint64 `json:"choice"`
}

func summarize(p models.Poll, now time.Time) PollSummary {
	return PollSummary{
		ID:                p.ID,
		Text:              p.Text,
		PublishDate:       p.PublishDate,
		RecentlyPublished: p.WasPublishedRecently(now),
	}
}

func detailView(p *models.Poll, now time.Time) PollDetail {
	choices := make([]ChoiceView, 0, len(p.Choices))
	for _, ch := range p.Choices {
		choices = append(choices, ChoiceView{ID: ch.ID, Text: ch.Text})
	}
	return PollDetail{PollSummary: summarize(*p, now), Choices: choices}
}

func (e *Env) APIListPolls(c *gin.Context) {
	latest, err := e.Polls.LatestPolls(c.Request.Context())
	if err != nil {
		e.apiServerError(c, err, "fetch polls")
		return
	}

	now := e.Polls.Now()
	out := make([]PollSummary, 0, len(latest))
	for _, p := range latest {
		out = append(out, summarize(p, now))
	}
	c.JSON(http.StatusOK, gin.H{"polls": out})
}

func (e *Env) APIGetPoll(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
		return
	}

	poll, err := e.Polls.Detail(c.Request.Context(), id)
	if errors.Is(err, polls.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
		return
	}
	if err != nil {
		e.apiServerError(c, err, "fetch poll")
		return
	}
	c.JSON(http.StatusOK, detailView(poll, e.Polls.Now()))
}

func (e *Env) APIGetResults(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
		return
	}

	poll, err := e.Polls.Results(c.Request.Context(), id)
	if errors.Is(err, polls.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
		return
	}
	if err != nil {
		e.apiServerError(c, err, "fetch results")
		return
	}
	c.JSON(http.StatusOK, PollResults{
		PollSummary: summarize(*poll, e.Polls.Now()),
		Choices:     poll.Choices,
		TotalVotes:  poll.TotalVotes(),
	})
}

func (e *Env) APIVote(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
		return
	}

	// An empty body carries no choice, same as {}.
	var input VoteInput
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	selection, present := "", input.Choice != nil
	if present {
		selection = strconv.FormatUint(*input.Choice, 10)
	}

	outcome, err := e.Polls.Vote(c.Request.Context(), id, selection, present)

	var voteErr *polls.VoteError
	switch {
	case errors.As(err, &voteErr):
		e.Metrics.VoteRejections.WithLabelValues(voteErr.Reason()).Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  voteErr.Message(),
			"reason": voteErr.Reason(),
			"poll":   detailView(voteErr.Poll, e.Polls.Now()),
		})
		return
	case errors.Is(err, polls.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
		return
	case err != nil:
		e.apiServerError(c, err, "record vote")
		return
	}

	e.voteRecorded(outcome)
	c.JSON(http.StatusOK, gin.H{
		"pollId":   outcome.PollID,
		"choiceId": outcome.Choice.ID,
		"votes":    outcome.Choice.Votes,
		"redirect": outcome.Redirect,
	})
}

func (e *Env) apiServerError(c *gin.Context, err error, action string) {
	_ = c.Error(err)
	e.Logger.Errorw("failed to "+action, "error", err, "path", c.Request.URL.Path)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
}
