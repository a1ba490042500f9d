package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sujalbistaa/polls/internal/polls"
)

type CreatePollInput struct {
	Text        string     `json:"text" binding:"required,min=1,max=200"`
	PublishDate *time.Time `json:"publishDate"` // Defaults to now
	Choices     []string   `json:"choices" binding:"dive,required,max=200"`
}

type AddChoiceInput struct {
	Text string `json:"text" binding:"required,min=1,max=200"`
}

func (e *Env) CreatePoll(c *gin.Context) {
	var input CreatePollInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	publishDate := e.Polls.Now()
	if input.PublishDate != nil {
		publishDate = *input.PublishDate
	}

	poll, err := e.Admin.CreatePoll(c.Request.Context(), input.Text, publishDate, input.Choices)
	if err != nil {
		e.apiServerError(c, err, "create poll")
		return
	}

	e.Logger.Infow("poll created", "poll_id", poll.ID, "publish_date", poll.PublishDate, "choices", len(poll.Choices))
	c.JSON(http.StatusCreated, poll)
}

func (e *Env) AddChoice(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
		return
	}

	var input AddChoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	choice, err := e.Admin.AddChoice(c.Request.Context(), id, input.Text)
	if errors.Is(err, polls.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
		return
	}
	if err != nil {
		e.apiServerError(c, err, "add choice")
		return
	}

	c.JSON(http.StatusCreated, choice)
}

func (e *Env) DeletePoll(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
		return
	}

	err := e.Admin.DeletePoll(c.Request.Context(), id)
	if errors.Is(err, polls.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
		return
	}
	if err != nil {
		e.apiServerError(c, err, "delete poll")
		return
	}

	e.Logger.Infow("poll deleted", "poll_id", id)
	c.JSON(http.StatusOK, gin.H{"message": "Poll deleted successfully"})
}
