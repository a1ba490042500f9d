package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sujalbistaa/polls/internal/metrics"
	"github.com/sujalbistaa/polls/internal/polls"
	"github.com/sujalbistaa/polls/internal/ws"
)

// WsMessage is the envelope pushed to websocket subscribers.
type WsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// VotePayload is the data of a "vote" message.
type VotePayload struct {
	PollID   uint  `json:"poll_id"`
	ChoiceID uint  `json:"choice_id"`
	Votes    int64 `json:"votes"`
}

// --- Handlers ---
type Env struct {
	DB      *gorm.DB
	Polls   *polls.Service
	Admin   polls.AdminStore
	Hub     *ws.Hub
	Metrics *metrics.Metrics
	Logger  *zap.SugaredLogger
}

// NewEnv wires the poll service and admin store over db.
func NewEnv(db *gorm.DB, hub *ws.Hub, m *metrics.Metrics, logger *zap.SugaredLogger, opts ...polls.Option) *Env {
	store := polls.NewGormStore(db)
	opts = append([]polls.Option{polls.WithLogger(logger)}, opts...)
	return &Env{
		DB:      db,
		Polls:   polls.NewService(store, opts...),
		Admin:   store,
		Hub:     hub,
		Metrics: m,
		Logger:  logger,
	}
}

func (e *Env) Home(c *gin.Context) {
	c.Redirect(http.StatusFound, "/polls/")
}

func (e *Env) Index(c *gin.Context) {
	latest, err := e.Polls.LatestPolls(c.Request.Context())
	if err != nil {
		e.serverError(c, err, "fetch polls")
		return
	}
	c.HTML(http.StatusOK, "index.tmpl", gin.H{
		"LatestPollList": latest,
		"Now":            e.Polls.Now(),
	})
}

func (e *Env) Detail(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		e.notFoundPage(c)
		return
	}

	poll, err := e.Polls.Detail(c.Request.Context(), id)
	if errors.Is(err, polls.ErrNotFound) {
		e.notFoundPage(c)
		return
	}
	if err != nil {
		e.serverError(c, err, "fetch poll")
		return
	}
	c.HTML(http.StatusOK, "detail.tmpl", gin.H{"Poll": poll})
}

func (e *Env) Results(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		e.notFoundPage(c)
		return
	}

	poll, err := e.Polls.Results(c.Request.Context(), id)
	if errors.Is(err, polls.ErrNotFound) {
		e.notFoundPage(c)
		return
	}
	if err != nil {
		e.serverError(c, err, "fetch results")
		return
	}
	c.HTML(http.StatusOK, "results.tmpl", gin.H{"Poll": poll})
}

// Vote handles the detail page form. A rejected vote renders the detail page
// again with the message; a recorded one redirects to the results page.
func (e *Env) Vote(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		e.notFoundPage(c)
		return
	}

	selection, present := c.GetPostForm("choice")
	outcome, err := e.Polls.Vote(c.Request.Context(), id, selection, present)

	var voteErr *polls.VoteError
	switch {
	case errors.As(err, &voteErr):
		e.Metrics.VoteRejections.WithLabelValues(voteErr.Reason()).Inc()
		c.HTML(http.StatusOK, "detail.tmpl", gin.H{
			"Poll":         voteErr.Poll,
			"ErrorMessage": voteErr.Message(),
		})
		return
	case errors.Is(err, polls.ErrNotFound):
		e.notFoundPage(c)
		return
	case err != nil:
		e.serverError(c, err, "record vote")
		return
	}

	e.voteRecorded(outcome)
	c.Redirect(http.StatusFound, outcome.Redirect)
}

func (e *Env) Health(c *gin.Context) {
	sqlDB, err := e.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		e.Logger.Errorw("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// voteRecorded counts the vote and pushes the new total to subscribers.
func (e *Env) voteRecorded(outcome *polls.VoteOutcome) {
	e.Metrics.VotesRecorded.Inc()
	e.broadcastMessage(WsMessage{
		Type: "vote",
		Data: VotePayload{
			PollID:   outcome.PollID,
			ChoiceID: outcome.Choice.ID,
			Votes:    outcome.Choice.Votes,
		},
	})
}

func (e *Env) broadcastMessage(msg WsMessage) {
	jsonMsg, err := json.Marshal(msg)
	if err != nil {
		e.Logger.Errorw("failed to marshal websocket message", "error", err)
		return
	}
	e.Hub.Publish(jsonMsg)
}

func (e *Env) notFoundPage(c *gin.Context) {
	c.HTML(http.StatusNotFound, "not_found.tmpl", nil)
}

func (e *Env) serverError(c *gin.Context, err error, action string) {
	_ = c.Error(err)
	e.Logger.Errorw("failed to "+action, "error", err, "path", c.Request.URL.Path)
	c.String(http.StatusInternalServerError, "Internal Server Error")
}

// pollID parses the :id path segment. Anything that is not a positive
// integer cannot name a poll.
func pollID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
