package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sujalbistaa/polls/internal/testutil"
)

func TestIndex_NoPolls(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.get("/polls/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No polls are available.")
}

func TestIndex_PastPoll(t *testing.T) {
	s := newTestServer(t, testConfig())
	testutil.CreateTestPoll(t, s.db, "Past poll", -30)

	w := s.get("/polls/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Past poll")
	assert.NotContains(t, w.Body.String(), "No polls are available.")
}

func TestIndex_FuturePollHidden(t *testing.T) {
	s := newTestServer(t, testConfig())
	testutil.CreateTestPoll(t, s.db, "Future poll", 30)

	w := s.get("/polls/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No polls are available.")
	assert.NotContains(t, w.Body.String(), "Future poll")
}

func TestIndex_RecentBadge(t *testing.T) {
	s := newTestServer(t, testConfig())
	testutil.CreateTestPoll(t, s.db, "Fresh poll", 0)

	w := s.get("/polls/")

	assert.Contains(t, w.Body.String(), `class="badge"`)
}

func TestHome_RedirectsToIndex(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.get("/")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/polls/", w.Header().Get("Location"))
}

func TestDetailAndResults_Visibility(t *testing.T) {
	s := newTestServer(t, testConfig())
	future := testutil.CreateTestPoll(t, s.db, "Future poll", 5)
	past := testutil.CreateTestPoll(t, s.db, "Past poll", -5)

	for _, suffix := range []string{"/", "/results/"} {
		t.Run(suffix, func(t *testing.T) {
			w := s.get(fmt.Sprintf("/polls/%d%s", future.ID, suffix))
			assert.Equal(t, http.StatusNotFound, w.Code)

			w = s.get(fmt.Sprintf("/polls/%d%s", past.ID, suffix))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), "Past poll")

			w = s.get("/polls/9999" + suffix)
			assert.Equal(t, http.StatusNotFound, w.Code)

			w = s.get("/polls/abc" + suffix)
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestResults_ShowsCounts(t *testing.T) {
	s := newTestServer(t, testConfig())
	poll := testutil.CreateTestPoll(t, s.db, "Poll", -1)
	choice := testutil.AddTestChoice(t, s.db, poll.ID, "Yes")
	require.NoError(t, s.db.Model(choice).UpdateColumn("votes", 3).Error)

	w := s.get(fmt.Sprintf("/polls/%d/results/", poll.ID))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<span class="votes">3</span> votes`)
	assert.Contains(t, w.Body.String(), "Total: 3")
}

func TestVote_Redirects(t *testing.T) {
	s := newTestServer(t, testConfig())
	poll := testutil.CreateTestPoll(t, s.db, "Poll", -1)
	choice := testutil.AddTestChoice(t, s.db, poll.ID, "Yes")

	w := s.postForm(fmt.Sprintf("/polls/%d/vote/", poll.ID), url.Values{"choice": {strconv.Itoa(int(choice.ID))}})

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/polls/%d/results/", poll.ID), w.Header().Get("Location"))
	assert.Equal(t, int64(1), testutil.Votes(t, s.db, choice.ID))
}

func TestVote_MissingSelectionRerendersDetail(t *testing.T) {
	s := newTestServer(t, testConfig())
	poll := testutil.CreateTestPoll(t, s.db, "Which one?", -1)
	choice := testutil.AddTestChoice(t, s.db, poll.ID, "This one")

	w := s.postForm(fmt.Sprintf("/polls/%d/vote/", poll.ID), url.Values{})

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "You didn&#39;t select a choice.")
	assert.Contains(t, body, "Which one?")
	assert.Contains(t, body, "This one")
	assert.Equal(t, int64(0), testutil.Votes(t, s.db, choice.ID))
}

func TestVote_InvalidChoiceRerendersDetail(t *testing.T) {
	s := newTestServer(t, testConfig())
	poll := testutil.CreateTestPoll(t, s.db, "Poll", -1)
	choice := testutil.AddTestChoice(t, s.db, poll.ID, "Yes")

	w := s.postForm(fmt.Sprintf("/polls/%d/vote/", poll.ID), url.Values{"choice": {"9999"}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "That choice is not part of this poll.")
	assert.Equal(t, int64(0), testutil.Votes(t, s.db, choice.ID))
}

func TestVote_UnknownPoll(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.postForm("/polls/9999/vote/", url.Values{"choice": {"1"}})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVote_Concurrent(t *testing.T) {
	s := newTestServer(t, testConfig())
	poll := testutil.CreateTestPoll(t, s.db, "Poll", -1)
	choice := testutil.AddTestChoice(t, s.db, poll.ID, "Yes")
	path := fmt.Sprintf("/polls/%d/vote/", poll.ID)
	form := url.Values{"choice": {strconv.Itoa(int(choice.ID))}}

	const numVoters = 20
	codes := make([]int, numVoters)
	var wg sync.WaitGroup
	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = s.postForm(path, form).Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusFound, code)
	}
	assert.Equal(t, int64(numVoters), testutil.Votes(t, s.db, choice.ID))
}

func TestVote_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.VoteRateRPS = 0.001
	cfg.VoteRateBurst = 1
	s := newTestServer(t, cfg)
	poll := testutil.CreateTestPoll(t, s.db, "Poll", -1)
	choice := testutil.AddTestChoice(t, s.db, poll.ID, "Yes")
	form := url.Values{"choice": {strconv.Itoa(int(choice.ID))}}
	path := fmt.Sprintf("/polls/%d/vote/", poll.ID)

	assert.Equal(t, http.StatusFound, s.postForm(path, form).Code)

	w := s.postForm(path, form)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Too many votes")
	assert.Equal(t, int64(1), testutil.Votes(t, s.db, choice.ID))

	w = s.sendJSON(http.MethodPost, fmt.Sprintf("/api/polls/%d/vote", poll.ID), fmt.Sprintf(`{"choice": %d}`, choice.ID), nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

func TestVote_RateLimitIgnoresForwardedFor(t *testing.T) {
	cfg := testConfig()
	cfg.VoteRateRPS = 0.001
	cfg.VoteRateBurst = 1
	s := newTestServer(t, cfg)
	poll := testutil.CreateTestPoll(t, s.db, "Poll", -1)
	choice := testutil.AddTestChoice(t, s.db, poll.ID, "Yes")
	path := fmt.Sprintf("/polls/%d/vote/", poll.ID)
	form := url.Values{"choice": {strconv.Itoa(int(choice.ID))}}

	codes := make([]int, 0, 3)
	for _, forwarded := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", forwarded)
		codes = append(codes, s.do(req).Code)
	}

	assert.Equal(t, []int{http.StatusFound, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
	assert.Equal(t, int64(1), testutil.Votes(t, s.db, choice.ID))
}

func TestVote_TrustedProxyForwardedFor(t *testing.T) {
	cfg := testConfig()
	cfg.VoteRateRPS = 0.001
	cfg.VoteRateBurst = 1
	// httptest requests come from 192.0.2.1.
	cfg.TrustedProxies = []string{"192.0.2.1"}
	s := newTestServer(t, cfg)
	poll := testutil.CreateTestPoll(t, s.db, "Poll", -1)
	choice := testutil.AddTestChoice(t, s.db, poll.ID, "Yes")
	path := fmt.Sprintf("/polls/%d/vote/", poll.ID)
	form := url.Values{"choice": {strconv.Itoa(int(choice.ID))}}

	for _, forwarded := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", forwarded)
		assert.Equal(t, http.StatusFound, s.do(req).Code, forwarded)
	}
	assert.Equal(t, int64(2), testutil.Votes(t, s.db, choice.ID))
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.get("/polls/")
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	health := s.get("/healthz")
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestRequestID_Propagated(t *testing.T) {
	s := newTestServer(t, testConfig())

	req, _ := http.NewRequest(http.MethodGet, "/polls/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := s.do(req)

	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())
	poll := testutil.CreateTestPoll(t, s.db, "Poll", -1)
	testutil.AddTestChoice(t, s.db, poll.ID, "Yes")

	s.postForm(fmt.Sprintf("/polls/%d/vote/", poll.ID), url.Values{})

	w := s.get("/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `polls_vote_rejections_total{reason="missing_selection"} 1`)
}

func TestStaticFiles(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.get("/static/live.js")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "WebSocket")
}
