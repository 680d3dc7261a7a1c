package issues

import (
	"bytes"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"charm.land/log/v2"
	"github.com/stretchr/testify/assert"
)

func newTestResponse(t *testing.T, rawURL string, status int, headers map[string]string) *http.Response {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Request:    &http.Request{Method: http.MethodGet, URL: u},
	}
}

func TestRateLimitsStartUnbounded(t *testing.T) {
	rl := NewRateLimits(log.New(&bytes.Buffer{}))
	standard, search := rl.Snapshot()

	assert.Equal(t, int64(math.MaxInt64), standard.Limit)
	assert.Equal(t, int64(math.MaxInt64), standard.Remaining)
	assert.Equal(t, int64(0), standard.Reset)
	assert.Equal(t, standard, search)
}

func TestRateLimitsRecordExhaustedStandard(t *testing.T) {
	var buf bytes.Buffer
	rl := NewRateLimits(log.New(&buf))
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	reset := now.Add(5 * time.Minute).Unix()
	resp := newTestResponse(t, "https://api.github.com/repos/o/r/issues", http.StatusForbidden, map[string]string{
		"X-RateLimit-Limit":     "60",
		"X-RateLimit-Remaining": "0",
		"X-RateLimit-Reset":     strconv.FormatInt(reset, 10),
	})

	rl.Record(resp)

	standard, search := rl.Snapshot()
	assert.Equal(t, Quota{Limit: 60, Remaining: 0, Reset: reset}, standard)
	assert.Equal(t, unbounded, search, "search quota must not change")
	assert.Contains(t, buf.String(), "non-search APIs")
	assert.Contains(t, buf.String(), "5 minutes")
}

func TestRateLimitsRecordSearchClass(t *testing.T) {
	var buf bytes.Buffer
	rl := NewRateLimits(log.New(&buf))
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	resp := newTestResponse(t, "https://api.github.com/search/issues?q=x", http.StatusForbidden, map[string]string{
		"X-RateLimit-Limit":     "10",
		"X-RateLimit-Remaining": "0",
		"X-RateLimit-Reset":     strconv.FormatInt(now.Add(61*time.Second).Unix(), 10),
	})

	rl.Record(resp)

	standard, search := rl.Snapshot()
	assert.Equal(t, unbounded, standard)
	assert.Equal(t, int64(10), search.Limit)
	assert.Contains(t, buf.String(), "search API")
	assert.Contains(t, buf.String(), "Resets in 1 minute.")
}

func TestRateLimitsRecordQuiet(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
	}{
		{
			name:    "success with remaining quota",
			status:  http.StatusOK,
			headers: map[string]string{"X-RateLimit-Limit": "60", "X-RateLimit-Remaining": "59"},
		},
		{
			name:    "forbidden with remaining quota",
			status:  http.StatusForbidden,
			headers: map[string]string{"X-RateLimit-Limit": "60", "X-RateLimit-Remaining": "3"},
		},
		{
			name:    "exhausted but not forbidden",
			status:  http.StatusOK,
			headers: map[string]string{"X-RateLimit-Remaining": "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			rl := NewRateLimits(log.New(&buf))
			rl.Record(newTestResponse(t, "https://api.github.com/user", tt.status, tt.headers))
			assert.Empty(t, buf.String())
		})
	}
}

func TestRateLimitsRecordMalformedHeaders(t *testing.T) {
	rl := NewRateLimits(log.New(&bytes.Buffer{}))

	assert.NotPanics(t, func() {
		rl.Record(nil)
		rl.Record(&http.Response{StatusCode: http.StatusForbidden})
		rl.Record(newTestResponse(t, "https://api.github.com/user", http.StatusOK, map[string]string{
			"X-RateLimit-Limit":     "lots",
			"X-RateLimit-Remaining": "",
		}))
	})

	standard, _ := rl.Snapshot()
	assert.Equal(t, Quota{}, standard)
}

func TestRateLimitsNonNumericRemainingDoesNotWarn(t *testing.T) {
	var buf bytes.Buffer
	rl := NewRateLimits(log.New(&buf))

	rl.Record(newTestResponse(t, "https://api.github.com/search/issues?q=x", http.StatusForbidden, map[string]string{
		"X-RateLimit-Limit":     "10",
		"X-RateLimit-Remaining": "abc",
		"X-RateLimit-Reset":     "1700000000",
	}))

	_, search := rl.Snapshot()
	assert.Equal(t, Quota{Limit: 10, Remaining: 0, Reset: 1_700_000_000}, search)
	assert.Empty(t, buf.String())
}

func TestRateLimitsAbsentRemainingWarns(t *testing.T) {
	var buf bytes.Buffer
	rl := NewRateLimits(log.New(&buf))

	rl.Record(newTestResponse(t, "https://api.github.com/user", http.StatusForbidden, nil))

	assert.Contains(t, buf.String(), "Rate limit exceeded for non-search APIs")
}

func TestMinutesUntil(t *testing.T) {
	now := time.Unix(1_000, 0)
	assert.Equal(t, int64(5), minutesUntil(now.Add(5*time.Minute), now))
	assert.Equal(t, int64(1), minutesUntil(now.Add(89*time.Second), now))
	assert.Equal(t, int64(2), minutesUntil(now.Add(90*time.Second), now))
	assert.Equal(t, int64(0), minutesUntil(now, now))
}
