package issues

import (
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"charm.land/log/v2"
)

// searchURLPattern marks requests that count against the search quota.
var searchURLPattern = regexp.MustCompile(`/search/`)

// Quota is the last observed rate limit for one class of API requests.
type Quota struct {
	Limit     int64
	Remaining int64
	Reset     int64 // epoch seconds
}

// ResetTime returns the instant the quota resets.
func (q Quota) ResetTime() time.Time {
	return time.Unix(q.Reset, 0)
}

// unbounded is the quota before any response has been seen.
var unbounded = Quota{Limit: math.MaxInt64, Remaining: math.MaxInt64}

// RateLimits tracks the standard and search quotas independently.
type RateLimits struct {
	mu       sync.Mutex
	standard Quota
	search   Quota

	logger *log.Logger
	now    func() time.Time
}

// NewRateLimits returns a tracker with both quotas unbounded.
func NewRateLimits(logger *log.Logger) *RateLimits {
	if logger == nil {
		logger = log.Default()
	}
	return &RateLimits{
		standard: unbounded,
		search:   unbounded,
		logger:   logger,
		now:      time.Now,
	}
}

// Snapshot returns the current standard and search quotas.
func (rl *RateLimits) Snapshot() (standard, search Quota) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.standard, rl.search
}

// Record overwrites the quota for the response's class with the
// X-RateLimit-* headers it carried. Missing or malformed headers
// become 0. It warns when the response was a 403 and the quota is
// exhausted, which an absent Remaining header counts as; it never fails.
func (rl *RateLimits) Record(resp *http.Response) {
	if resp == nil {
		return
	}

	remaining, remainingOK := headerInt(resp.Header, "X-RateLimit-Remaining")
	q := Quota{
		Limit:     headerValue(resp.Header, "X-RateLimit-Limit"),
		Remaining: remaining,
		Reset:     headerValue(resp.Header, "X-RateLimit-Reset"),
	}

	isSearch := resp.Request != nil && resp.Request.URL != nil &&
		searchURLPattern.MatchString(resp.Request.URL.String())

	rl.mu.Lock()
	if isSearch {
		rl.search = q
	} else {
		rl.standard = q
	}
	rl.mu.Unlock()

	// A Remaining header that is present but not a number says nothing
	// about exhaustion.
	if resp.StatusCode == http.StatusForbidden && remainingOK && q.Remaining == 0 {
		apiType := "non-search APIs"
		if isSearch {
			apiType = "search API"
		}
		mins := minutesUntil(q.ResetTime(), rl.now())
		unit := "minutes"
		if mins == 1 {
			unit = "minute"
		}
		rl.logger.Warnf("Rate limit exceeded for %s. Resets in %d %s.", apiType, mins, unit)
	}
}

// minutesUntil rounds the distance to t to whole minutes.
func minutesUntil(t, now time.Time) int64 {
	return int64(math.Round(t.Sub(now).Minutes()))
}

// headerInt parses an integer header. An absent or empty header is 0
// and ok; a value that does not parse is 0 and not ok.
func headerInt(h http.Header, key string) (n int64, ok bool) {
	v := strings.TrimSpace(h.Get(key))
	if v == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func headerValue(h http.Header, key string) int64 {
	n, _ := headerInt(h, key)
	return n
}
