package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/video-search-proxy/internal/config"
	"github.com/khoahotran/video-search-proxy/internal/domain/search"
	"github.com/khoahotran/video-search-proxy/pkg/apperror"
	"github.com/khoahotran/video-search-proxy/pkg/logger"
)

const (
	brandIndex   = "brand-idx"
	creatorIndex = "creator-idx"
)

// fakeSearcher replays a scripted sequence of outcomes per index.
type fakeSearcher struct {
	mu       sync.Mutex
	calls    map[string]int
	queries  []search.Query
	outcomes map[string][]outcome
}

type outcome struct {
	result *search.IndexResult
	err    error
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		calls:    make(map[string]int),
		outcomes: make(map[string][]outcome),
	}
}

func (f *fakeSearcher) on(indexID string, outs ...outcome) *fakeSearcher {
	f.outcomes[indexID] = outs
	return f
}

func (f *fakeSearcher) SearchIndex(ctx context.Context, indexID string, q search.Query) (*search.IndexResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := f.calls[indexID]
	f.calls[indexID] = n + 1
	f.queries = append(f.queries, q)

	outs := f.outcomes[indexID]
	if len(outs) == 0 {
		return &search.IndexResult{IndexID: indexID, PageInfo: json.RawMessage(`{}`)}, nil
	}
	if n >= len(outs) {
		n = len(outs) - 1
	}
	return outs[n].result, outs[n].err
}

func (f *fakeSearcher) callCount(indexID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[indexID]
}

func (f *fakeSearcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func ok(indexID, next string, scores ...float64) outcome {
	res := &search.IndexResult{IndexID: indexID, PageInfo: json.RawMessage(`{"total_results":` + strconv.Itoa(len(scores)) + `}`), NextPageToken: next}
	for i, s := range scores {
		res.Clips = append(res.Clips, search.Clip{
			VideoID:    indexID + "-v" + strconv.Itoa(i),
			Score:      s,
			Start:      float64(i),
			End:        float64(i) + 5,
			Confidence: "high",
		})
	}
	return outcome{result: res}
}

func fail(err error) outcome {
	return outcome{err: err}
}

func newUseCase(s search.Searcher) *SearchUseCase {
	return NewSearchUseCase(
		s,
		config.UpstreamConfig{APIKey: "key", BaseURL: "http://upstream"},
		config.IndexesConfig{Brand: brandIndex, Creator: creatorIndex},
		config.SearchConfig{DefaultPageLimit: 12, MaxRetries: 2, RetryDelay: 0},
		logger.NewNop(),
	)
}

func TestExecute_ScopeResolvesToIndexes(t *testing.T) {
	tests := []struct {
		scope       string
		wantBrand   int
		wantCreator int
	}{
		{"all", 1, 1},
		{"brand", 1, 0},
		{"creator", 0, 1},
	}

	for _, tc := range tests {
		t.Run(tc.scope, func(t *testing.T) {
			fake := newFakeSearcher()
			uc := newUseCase(fake)

			_, err := uc.Execute(context.Background(), SearchInput{Query: "red car", Scope: tc.scope})
			require.NoError(t, err)

			assert.Equal(t, tc.wantBrand, fake.callCount(brandIndex))
			assert.Equal(t, tc.wantCreator, fake.callCount(creatorIndex))
		})
	}
}

func TestExecute_DefaultsPaging(t *testing.T) {
	fake := newFakeSearcher()
	uc := newUseCase(fake)

	_, err := uc.Execute(context.Background(), SearchInput{Query: "  sunset  ", Scope: "brand"})
	require.NoError(t, err)

	require.Len(t, fake.queries, 1)
	assert.Equal(t, search.Query{Text: "sunset", Page: 1, PageLimit: 12}, fake.queries[0])
}

func TestExecute_MergesSortedAndTagged(t *testing.T) {
	fake := newFakeSearcher().
		on(brandIndex, ok(brandIndex, "", 0.4, 0.9, 0.7)).
		on(creatorIndex, ok(creatorIndex, "tok-2", 0.8, 0.4))
	uc := newUseCase(fake)

	out, err := uc.Execute(context.Background(), SearchInput{Query: "q", Scope: "all"})
	require.NoError(t, err)

	require.Len(t, out.Data, 5)
	for i := 0; i+1 < len(out.Data); i++ {
		assert.GreaterOrEqual(t, out.Data[i].Score, out.Data[i+1].Score)
	}
	for _, clip := range out.Data {
		assert.Contains(t, clip.VideoID, clip.IndexID+"-")
	}

	// equal scores keep brand-then-creator order
	assert.Equal(t, brandIndex, out.Data[3].IndexID)
	assert.Equal(t, creatorIndex, out.Data[4].IndexID)

	assert.True(t, out.HasMore)
	require.Contains(t, out.NextPageTokens, brandIndex)
	assert.Nil(t, out.NextPageTokens[brandIndex])
	require.NotNil(t, out.NextPageTokens[creatorIndex])
	assert.Equal(t, "tok-2", *out.NextPageTokens[creatorIndex])
	assert.JSONEq(t, `{"total_results":3}`, string(out.PageInfoByIndex[brandIndex]))
	assert.JSONEq(t, `{"total_results":2}`, string(out.PageInfoByIndex[creatorIndex]))
}

func TestExecute_NoNextTokenMeansNoMore(t *testing.T) {
	fake := newFakeSearcher().
		on(brandIndex, ok(brandIndex, "", 0.5)).
		on(creatorIndex, ok(creatorIndex, ""))
	uc := newUseCase(fake)

	out, err := uc.Execute(context.Background(), SearchInput{Query: "q", Scope: "all"})
	require.NoError(t, err)

	assert.False(t, out.HasMore)
	assert.Len(t, out.Data, 1)
	assert.Contains(t, out.PageInfoByIndex, creatorIndex)
}

func TestExecute_RetryIsTransparent(t *testing.T) {
	fake := newFakeSearcher().
		on(brandIndex,
			fail(apperror.NewUpstream(http.StatusInternalServerError, "oops")),
			ok(brandIndex, "", 0.6),
		)
	uc := newUseCase(fake)

	out, err := uc.Execute(context.Background(), SearchInput{Query: "q", Scope: "brand"})
	require.NoError(t, err)

	assert.Equal(t, 2, fake.callCount(brandIndex))
	assert.Len(t, out.Data, 1)
}

func TestExecute_RetriesExhaustedFailsWholeRequest(t *testing.T) {
	fake := newFakeSearcher().
		on(brandIndex, ok(brandIndex, "", 0.9)).
		on(creatorIndex, fail(apperror.NewUpstream(http.StatusInternalServerError, "down")))
	uc := newUseCase(fake)

	out, err := uc.Execute(context.Background(), SearchInput{Query: "q", Scope: "all"})
	require.Error(t, err)
	assert.Nil(t, out)

	assert.True(t, errors.Is(err, apperror.ErrUpstreamUnavailable))
	assert.Equal(t, http.StatusInternalServerError, apperror.ToHTTPStatus(err))
	assert.Equal(t, 3, fake.callCount(creatorIndex))
}

func TestExecute_NonRetryableStatusesFailFast(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantBase   error
		wantStatus int
	}{
		{"rate limited", apperror.NewRateLimited(""), apperror.ErrRateLimited, http.StatusTooManyRequests},
		{"unauthorized", apperror.NewUnauthorized(""), apperror.ErrUnauthorized, http.StatusUnauthorized},
		{"other status", apperror.NewUpstream(http.StatusBadRequest, "bad index"), apperror.ErrUpstream, http.StatusBadRequest},
		{"transport", apperror.NewInternal("failed to reach", errors.New("dial tcp")), apperror.ErrInternal, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := newFakeSearcher().on(brandIndex, fail(tc.err))
			uc := newUseCase(fake)

			_, err := uc.Execute(context.Background(), SearchInput{Query: "q", Scope: "brand"})
			require.Error(t, err)

			assert.True(t, errors.Is(err, tc.wantBase))
			assert.Equal(t, tc.wantStatus, apperror.ToHTTPStatus(err))
			assert.Equal(t, 1, fake.callCount(brandIndex))
		})
	}
}

func TestExecute_ValidationIssuesNoCalls(t *testing.T) {
	tests := []struct {
		name  string
		input SearchInput
	}{
		{"invalid scope", SearchInput{Query: "q", Scope: "invalid"}},
		{"missing scope", SearchInput{Query: "q"}},
		{"empty query", SearchInput{Query: "   ", Scope: "all"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := newFakeSearcher()
			uc := newUseCase(fake)

			_, err := uc.Execute(context.Background(), tc.input)
			require.Error(t, err)

			assert.True(t, errors.Is(err, apperror.ErrInvalidInput))
			assert.Equal(t, http.StatusBadRequest, apperror.ToHTTPStatus(err))
			assert.Zero(t, fake.totalCalls())
		})
	}
}

func TestExecute_MissingConfiguration(t *testing.T) {
	tests := []struct {
		name     string
		upstream config.UpstreamConfig
		indexes  config.IndexesConfig
		scope    string
	}{
		{"no api key", config.UpstreamConfig{BaseURL: "http://u"}, config.IndexesConfig{Brand: "b", Creator: "c"}, "brand"},
		{"no base url", config.UpstreamConfig{APIKey: "k"}, config.IndexesConfig{Brand: "b", Creator: "c"}, "brand"},
		{"no creator index", config.UpstreamConfig{APIKey: "k", BaseURL: "http://u"}, config.IndexesConfig{Brand: "b"}, "all"},
		{"no brand index", config.UpstreamConfig{APIKey: "k", BaseURL: "http://u"}, config.IndexesConfig{Creator: "c"}, "brand"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := newFakeSearcher()
			uc := NewSearchUseCase(fake, tc.upstream, tc.indexes, config.SearchConfig{}, logger.NewNop())

			_, err := uc.Execute(context.Background(), SearchInput{Query: "q", Scope: tc.scope})
			require.Error(t, err)

			assert.True(t, errors.Is(err, apperror.ErrConfiguration))
			assert.Equal(t, http.StatusInternalServerError, apperror.ToHTTPStatus(err))
			assert.Zero(t, fake.totalCalls())
		})
	}
}

func TestExecute_BackoffGrowsLinearly(t *testing.T) {
	fake := newFakeSearcher().
		on(brandIndex, fail(apperror.NewUpstream(http.StatusInternalServerError, "down")))
	uc := NewSearchUseCase(
		fake,
		config.UpstreamConfig{APIKey: "key", BaseURL: "http://upstream"},
		config.IndexesConfig{Brand: brandIndex, Creator: creatorIndex},
		config.SearchConfig{DefaultPageLimit: 12, MaxRetries: 2, RetryDelay: 100 * time.Millisecond},
		logger.NewNop(),
	)

	var waits []time.Duration
	uc.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	_, err := uc.Execute(context.Background(), SearchInput{Query: "q", Scope: "brand"})
	require.Error(t, err)

	assert.True(t, errors.Is(err, apperror.ErrUpstreamUnavailable))
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, waits)
	assert.Equal(t, 3, fake.callCount(brandIndex))
}

func TestExecute_FirstFailureCancelsSibling(t *testing.T) {
	fake := newFakeSearcher().
		on(brandIndex, fail(apperror.NewRateLimited(""))).
		on(creatorIndex, fail(apperror.NewUpstream(http.StatusInternalServerError, "down")))
	uc := NewSearchUseCase(
		fake,
		config.UpstreamConfig{APIKey: "key", BaseURL: "http://upstream"},
		config.IndexesConfig{Brand: brandIndex, Creator: creatorIndex},
		config.SearchConfig{DefaultPageLimit: 12, MaxRetries: 2, RetryDelay: time.Second},
		logger.NewNop(),
	)

	start := time.Now()
	_, err := uc.Execute(context.Background(), SearchInput{Query: "q", Scope: "all"})
	elapsed := time.Since(start)
	require.Error(t, err)

	assert.True(t, errors.Is(err, apperror.ErrRateLimited))
	assert.Equal(t, http.StatusTooManyRequests, apperror.ToHTTPStatus(err))
	assert.LessOrEqual(t, fake.callCount(creatorIndex), 1)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestExecute_SharedIndexSearchedOnce(t *testing.T) {
	fake := newFakeSearcher().on("shared-idx", ok("shared-idx", "", 0.7))
	uc := NewSearchUseCase(
		fake,
		config.UpstreamConfig{APIKey: "key", BaseURL: "http://upstream"},
		config.IndexesConfig{Brand: "shared-idx", Creator: "shared-idx"},
		config.SearchConfig{},
		logger.NewNop(),
	)

	out, err := uc.Execute(context.Background(), SearchInput{Query: "q", Scope: "all"})
	require.NoError(t, err)

	assert.Equal(t, 1, fake.callCount("shared-idx"))
	assert.Len(t, out.Data, 1)
	assert.Len(t, out.PageInfoByIndex, 1)
}

func TestSleep_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMerge_EmptyInput(t *testing.T) {
	out := Merge(nil)

	assert.NotNil(t, out.Data)
	assert.Empty(t, out.Data)
	assert.False(t, out.HasMore)
	assert.Empty(t, out.NextPageTokens)
}
