package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dot-do/functions-gateway/internal/model"
)

type stubProvider struct {
	name    string
	replies []string
	errs    []error
	calls   int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Classify(ctx context.Context, name, description string, inputSchema any) (string, error) {
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return "", p.errs[i]
	}
	if i < len(p.replies) {
		return p.replies[i], nil
	}
	return p.replies[len(p.replies)-1], nil
}

func TestClassify_CacheIdentity(t *testing.T) {
	p := &stubProvider{name: "primary", replies: []string{`{"type":"code","confidence":0.9}`}}
	c, err := New([]Provider{p}, 10, 0)
	require.NoError(t, err)
	ctx := context.Background()

	first := c.Classify(ctx, "calculate_total", "sums numbers", map[string]any{"a": "number"})
	second := c.Classify(ctx, "calculate_total", "sums numbers", map[string]any{"a": "number"})

	require.Equal(t, first, second)
	require.Equal(t, 1, p.calls, "second call should be served from cache, not re-invoke the provider")
}

func TestClassify_DistinctSchemaDistinctEntries(t *testing.T) {
	p := &stubProvider{name: "primary", replies: []string{
		`{"type":"code","confidence":0.9}`,
		`{"type":"generative","confidence":0.7}`,
	}}
	c, err := New([]Provider{p}, 10, 0)
	require.NoError(t, err)
	ctx := context.Background()

	a := c.Classify(ctx, "fn", "desc", map[string]any{"x": "string"})
	b := c.Classify(ctx, "fn", "desc", map[string]any{"x": "number"})

	require.NotEqual(t, a.Type, b.Type)
	require.Equal(t, 2, p.calls)
	require.Equal(t, 2, c.CacheLen())
}

func TestClassify_FallsBackAcrossProviders(t *testing.T) {
	failing := &stubProvider{name: "flaky", errs: []error{errors.New("boom")}}
	ok := &stubProvider{name: "backup", replies: []string{`{"type":"agentic","confidence":0.8}`}}
	c, err := New([]Provider{failing, ok}, 10, 0)
	require.NoError(t, err)

	entry := c.Classify(context.Background(), "research_topic", "investigates a subject", nil)
	require.Equal(t, model.KindAgentic, entry.Type)
	require.Equal(t, "backup", entry.Provider)
}

func TestClassify_RetriesTransientThenSucceeds(t *testing.T) {
	p := &stubProvider{
		name:    "primary",
		errs:    []error{ErrTransient, nil},
		replies: []string{"", `{"type":"human","confidence":0.95}`},
	}
	c, err := New([]Provider{p}, 10, 2)
	require.NoError(t, err)

	entry := c.Classify(context.Background(), "approve_refund", "requires human sign-off", nil)
	require.Equal(t, model.KindHuman, entry.Type)
	require.Equal(t, 2, p.calls)
}

func TestClassify_AllProvidersFailUsesHeuristic(t *testing.T) {
	p := &stubProvider{name: "down", errs: []error{errors.New("unreachable")}}
	c, err := New([]Provider{p}, 10, 0)
	require.NoError(t, err)

	entry := c.Classify(context.Background(), "approve_payout", "needs manager approval", nil)
	require.Equal(t, model.KindHuman, entry.Type)
	require.Equal(t, "fallback", entry.Provider)
}

func TestNew_RejectsEmptyProviders(t *testing.T) {
	_, err := New(nil, 10, 0)
	require.Error(t, err)
}

func TestClear(t *testing.T) {
	p := &stubProvider{name: "primary", replies: []string{`{"type":"code","confidence":0.9}`}}
	c, err := New([]Provider{p}, 10, 0)
	require.NoError(t, err)

	c.Classify(context.Background(), "fn", "desc", nil)
	require.Equal(t, 1, c.CacheLen())

	c.Clear()
	require.Equal(t, 0, c.CacheLen())
}
