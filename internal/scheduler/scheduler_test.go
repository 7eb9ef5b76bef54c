package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"StockForecaster/internal/calendar"
	"StockForecaster/internal/forecast"
	"StockForecaster/internal/notifier"
	"StockForecaster/internal/service"
	"StockForecaster/internal/watchlist"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeForecaster struct {
	mu    sync.Mutex
	calls []service.Request
	fail  map[string]bool
}

func (f *fakeForecaster) Forecast(_ context.Context, req service.Request) (*service.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.fail[req.Symbol] {
		return nil, errors.New("status 502: <html>bad gateway</html>")
	}
	return &service.Report{
		Symbol:    req.Symbol,
		Horizon:   req.Days,
		LastDate:  calendar.MustParse("2024-06-28"),
		LastClose: 10,
		Bundle: forecast.Bundle{
			forecast.LinearRegression: {Model: "Linear Regression"},
		},
	}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *fakeNotifier) Send(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return nil
}

func newTestScheduler(t *testing.T, fc *fakeForecaster, symbols ...string) (*Scheduler, *fakeNotifier, *watchlist.Store) {
	t.Helper()
	wl, err := watchlist.OpenFile(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { wl.Close() })
	n := &fakeNotifier{}
	return NewScheduler(context.Background(), fc, wl, n, symbols), n, wl
}

func TestDailyForecast_MergesWatchedAndConfigured(t *testing.T) {
	fc := &fakeForecaster{fail: map[string]bool{"BAD": true}}
	s, n, wl := newTestScheduler(t, fc, "msft", "AAPL", "BAD")
	ctx := context.Background()
	require.NoError(t, wl.Add(ctx, "chat-1", "aapl", ""))
	require.NoError(t, wl.Add(ctx, "chat-2", "NVDA", ""))

	s.RunDailyNow()

	var symbols []string
	for _, c := range fc.calls {
		symbols = append(symbols, c.Symbol)
	}
	assert.Equal(t, []string{"AAPL", "BAD", "MSFT", "NVDA"}, symbols)
	require.Len(t, n.sent, 4, "three digests and one failure summary")
	assert.Contains(t, n.sent[3], "BAD")
}

func TestRegister_RejectsBadSpec(t *testing.T) {
	s, _, _ := newTestScheduler(t, &fakeForecaster{})
	assert.Error(t, s.Register("not a cron"))
	assert.NoError(t, s.Register("0 0 22 * * 1-5"))
}

func TestHandleCommand_Forecast(t *testing.T) {
	fc := &fakeForecaster{}
	s, _, _ := newTestScheduler(t, fc)
	ctx := context.Background()

	reply := s.HandleCommand(ctx, notifier.Command{ChatID: "1", Text: "/forecast@MyBot tsla 15"})
	assert.Contains(t, reply, "<b>tsla</b> forecast")
	require.Len(t, fc.calls, 1)
	assert.Equal(t, 15, fc.calls[0].Days)

	assert.Contains(t, s.HandleCommand(ctx, notifier.Command{Text: "/forecast"}), "Usage")
	assert.Contains(t, s.HandleCommand(ctx, notifier.Command{Text: "/forecast AAPL soon"}), "Invalid days")

	fc.fail = map[string]bool{"X": true}
	assert.Contains(t, s.HandleCommand(ctx, notifier.Command{Text: "/forecast X"}), "failed")
}

func TestHandleCommand_Watchlist(t *testing.T) {
	s, _, _ := newTestScheduler(t, &fakeForecaster{})
	ctx := context.Background()
	cmd := func(text string) string {
		return s.HandleCommand(ctx, notifier.Command{ChatID: "77", Text: text})
	}

	assert.Contains(t, cmd("/watch aapl Apple Inc."), "Added AAPL")
	assert.Contains(t, cmd("/list"), "AAPL (Apple Inc.)")
	assert.Contains(t, cmd("/unwatch AAPL"), "Removed AAPL")
	assert.Contains(t, cmd("/unwatch AAPL"), "not in your watchlist")
	assert.Contains(t, cmd("/list"), "empty")
	assert.Contains(t, cmd("/watch"), "Usage")
}

func TestHandleCommand_EscapesReplies(t *testing.T) {
	fc := &fakeForecaster{fail: map[string]bool{"<x>": true}}
	s, _, _ := newTestScheduler(t, fc)
	ctx := context.Background()

	reply := s.HandleCommand(ctx, notifier.Command{ChatID: "5", Text: "/forecast <x>"})
	assert.Contains(t, reply, "&lt;X&gt;")
	assert.Contains(t, reply, "&lt;html&gt;bad gateway&lt;/html&gt;")
	assert.NotContains(t, reply, "<html>")

	reply = s.HandleCommand(ctx, notifier.Command{ChatID: "5", Text: "/watch <b>"})
	assert.Equal(t, "⭐ Added &lt;B&gt; to your watchlist.", reply)
	reply = s.HandleCommand(ctx, notifier.Command{ChatID: "5", Text: "/unwatch <b>"})
	assert.Equal(t, "Removed &lt;B&gt; from your watchlist.", reply)

	assert.Contains(t, s.HandleCommand(ctx, notifier.Command{Text: "/forecast AAPL <7>"}), "&lt;7&gt;")
}

func TestHandleCommand_Help(t *testing.T) {
	s, _, _ := newTestScheduler(t, &fakeForecaster{})
	assert.Equal(t, helpText, s.HandleCommand(context.Background(), notifier.Command{Text: "hello"}))
	assert.Equal(t, helpText, s.HandleCommand(context.Background(), notifier.Command{Text: "  "}))
}

func TestHandleCommand_NoWatchlist(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeForecaster{}, nil, &fakeNotifier{}, nil)
	assert.Contains(t, s.HandleCommand(context.Background(), notifier.Command{Text: "/list"}), "not available")
}
