package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketLens/internal/collector"
	"MarketLens/internal/model"
)

func newTestNotifier(t *testing.T, handler http.HandlerFunc) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tn := NewTelegramNotifier("TOKEN", "42", "")
	tn.APIBase = srv.URL
	tn.RetryBase = time.Millisecond
	return tn
}

func TestSend(t *testing.T) {
	var got map[string]string
	var path string
	tn := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})
	require.NoError(t, tn.Send(context.Background(), "<b>hi</b>"))
	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSendWithRetry(t *testing.T) {
	var calls atomic.Int32
	tn := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
		}
	})
	require.NoError(t, tn.SendWithRetry(context.Background(), "x", 3))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	var calls atomic.Int32
	tn := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})
	err := tn.SendWithRetry(context.Background(), "x", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 retries exhausted")
	assert.Equal(t, int32(3), calls.Load())
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	parts := splitMessage("aaaa\nbbbb\ncccc", 10)
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, parts)

	parts = splitMessage(strings.Repeat("x", 25), 10)
	require.Len(t, parts, 3)
	assert.Equal(t, strings.Repeat("x", 10), parts[0])
	assert.Equal(t, strings.Repeat("x", 5), parts[2])

	for _, p := range splitMessage(strings.Repeat("line ü\n", 2000), MessageLimit) {
		assert.LessOrEqual(t, len([]rune(p)), MessageLimit)
	}
}

func TestSendWithRetry_LongTextRetriesOnlyFailedPart(t *testing.T) {
	var mu sync.Mutex
	var texts []string
	failed := false
	tn := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		var got map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		mu.Lock()
		defer mu.Unlock()
		if len(texts) == 1 && !failed {
			failed = true
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		texts = append(texts, got["text"])
	})

	line := strings.Repeat("y", 99) + "\n"
	long := strings.Repeat(line, 60)
	require.NoError(t, tn.SendWithRetry(context.Background(), long, 2))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, texts, 2)
	assert.Equal(t, strings.TrimRight(long, "\n"), texts[0]+"\n"+texts[1])
}

func TestStartPolling_DispatchesCommands(t *testing.T) {
	var mu sync.Mutex
	var replies []string
	var served atomic.Int32
	tn := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if served.Add(1) == 1 {
				_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"text":" /watchlist "}},{"update_id":8}]}`))
				return
			}
			assert.Equal(t, "9", r.URL.Query().Get("offset"))
			<-r.Context().Done()
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var p map[string]string
			_ = json.NewDecoder(r.Body).Decode(&p)
			mu.Lock()
			replies = append(replies, p["text"])
			mu.Unlock()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tn.StartPolling(ctx, func(_ context.Context, cmd string) string { return "got " + cmd })
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(replies) == 1 && served.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, []string{"got /watchlist"}, replies)
}

func TestFormatDigest(t *testing.T) {
	d := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rep := &collector.Report{
		Symbols: []string{"AAPL", "TINY"},
		Start:   d.AddDate(0, -3, 0),
		End:     d,
		Window:  20,
		Series: map[string]*model.Series{
			"AAPL": {Symbol: "AAPL", Bars: []model.Bar{{Date: d.AddDate(0, 0, -1), High: 200, Low: 150, Close: 160}, {Date: d, High: 191, Low: 188, Close: 189.5}}},
			"TINY": {Symbol: "TINY"},
		},
		Indicators: map[string]*model.IndicatorSeries{
			"AAPL": {Symbol: "AAPL", Window: 20, Points: []model.IndicatorPoint{{Date: d, SMA: 185.2, EMA: 186.1, UpperBand: 195.4, LowerBand: 175, RSI: 72.3}}},
			"TINY": {Symbol: "TINY", Window: 20},
		},
		Returns: &model.AlignedReturns{
			Dates:  []time.Time{d},
			Series: map[string][]null.Float{"AAPL": {null.FloatFrom(0.1234)}, "TINY": {null.Float{}}},
		},
		Notes: []string{"TINY: insufficient data <3 bars>"},
	}
	msg := FormatDigest(rep, d.Add(9*time.Hour))
	assert.Contains(t, msg, "MarketLens digest</b> | 2024-05-01 09:00")
	assert.Contains(t, msg, "<b>AAPL</b> close 189.50")
	assert.Contains(t, msg, "52w range 150.00 .. 200.00 (at 79%)")
	assert.Contains(t, msg, "RSI 72.3 (overbought)")
	assert.Contains(t, msg, "Return +12.34%")
	assert.Contains(t, msg, "indicators: insufficient data")
	assert.Contains(t, msg, "&lt;3 bars&gt;")
}

func TestFormatFailure(t *testing.T) {
	msg := FormatFailure("watchlist refresh", errors.New("fetch failed <timeout>"))
	assert.Equal(t, "❌ <b>watchlist refresh failed</b>\nfetch failed &lt;timeout&gt;", msg)
}
