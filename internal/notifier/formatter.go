package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"MarketLens/internal/calculator"
	"MarketLens/internal/collector"
	"MarketLens/internal/model"
	"MarketLens/internal/presenter"
)

const tradingYear = 252

// FormatDigest formats a watchlist report into a Telegram message.
func FormatDigest(rep *collector.Report, at time.Time) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>MarketLens digest</b> | %s\n", at.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Range: %s .. %s | window %d\n",
		rep.Start.Format(model.DateLayout), rep.End.Format(model.DateLayout), rep.Window))

	for _, sym := range rep.Symbols {
		b.WriteString(fmt.Sprintf("\n<b>%s</b>", html.EscapeString(sym)))
		s := rep.Series[sym]
		if s.Len() > 0 {
			b.WriteString(fmt.Sprintf(" close %.2f", s.Bars[s.Len()-1].Close))
		}
		b.WriteString("\n")
		if line := rangeLine(s); line != "" {
			b.WriteString(line)
		}

		p, ok := rep.Indicators[sym].Last()
		if !ok {
			b.WriteString("  indicators: insufficient data\n")
		} else {
			b.WriteString(fmt.Sprintf("  SMA %.2f | EMA %.2f\n", p.SMA, p.EMA))
			b.WriteString(fmt.Sprintf("  Bands %.2f .. %.2f\n", p.LowerBand, p.UpperBand))
			b.WriteString(fmt.Sprintf("  RSI %.1f%s\n", p.RSI, rsiLabel(p.RSI)))
		}
		if r, ok := lastReturn(rep.Returns, sym); ok {
			b.WriteString(fmt.Sprintf("  Return %s\n", presenter.Percent(r)))
		}
	}

	if len(rep.Notes) > 0 {
		b.WriteString("\n⚠️ <b>Notes</b>\n")
		for _, n := range rep.Notes {
			b.WriteString("• " + html.EscapeString(n) + "\n")
		}
	}
	return b.String()
}

// FormatFailure formats a refresh error.
func FormatFailure(task string, err error) string {
	return fmt.Sprintf("❌ <b>%s failed</b>\n%s", html.EscapeString(task), html.EscapeString(err.Error()))
}

// rangeLine shows where the last close sits inside the trailing one-year high/low.
func rangeLine(s *model.Series) string {
	if s.Len() == 0 {
		return ""
	}
	high, low, err := calculator.CalculateRange(s.Bars, tradingYear)
	if err != nil {
		return ""
	}
	pos, err := calculator.CalculatePosition(s.Bars[s.Len()-1].Close, high, low)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("  52w range %.2f .. %.2f (at %.0f%%)\n", low, high, pos*100)
}

func rsiLabel(rsi float64) string {
	switch {
	case rsi >= 70:
		return " (overbought)"
	case rsi <= 30:
		return " (oversold)"
	default:
		return ""
	}
}

func lastReturn(r *model.AlignedReturns, sym string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	vals := r.Series[sym]
	for i := len(vals) - 1; i >= 0; i-- {
		if vals[i].Valid {
			return vals[i].Float64, true
		}
	}
	return 0, false
}
