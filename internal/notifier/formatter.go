package notifier

import (
	"fmt"
	"math"
	"strings"
	"time"

	"BandTrader/internal/ledger"
	"BandTrader/internal/model"
)

// FormatStatusLine renders one instrument's cycle status for the log.
func FormatStatusLine(symbol string, bar model.Bar, snap model.IndicatorSnapshot, pos model.Position, action model.Action) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s close=%.2f", symbol, bar.Time.Format("2006-01-02 15:04"), bar.Close))
	if !snap.Ready {
		b.WriteString(" indicators warming up")
	} else {
		b.WriteString(fmt.Sprintf(" ma=%.2f upper=%.2f lower=%.2f rsi=%s",
			snap.MovingAverage, snap.UpperBand, snap.LowerBand, formatRSI(snap.RSI)))
	}
	b.WriteString(fmt.Sprintf(" state=%s", pos.State))
	if pos.IsLong() {
		b.WriteString(fmt.Sprintf(" entry=%.2f", pos.EntryPrice))
	}
	b.WriteString(fmt.Sprintf(" action=%s", action))
	return b.String()
}

func formatRSI(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", v)
}

// FormatTrade renders an executed trade and the balance after it.
func FormatTrade(trade model.Trade, capital float64) string {
	when := trade.Time.Format("2006-01-02 15:04")
	if trade.Kind == model.TradeSell {
		profit := 0.0
		if trade.Profit != nil {
			profit = *trade.Profit
		}
		return fmt.Sprintf("🔴 SELL %s at %.2f (%s) profit %+.2f, capital %.2f",
			trade.Instrument, trade.Price, when, profit, capital)
	}
	return fmt.Sprintf("🟢 BUY %s at %.2f (%s), capital %.2f", trade.Instrument, trade.Price, when, capital)
}

// FormatSummary renders the ledger for the shutdown report and /summary.
func FormatSummary(s ledger.Summary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>Trading summary</b> | %s\n\n", time.Now().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Initial capital: %.2f\n", s.InitialCapital))
	b.WriteString(fmt.Sprintf("Current capital: %.2f\n", s.Capital))
	b.WriteString(fmt.Sprintf("Total profit: %+.2f\n", s.TotalProfit))
	b.WriteString(fmt.Sprintf("Trades: %d\n", len(s.Trades)))
	for _, t := range s.Trades {
		b.WriteString(fmt.Sprintf("  %s %s %s at %.2f", t.Time.Format("2006-01-02 15:04"), t.Kind, t.Instrument, t.Price))
		if t.Profit != nil {
			b.WriteString(fmt.Sprintf(" (%+.2f)", *t.Profit))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatPositions renders the current position of each instrument.
func FormatPositions(positions []model.Position) string {
	if len(positions) == 0 {
		return "📦 No positions yet"
	}
	var b strings.Builder
	b.WriteString("📦 <b>Positions</b>\n\n")
	for _, p := range positions {
		if p.IsLong() {
			b.WriteString(fmt.Sprintf("%s: LONG since %s at %.2f\n", p.Instrument, p.OpenedAt.Format("2006-01-02 15:04"), p.EntryPrice))
			continue
		}
		b.WriteString(fmt.Sprintf("%s: FLAT\n", p.Instrument))
	}
	return b.String()
}

// FormatBacktestResult renders the transactions table of one simulation.
func FormatBacktestResult(symbol, riskLabel string, multiplier float64, txs []model.Transaction, totalProfit, totalReturn float64) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s (stop at %.0f%% of buy price)\n", symbol, riskLabel, multiplier*100))
	b.WriteString(fmt.Sprintf("%-10s %10s %-10s %10s %9s\n", "buy_date", "buy_price", "sell_date", "sell_price", "return%"))
	for _, t := range txs {
		b.WriteString(fmt.Sprintf("%-10s %10s %-10s %10s %9s\n",
			dateCell(t.BuyTime), priceCell(t.BuyPrice), dateCell(t.SellTime), priceCell(t.SellPrice), priceCell(t.ReturnPercent)))
	}
	b.WriteString(fmt.Sprintf("total profit %.2f, total return %.2f%%", totalProfit, totalReturn))
	return b.String()
}

func dateCell(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}

func priceCell(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
