package backtest

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"time"
)

// WriteTransactionsCSV writes one row per transaction. Missing sides and
// returns are written as empty cells.
func WriteTransactionsCSV(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"buy_date", "buy_price", "sell_date", "sell_price", "return_pct"}); err != nil {
		return err
	}
	for _, t := range res.Transactions {
		row := []string{fmtTime(t.BuyTime), fmtFloat(t.BuyPrice), fmtTime(t.SellTime), fmtFloat(t.SellPrice), fmtFloat(t.ReturnPercent)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func fmtFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}

type summaryRow struct {
	RunID              string  `json:"run_id"`
	Symbol             string  `json:"symbol"`
	RiskLabel          string  `json:"risk_label"`
	RiskMultiplier     float64 `json:"risk_multiplier"`
	Start              string  `json:"start"`
	End                string  `json:"end"`
	Trades             int     `json:"trades"`
	OpenAtEnd          bool    `json:"open_at_end"`
	TotalProfit        float64 `json:"total_profit"`
	TotalReturnPercent float64 `json:"total_return_percent"`
}

// WriteSummaryJSON writes one summary row per result to path. It is a report
// only and is never read back.
func WriteSummaryJSON(path string, results []*Result) error {
	rows := make([]summaryRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, summaryRow{
			RunID:              r.RunID,
			Symbol:             r.Symbol,
			RiskLabel:          r.RiskLabel,
			RiskMultiplier:     r.RiskMultiplier,
			Start:              r.Start.Format(time.DateOnly),
			End:                r.End.Format(time.DateOnly),
			Trades:             len(r.Trades),
			OpenAtEnd:          r.FinalPosition.IsLong(),
			TotalProfit:        r.TotalProfit,
			TotalReturnPercent: r.TotalReturnPercent,
		})
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
