package ledger

import (
	"github.com/shopspring/decimal"

	"BandTrader/internal/model"
)

// Returns aggregates a backtest's transactions.
type Returns struct {
	Transactions       []model.Transaction
	TotalProfit        float64
	TotalReturnPercent float64
}

// BuildTransactions pairs the i-th buy with the i-th sell. When the counts
// differ the unmatched side is kept with a nil counterpart.
func BuildTransactions(trades []model.Trade) []model.Transaction {
	var buys, sells []model.Trade
	for _, t := range trades {
		if t.Kind == model.TradeBuy {
			buys = append(buys, t)
		} else {
			sells = append(sells, t)
		}
	}

	n := max(len(buys), len(sells))
	out := make([]model.Transaction, n)
	for i := 0; i < n; i++ {
		if i < len(buys) {
			ts, px := buys[i].Time, buys[i].Price
			out[i].BuyTime, out[i].BuyPrice = &ts, &px
		}
		if i < len(sells) {
			ts, px := sells[i].Time, sells[i].Price
			out[i].SellTime, out[i].SellPrice = &ts, &px
		}
	}
	return out
}

// ComputeReturns fills ReturnPercent for each completed transaction and
// computes the totals over completed transactions only. The total return is
// 0 when nothing was bought.
func ComputeReturns(txs []model.Transaction) Returns {
	var sumBuy, sumSell decimal.Decimal
	out := make([]model.Transaction, len(txs))
	for i, tx := range txs {
		out[i] = tx
		out[i].ReturnPercent = nil
		if !tx.Completed() || *tx.BuyPrice == 0 {
			continue
		}
		buy := decimal.NewFromFloat(*tx.BuyPrice)
		sell := decimal.NewFromFloat(*tx.SellPrice)
		sumBuy = sumBuy.Add(buy)
		sumSell = sumSell.Add(sell)

		r := sell.Sub(buy).Div(buy).Mul(decimal.NewFromInt(100)).InexactFloat64()
		out[i].ReturnPercent = &r
	}

	res := Returns{Transactions: out}
	profit := sumSell.Sub(sumBuy)
	res.TotalProfit = profit.InexactFloat64()
	if sumBuy.IsPositive() {
		res.TotalReturnPercent = profit.Div(sumBuy).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	return res
}
