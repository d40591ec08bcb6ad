package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block. Structured facts
// go in a PROPERTIES drawer; the Review heading is left for the trader.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Paper trade: %s %s (%s)\n", t.Pair, t.Direction, shortID(t.TradeID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":PAIR: %s\n", t.Pair)
	fmt.Fprintf(&b, ":DIRECTION: %s\n", t.Direction)
	fmt.Fprintf(&b, ":STRATEGY_TIER: %s\n", t.StrategyTier)
	fmt.Fprintf(&b, ":SESSION: %s\n", t.Session)
	fmt.Fprintf(&b, ":ENTRY: %.5f\n", t.Entry)
	fmt.Fprintf(&b, ":STOP_LOSS: %.5f\n", t.StopLoss)
	fmt.Fprintf(&b, ":TAKE_PROFIT: %.5f\n", t.TakeProfit)
	fmt.Fprintf(&b, ":CLOSE_PRICE: %.5f\n", t.ClosePrice)
	fmt.Fprintf(&b, ":OPEN_TIME: %s\n", t.OpenTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":CLOSE_TIME: %s\n", t.CloseTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":OUTCOME: %s\n", t.Outcome)
	fmt.Fprintf(&b, ":PNL_PIPS: %.1f\n", t.PnLPips)
	fmt.Fprintf(&b, ":REALIZED_RR: %.2f\n", t.RealizedRR)
	fmt.Fprintf(&b, ":REASON: %s\n", t.Reason)
	b.WriteString(":END:\n\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
