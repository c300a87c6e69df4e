package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/aristath/papertrader/internal/domain"
)

const markdownHeader = `# Paper Trading Journal

Automated paper-trading record. Every strategy trades its own seed capital;
positions are liquidated when they fall through the strategy's stop-loss.

---

`

// MarkdownWriter appends journal entries to a Markdown file
type MarkdownWriter struct {
	path string
	mu   sync.Mutex
}

// NewMarkdownWriter creates a writer for path. The file is created with a
// header on first write.
func NewMarkdownWriter(path string) *MarkdownWriter {
	return &MarkdownWriter{path: path}
}

// Path returns the journal file location
func (w *MarkdownWriter) Path() string {
	return w.path
}

// WriteTrade appends a buy or sell entry. holdDays is only rendered for sells.
func (w *MarkdownWriter) WriteTrade(strategyID string, trade domain.Trade, holdDays *int) error {
	return w.append(RenderTrade(strategyID, trade, holdDays))
}

// WriteDaily appends an end-of-day entry
func (w *MarkdownWriter) WriteDaily(entry DailyEntry) error {
	return w.append(RenderDaily(entry))
}

// WriteReset appends a ledger reset marker
func (w *MarkdownWriter) WriteReset(strategyID string, seed int64, at time.Time) error {
	entry := fmt.Sprintf("## RESET | %s | %s\n\nLedger restored to seed capital of %s KRW.\n\n---\n\n",
		at.Format("2006-01-02 15:04"), strategyID, won(seed))
	return w.append(entry)
}

func (w *MarkdownWriter) append(entry string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	_, statErr := os.Stat(w.path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	if fresh {
		if _, err := f.WriteString(markdownHeader); err != nil {
			return fmt.Errorf("failed to write journal header: %w", err)
		}
	}
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	return nil
}

// RenderTrade formats one trade as a Markdown section
func RenderTrade(strategyID string, trade domain.Trade, holdDays *int) string {
	var b strings.Builder
	when := trade.Date.Format("2006-01-02 15:04")

	if trade.Type == domain.TradeTypeBuy {
		fmt.Fprintf(&b, "## BUY | %s | %s | %s (%s)\n\n", when, strategyID, trade.Name, trade.Ticker)
		b.WriteString("| Item | Value |\n|------|-------|\n")
		fmt.Fprintf(&b, "| Shares | %s |\n", humanize.Comma(trade.Shares))
		fmt.Fprintf(&b, "| Price | %s KRW |\n", won(trade.Price))
		fmt.Fprintf(&b, "| Amount | %s KRW |\n", won(trade.Amount))
		if trade.Reason != "" {
			fmt.Fprintf(&b, "\n### Reason\n%s\n", trade.Reason)
		}
		b.WriteString("\n---\n\n")
		return b.String()
	}

	fmt.Fprintf(&b, "## SELL | %s | %s | %s (%s)\n\n", when, strategyID, trade.Name, trade.Ticker)
	b.WriteString("| Item | Value |\n|------|-------|\n")
	fmt.Fprintf(&b, "| Shares | %s |\n", humanize.Comma(trade.Shares))
	fmt.Fprintf(&b, "| Price | %s KRW |\n", won(trade.Price))
	fmt.Fprintf(&b, "| Amount | %s KRW |\n", won(trade.Amount))
	if trade.Profit != nil {
		rate := 0.0
		if trade.ProfitRate != nil {
			rate = *trade.ProfitRate
		}
		fmt.Fprintf(&b, "| Realized | %s KRW (%s%%) |\n", signedWon(*trade.Profit), signed(rate))
	}
	hold := "-"
	if holdDays != nil {
		hold = fmt.Sprintf("%d days", *holdDays)
	}
	fmt.Fprintf(&b, "| Held | %s |\n", hold)
	fmt.Fprintf(&b, "\n### Reason\n%s\n", SellReason(trade.Reason))
	b.WriteString("\n---\n\n")
	return b.String()
}

// RenderDaily formats an end-of-day entry as a Markdown section
func RenderDaily(entry DailyEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## DAILY | %s\n\n", entry.Date.Format("2006-01-02"))
	b.WriteString("| Item | Amount |\n|------|--------|\n")
	fmt.Fprintf(&b, "| Seed | %s KRW |\n", won(entry.TotalSeed))
	fmt.Fprintf(&b, "| Total assets | %s KRW |\n", won(entry.TotalAssets))
	fmt.Fprintf(&b, "| Profit | %s KRW (%s%%) |\n", signedWon(float64(entry.OverallProfit)), signed(entry.OverallReturnPct))

	if len(entry.Strategies) > 0 {
		b.WriteString("\n| Rank | Strategy | Assets | Return | Holdings |\n|------|----------|--------|--------|----------|\n")
		for i, s := range entry.Strategies {
			fmt.Fprintf(&b, "| %d | %s | %s KRW | %s%% | %d |\n",
				i+1, s.Name, won(s.TotalAssets), signed(s.ReturnPct), s.Holdings)
		}
	}
	b.WriteString("\n---\n\n")
	return b.String()
}

// SellReason renders a recorded sell reason for humans
func SellReason(reason string) string {
	switch reason {
	case domain.ReasonStopLoss:
		return "Stop-loss triggered"
	case domain.ReasonRebalance:
		return "Rebalance"
	case domain.ReasonManual, "":
		return "Manual sell"
	default:
		return reason
	}
}

func won(v int64) string {
	return humanize.Comma(v)
}

func signedWon(v float64) string {
	n := int64(v)
	if n >= 0 {
		return "+" + humanize.Comma(n)
	}
	return humanize.Comma(n)
}

func signed(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.2f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
