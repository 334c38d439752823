package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rxtech-lab/sma-backtest/internal/types"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	gainStyle   = cellStyle.Foreground(lipgloss.Color("10"))
	lossStyle   = cellStyle.Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

var headers = []string{"Symbol", "Bars", "Total Return", "Max Drawdown", "Buy & Hold", "Buys", "Sells", "Skipped", "Final Value"}

// returnColumns are coloured by sign.
var returnColumns = map[int]bool{2: true, 4: true}

// WriteSummary prints one row per instrument that ran, followed by the
// instruments that were skipped and why.
func WriteSummary(w io.Writer, results []types.InstrumentResult) error {
	rows := [][]string{}

	var skipped, failed []types.InstrumentResult

	for _, result := range results {
		if result.Skipped {
			skipped = append(skipped, result)

			continue
		}

		if result.Err != nil {
			failed = append(failed, result)
		}

		rows = append(rows, summaryRow(result.Stats))
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Backtest summary"))
	b.WriteString("\n")

	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("No instrument was backtested."))
		b.WriteString("\n")
	} else {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers(headers...).
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}

				if returnColumns[col] && row >= 0 && row < len(rows) {
					return signStyle(rows[row][col])
				}

				return cellStyle
			})

		b.WriteString(t.String())
		b.WriteString("\n")
	}

	for _, result := range failed {
		fmt.Fprintf(&b, "%s %s: results not written: %v\n", lossStyle.UnsetPadding().Render("!"), result.Symbol, result.Err)
	}

	if len(skipped) > 0 {
		b.WriteString(titleStyle.Render("Skipped"))
		b.WriteString("\n")

		for _, result := range skipped {
			fmt.Fprintf(&b, "  %s: %v\n", result.Symbol, result.Err)
		}
	}

	_, err := io.WriteString(w, b.String())

	return err
}

func summaryRow(stats types.RunStats) []string {
	return []string{
		stats.Symbol,
		strconv.Itoa(stats.Bars),
		FormatPercent(stats.TotalReturn),
		FormatMoney(stats.MaxDrawdown),
		FormatPercent(stats.BuyAndHoldReturn),
		strconv.Itoa(stats.Trades.Buys),
		strconv.Itoa(stats.Trades.Sells),
		strconv.Itoa(stats.Trades.SkippedBuys + stats.Trades.SkippedSells),
		FormatMoney(stats.FinalValue),
	}
}

// FormatPercent renders a percentage with two decimals and an explicit sign.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

// FormatMoney renders a currency amount with two decimals.
func FormatMoney(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func signStyle(value string) lipgloss.Style {
	switch {
	case strings.HasPrefix(value, "+") && value != "+0.00%":
		return gainStyle
	case strings.HasPrefix(value, "-"):
		return lossStyle
	default:
		return cellStyle
	}
}
