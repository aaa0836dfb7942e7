package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dyike/finreact/internal/models"
)

var separator = strings.Repeat("=", 50)

// Item is one favorite's section of a digest.
type Item struct {
	Symbol  string
	Quote   *models.StockQuote
	Err     string
	News    []string
	NewsErr string
	Alerts  []string
}

func Subject(date time.Time) string {
	return "Daily Stock Update for " + date.Format("2006-01-02")
}

// Format renders the plain-text digest body.
func Format(date time.Time, items []Item) string {
	var b strings.Builder
	b.WriteString("Good Evening!\n\n")
	fmt.Fprintf(&b, "Here is your daily stock update for %s:\n\n", date.Format("2006-01-02"))

	for _, it := range items {
		if it.Quote == nil {
			fmt.Fprintf(&b, "\n%s\n%s\nError: %s\n", separator, it.Symbol, it.Err)
			continue
		}
		q := it.Quote
		fmt.Fprintf(&b, "\n%s\n%s - %s\n%s\n", separator, q.Symbol, q.Date, separator)

		trend := "📉"
		if q.Change > 0 {
			trend = "📈"
		}
		fmt.Fprintf(&b, "Close: %.2f %s\n", q.Close, trend)
		fmt.Fprintf(&b, "Open: %.2f\n", q.Open)
		fmt.Fprintf(&b, "Change: %+.2f (%+.2f%%)\n", q.Change, q.ChangePercent)
		fmt.Fprintf(&b, "Volume: %s\n", humanize.Comma(q.Volume))

		if len(it.Alerts) > 0 {
			b.WriteString("\nAlerts:\n")
			b.WriteString(strings.Join(it.Alerts, "\n"))
			b.WriteString("\n")
		}

		b.WriteString("\nLatest News:\n")
		switch {
		case it.NewsErr != "":
			fmt.Fprintf(&b, "News unavailable: %s\n", it.NewsErr)
		case len(it.News) == 0:
			b.WriteString("No news found.\n")
		default:
			for i, line := range it.News {
				fmt.Fprintf(&b, "%d. %s\n", i+1, line)
			}
		}
	}

	fmt.Fprintf(&b, "\n%s\n", separator)
	b.WriteString("Have a great evening & keep on crushing it!\n")
	b.WriteString("Your Financial Agent")
	return b.String()
}
