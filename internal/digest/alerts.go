package digest

import (
	"fmt"

	"github.com/dyike/finreact/internal/models"
)

// CheckAlerts evaluates both thresholds independently against the close.
// Unset thresholds never fire; a threshold of zero or below counts as unset.
func CheckAlerts(q *models.StockQuote, fav models.FavoriteStock) []string {
	if q == nil {
		return nil
	}
	var alerts []string
	if low := fav.PriceThresholdLow; isSet(low) && q.Close <= *low {
		alerts = append(alerts, fmt.Sprintf("PRICE DROPPED: %s closed at %.2f, below your low threshold of %.2f.", q.Symbol, q.Close, *low))
	}
	if high := fav.PriceThresholdHigh; isSet(high) && q.Close >= *high {
		alerts = append(alerts, fmt.Sprintf("PRICE ROSE: %s closed at %.2f, above your high threshold of %.2f.", q.Symbol, q.Close, *high))
	}
	return alerts
}

func isSet(threshold *float64) bool {
	return threshold != nil && *threshold > 0
}
