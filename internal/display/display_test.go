package display

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dyike/finreact/internal/digest"
	"github.com/dyike/finreact/internal/models"
)

func TestPrinterOutput(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	low := 150.0
	p.Favorites([]models.FavoriteStock{{Symbol: "AAPL", PriceThresholdLow: &low, AddedAt: time.Now()}})
	assert.Contains(t, buf.String(), "AAPL")
	assert.Contains(t, buf.String(), "150.00")

	buf.Reset()
	p.Answer("QQQ closed at 435.50", []string{"get_stock_data"}, 1500*time.Millisecond)
	assert.Contains(t, buf.String(), "QQQ closed at 435.50")
	assert.Contains(t, buf.String(), "get_stock_data")

	buf.Reset()
	p.DigestReport(&digest.Report{Date: "2024-03-02", Skipped: true})
	assert.Contains(t, buf.String(), "skipped")

	buf.Reset()
	p.Error(errors.New("boom"))
	assert.Contains(t, buf.String(), "boom")

	buf.Reset()
	p.History(nil)
	assert.Contains(t, buf.String(), "No queries yet.")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "a b", truncate("a\n  b", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
