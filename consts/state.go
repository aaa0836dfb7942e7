package consts

const (
	QueryTypeMixed      = "mixed"
	QueryTypeDailyEmail = "daily_email"
	MaxFavoritesPerUser = 5
	DefaultHistoryLimit = 10
	DigestQueryText     = "Automated daily email sent"
	DigestResponseText  = "Daily email sent"
)

// DigestToolsUsed is recorded on the synthetic response logged after each digest.
var DigestToolsUsed = []string{"email", "stock_data", "news"}
