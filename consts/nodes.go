package consts

const (
	// 对话循环节点
	AgentNode = "agent"
	ToolsNode = "tools"

	GraphName = "finreact_conversation"
)

const (
	// 行情与财报
	ToolGetStockData       = "get_stock_data"
	ToolGetBalanceSheet    = "get_balance_sheet"
	ToolGetIncomeStatement = "get_income_statement"

	// 搜索
	ToolWebSearch = "web_search"

	// 自选股与历史
	ToolGetUserFavorites      = "get_user_favorites"
	ToolAddFavoriteStock      = "add_favorite_stock"
	ToolRemoveFavoriteStock   = "remove_favorite_stock"
	ToolUpdateStockThresholds = "update_stock_thresholds"
	ToolGetQueryHistory       = "get_query_history"

	// 邮件
	ToolSendEmail = "send_email"
)
