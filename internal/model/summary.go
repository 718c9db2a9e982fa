package model

// SummaryReport is the derived, per-user board statistics.
type SummaryReport struct {
	TotalCards      int             `json:"total_cards"`
	CompletedCards  int             `json:"completed_cards"`
	PendingCards    int             `json:"pending_cards"`
	OverdueCards    int             `json:"overdue_cards"`
	CardsByList     []ListBreakdown `json:"cards_by_list"`
	CompletionTrend []TrendPoint    `json:"completion_trend"`
}

// ListBreakdown counts cards of one list. Empty lists report zeros.
type ListBreakdown struct {
	ListID    uint64 `json:"list_id"`
	Name      string `json:"name"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
}

// TrendPoint is the number of cards completed on one day. Days without
// completions are not reported.
type TrendPoint struct {
	Date      Date `json:"date"`
	Completed int  `json:"completed"`
}
