package store

// StoredAlert is an alert row joined with its call context
type StoredAlert struct {
	ID                 string `db:"id" json:"id"`
	CallID             string `db:"call_id" json:"call_id"`
	AgentID            string `db:"agent_id" json:"agent_id"`
	AgentName          string `db:"agent_name" json:"agent_name"`
	RuleID             string `db:"rule_id" json:"rule_id"`
	Title              string `db:"title" json:"title"`
	Severity           string `db:"severity" json:"severity"`
	Confidence         uint8  `db:"confidence" json:"confidence"`
	Quote              string `db:"quote" json:"quote"`
	StartChar          int    `db:"start_char" json:"start_char"`
	EndChar            int    `db:"end_char" json:"end_char"`
	WhyItMatters       string `db:"why_it_matters" json:"why_it_matters"`
	AgentFixSuggestion string `db:"agent_fix_suggestion" json:"agent_fix_suggestion"`
	CreatedAt          string `db:"created_at" json:"created_at"`
}

// AlertFilter narrows GetAlerts. Nil fields match everything.
type AlertFilter struct {
	StartDate *string
	EndDate   *string
	AgentID   *string
	Severity  *string
	RuleID    *string
	Limit     *int
	Offset    *int
}

// AnalyticsData is the aggregate view served by the analytics endpoint
type AnalyticsData struct {
	TotalCalls       int               `json:"total_calls"`
	TotalAlerts      int               `json:"total_alerts"`
	AlertsBySeverity AlertsBySeverity  `json:"alerts_by_severity"`
	AlertsByRule     []RuleAlertCount  `json:"alerts_by_rule"`
	AlertsByAgent    []AgentAlertCount `json:"alerts_by_agent"`
	DailyTrend       []DailyAlertCount `json:"daily_trend"`
}

// AlertsBySeverity counts alerts per severity level
type AlertsBySeverity struct {
	High   int `db:"high" json:"high"`
	Medium int `db:"medium" json:"medium"`
	Low    int `db:"low" json:"low"`
}

// RuleAlertCount counts alerts for a single rule
type RuleAlertCount struct {
	RuleID string `db:"rule_id" json:"rule_id"`
	Count  int    `db:"count" json:"count"`
}

// AgentAlertCount counts alerts for a single agent
type AgentAlertCount struct {
	AgentID   string `db:"agent_id" json:"agent_id"`
	AgentName string `db:"agent_name" json:"agent_name"`
	Count     int    `db:"count" json:"count"`
}

// DailyAlertCount is one point of the daily alert trend
type DailyAlertCount struct {
	Date  string `db:"date" json:"date"`
	Count int    `db:"count" json:"count"`
}
