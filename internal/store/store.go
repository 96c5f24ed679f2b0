package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/callwarden/callwarden/internal/config"
	"github.com/callwarden/callwarden/internal/engine"
	"github.com/callwarden/callwarden/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS calls (
	call_id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL,
	agent_name TEXT NOT NULL,
	call_start_time TEXT NOT NULL,
	call_end_time TIMESTAMPTZ,
	caller_timezone TEXT,
	is_dnc_listed BOOLEAN NOT NULL DEFAULT FALSE,
	has_prior_consent BOOLEAN NOT NULL DEFAULT FALSE,
	is_prerecorded BOOLEAN NOT NULL DEFAULT FALSE,
	call_type TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS alerts (
	id TEXT PRIMARY KEY,
	call_id TEXT NOT NULL REFERENCES calls(call_id),
	agent_id TEXT NOT NULL,
	agent_name TEXT NOT NULL,
	rule_id TEXT NOT NULL,
	title TEXT NOT NULL,
	severity TEXT NOT NULL,
	confidence SMALLINT NOT NULL,
	quote TEXT NOT NULL,
	start_char INTEGER NOT NULL,
	end_char INTEGER NOT NULL,
	why_it_matters TEXT NOT NULL,
	agent_fix_suggestion TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_alerts_call_id ON alerts(call_id);
CREATE INDEX IF NOT EXISTS idx_alerts_agent_id ON alerts(agent_id);
CREATE INDEX IF NOT EXISTS idx_alerts_severity ON alerts(severity);
CREATE INDEX IF NOT EXISTS idx_alerts_rule_id ON alerts(rule_id);
CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at);
`

// Store persists call sessions and alerts in PostgreSQL
type Store struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// New connects to PostgreSQL, configures the connection pool, and ensures
// the schema exists.
func New(cfg *config.DatabaseConfig, log *logger.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	s := &Store{db: db, logger: log.WithComponent("store")}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	s.logger.Info("Alert store initialized",
		zap.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))

	return s, nil
}

func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close releases the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// StartCallSession records the call row when a session begins. Restarting an
// existing call updates its metadata in place.
func (s *Store) StartCallSession(ctx context.Context, metadata engine.CallMetadata) error {
	query := `
		INSERT INTO calls (call_id, agent_id, agent_name, call_start_time, caller_timezone,
			is_dnc_listed, has_prior_consent, is_prerecorded, call_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (call_id) DO UPDATE SET
			agent_id = EXCLUDED.agent_id,
			agent_name = EXCLUDED.agent_name,
			call_start_time = EXCLUDED.call_start_time,
			caller_timezone = EXCLUDED.caller_timezone,
			is_dnc_listed = EXCLUDED.is_dnc_listed,
			has_prior_consent = EXCLUDED.has_prior_consent,
			is_prerecorded = EXCLUDED.is_prerecorded,
			call_type = EXCLUDED.call_type,
			call_end_time = NULL`

	_, err := s.db.ExecContext(ctx, query,
		metadata.CallID,
		metadata.AgentID,
		metadata.AgentName,
		metadata.CallStartTime,
		metadata.CallerTimezone,
		metadata.IsDNCListed,
		metadata.HasPriorConsent,
		metadata.IsPrerecorded,
		metadata.CallType,
	)
	if err != nil {
		s.logger.Error("Failed to record call session",
			zap.Error(err),
			zap.String("call_id", metadata.CallID))
		return fmt.Errorf("failed to record call session: %w", err)
	}

	return nil
}

// EndCallSession stamps the call's end time
func (s *Store) EndCallSession(ctx context.Context, callID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE calls SET call_end_time = NOW() WHERE call_id = $1", callID)
	if err != nil {
		return fmt.Errorf("failed to end call session: %w", err)
	}
	return nil
}

// InsertAlert persists one alert with its call context
func (s *Store) InsertAlert(ctx context.Context, alert engine.Alert, metadata engine.CallMetadata) error {
	query := `
		INSERT INTO alerts (id, call_id, agent_id, agent_name, rule_id, title, severity,
			confidence, quote, start_char, end_char, why_it_matters, agent_fix_suggestion)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.db.ExecContext(ctx, query,
		alert.ID,
		metadata.CallID,
		metadata.AgentID,
		metadata.AgentName,
		alert.RuleID,
		alert.Title,
		alert.Severity,
		alert.Confidence,
		alert.Evidence.Quote,
		alert.Evidence.StartChar,
		alert.Evidence.EndChar,
		alert.WhyItMatters,
		alert.AgentFixSuggestion,
	)
	if err != nil {
		s.logger.Error("Failed to insert alert",
			zap.Error(err),
			zap.String("alert_id", alert.ID),
			zap.String("rule_id", alert.RuleID))
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	s.logger.Debug("Alert persisted",
		zap.String("alert_id", alert.ID),
		zap.String("rule_id", alert.RuleID))

	return nil
}

// GetAlerts returns stored alerts matching the filter, newest first
func (s *Store) GetAlerts(ctx context.Context, filter AlertFilter) ([]StoredAlert, error) {
	var b strings.Builder
	b.WriteString(`SELECT id, call_id, agent_id, agent_name, rule_id, title, severity,
		confidence, quote, start_char, end_char, why_it_matters, agent_fix_suggestion,
		to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SSZ') AS created_at
		FROM alerts WHERE 1=1`)

	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.StartDate != nil {
		b.WriteString(" AND created_at >= " + arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		b.WriteString(" AND created_at <= " + arg(*filter.EndDate))
	}
	if filter.AgentID != nil {
		b.WriteString(" AND agent_id = " + arg(*filter.AgentID))
	}
	if filter.Severity != nil {
		b.WriteString(" AND severity = " + arg(*filter.Severity))
	}
	if filter.RuleID != nil {
		b.WriteString(" AND rule_id = " + arg(*filter.RuleID))
	}

	b.WriteString(" ORDER BY created_at DESC")

	if filter.Limit != nil {
		b.WriteString(" LIMIT " + arg(*filter.Limit))
	}
	if filter.Offset != nil {
		b.WriteString(" OFFSET " + arg(*filter.Offset))
	}

	alerts := []StoredAlert{}
	if err := s.db.SelectContext(ctx, &alerts, b.String(), args...); err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}

	return alerts, nil
}

// Analytics aggregates call and alert counts over a date range
func (s *Store) Analytics(ctx context.Context, startDate, endDate string) (*AnalyticsData, error) {
	data := &AnalyticsData{
		AlertsByRule:  []RuleAlertCount{},
		AlertsByAgent: []AgentAlertCount{},
		DailyTrend:    []DailyAlertCount{},
	}

	err := s.db.GetContext(ctx, &data.TotalCalls,
		"SELECT COUNT(*) FROM calls WHERE created_at >= $1 AND created_at <= $2",
		startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to count calls: %w", err)
	}

	err = s.db.GetContext(ctx, &data.TotalAlerts,
		"SELECT COUNT(*) FROM alerts WHERE created_at >= $1 AND created_at <= $2",
		startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}

	severityQuery := `
		SELECT
			COUNT(*) FILTER (WHERE severity = 'high') AS high,
			COUNT(*) FILTER (WHERE severity = 'medium') AS medium,
			COUNT(*) FILTER (WHERE severity = 'low') AS low
		FROM alerts WHERE created_at >= $1 AND created_at <= $2`
	if err := s.db.GetContext(ctx, &data.AlertsBySeverity, severityQuery, startDate, endDate); err != nil {
		return nil, fmt.Errorf("failed to count alerts by severity: %w", err)
	}

	ruleQuery := `
		SELECT rule_id, COUNT(*) AS count FROM alerts
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY rule_id ORDER BY count DESC`
	if err := s.db.SelectContext(ctx, &data.AlertsByRule, ruleQuery, startDate, endDate); err != nil {
		return nil, fmt.Errorf("failed to count alerts by rule: %w", err)
	}

	agentQuery := `
		SELECT agent_id, agent_name, COUNT(*) AS count FROM alerts
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY agent_id, agent_name ORDER BY count DESC`
	if err := s.db.SelectContext(ctx, &data.AlertsByAgent, agentQuery, startDate, endDate); err != nil {
		return nil, fmt.Errorf("failed to count alerts by agent: %w", err)
	}

	trendQuery := `
		SELECT to_char(DATE(created_at), 'YYYY-MM-DD') AS date, COUNT(*) AS count FROM alerts
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY DATE(created_at) ORDER BY date`
	if err := s.db.SelectContext(ctx, &data.DailyTrend, trendQuery, startDate, endDate); err != nil {
		return nil, fmt.Errorf("failed to build daily trend: %w", err)
	}

	return data, nil
}

// maskDatabaseURL hides credentials when logging connection strings
func maskDatabaseURL(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "invalid-url"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.String()
}
