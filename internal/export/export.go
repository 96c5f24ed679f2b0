// Package export writes stored alerts to Parquet for offline compliance
// review and warehouse ingestion.
package export

import (
	"fmt"
	"io"

	"github.com/segmentio/parquet-go"

	"github.com/callwarden/callwarden/internal/store"
)

// AlertRecord is the Parquet row schema for an exported alert
type AlertRecord struct {
	ID                 string `parquet:"id"`
	CallID             string `parquet:"call_id"`
	AgentID            string `parquet:"agent_id"`
	AgentName          string `parquet:"agent_name"`
	RuleID             string `parquet:"rule_id"`
	Title              string `parquet:"title"`
	Severity           string `parquet:"severity"`
	Confidence         int32  `parquet:"confidence"`
	Quote              string `parquet:"quote"`
	StartChar          int64  `parquet:"start_char"`
	EndChar            int64  `parquet:"end_char"`
	WhyItMatters       string `parquet:"why_it_matters"`
	AgentFixSuggestion string `parquet:"agent_fix_suggestion"`
	CreatedAt          string `parquet:"created_at"`
}

// WriteAlerts streams the alerts as one Parquet row group
func WriteAlerts(w io.Writer, alerts []store.StoredAlert) error {
	writer := parquet.NewWriter(w, parquet.SchemaOf(new(AlertRecord)))

	for i := range alerts {
		record := toRecord(&alerts[i])
		if err := writer.Write(&record); err != nil {
			return fmt.Errorf("failed to write alert %s: %w", alerts[i].ID, err)
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet output: %w", err)
	}

	return nil
}

func toRecord(a *store.StoredAlert) AlertRecord {
	return AlertRecord{
		ID:                 a.ID,
		CallID:             a.CallID,
		AgentID:            a.AgentID,
		AgentName:          a.AgentName,
		RuleID:             a.RuleID,
		Title:              a.Title,
		Severity:           a.Severity,
		Confidence:         int32(a.Confidence),
		Quote:              a.Quote,
		StartChar:          int64(a.StartChar),
		EndChar:            int64(a.EndChar),
		WhyItMatters:       a.WhyItMatters,
		AgentFixSuggestion: a.AgentFixSuggestion,
		CreatedAt:          a.CreatedAt,
	}
}
