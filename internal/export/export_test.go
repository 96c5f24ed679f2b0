package export

import (
	"bytes"
	"io"
	"testing"

	"github.com/segmentio/parquet-go"

	"github.com/callwarden/callwarden/internal/store"
)

func TestWriteAlerts(t *testing.T) {
	alerts := []store.StoredAlert{
		{
			ID:                 "alert-1",
			CallID:             "call-1",
			AgentID:            "agent-7",
			AgentName:          "Dana",
			RuleID:             "DNC-001",
			Title:              "Customer requested no further calls",
			Severity:           "high",
			Confidence:         90,
			Quote:              "stop calling me",
			StartChar:          7,
			EndChar:            22,
			WhyItMatters:       "Continuing after a do-not-call request violates the TCPA.",
			AgentFixSuggestion: "Confirm the request and end the call.",
			CreatedAt:          "2026-01-16T10:00:00Z",
		},
		{
			ID:         "alert-2",
			CallID:     "call-2",
			AgentID:    "agent-9",
			AgentName:  "Lee",
			RuleID:     "CONS-001",
			Severity:   "high",
			Confidence: 85,
			Quote:      "i revoke my consent",
			CreatedAt:  "2026-01-16T11:00:00Z",
		},
	}

	var buf bytes.Buffer
	if err := WriteAlerts(&buf, alerts); err != nil {
		t.Fatalf("WriteAlerts failed: %v", err)
	}

	reader := parquet.NewReader(bytes.NewReader(buf.Bytes()))
	defer reader.Close()

	var rows []AlertRecord
	for {
		var record AlertRecord
		err := reader.Read(&record)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Failed to read record: %v", err)
		}
		rows = append(rows, record)
	}

	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].RuleID != "DNC-001" || rows[0].Confidence != 90 {
		t.Errorf("Unexpected first row: %+v", rows[0])
	}
	if rows[1].ID != "alert-2" {
		t.Errorf("Unexpected second row: %+v", rows[1])
	}
}

func TestWriteAlertsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAlerts(&buf, nil); err != nil {
		t.Fatalf("WriteAlerts with no rows failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("Expected a valid parquet file even with no rows")
	}
}
