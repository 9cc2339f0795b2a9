package approval

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"apflow-mcp/internal/store"
)

func newTestPredictor(ledger *fakeLedger, team *fakeDirectory) *TimelinePredictor {
	return NewTimelinePredictor(DefaultTables(), ledger, team, time.Second)
}

func TestPredictNoHistoryUsesBaseline(t *testing.T) {
	p := newTestPredictor(&fakeLedger{}, &fakeDirectory{})
	report, err := p.Predict(context.Background(), "proj-1", RFI, "", nil)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if report.PredictedHours != 24 {
		t.Errorf("RFI baseline = %f, want 24", report.PredictedHours)
	}
	if report.ConfidencePercentage != 30 {
		t.Errorf("No-history confidence = %d, want 30", report.ConfidencePercentage)
	}
	if report.ConfidenceLevel != "low" {
		t.Errorf("Confidence level = %s, want low", report.ConfidenceLevel)
	}
}

func TestPredictHistoryDrivesEstimate(t *testing.T) {
	ledger := &fakeLedger{}
	for i := 0; i < 4; i++ {
		ledger.recent = append(ledger.recent, completedRecord("invoice", 30, "approved", 0))
	}

	p := newTestPredictor(ledger, &fakeDirectory{})
	report, err := p.Predict(context.Background(), "proj-1", Invoice, "", nil)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if report.PredictedHours != 30 {
		t.Errorf("Predicted = %f, want historical average 30", report.PredictedHours)
	}
	// 30 base + 4 similar * 5 + 15 stage data.
	if report.ConfidencePercentage != 65 {
		t.Errorf("Confidence = %d, want 65", report.ConfidencePercentage)
	}
	if report.ConfidenceLevel != "medium" {
		t.Errorf("Confidence level = %s, want medium", report.ConfidenceLevel)
	}
}

func TestPredictAssigneeBlending(t *testing.T) {
	ledger := &fakeLedger{byAssignee: map[string][]store.WorkflowRecord{
		"u1": {
			completedRecord("invoice", 12, "approved", 0),
			completedRecord("invoice", 12, "approved", 0),
		},
	}}
	for i := 0; i < 4; i++ {
		ledger.recent = append(ledger.recent, completedRecord("invoice", 40, "approved", 0))
	}

	p := newTestPredictor(ledger, &fakeDirectory{})
	report, err := p.Predict(context.Background(), "proj-1", Invoice, "u1", nil)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	// (40 + 12) / 2
	if report.PredictedHours != 26 {
		t.Errorf("Blended prediction = %f, want 26", report.PredictedHours)
	}
	// 30 + 20 similar + 15 assignee + 15 stage data.
	if report.ConfidencePercentage != 80 {
		t.Errorf("Confidence = %d, want 80", report.ConfidencePercentage)
	}
	if report.ConfidenceLevel != "high" {
		t.Errorf("Confidence level = %s, want high", report.ConfidenceLevel)
	}

	var sawSpeedup bool
	for _, f := range report.RiskFactors {
		if f.Impact == "speed_up" {
			sawSpeedup = true
		}
	}
	if !sawSpeedup {
		t.Errorf("Fast assignee should surface a speed_up factor, got %+v", report.RiskFactors)
	}
}

func TestPredictDelaysStack(t *testing.T) {
	ledger := &fakeLedger{byAssignee: map[string][]store.WorkflowRecord{}}
	team := &fakeDirectory{pending: map[string]int{"u1": 8}}
	value := 80000.0

	p := newTestPredictor(ledger, team)
	report, err := p.Predict(context.Background(), "proj-1", ChangeOrder, "u1", &value)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	// 72h baseline + 12h workload + 24h high value.
	if report.PredictedHours != 108 {
		t.Errorf("Predicted = %f, want 108", report.PredictedHours)
	}
	var sawWorkload, sawValue bool
	for _, f := range report.RiskFactors {
		if f.Impact != "delay" {
			continue
		}
		if f.HoursDelta == 12 {
			sawWorkload = true
		}
		if f.HoursDelta == 24 {
			sawValue = true
		}
	}
	if !sawWorkload || !sawValue {
		t.Errorf("Expected workload and value delay factors, got %+v", report.RiskFactors)
	}

	var sawEscalationRec, sawPreApprovalRec bool
	for _, r := range report.Recommendations {
		if strings.Contains(r, "workload is high") {
			sawEscalationRec = true
		}
		if strings.Contains(r, "pre-approval discussion") {
			sawPreApprovalRec = true
		}
	}
	if !sawEscalationRec || !sawPreApprovalRec {
		t.Errorf("Missing recommendations: %v", report.Recommendations)
	}
}

func TestPredictBreakdownSumsToTotal(t *testing.T) {
	ledger := &fakeLedger{}
	for i := 0; i < 3; i++ {
		ledger.recent = append(ledger.recent, completedRecord("submittal", 100, "approved", 0))
	}

	p := newTestPredictor(ledger, &fakeDirectory{})
	report, err := p.Predict(context.Background(), "proj-1", Submittal, "", nil)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if len(report.Breakdown) != 3 {
		t.Fatalf("Expected 3 stages, got %d", len(report.Breakdown))
	}
	sum := 0.0
	for _, stage := range report.Breakdown {
		sum += stage.Hours
	}
	if !closeTo(sum, report.PredictedHours) {
		t.Errorf("Stages sum to %f, want %f", sum, report.PredictedHours)
	}
	if report.Breakdown[0].Stage != "Initial Review" || report.Breakdown[2].Stage != "Final Sign-off" {
		t.Errorf("Unexpected stage order: %+v", report.Breakdown)
	}
}

func TestPredictSlowHistoryRecommendation(t *testing.T) {
	// Invoice baseline is 48h; half the history blows past it.
	ledger := &fakeLedger{recent: []store.WorkflowRecord{
		completedRecord("invoice", 24, "approved", 0),
		completedRecord("invoice", 200, "approved", 0),
	}}

	p := newTestPredictor(ledger, &fakeDirectory{})
	report, err := p.Predict(context.Background(), "proj-1", Invoice, "", nil)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	found := false
	for _, r := range report.Recommendations {
		if strings.Contains(r, "completed on time") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected an on-time warning, got %v", report.Recommendations)
	}
}

func TestPredictHistoryFailureIsFatal(t *testing.T) {
	ledger := &fakeLedger{recentErr: errors.New("ledger offline")}
	p := newTestPredictor(ledger, &fakeDirectory{})

	if _, err := p.Predict(context.Background(), "proj-1", Invoice, "", nil); err == nil {
		t.Fatal("History failure must fail the prediction")
	}
}

func TestConfidenceLevelBuckets(t *testing.T) {
	tests := []struct {
		pct      int
		expected string
	}{
		{30, "low"},
		{49, "low"},
		{50, "medium"},
		{74, "medium"},
		{75, "high"},
		{95, "high"},
	}

	for _, tt := range tests {
		if got := confidenceLevel(tt.pct); got != tt.expected {
			t.Errorf("confidenceLevel(%d) = %s, want %s", tt.pct, got, tt.expected)
		}
	}
}
