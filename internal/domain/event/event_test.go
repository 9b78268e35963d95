package event

import (
	"testing"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"expense created", TypeExpenseCreated, true},
		{"status changed", TypeExpenseStatusChanged, true},
		{"override", TypeBudgetOverride, true},
		{"payment", TypePaymentRecorded, true},
		{"production", TypeProductionStatus, true},
		{"unknown", Type("instance.created"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeExpenseStatusChanged, "prod-1", "exp-1", "user-1", map[string]interface{}{
		KeyFrom: "Draft",
		KeyTo:   "Submitted",
	})

	if evt.ID == "" {
		t.Fatal("expected generated ID")
	}
	if evt.CorrelationID != evt.ID {
		t.Errorf("CorrelationID = %s, want event ID", evt.CorrelationID)
	}
	if evt.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
	if got := evt.GetPayloadString(KeyTo); got != "Submitted" {
		t.Errorf("GetPayloadString(to) = %q", got)
	}
	if got := evt.GetPayloadString("missing"); got != "" {
		t.Errorf("GetPayloadString(missing) = %q, want empty", got)
	}
}

func TestEvent_WithPayloadDoesNotMutate(t *testing.T) {
	original := NewEvent(TypeBudgetOverride, "prod-1", "exp-1", "user-1", map[string]interface{}{
		KeyReason: "approved by studio",
	})

	updated := original.WithPayload(KeyAmount, "1200.00")

	if _, ok := original.Payload[KeyAmount]; ok {
		t.Error("original payload was mutated")
	}
	if updated.GetPayloadString(KeyAmount) != "1200.00" {
		t.Error("updated payload missing amount")
	}
	if updated.ID != original.ID {
		t.Error("WithPayload should keep the event ID")
	}
}

func TestEvent_WithCorrelation(t *testing.T) {
	evt := NewEvent(TypeExpenseCreated, "prod-1", "exp-1", "user-1", nil)
	linked := evt.WithCorrelation("chain-7")

	if linked.CorrelationID != "chain-7" {
		t.Errorf("CorrelationID = %s", linked.CorrelationID)
	}
	if evt.CorrelationID == "chain-7" {
		t.Error("original event was mutated")
	}
}
