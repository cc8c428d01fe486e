package events

import "encoding/json"

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// AlertFiredData contains data for AlertFired events
type AlertFiredData struct {
	UserID   string `json:"user_id"`
	RuleID   string `json:"rule_id"`
	ScopeID  string `json:"scope_id"`
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// EventType returns the event type for AlertFiredData
func (d *AlertFiredData) EventType() EventType {
	return AlertFired
}

// OrchestrationCompletedData contains data for OrchestrationCompleted events
type OrchestrationCompletedData struct {
	UserID      string  `json:"user_id"`
	ItineraryID string  `json:"itinerary_id"`
	Trigger     string  `json:"trigger"`
	RiskLevel   string  `json:"risk_level"`
	DealCount   int     `json:"deal_count"`
	AlertCount  int     `json:"alert_count"`
	DurationMs  float64 `json:"duration_ms"`
	Degraded    bool    `json:"degraded"`
}

// EventType returns the event type for OrchestrationCompletedData
func (d *OrchestrationCompletedData) EventType() EventType {
	return OrchestrationCompleted
}

// ExpenseRecordedData contains data for ExpenseRecorded events
type ExpenseRecordedData struct {
	UserID      string  `json:"user_id"`
	ItineraryID string  `json:"itinerary_id"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
}

// EventType returns the event type for ExpenseRecordedData
func (d *ExpenseRecordedData) EventType() EventType {
	return ExpenseRecorded
}

// BurnRateUpdatedData contains data for BurnRateUpdated events
type BurnRateUpdatedData struct {
	UserID        string  `json:"user_id"`
	ItineraryID   string  `json:"itinerary_id"`
	RiskLevel     string  `json:"risk_level"`
	DailyAverage  float64 `json:"daily_average"`
	Velocity      float64 `json:"velocity"`
	RemainingDays int     `json:"remaining_days"`
}

// EventType returns the event type for BurnRateUpdatedData
func (d *BurnRateUpdatedData) EventType() EventType {
	return BurnRateUpdated
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Databases int   `json:"databases"`
	Bytes     int64 `json:"bytes"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// ToMap converts typed EventData to map[string]interface{} for the bus.
func ToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}
	return result
}

// EmitTyped publishes typed event data on the bus.
func EmitTyped(bus *Bus, module string, data EventData) {
	bus.Emit(data.EventType(), module, ToMap(data))
}
