package events

import "encoding/json"

// EventData is implemented by typed event payloads.
type EventData interface {
	EventDataType() EventType
}

// LedgerChangedData is the payload of a LedgerChanged event. AffectedDates
// holds YYYY-MM-DD calendar dates touched by the mutation; the backfill
// worker recomputes snapshots from the earliest of them through today.
type LedgerChangedData struct {
	PortfolioID   string   `json:"portfolio_id"`
	AffectedDates []string `json:"affected_dates"`
}

// EventDataType returns the event type for this payload.
func (d *LedgerChangedData) EventDataType() EventType { return LedgerChanged }

// SnapshotCreatedData is the payload of a SnapshotCreated event.
type SnapshotCreatedData struct {
	PortfolioID string `json:"portfolio_id"`
	Date        string `json:"date"`
	Overwritten bool   `json:"overwritten"`
}

// EventDataType returns the event type for this payload.
func (d *SnapshotCreatedData) EventDataType() EventType { return SnapshotCreated }

// QuoteSeriesUpdatedData is the payload of a QuoteSeriesUpdated event.
// FirstDate and LastDate bound the ingested run as YYYY-MM-DD dates.
type QuoteSeriesUpdatedData struct {
	AssetID   string `json:"asset_id"`
	FirstDate string `json:"first_date"`
	LastDate  string `json:"last_date"`
	Points    int    `json:"points"`
}

// EventDataType returns the event type for this payload.
func (d *QuoteSeriesUpdatedData) EventDataType() EventType { return QuoteSeriesUpdated }

// ErrorEventData is the payload of an ErrorOccurred event.
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventDataType returns the event type for this payload.
func (d *ErrorEventData) EventDataType() EventType { return ErrorOccurred }

// ToMap converts a typed payload to the map form carried by Event.Data.
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

// FromMap converts the map form back into the given typed payload.
func FromMap(m map[string]interface{}, v EventData) error {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonBytes, v)
}
