package models

// Requests for scoring HTTP endpoints. Pointer fields distinguish a missing
// value from a zero value for the validator's "required" rule.

type MovementSampleRequest struct {
	X      *float64 `json:"x" validate:"required"`
	Y      *float64 `json:"y" validate:"required"`
	TimeMs *float64 `json:"time_ms" validate:"required"`
}

// Sample converts a validated request into a MovementSample.
func (r MovementSampleRequest) Sample() MovementSample {
	var s MovementSample
	if r.X != nil {
		s.X = *r.X
	}
	if r.Y != nil {
		s.Y = *r.Y
	}
	if r.TimeMs != nil {
		s.TimeMs = *r.TimeMs
	}
	return s
}

// Samples converts a validated request list, preserving order.
func Samples(reqs []MovementSampleRequest) []MovementSample {
	out := make([]MovementSample, len(reqs))
	for i, r := range reqs {
		out[i] = r.Sample()
	}
	return out
}

type FraudRequest struct {
	Type           string   `json:"type" validate:"required"`
	Amount         *float64 `json:"amount" validate:"required"`
	OldBalanceOrig *float64 `json:"oldbalanceOrig" validate:"required"`
	NewBalanceOrig *float64 `json:"newbalanceOrig" validate:"required"`
	OldBalanceDest *float64 `json:"oldbalanceDest" validate:"required"`
	NewBalanceDest *float64 `json:"newbalanceDest" validate:"required"`
}

// Record converts a validated request into a TransactionRecord.
func (r FraudRequest) Record() TransactionRecord {
	deref := func(p *float64) float64 {
		if p == nil {
			return 0
		}
		return *p
	}
	return TransactionRecord{
		Type:           r.Type,
		Amount:         deref(r.Amount),
		OldBalanceOrig: deref(r.OldBalanceOrig),
		NewBalanceOrig: deref(r.NewBalanceOrig),
		OldBalanceDest: deref(r.OldBalanceDest),
		NewBalanceDest: deref(r.NewBalanceDest),
	}
}

type CursorEventsRequest struct {
	SessionID string                  `json:"sessionId" validate:"required,max=128"`
	Events    []MovementSampleRequest `json:"events" validate:"required,min=1,max=20000,dive"`
}

type CursorSessionRequest struct {
	SessionID string `param:"sessionId" validate:"required,max=128"`
}

type CursorListRequest struct {
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
	Since string `query:"since" json:"since"`
}
