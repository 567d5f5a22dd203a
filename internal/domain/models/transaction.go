package models

// TransactionRecord is one fraud-check request.
type TransactionRecord struct {
	Type           string
	Amount         float64
	OldBalanceOrig float64
	NewBalanceOrig float64
	OldBalanceDest float64
	NewBalanceDest float64
}

// FraudFeatureRow is a TransactionRecord laid out under the column names the
// fraud model was trained with. The origin's old balance is "oldbalanceOrg".
type FraudFeatureRow struct {
	Type           string  `json:"type"`
	Amount         float64 `json:"amount"`
	OldBalanceOrg  float64 `json:"oldbalanceOrg"`
	NewBalanceOrig float64 `json:"newbalanceOrig"`
	OldBalanceDest float64 `json:"oldbalanceDest"`
	NewBalanceDest float64 `json:"newbalanceDest"`
}

// FeatureRow maps the record onto the model's training columns.
func (t TransactionRecord) FeatureRow() FraudFeatureRow {
	return FraudFeatureRow{
		Type:           t.Type,
		Amount:         t.Amount,
		OldBalanceOrg:  t.OldBalanceOrig,
		NewBalanceOrig: t.NewBalanceOrig,
		OldBalanceDest: t.OldBalanceDest,
		NewBalanceDest: t.NewBalanceDest,
	}
}
