package models

// DecisionRequest is the body of every single-item decision endpoint.
type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=accept reject approve accepted rejected approved"`
	Reason   string `json:"reason" validate:"max=1000"`
}

// BulkDecisionRequest applies one decision to many pending requests.
type BulkDecisionRequest struct {
	IDs      []string `json:"ids" validate:"required,min=1,max=100,dive,required"`
	Decision string   `json:"decision" validate:"required,oneof=accept reject approve accepted rejected approved"`
	Reason   string   `json:"reason" validate:"max=1000"`
}
