package models

// PlanAction is one step of a clinical action plan as produced by the
// documentation step. Priority and timeline are free-text hints from the
// plan; priority "high" means the action needs physician approval before
// execution.
type PlanAction struct {
	ActionType  ActionType `json:"action_type" validate:"required,oneof=lab imaging referral medication follow-up"`
	Description string     `json:"description" validate:"required"`
	Priority    string     `json:"priority"    validate:"required,oneof=high medium low"`
	Timeline    string     `json:"timeline"`
}

// Plan is the ordered action list derived from one clinical encounter,
// together with the patient context the engine needs to build a workflow.
type Plan struct {
	PatientID      string       `json:"patient_id"   validate:"required"`
	PatientName    string       `json:"patient_name" validate:"required"`
	ChiefComplaint string       `json:"chief_complaint,omitempty"`
	Diagnoses      []string     `json:"diagnoses,omitempty"`
	Actions        []PlanAction `json:"actions"      validate:"required,min=1,dive"`
}
