// Package providers defines the capability contracts for the external
// clinical systems the engine executes against and polls: lab, imaging,
// pharmacy, scheduling and referral management.
//
// Placement calls are made once per action by the executor. Check calls are
// made repeatedly by monitoring routines and must be safe to call again
// after a transient error; the caller treats any returned error as
// transient and retries.
package providers

import (
	"context"

	"github.com/darinjswilliams/kindrahealth/pkg/models"
)

// LabResults is the payload returned by a lab system once an order is
// processed. Status "completed" marks terminal resolution.
type LabResults struct {
	OrderID       string             `json:"order_id"`
	Status        string             `json:"status"`
	Values        map[string]float64 `json:"results"`
	AbnormalFlags []string           `json:"abnormal_flags,omitempty"`
}

// ImagingResults is the payload from a PACS system. Status "finalized"
// marks terminal resolution.
type ImagingResults struct {
	OrderID          string   `json:"order_id"`
	Status           string   `json:"status"`
	Report           string   `json:"report,omitempty"`
	CriticalFindings []string `json:"critical_findings,omitempty"`
}

// AttendanceStatus reports whether the patient checked in for a scheduled
// appointment.
type AttendanceStatus struct {
	Attended    bool   `json:"attended"`
	CheckInTime string `json:"check_in_time,omitempty"`
}

// PickupStatus reports whether a prescription was collected from the
// pharmacy.
type PickupStatus struct {
	PickedUp   bool   `json:"picked_up"`
	PickupTime string `json:"pickup_time,omitempty"`
	Status     string `json:"status,omitempty"`
}

// ReferralStatus reports whether the patient scheduled the specialist
// appointment a referral asked for.
type ReferralStatus struct {
	AppointmentScheduled bool   `json:"appointment_scheduled"`
	AppointmentDate      string `json:"appointment_date,omitempty"`
}

// LabProvider places lab orders and reports results. CheckResults returns
// (nil, nil) while results are still pending.
type LabProvider interface {
	PlaceOrder(ctx context.Context, action *models.ActionExecution) (map[string]any, error)
	CheckResults(ctx context.Context, orderID string) (*LabResults, error)
}

// ImagingProvider places imaging orders and reports finalized studies.
// CheckResults returns (nil, nil) while the study is not finalized.
type ImagingProvider interface {
	PlaceOrder(ctx context.Context, action *models.ActionExecution) (map[string]any, error)
	CheckResults(ctx context.Context, orderID string) (*ImagingResults, error)
}

// PharmacyProvider sends prescriptions and reports pickup status.
type PharmacyProvider interface {
	SendPrescription(ctx context.Context, action *models.ActionExecution) (map[string]any, error)
	CheckPickup(ctx context.Context, prescriptionID string) (*PickupStatus, error)
}

// SchedulingProvider books follow-up appointments and reports attendance.
type SchedulingProvider interface {
	ScheduleAppointment(ctx context.Context, action *models.ActionExecution) (map[string]any, error)
	CheckAttendance(ctx context.Context, appointmentID string) (*AttendanceStatus, error)
}

// ReferralProvider creates specialist referrals and reports scheduling
// progress.
type ReferralProvider interface {
	CreateReferral(ctx context.Context, action *models.ActionExecution) (map[string]any, error)
	CheckStatus(ctx context.Context, referralID string) (*ReferralStatus, error)
}

// Set bundles one provider per clinical system. The executor and the
// monitoring supervisor both operate on a Set.
type Set struct {
	Lab        LabProvider
	Imaging    ImagingProvider
	Pharmacy   PharmacyProvider
	Scheduling SchedulingProvider
	Referral   ReferralProvider
}
