package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/darinjswilliams/kindrahealth/pkg/models"
)

// watchLabResults polls the lab system until results arrive or the lab
// timeout expires. Abnormal findings raise a high-priority alert; normal
// results just land on the action record.
func (s *Supervisor) watchLabResults(ctx context.Context, workflow *models.WorkflowExecution, action *models.ActionExecution) {
	logger := s.logger.With("workflow_id", workflow.ID, "action_id", action.ID, "routine", "lab_results")

	orderID := action.ResultString("order_id")
	if orderID == "" {
		logger.Warn("No order_id on lab action, skipping monitoring")

		return
	}

	deadline := s.clock.Now().Add(s.config.LabTimeout)

	for s.clock.Now().Before(deadline) {
		results, err := s.providers.Lab.CheckResults(ctx, orderID)
		if err != nil {
			// Provider errors are transient; retry next interval.
			logger.ErrorContext(ctx, "Error checking lab results", "error", err)
		} else if results != nil && results.Status == "completed" {
			logger.InfoContext(ctx, "Lab results received")

			action.StoreResult("lab_results", results)
			action.StoreResult("results_received_at", s.clock.Now().Format(time.RFC3339))

			abnormalities := analyzeLabResults(results.Values)
			if len(abnormalities) > 0 {
				s.raiseAlert(ctx, workflow, models.Alert{
					Type:     "Abnormal Lab Results",
					Message:  fmt.Sprintf("Lab order %s has abnormal findings: %s", orderID, strings.Join(abnormalities, ", ")),
					Priority: models.PriorityHigh,
					ActionID: action.ID,
					Details:  map[string]any{"order_id": orderID, "results": results.Values},
				})
			} else {
				logger.InfoContext(ctx, "Lab results normal")
			}

			return
		}

		if !s.sleep(ctx, s.config.LabPollInterval) {
			logger.InfoContext(ctx, "Lab monitoring cancelled")

			return
		}
	}

	logger.Warn("Timeout waiting for lab results")
	s.raiseAlert(ctx, workflow, models.Alert{
		Type:     "Lab Results Delayed",
		Message:  fmt.Sprintf("Lab order %s has not returned results after %d days", orderID, int(s.config.LabTimeout.Hours()/24)),
		Priority: models.PriorityMedium,
		ActionID: action.ID,
	})
}

// watchImagingResults polls the PACS system until the study is finalized or
// the imaging timeout expires. Critical findings raise a high-priority
// alert; routine results raise a low-priority "ready for review" alert.
func (s *Supervisor) watchImagingResults(ctx context.Context, workflow *models.WorkflowExecution, action *models.ActionExecution) {
	logger := s.logger.With("workflow_id", workflow.ID, "action_id", action.ID, "routine", "imaging_results")

	orderID := action.ResultString("order_id")
	if orderID == "" {
		logger.Warn("No order_id on imaging action, skipping monitoring")

		return
	}

	deadline := s.clock.Now().Add(s.config.ImagingTimeout)

	for s.clock.Now().Before(deadline) {
		results, err := s.providers.Imaging.CheckResults(ctx, orderID)
		if err != nil {
			logger.ErrorContext(ctx, "Error checking imaging results", "error", err)
		} else if results != nil && results.Status == "finalized" {
			logger.InfoContext(ctx, "Imaging results available")

			action.StoreResult("imaging_results", results)
			action.StoreResult("results_received_at", s.clock.Now().Format(time.RFC3339))

			if len(results.CriticalFindings) > 0 {
				s.raiseAlert(ctx, workflow, models.Alert{
					Type:     "Critical Imaging Findings",
					Message:  fmt.Sprintf("Imaging order %s has CRITICAL findings", orderID),
					Priority: models.PriorityHigh,
					ActionID: action.ID,
					Details:  map[string]any{"order_id": orderID, "critical_findings": results.CriticalFindings},
				})
			} else {
				s.raiseAlert(ctx, workflow, models.Alert{
					Type:     "Imaging Results Available",
					Message:  "Imaging results are ready for review",
					Priority: models.PriorityLow,
					ActionID: action.ID,
				})
			}

			return
		}

		if !s.sleep(ctx, s.config.ImagingPollInterval) {
			logger.InfoContext(ctx, "Imaging monitoring cancelled")

			return
		}
	}

	s.raiseAlert(ctx, workflow, models.Alert{
		Type:     "Imaging Results Delayed",
		Message:  fmt.Sprintf("Imaging order %s has not been completed", orderID),
		Priority: models.PriorityMedium,
		ActionID: action.ID,
	})
}

// watchAppointmentAttendance waits until one hour past the scheduled
// appointment time, then checks attendance once. A no-show raises a
// high-priority alert.
func (s *Supervisor) watchAppointmentAttendance(ctx context.Context, workflow *models.WorkflowExecution, action *models.ActionExecution) {
	logger := s.logger.With("workflow_id", workflow.ID, "action_id", action.ID, "routine", "appointment_attendance")

	appointmentID := action.ResultString("appointment_id")
	scheduledDateStr := action.ResultString("date")

	if appointmentID == "" || scheduledDateStr == "" {
		logger.Warn("No appointment_id or date on follow-up action, skipping monitoring")

		return
	}

	scheduledDate, err := time.Parse(time.RFC3339, scheduledDateStr)
	if err != nil {
		logger.Error("Invalid appointment date format", "date", scheduledDateStr, "error", err)

		return
	}

	checkTime := scheduledDate.Add(s.config.AppointmentGrace)
	if wait := checkTime.Sub(s.clock.Now()); wait > 0 {
		logger.InfoContext(ctx, "Waiting until appointment check time", "wait", wait)

		if !s.sleep(ctx, wait) {
			logger.InfoContext(ctx, "Appointment monitoring cancelled")

			return
		}
	}

	attendance, err := s.providers.Scheduling.CheckAttendance(ctx, appointmentID)
	if err != nil {
		logger.ErrorContext(ctx, "Error checking appointment attendance", "error", err)

		return
	}

	if attendance.Attended {
		logger.InfoContext(ctx, "Patient attended appointment")

		action.StoreResult("attendance_confirmed", true)
		action.StoreResult("attended_at", attendance.CheckInTime)

		return
	}

	action.StoreResult("attendance_confirmed", false)

	s.raiseAlert(ctx, workflow, models.Alert{
		Type:     "Missed Appointment",
		Message:  fmt.Sprintf("Patient %s missed scheduled appointment on %s", workflow.PatientName, scheduledDateStr),
		Priority: models.PriorityHigh,
		ActionID: action.ID,
		Details: map[string]any{
			"appointment_id": appointmentID,
			"scheduled_date": scheduledDateStr,
			"patient_id":     workflow.PatientID,
		},
	})
}

// watchPrescriptionPickup polls the pharmacy every half hour; if the
// prescription is not collected within the pickup window, the physician is
// alerted.
func (s *Supervisor) watchPrescriptionPickup(ctx context.Context, workflow *models.WorkflowExecution, action *models.ActionExecution) {
	logger := s.logger.With("workflow_id", workflow.ID, "action_id", action.ID, "routine", "prescription_pickup")

	prescriptionID := action.ResultString("prescription_id")
	if prescriptionID == "" {
		logger.Warn("No prescription_id on medication action, skipping monitoring")

		return
	}

	deadline := s.clock.Now().Add(s.config.PrescriptionTimeout)

	for s.clock.Now().Before(deadline) {
		status, err := s.providers.Pharmacy.CheckPickup(ctx, prescriptionID)
		if err != nil {
			logger.ErrorContext(ctx, "Error checking prescription status", "error", err)
		} else if status.PickedUp {
			logger.InfoContext(ctx, "Prescription picked up")

			action.StoreResult("picked_up", true)
			action.StoreResult("pickup_time", status.PickupTime)

			return
		}

		if !s.sleep(ctx, s.config.PrescriptionPollInterval) {
			logger.InfoContext(ctx, "Prescription monitoring cancelled")

			return
		}
	}

	logger.Warn("Prescription not picked up within window")
	s.raiseAlert(ctx, workflow, models.Alert{
		Type:     "Prescription Not Picked Up",
		Message:  fmt.Sprintf("Patient has not picked up prescription %s within %d hours", prescriptionID, int(s.config.PrescriptionTimeout.Hours())),
		Priority: models.PriorityMedium,
		ActionID: action.ID,
		Details: map[string]any{
			"prescription_id": prescriptionID,
			"medication":      action.Description,
			"pharmacy":        action.ResultString("pharmacy"),
		},
	})
}

// watchReferralCompletion polls the referral system daily until the
// specialist appointment is scheduled or the referral window closes.
func (s *Supervisor) watchReferralCompletion(ctx context.Context, workflow *models.WorkflowExecution, action *models.ActionExecution) {
	logger := s.logger.With("workflow_id", workflow.ID, "action_id", action.ID, "routine", "referral_completion")

	referralID := action.ResultString("referral_id")
	if referralID == "" {
		logger.Warn("No referral_id on referral action, skipping monitoring")

		return
	}

	deadline := s.clock.Now().Add(s.config.ReferralTimeout)

	for s.clock.Now().Before(deadline) {
		status, err := s.providers.Referral.CheckStatus(ctx, referralID)
		if err != nil {
			logger.ErrorContext(ctx, "Error checking referral status", "error", err)
		} else if status.AppointmentScheduled {
			logger.InfoContext(ctx, "Specialist appointment scheduled")

			action.StoreResult("appointment_scheduled", true)
			action.StoreResult("specialist_appointment_date", status.AppointmentDate)

			return
		}

		if !s.sleep(ctx, s.config.ReferralPollInterval) {
			logger.InfoContext(ctx, "Referral monitoring cancelled")

			return
		}
	}

	s.raiseAlert(ctx, workflow, models.Alert{
		Type:     "Referral Not Completed",
		Message:  fmt.Sprintf("Patient has not scheduled specialist appointment for referral %s", referralID),
		Priority: models.PriorityMedium,
		ActionID: action.ID,
	})
}
