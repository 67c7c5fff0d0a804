// Package simulated implements the provider contracts with deterministic
// in-process doubles. Production deployments swap these for real
// integrations (lab and PACS vendors, pharmacy networks, scheduling and
// referral systems) behind the same interfaces; tests script responses per
// call.
package simulated

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/darinjswilliams/kindrahealth/pkg/models"
	"github.com/darinjswilliams/kindrahealth/pkg/providers"
	"github.com/google/uuid"
)

// NewSet returns a provider set with happy-path defaults: orders succeed,
// lab results come back normal on the first poll, appointments are attended,
// prescriptions are picked up and referrals get scheduled.
func NewSet() *providers.Set {
	return &providers.Set{
		Lab: &Lab{Results: &providers.LabResults{
			Status: "completed",
			Values: map[string]float64{"hemoglobin": 13.5, "wbc": 7800, "platelets": 250000},
		}},
		Imaging: &Imaging{Results: &providers.ImagingResults{
			Status: "finalized",
			Report: "No acute findings",
		}},
		Pharmacy:   &Pharmacy{Pickup: &providers.PickupStatus{PickedUp: true, Status: "picked_up"}},
		Scheduling: &Scheduling{Attendance: &providers.AttendanceStatus{Attended: true}},
		Referral:   &Referral{Status: &providers.ReferralStatus{AppointmentScheduled: true}},
	}
}

func shortID(prefix string) string {
	return prefix + "-" + strings.ToUpper(uuid.New().String()[:8])
}

// Lab simulates a laboratory system. CheckResults returns the scripted
// Results (with the order id filled in), the scripted Err, or pending when
// both are nil.
type Lab struct {
	mu      sync.Mutex
	Results *providers.LabResults
	Err     error
	orders  int
	checks  int
}

func (l *Lab) PlaceOrder(_ context.Context, action *models.ActionExecution) (map[string]any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Err != nil {
		return nil, l.Err
	}

	l.orders++

	return map[string]any{
		"status":         "ordered",
		"order_id":       shortID("LAB"),
		"confirmation":   shortID("CONF"),
		"scheduled_date": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"lab_facility":   "Quest Diagnostics - Main St",
		"test":           action.Description,
	}, nil
}

func (l *Lab) CheckResults(_ context.Context, orderID string) (*providers.LabResults, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.checks++

	if l.Err != nil {
		return nil, l.Err
	}

	if l.Results == nil {
		return nil, nil
	}

	results := *l.Results
	results.OrderID = orderID

	return &results, nil
}

// SetResults scripts the results returned by subsequent checks. Safe to
// call while a monitoring routine is polling.
func (l *Lab) SetResults(results *providers.LabResults) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Results = results
}

// Checks returns how many times CheckResults was called.
func (l *Lab) Checks() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.checks
}

// Imaging simulates a PACS system.
type Imaging struct {
	mu      sync.Mutex
	Results *providers.ImagingResults
	Err     error
	checks  int
}

func (i *Imaging) PlaceOrder(_ context.Context, action *models.ActionExecution) (map[string]any, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.Err != nil {
		return nil, i.Err
	}

	return map[string]any{
		"status":         "ordered",
		"order_id":       shortID("IMG"),
		"modality":       detectModality(action.Description),
		"imaging_center": "Radiology Partners Downtown",
		"confirmation":   shortID("CONF"),
	}, nil
}

func (i *Imaging) CheckResults(_ context.Context, orderID string) (*providers.ImagingResults, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.checks++

	if i.Err != nil {
		return nil, i.Err
	}

	if i.Results == nil {
		return nil, nil
	}

	results := *i.Results
	results.OrderID = orderID

	return &results, nil
}

func (i *Imaging) Checks() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.checks
}

func detectModality(description string) string {
	upper := strings.ToUpper(description)

	switch {
	case strings.Contains(upper, "MRI"):
		return "MRI"
	case strings.Contains(upper, "CT"):
		return "CT"
	case strings.Contains(upper, "ULTRASOUND"):
		return "Ultrasound"
	default:
		return "X-Ray"
	}
}

// Pharmacy simulates an e-prescribing network.
type Pharmacy struct {
	mu     sync.Mutex
	Pickup *providers.PickupStatus
	Err    error
	checks int
}

func (p *Pharmacy) SendPrescription(_ context.Context, action *models.ActionExecution) (map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}

	return map[string]any{
		"status":           "sent_to_pharmacy",
		"prescription_id":  shortID("RX"),
		"pharmacy":         "CVS Pharmacy #2214",
		"medication":       action.Description,
		"ready_for_pickup": time.Now().Add(2 * time.Hour).Format(time.RFC3339),
	}, nil
}

func (p *Pharmacy) CheckPickup(_ context.Context, _ string) (*providers.PickupStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.checks++

	if p.Err != nil {
		return nil, p.Err
	}

	if p.Pickup == nil {
		return &providers.PickupStatus{PickedUp: false, Status: "ready"}, nil
	}

	return p.Pickup, nil
}

func (p *Pharmacy) Checks() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.checks
}

// Scheduling simulates an appointment scheduling system. AppointmentDate
// overrides the default booking two weeks out.
type Scheduling struct {
	mu              sync.Mutex
	Attendance      *providers.AttendanceStatus
	AppointmentDate time.Time
	Err             error
	checks          int
}

func (s *Scheduling) ScheduleAppointment(_ context.Context, action *models.ActionExecution) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	date := s.AppointmentDate
	if date.IsZero() {
		date = time.Now().Add(14 * 24 * time.Hour)
	}

	return map[string]any{
		"status":            "scheduled",
		"appointment_id":    shortID("APT"),
		"date":              date.Format(time.RFC3339),
		"reason":            action.Description,
		"confirmation_sent": true,
	}, nil
}

func (s *Scheduling) CheckAttendance(_ context.Context, _ string) (*providers.AttendanceStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checks++

	if s.Err != nil {
		return nil, s.Err
	}

	if s.Attendance == nil {
		return &providers.AttendanceStatus{Attended: true, CheckInTime: time.Now().Format(time.RFC3339)}, nil
	}

	return s.Attendance, nil
}

// Referral simulates a referral management system.
type Referral struct {
	mu     sync.Mutex
	Status *providers.ReferralStatus
	Err    error
	checks int
}

func (r *Referral) CreateReferral(_ context.Context, action *models.ActionExecution) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}

	return map[string]any{
		"status":      "pending",
		"referral_id": shortID("REF"),
		"specialist":  detectSpecialist(action.Description),
	}, nil
}

func (r *Referral) CheckStatus(_ context.Context, _ string) (*providers.ReferralStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.checks++

	if r.Err != nil {
		return nil, r.Err
	}

	if r.Status == nil {
		return &providers.ReferralStatus{AppointmentScheduled: false}, nil
	}

	return r.Status, nil
}

func (r *Referral) Checks() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.checks
}

func detectSpecialist(description string) string {
	lower := strings.ToLower(description)

	specialists := []struct {
		keyword string
		name    string
	}{
		{"cardio", "Cardiology"},
		{"neuro", "Neurology"},
		{"ortho", "Orthopedics"},
		{"derma", "Dermatology"},
		{"gastro", "Gastroenterology"},
	}

	for _, s := range specialists {
		if strings.Contains(lower, s.keyword) {
			return s.name
		}
	}

	return "Internal Medicine"
}

// Failing returns a set whose every placement call fails with the given
// error. Monitoring checks fail with the same error.
func Failing(err error) *providers.Set {
	if err == nil {
		err = fmt.Errorf("provider unavailable")
	}

	return &providers.Set{
		Lab:        &Lab{Err: err},
		Imaging:    &Imaging{Err: err},
		Pharmacy:   &Pharmacy{Err: err},
		Scheduling: &Scheduling{Err: err},
		Referral:   &Referral{Err: err},
	}
}
