package approval

import (
	"fmt"
	"strings"

	"github.com/darinjswilliams/kindrahealth/pkg/models"
)

// emergencyKeywords flag a diagnosis as requiring immediate physician
// attention.
var emergencyKeywords = []string{
	"acute", "emergency", "critical", "severe", "life-threatening",
	"myocardial infarction", "stroke", "sepsis", "hemorrhage",
}

var highRiskReasons = map[models.ActionType]string{
	models.ActionTypeMedication: "High-dose or controlled substance",
	models.ActionTypeReferral:   "Specialist consultation recommended",
	models.ActionTypeImaging:    "Advanced imaging (MRI, CT) required",
}

// approvalReason builds the human-readable explanation shown to the
// physician for why an action is held at the gate.
func approvalReason(action *models.ActionExecution) string {
	var reasons []string

	if reason, ok := highRiskReasons[action.Type]; ok {
		reasons = append(reasons, reason)
	}

	upper := strings.ToUpper(action.Description)
	if strings.Contains(upper, "STAT") || strings.Contains(upper, "URGENT") {
		reasons = append(reasons, "Urgent/STAT order")
	}

	if strings.Contains(strings.ToLower(action.Description), "emergency") {
		reasons = append(reasons, "Emergency intervention")
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "High-priority clinical action")
	}

	return strings.Join(reasons, "; ")
}

// requestPriority derives the overall urgency of an approval request from
// the diagnoses and the actions held at the gate. It is computed per
// request, never stored on the actions.
func requestPriority(actions []models.ApprovalAction, diagnoses []string) models.AlertPriority {
	for _, diagnosis := range diagnoses {
		lower := strings.ToLower(diagnosis)
		for _, keyword := range emergencyKeywords {
			if strings.Contains(lower, keyword) {
				return models.PriorityHigh
			}
		}
	}

	for _, action := range actions {
		upper := strings.ToUpper(action.Description)
		if strings.Contains(upper, "STAT") || strings.Contains(upper, "URGENT") || strings.Contains(upper, "EMERGENCY") {
			return models.PriorityHigh
		}
	}

	if len(actions) >= 3 {
		return models.PriorityHigh
	}

	for _, action := range actions {
		if action.ActionType == models.ActionTypeReferral || action.ActionType == models.ActionTypeImaging {
			return models.PriorityMedium
		}
	}

	if len(actions) >= 2 {
		return models.PriorityMedium
	}

	return models.PriorityLow
}

func approvalAlertMessage(count int) string {
	if count == 1 {
		return "1 action requires physician approval"
	}

	return fmt.Sprintf("%d actions require physician approval", count)
}
