package monitor

// Reference ranges applied to returned lab values. A production deployment
// would source these from a clinical decision support service.
const (
	hemoglobinLow = 12.0
	wbcHigh       = 11000
	plateletsLow  = 150000
)

// analyzeLabResults flags out-of-range values in a lab panel.
func analyzeLabResults(values map[string]float64) []string {
	var abnormalities []string

	if hgb, ok := values["hemoglobin"]; ok && hgb < hemoglobinLow {
		abnormalities = append(abnormalities, "Low hemoglobin (anemia)")
	}

	if wbc, ok := values["wbc"]; ok && wbc > wbcHigh {
		abnormalities = append(abnormalities, "Elevated white blood cell count")
	}

	if platelets, ok := values["platelets"]; ok && platelets < plateletsLow {
		abnormalities = append(abnormalities, "Low platelet count")
	}

	return abnormalities
}
