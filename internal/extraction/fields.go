package extraction

import (
	"regexp"
	"strings"

	"github.com/medscan/medscan-api/internal/model"
)

// ExtractField applies the field's patterns to the whole text in order and
// returns the trimmed first capture of the first pattern that matches.
func (p *Parser) ExtractField(text string, field Field) string {
	return firstMatch(text, p.lib.Patterns(field))
}

// ExtractPatient fills every PatientInfo field independently.
func (p *Parser) ExtractPatient(text string) model.PatientInfo {
	return model.PatientInfo{
		Name: p.ExtractField(text, FieldPatientName),
		Age:  p.ExtractField(text, FieldAge),
		Sex:  p.ExtractField(text, FieldSex),
		Date: p.ExtractField(text, FieldDate),
		ID:   p.ExtractField(text, FieldPatientID),
	}
}

// ExtractMedical fills every MedicalInfo field independently.
func (p *Parser) ExtractMedical(text string) model.MedicalInfo {
	return model.MedicalInfo{
		Clinician:          p.ExtractField(text, FieldClinician),
		Specialty:          p.ExtractField(text, FieldSpecialty),
		Clinic:             p.ExtractField(text, FieldClinic),
		RegistrationNumber: p.ExtractField(text, FieldRegistrationNumber),
		SampleType:         p.ExtractField(text, FieldSampleType),
		SampleCondition:    p.ExtractField(text, FieldSampleCondition),
		AnalysisMethod:     p.ExtractField(text, FieldAnalysisMethod),
	}
}

func firstMatch(text string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
