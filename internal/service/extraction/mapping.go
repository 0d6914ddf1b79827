package extraction

import (
	"regexp"
	"strings"

	"github.com/medscan/medscan-api/internal/ai"
	"github.com/medscan/medscan-api/internal/extraction"
	"github.com/medscan/medscan-api/internal/model"
)

// clinicianWindow is how many bytes before a person's first mention are
// searched for a clinician marker.
const clinicianWindow = 40

var (
	clinicianMarker = regexp.MustCompile(`(?i)\b(?:medico|medica|doctora?|dra?\.?|bioanalista|firmado por)(?:\W|$)`)
	titleMarker     = regexp.MustCompile(`(?i)\b(?:examen|analisis)\b`)
)

// mapEntities builds a report from AI annotations over the normalized text.
// Persons are split between clinician and patient by looking for a clinician
// marker just before the first mention; the first person of each role wins, as
// does the first organization. Upper-case MISC entities set the starting
// category, and a MISC mentioning an exam or analysis becomes the title.
// Entities scored below minScore are ignored.
func mapEntities(parser *extraction.Parser, normalized string, entities []ai.Entity, minScore float64) model.StructuredReport {
	var (
		report   model.StructuredReport
		category string
	)
	lowered := strings.ToLower(normalized)

	for _, e := range entities {
		word := strings.TrimSpace(e.Word)
		if word == "" || e.Score < minScore {
			continue
		}

		switch e.Type {
		case ai.EntityPerson:
			if isClinician(lowered, word) {
				if report.Medical.Clinician == "" {
					report.Medical.Clinician = word
				}
			} else if report.Patient.Name == "" {
				report.Patient.Name = word
			}
		case ai.EntityOrganization:
			if report.Medical.Clinic == "" {
				report.Medical.Clinic = word
			}
		case ai.EntityMisc:
			if strings.ToUpper(word) == word && strings.ToLower(word) != word {
				category = word
			} else if report.Title == "" && titleMarker.MatchString(extraction.FoldAccents(word)) {
				report.Title = word
			}
		}
	}

	report.Results = parser.ParseResultsWith(normalized, extraction.ScanOptions{
		InResults: true,
		Category:  category,
	})
	report.Conclusions, report.Recommendations = parser.ExtractSections(normalized)

	return report
}

func isClinician(lowered, word string) bool {
	idx := strings.Index(lowered, strings.ToLower(extraction.FoldAccents(word)))
	if idx < 0 {
		return false
	}
	start := idx - clinicianWindow
	if start < 0 {
		start = 0
	}
	return clinicianMarker.MatchString(lowered[start:idx])
}
