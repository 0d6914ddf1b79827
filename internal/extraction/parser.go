// Package extraction turns lab report text into a model.StructuredReport using
// ordered pattern lists, a line-oriented result scanner and section markers.
// Everything in this package is free of shared mutable state.
package extraction

import (
	"github.com/medscan/medscan-api/internal/model"
)

// titleScanLines is how many leading non-blank lines are searched for a title.
const titleScanLines = 5

// Parser is the deterministic, rule-based extraction pipeline.
type Parser struct {
	lib *Library
}

// NewParser returns a Parser using lib. A nil lib selects DefaultLibrary.
func NewParser(lib *Library) *Parser {
	if lib == nil {
		lib = DefaultLibrary()
	}
	return &Parser{lib: lib}
}

// Library returns the pattern library the parser was built with.
func (p *Parser) Library() *Library {
	return p.lib
}

// Parse runs field extraction, result scanning, section extraction and title
// detection over text. It never fails; missing data is left empty.
func (p *Parser) Parse(text string) model.StructuredReport {
	lines := splitLines(text)

	report := model.StructuredReport{
		Title:   p.detectTitle(lines),
		Patient: p.ExtractPatient(text),
		Medical: p.ExtractMedical(text),
		Results: p.scan(lines, ScanOptions{}),
	}
	report.Conclusions, report.Recommendations = p.ExtractSections(text)

	return report
}

// DetectTitle returns the first of the leading lines that reads like a report
// title, or "" when none does.
func (p *Parser) DetectTitle(text string) string {
	return p.detectTitle(splitLines(text))
}

func (p *Parser) detectTitle(lines []string) string {
	if len(lines) > titleScanLines {
		lines = lines[:titleScanLines]
	}
	for _, line := range lines {
		if p.lib.title.MatchString(line) {
			return line
		}
	}
	return ""
}
