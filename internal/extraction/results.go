package extraction

import (
	"strings"

	"github.com/medscan/medscan-api/internal/model"
)

type scanState int

const (
	stateSeeking scanState = iota
	stateInResults
)

// ScanOptions sets the initial state of a result scan.
type ScanOptions struct {
	// InResults starts the scan as if a results header had already been seen.
	InResults bool
	// Category is the category assigned until a category line replaces it.
	Category string
}

// ParseResults scans text line by line and returns the exam results found
// after the results header, in order of appearance.
func (p *Parser) ParseResults(text string) []model.ExamResult {
	return p.scan(splitLines(text), ScanOptions{})
}

// ParseResultsWith is ParseResults with an explicit initial state.
func (p *Parser) ParseResultsWith(text string, opts ScanOptions) []model.ExamResult {
	return p.scan(splitLines(text), opts)
}

func (p *Parser) scan(lines []string, opts ScanOptions) []model.ExamResult {
	state := stateSeeking
	if opts.InResults {
		state = stateInResults
	}
	category := opts.Category
	results := make([]model.ExamResult, 0)

	for _, line := range lines {
		if p.lib.resultsHeader.MatchString(line) {
			state = stateInResults
			continue
		}

		if p.isCategoryLine(line) {
			category = line
			continue
		}

		if state != stateInResults {
			continue
		}

		if result, ok := p.parseExamLine(line, category); ok {
			results = append(results, result)
		}
	}

	return results
}

func (p *Parser) isCategoryLine(line string) bool {
	return !hasDelimiter(line) && isUpperCase(line) && p.lib.IsCategory(line)
}

// parseExamLine tries the exam line shapes in priority order. The first shape
// that matches decides the line: later shapes are never tried, even when the
// match is rejected. A name that is, or starts with, a field label such as
// "Edad del paciente" is rejected.
func (p *Parser) parseExamLine(line, category string) (model.ExamResult, bool) {
	for _, shape := range p.lib.examShapes {
		m := shape.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		words := strings.Fields(m[1])
		if len(words) == 0 {
			return model.ExamResult{}, false
		}
		name := strings.Join(words, " ")
		if p.lib.IsStopword(name) || p.lib.IsStopword(words[0]) || looksLikeCategory(name) {
			return model.ExamResult{}, false
		}

		value, ok := ParseNumber(m[2])
		if !ok {
			return model.ExamResult{}, false
		}

		return model.ExamResult{
			Category: category,
			Exam:     name,
			Value:    value,
			Unit:     m[3],
			Range:    ParseRange(m[4]),
		}, true
	}

	return model.ExamResult{}, false
}

// looksLikeCategory guards against a header line being captured as an exam name.
func looksLikeCategory(name string) bool {
	return !hasDelimiter(name) && isUpperCase(name)
}
