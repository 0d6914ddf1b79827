package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResultsCategoryPersists(t *testing.T) {
	text := "Resultados\nHEMOGRAMA\nHemoglobina 13.5 g/dL\nHematocrito 40 %"

	results := NewParser(nil).ParseResults(text)

	require.Len(t, results, 2)
	assert.Equal(t, "HEMOGRAMA", results[0].Category)
	assert.Equal(t, "HEMOGRAMA", results[1].Category)
	assert.Equal(t, "Hemoglobina", results[0].Exam)
	assert.Equal(t, "Hematocrito", results[1].Exam)
}

func TestParseResultsIgnoresLinesBeforeHeader(t *testing.T) {
	text := "Glucosa 90 mg/dL\nParámetros\nGlucosa 95 mg/dL"

	results := NewParser(nil).ParseResults(text)

	require.Len(t, results, 1)
	assert.Equal(t, 95.0, results[0].Value)
}

func TestParseResultsStoplist(t *testing.T) {
	text := "RESULTADOS\nEdad: 45 años\nFecha = 12 \nValor 3 mg/dL\nUrea 30 mg/dL"

	results := NewParser(nil).ParseResults(text)

	require.Len(t, results, 1)
	assert.Equal(t, "Urea", results[0].Exam)
}

func TestParseResultsRejectsLabelPrefixedNames(t *testing.T) {
	text := "RESULTADOS\nEdad del paciente: 45\nNúmero de muestra: 1234\nGlucosa en ayunas 90 mg/dL"

	results := NewParser(nil).ParseResults(text)

	require.Len(t, results, 1)
	assert.Equal(t, "Glucosa en ayunas", results[0].Exam)
}

func TestParseResultsSkipsUnparseableValue(t *testing.T) {
	text := "RESULTADOS\nSodio 1.4.0 mEq/L\nPotasio 4,1 mEq/L"

	results := NewParser(nil).ParseResults(text)

	require.Len(t, results, 1)
	assert.Equal(t, "Potasio", results[0].Exam)
	assert.Equal(t, 4.1, results[0].Value)
	assert.Equal(t, "mEq/L", results[0].Unit)
}

func TestParseResultsRejectsUpperCaseNames(t *testing.T) {
	text := "RESULTADOS\nPERFIL TIROIDEO 2\nTSH: 2,5 mUI/L"

	results := NewParser(nil).ParseResults(text)

	assert.Empty(t, results)
}

func TestParseResultsUnknownUpperCaseLineKeepsCategory(t *testing.T) {
	text := "RESULTADOS\nLÍPIDOS\nNOTA IMPORTANTE\nColesterol total: 180 mg/dL (<200)"

	results := NewParser(nil).ParseResults(text)

	require.Len(t, results, 1)
	assert.Equal(t, "LÍPIDOS", results[0].Category)
	require.NotNil(t, results[0].Range.Max)
	assert.Equal(t, 200.0, *results[0].Range.Max)
}

func TestParseResultsLineShapes(t *testing.T) {
	text := "Valores\nLeucocitos 7500 /mm3 (4500-11000)\nVelocidad de sedimentación: 12 mm/h (>2)\nProteína C reactiva = 3 mg/L\nPlaquetas 250000"

	results := NewParser(nil).ParseResults(text)

	require.Len(t, results, 4)
	assert.Equal(t, "/mm3", results[0].Unit)
	assert.Equal(t, 4500.0, *results[0].Range.Min)
	assert.Equal(t, "mm/h", results[1].Unit)
	assert.Equal(t, 2.0, *results[1].Range.Min)
	assert.Nil(t, results[1].Range.Max)
	assert.Equal(t, "Proteína C reactiva", results[2].Exam)
	assert.Equal(t, "mg/L", results[2].Unit)
	assert.Equal(t, "", results[3].Unit)
	assert.Equal(t, 250000.0, results[3].Value)
}

func TestParseResultsWithInitialState(t *testing.T) {
	text := "Glucosa 88 mg/dL"

	results := NewParser(nil).ParseResultsWith(text, ScanOptions{InResults: true, Category: "BIOQUIMICA"})

	require.Len(t, results, 1)
	assert.Equal(t, "BIOQUIMICA", results[0].Category)
}
