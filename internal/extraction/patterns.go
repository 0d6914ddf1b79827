package extraction

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Field names a single-valued patient or medical field.
type Field string

// Patient fields.
const (
	FieldPatientName Field = "nombre"
	FieldAge         Field = "edad"
	FieldSex         Field = "sexo"
	FieldDate        Field = "fecha"
	FieldPatientID   Field = "id"
)

// Medical fields.
const (
	FieldClinician          Field = "medico"
	FieldSpecialty          Field = "especialidad"
	FieldClinic             Field = "clinica"
	FieldRegistrationNumber Field = "numero_registro"
	FieldSampleType         Field = "tipo_muestra"
	FieldSampleCondition    Field = "condiciones"
	FieldAnalysisMethod     Field = "metodo_analisis"
)

// Building blocks for the field patterns. Captures are lazy and always end on a
// line break, end of text or, for the patient name, the next field label.
const (
	letters   = `A-Za-zÁÉÍÓÚÑÜáéíóúñü`
	wordText  = `([` + letters + ` \t]+?)`
	nameText  = `([` + letters + `. \t]+?)`
	lineEnd   = `[ \t]*(?:\r?\n|$)`
	sep       = `[ \t]*[:=][ \t]*`
	code      = `([A-Z0-9-]+)`
	dateValue = `(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`
	ageValue  = `(\d+(?:[ \t]*años)?)`
)

var fieldPatterns = map[Field][]string{
	FieldPatientName: {
		`(?i)\b(?:paciente|nombre)` + sep + wordText + `(?:[ \t]+(?:edad|fecha|sexo|id|identificaci[oó]n|c[eé]dula)\b|` + lineEnd + `)`,
		`(?i)\bnombre[ \t]+del[ \t]+paciente` + sep + wordText + lineEnd,
		`(?i)\bpaciente` + sep + wordText + lineEnd,
	},
	FieldAge: {
		`(?i)\bedad` + sep + ageValue,
		`(?i)\bedad[ \t]+del[ \t]+paciente` + sep + ageValue,
		`(?i)\baños` + sep + `(\d+)`,
	},
	FieldSex: {
		`(?i)\bsexo` + sep + `([MF])`,
		`(?i)\bsexo[ \t]+del[ \t]+paciente` + sep + `([MF])`,
		`(?i)\bg[eé]nero` + sep + `([MF])`,
	},
	FieldDate: {
		`(?i)\bfecha` + sep + dateValue,
		`(?i)\bfecha[ \t]+del[ \t]+examen` + sep + dateValue,
		`(?i)\bfecha[ \t]+de[ \t]+muestra` + sep + dateValue,
	},
	FieldPatientID: {
		`(?i)\b(?:id|identificaci[oó]n|c[eé]dula)` + sep + code,
		`(?i)\bhistoria[ \t]+cl[ií]nica` + sep + code,
		`(?i)\bno\.?[ \t]*de[ \t]+identificaci[oó]n` + sep + code,
	},
	FieldClinician: {
		`(?i)\b(?:m[eé]dico|doctora?|dra?\.?)` + sep + nameText + lineEnd,
		`(?i)\binterpretado[ \t]+por` + sep + nameText + lineEnd,
		`(?i)\bfirmado[ \t]+por` + sep + nameText + lineEnd,
	},
	FieldSpecialty: {
		`(?i)\bespecialidad` + sep + wordText + lineEnd,
		`(?i)\bespecialista[ \t]+en` + sep + wordText + lineEnd,
	},
	FieldClinic: {
		`(?i)\b(?:cl[ií]nica|hospital|centro|laboratorio)` + sep + wordText + lineEnd,
		`(?i)\binstituci[oó]n` + sep + wordText + lineEnd,
	},
	FieldRegistrationNumber: {
		`(?i)\b(?:registro|licencia|matr[ií]cula)` + sep + code,
		`(?i)\bno\.?[ \t]*de[ \t]+registro` + sep + code,
	},
	FieldSampleType: {
		`(?i)\b(?:tipo[ \t]+de[ \t]+muestra|muestra)` + sep + wordText + lineEnd,
		`(?i)\bmaterial[ \t]+analizado` + sep + wordText + lineEnd,
	},
	FieldSampleCondition: {
		`(?i)\b(?:condiciones|estado)` + sep + wordText + lineEnd,
		`(?i)\bestado[ \t]+de[ \t]+la[ \t]+muestra` + sep + wordText + lineEnd,
	},
	FieldAnalysisMethod: {
		`(?i)\bm[eé]todo` + sep + wordText + lineEnd,
		`(?i)\bt[eé]cnica[ \t]+utilizada` + sep + wordText + lineEnd,
	},
}

const (
	conclusionEnd     = `\s*(?:\brecomendaci|\bsugerencias?\b|\bobservaci|\bfirma|\z)`
	recommendationEnd = `\s*(?:\bfirma|\bconclusi[oó]n|\z)`
)

var conclusionPatterns = []string{
	`(?is)\bconclusi[oó]n(?:es)?[:\s]+(.*?)` + conclusionEnd,
	`(?is)\binterpretaci[oó]n[:\s]+(.*?)` + conclusionEnd,
	`(?is)\bresultados?[:\s]+(.*?)` + conclusionEnd,
	`(?is)\bcomentarios?[:\s]+(.*?)` + conclusionEnd,
}

var recommendationPatterns = []string{
	`(?is)\brecomendaci[oó]n(?:es)?[:\s]+(.*?)` + recommendationEnd,
	`(?is)\bsugerencias?[:\s]+(.*?)` + recommendationEnd,
	`(?is)\bobservaci[oó]n(?:es)?[:\s]+(.*?)` + recommendationEnd,
}

const (
	resultsHeaderPattern = `(?i)^(?:resultados?|par[aá]metros?|valores?|ex[aá]menes?)`
	titlePattern         = `(?i)(?:examen|an[aá]lisis|informe|reporte)\s+(?:de\s+)?(?:laboratorio|m[eé]dico|cl[ií]nico)`
)

// LibraryConfig holds the vocabularies a Library is built from.
type LibraryConfig struct {
	Stoplist   []string
	Categories []string
	Units      []string
}

// DefaultLibraryConfig returns the Spanish lab-report vocabulary with its English synonyms.
func DefaultLibraryConfig() LibraryConfig {
	return LibraryConfig{
		Stoplist: []string{
			"edad", "fecha", "nombre", "sexo", "paciente",
			"médico", "medico", "doctor", "doctora", "dr", "dra",
			"registro", "cédula", "cedula", "identificación", "identificacion",
			"muestra", "método", "metodo", "número", "numero", "resultado",
			"parámetro", "parametro", "categoría", "categoria", "estado",
			"referencia", "rango", "valor", "unidad", "interpretación",
			"interpretacion", "observaciones", "notas", "comentarios",
			"id", "género", "genero", "años", "firma", "hora",
			"conclusión", "conclusion", "conclusiones", "recomendaciones", "sugerencias",
			"age", "date", "name", "sex", "range", "value", "unit", "patient",
		},
		Categories: []string{
			"HEMOGRAMA", "BIOQUÍMICA", "BIOQUIMICA", "QUÍMICA SANGUÍNEA", "QUIMICA SANGUINEA",
			"FUNCIÓN RENAL", "FUNCION RENAL", "FUNCIÓN HEPÁTICA", "FUNCION HEPATICA",
			"ELECTROLITOS", "LÍPIDOS", "LIPIDOS", "HORMONAS", "TIROIDES",
			"COAGULACIÓN", "COAGULACION", "UROANÁLISIS", "UROANALISIS",
			"CULTIVOS", "MICROBIOLOGÍA", "MICROBIOLOGIA", "INMUNOLOGÍA", "INMUNOLOGIA",
			"HEMOGRAM", "BIOCHEMISTRY", "RENAL FUNCTION", "LIVER FUNCTION", "LIPIDS",
			"HORMONES", "COAGULATION", "MICROBIOLOGY", "URINALYSIS", "IMMUNOLOGY",
		},
		Units: []string{
			"mg/dL", "g/dL", "U/L", "%", "mg/L", "µL", "millones/µL", "/µL", "mEq/L",
			"mm3", "g/24h", "/hpf", "/lpf", "/campo", "/mm2", "/mm3", "/dl", "/l", "/ml",
			"/ul", "/mm", "/h", "/min", "/seg", "/día", "/dia", "/semana", "/mes", "mmol/L",
			"x10^3/µL", "x10^6/µL", "µg/dL", "ng/mL", "pg/mL", "mUI/mL", "µUI/mL", "UI/L",
			"mm/h", "fL", "pg", "seg",
		},
	}
}

// Library is the immutable set of patterns and vocabularies used by a Parser.
// It is safe for concurrent use.
type Library struct {
	fields          map[Field][]*regexp.Regexp
	conclusions     []*regexp.Regexp
	recommendations []*regexp.Regexp
	resultsHeader   *regexp.Regexp
	title           *regexp.Regexp
	examShapes      []*regexp.Regexp
	stoplist        map[string]struct{}
	categories      map[string]struct{}
}

// NewLibrary compiles every pattern and builds the lookup sets from cfg.
func NewLibrary(cfg LibraryConfig) (*Library, error) {
	if len(cfg.Units) == 0 {
		return nil, fmt.Errorf("unit vocabulary is empty")
	}

	lib := &Library{
		fields:     make(map[Field][]*regexp.Regexp, len(fieldPatterns)),
		stoplist:   make(map[string]struct{}, len(cfg.Stoplist)),
		categories: make(map[string]struct{}, len(cfg.Categories)),
	}

	var err error
	for field, exprs := range fieldPatterns {
		if lib.fields[field], err = compileAll(exprs); err != nil {
			return nil, fmt.Errorf("field %s: %w", field, err)
		}
	}
	if lib.conclusions, err = compileAll(conclusionPatterns); err != nil {
		return nil, fmt.Errorf("conclusions: %w", err)
	}
	if lib.recommendations, err = compileAll(recommendationPatterns); err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}
	if lib.resultsHeader, err = regexp.Compile(resultsHeaderPattern); err != nil {
		return nil, fmt.Errorf("results header: %w", err)
	}
	if lib.title, err = regexp.Compile(titlePattern); err != nil {
		return nil, fmt.Errorf("title: %w", err)
	}
	if lib.examShapes, err = compileAll(examShapePatterns(cfg.Units)); err != nil {
		return nil, fmt.Errorf("exam shapes: %w", err)
	}

	for _, word := range cfg.Stoplist {
		lib.stoplist[strings.ToLower(word)] = struct{}{}
		lib.stoplist[strings.ToLower(FoldAccents(word))] = struct{}{}
	}
	for _, name := range cfg.Categories {
		lib.categories[categoryKey(name)] = struct{}{}
	}

	return lib, nil
}

// DefaultLibrary returns a Library built from DefaultLibraryConfig.
func DefaultLibrary() *Library {
	lib, err := NewLibrary(DefaultLibraryConfig())
	if err != nil {
		panic(err)
	}
	return lib
}

// Patterns returns the ordered patterns for field.
func (l *Library) Patterns(field Field) []*regexp.Regexp {
	return l.fields[field]
}

// IsStopword reports whether name is a field label that can never be an exam name.
func (l *Library) IsStopword(name string) bool {
	key := strings.ToLower(strings.TrimSpace(name))
	if _, ok := l.stoplist[key]; ok {
		return true
	}
	_, ok := l.stoplist[FoldAccents(key)]
	return ok
}

// IsCategory reports whether line is one of the recognised category headers.
func (l *Library) IsCategory(line string) bool {
	_, ok := l.categories[categoryKey(line)]
	return ok
}

func categoryKey(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(FoldAccents(s)), " "))
}

// examShapePatterns builds the three exam line shapes in priority order:
// "name value unit (range)", "name: value unit (range)", "name = value unit (range)".
func examShapePatterns(units []string) []string {
	sorted := append([]string(nil), units...)
	// Longest first so the alternation prefers "/mm3" over "/mm".
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	quoted := make([]string, len(sorted))
	for i, u := range sorted {
		quoted[i] = regexp.QuoteMeta(u)
	}
	tail := `([\d,.]+)\s*((?i:` + strings.Join(quoted, "|") + `))?\s*(?:\(([^)]*)\))?`

	return []string{
		`^([^:=]+?)\s+` + tail,
		`^([^:=]+?)\s*:\s*` + tail,
		`^([^:=]+?)\s*=\s*` + tail,
	}
}

func compileAll(exprs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}
