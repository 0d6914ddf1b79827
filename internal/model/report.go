package model

// DefaultTitle is used by callers when no title line was detected.
const DefaultTitle = "Análisis de Laboratorio"

// PatientInfo holds the patient identity found in a report. Empty fields were not found.
type PatientInfo struct {
	Name string `json:"nombre"`
	Age  string `json:"edad"`
	Sex  string `json:"sexo"`
	Date string `json:"fecha"`
	ID   string `json:"id"`
}

// MedicalInfo holds the issuing clinician and sample metadata.
type MedicalInfo struct {
	Clinician          string `json:"medico"`
	Specialty          string `json:"especialidad"`
	Clinic             string `json:"clinica"`
	RegistrationNumber string `json:"numero_registro"`
	SampleType         string `json:"tipo_muestra"`
	SampleCondition    string `json:"condiciones"`
	AnalysisMethod     string `json:"metodo_analisis"`
}

// ReferenceRange bounds are nil when absent.
type ReferenceRange struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// ExamResult is a single measured value.
type ExamResult struct {
	Category string         `json:"categoria"`
	Exam     string         `json:"examen"`
	Value    float64        `json:"valor"`
	Unit     string         `json:"unidad"`
	Range    ReferenceRange `json:"rango_referencia"`
}

// StructuredReport is the complete result of one extraction.
type StructuredReport struct {
	Title           string       `json:"titulo_examen"`
	Patient         PatientInfo  `json:"info_paciente"`
	Medical         MedicalInfo  `json:"info_medica"`
	Results         []ExamResult `json:"datos_estructurados"`
	Conclusions     string       `json:"conclusiones"`
	Recommendations string       `json:"recomendaciones"`
}

// Clone returns a deep copy that shares no memory with r.
func (r StructuredReport) Clone() StructuredReport {
	out := r
	out.Results = make([]ExamResult, len(r.Results))
	for i, res := range r.Results {
		out.Results[i] = res
		out.Results[i].Range = ReferenceRange{
			Min: copyFloat(res.Range.Min),
			Max: copyFloat(res.Range.Max),
		}
	}
	return out
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
