package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSections(t *testing.T) {
	p := NewParser(nil)

	tests := []struct {
		name            string
		text            string
		conclusions     string
		recommendations string
	}{
		{
			name:            "both sections",
			text:            "Conclusión: Anemia leve.\nSe sugiere control.\nRecomendaciones: Hierro oral.\nFirma: Dr. Soto",
			conclusions:     "Anemia leve.\nSe sugiere control.",
			recommendations: "Hierro oral.",
		},
		{
			name:        "interpretation fallback label",
			text:        "Interpretación: Perfil lipídico normal",
			conclusions: "Perfil lipídico normal",
		},
		{
			name:            "observations as recommendations",
			text:            "Comentarios: Muestra hemolizada\nObservaciones: Repetir estudio",
			conclusions:     "Muestra hemolizada",
			recommendations: "Repetir estudio",
		},
		{
			name:            "recommendation before conclusion",
			text:            "Sugerencias: Dieta baja en sal\nConclusiones: Hipertensión",
			conclusions:     "Hipertensión",
			recommendations: "Dieta baja en sal",
		},
		{
			name:            "signature label ends the section",
			text:            "Conclusiones: Normal.\nRecomendaciones: Control en 3 meses.\nFirmado por: Dr. Juan Pérez\nRegistro: 1234",
			conclusions:     "Normal.",
			recommendations: "Control en 3 meses.",
		},
		{
			name:        "signature after conclusion",
			text:        "Conclusión: Sin alteraciones\nFirmado por: Dra. Ana Soto",
			conclusions: "Sin alteraciones",
		},
		{
			name: "no sections",
			text: "Hemoglobina 13 g/dL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conclusions, recommendations := p.ExtractSections(tt.text)
			assert.Equal(t, tt.conclusions, conclusions)
			assert.Equal(t, tt.recommendations, recommendations)
		})
	}
}
