package extraction

const sampleReport = `INFORME DE LABORATORIO CLINICO
Paciente: Juan Pérez Edad: 45 años
Sexo: M
Fecha: 12/05/2024
Cédula: V-12345678
Médico: Dra. Ana López
Laboratorio: Centro Diagnóstico Central
Tipo de muestra: Sangre venosa
Método: Espectrofotometría

RESULTADOS
HEMOGRAMA
Hemoglobina 13.5 g/dL (12-16)
Hematocrito 40 %
BIOQUÍMICA
Glucosa: 95 mg/dL (70-110)
Creatinina = 0,9 mg/dL (<1,2)
Edad: 45 años

Conclusiones: Valores dentro de los rangos de referencia.
Recomendaciones: Control en seis meses.
`
