package accel

import (
	"fmt"
	"math"
	"strings"
)

// Synthesize builds a well-formed report with numSamples deterministic
// sinusoid samples. Used by the genreport command to produce test fixtures
// without touching the live network.
func Synthesize(numSamples int, samplingHz, pgaV, pgaN, pgaE float64) string {
	var sb strings.Builder

	sb.WriteString("RED ACELEROMETRICA NACIONAL\n\n")
	sb.WriteString("1. DATOS DEL SISMO\nFECHA : 2023-01-01\nMAGNITUD : 5.0\n\n")
	sb.WriteString("2. ESTACION\nCODIGO : SYNT\nNOMBRE : Sintetica\n\n")
	sb.WriteString("3. REGISTRO\n")
	fmt.Fprintf(&sb, "NÚMERO DE MUESTRAS : %d\n", numSamples)
	fmt.Fprintf(&sb, "MUESTREO : %.0f muestras/seg\n", samplingHz)
	fmt.Fprintf(&sb, "PGA : %.2f %.2f %.2f\n", pgaV, pgaN, pgaE)
	sb.WriteString("UNIDADES : cm/s2\n\n")

	sb.WriteString("4. DATOS\n")
	sb.WriteString("       Z        N        E\n")
	for i := 0; i < numSamples; i++ {
		t := float64(i) / samplingHz
		fmt.Fprintf(&sb, " %9.5f %9.5f %9.5f\n",
			pgaV*math.Sin(2*math.Pi*t),
			pgaN*math.Sin(2*math.Pi*t+math.Pi/3),
			pgaE*math.Sin(2*math.Pi*t+2*math.Pi/3))
	}
	sb.WriteString("FIN DEL REGISTRO\n")
	return sb.String()
}
