package accel

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoandes/seismic-harvest/internal/domain"
)

const sampleReport = `RED ACELEROMETRICA NACIONAL

1. DATOS DEL SISMO
FECHA : 2023-11-17
MAGNITUD : 5.6

2. ESTACION
CODIGO : LMOL
NOMBRE : La Molina

3. REGISTRO
NÚMERO DE MUESTRAS : 4
MUESTREO : 100 muestras/seg
PGA : 12.35 -8.20 4.15
UNIDADES : cm/s2

4. DATOS
       Z        N        E
   0.001    0.002    0.003
  -0.010    0.020   -0.030
   1.100   -1.200    1.300
   0.000    0.000    0.000
FIN DEL REGISTRO
`

func TestParse(t *testing.T) {
	report, err := Parse(sampleReport)
	require.NoError(t, err)

	assert.Equal(t, 4, report.NumSamples)
	assert.Equal(t, 100.0, report.SamplingFrequency)
	assert.Equal(t, 12.35, report.PGAVertical)
	assert.Equal(t, -8.20, report.PGANorth)
	assert.Equal(t, 4.15, report.PGAEast)

	want := []domain.Sample{
		{Vertical: 0.001, North: 0.002, East: 0.003},
		{Vertical: -0.010, North: 0.020, East: -0.030},
		{Vertical: 1.100, North: -1.200, East: 1.300},
		{Vertical: 0, North: 0, East: 0},
	}
	assert.Equal(t, want, report.Samples)
	assert.Equal(t, 4, report.SampleCount())
}

func TestParse_Deterministic(t *testing.T) {
	first, err := Parse(sampleReport)
	require.NoError(t, err)
	second, err := Parse(sampleReport)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("parse not deterministic (-first +second):\n%s", diff)
	}
}

func TestParse_TableTerminators(t *testing.T) {
	tests := []struct {
		name       string
		tail       string
		numSamples int
	}{
		{"non-numeric line", "  0.1 0.2 0.3\n  end of data\n", 1},
		{"short line", "  0.1 0.2 0.3\n  0.4 0.5\n  0.6 0.7 0.8\n", 1},
		{"blank lines skipped", "  0.1 0.2 0.3\n\n  0.4 0.5 0.6\n", 2},
		{"end of text", "  0.1 0.2 0.3\n  0.4 0.5 0.6", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := "3. REGISTRO\nNÚMERO DE MUESTRAS : 10\n\n Z  N  E\n" + tt.tail
			report, err := Parse(content)
			require.NoError(t, err)
			assert.Len(t, report.Samples, tt.numSamples)
		})
	}
}

func TestParse_CaseInsensitiveHeading(t *testing.T) {
	content := strings.Replace(sampleReport, "3. REGISTRO", "3. Registro", 1)
	report, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, 4, report.NumSamples)
}

func TestParse_PartialPGA(t *testing.T) {
	content := "3. REGISTRO\nNÚMERO DE MUESTRAS : 2\nPGA : 9.5\n"
	report, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, 9.5, report.PGAVertical)
	assert.Equal(t, 0.0, report.PGANorth)
	assert.Equal(t, 0.0, report.PGAEast)
}

func TestParse_SamplingDefaults(t *testing.T) {
	content := "3. REGISTRO\nNÚMERO DE MUESTRAS : 2\n"
	report, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, defaultSamplingHz, report.SamplingFrequency)
	assert.Empty(t, report.Samples, "missing table yields zero samples")
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"no record section", "1. DATOS DEL SISMO\nFECHA : hoy\n"},
		{"missing sample count", "3. REGISTRO\nMUESTREO : 100\n"},
		{"bad sample count", "3. REGISTRO\nNÚMERO DE MUESTRAS : many\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content)
			assert.Error(t, err)
		})
	}
}

func TestParse_FieldSearchStopsAtNextSection(t *testing.T) {
	content := "3. REGISTRO\nNÚMERO DE MUESTRAS : 7\n4. OTROS\nMUESTREO : 200\n"
	report, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, defaultSamplingHz, report.SamplingFrequency,
		"labels after the next numbered heading belong to another section")
}

func BenchmarkParse(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("3. REGISTRO\nNÚMERO DE MUESTRAS : 5000\nMUESTREO : 200\nPGA : 1 2 3\n\n Z  N  E\n")
	for i := 0; i < 5000; i++ {
		fmt.Fprintf(&sb, " %8.5f %8.5f %8.5f\n", float64(i)*0.001, float64(i)*-0.001, float64(i)*0.002)
	}
	content := sb.String()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Parse(content); err != nil {
			b.Fatal(err)
		}
	}
}
