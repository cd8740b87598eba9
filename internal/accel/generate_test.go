package accel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize_RoundTrip(t *testing.T) {
	content := Synthesize(250, 200, 10.5, -7.25, 3.0)

	report, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, 250, report.NumSamples)
	assert.Equal(t, 250, report.SampleCount())
	assert.Equal(t, 200.0, report.SamplingFrequency)
	assert.Equal(t, 10.5, report.PGAVertical)
	assert.Equal(t, -7.25, report.PGANorth)
	assert.Equal(t, 3.0, report.PGAEast)
}
