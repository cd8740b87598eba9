// Package accel parses IGP raw ground-acceleration report files.
//
// A report is semi-structured text organized into numbered sections
// ("1. DATOS DEL SISMO", "2. ESTACIÓN", "3. REGISTRO", ...). The record
// section carries labeled fields ("LABEL : value") and the sample table
// begins at the axis header line "Z N E", running until the first line that
// is short or non-numeric; the format has no explicit end marker.
package accel

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/geoandes/seismic-harvest/internal/domain"
)

// Report is the parsed content of one acceleration file.
type Report struct {
	NumSamples        int     // declared count from the record section
	SamplingFrequency float64 // Hz
	PGAVertical       float64
	PGANorth          float64
	PGAEast           float64
	Samples           []domain.Sample // in original file order
}

// SampleCount returns the number of samples actually present in the table,
// which may differ from the declared NumSamples on truncated files.
func (r Report) SampleCount() int {
	return len(r.Samples)
}

const defaultSamplingHz = 100.0

// Patterns are compiled once at package load; field patterns are cached in
// fieldPatterns by label.
var (
	recordSectionRe = regexp.MustCompile(`(?i)\d\.\s*REGISTRO\b`)
	nextSectionRe   = regexp.MustCompile(`(?m)^\s*\d\.\s`)
	firstIntRe      = regexp.MustCompile(`\d+`)
	tableHeaderRe   = regexp.MustCompile(`Z[ \t]+N[ \t]+E[ \t]*\r?\n`)

	fieldPatterns = map[string]*regexp.Regexp{
		labelNumSamples: fieldPattern(labelNumSamples),
		labelSampling:   fieldPattern(labelSampling),
		labelPGA:        fieldPattern(labelPGA),
	}
)

const (
	labelNumSamples = "NÚMERO DE MUESTRAS"
	labelSampling   = "MUESTREO"
	labelPGA        = "PGA"
)

func fieldPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `\s*:\s*([^\r\n]+)`)
}

// Parse converts raw report text into a Report. It is deterministic and
// never panics; any structural problem yields an error.
func Parse(content string) (Report, error) {
	fields, err := extractRecordSection(content)
	if err != nil {
		return Report{}, err
	}

	numSamples, err := strconv.Atoi(strings.TrimSpace(fields[labelNumSamples]))
	if err != nil {
		return Report{}, fmt.Errorf("bad sample count %q", fields[labelNumSamples])
	}

	report := Report{
		NumSamples:        numSamples,
		SamplingFrequency: parseSamplingHz(fields[labelSampling]),
		Samples:           extractSamples(content),
	}
	report.PGAVertical, report.PGANorth, report.PGAEast = parsePGA(fields[labelPGA])
	return report, nil
}

// extractRecordSection slices the record section out of the report and
// pulls its labeled fields. The section runs from its heading to the next
// numbered heading, or to the end of the text.
func extractRecordSection(content string) (map[string]string, error) {
	loc := recordSectionRe.FindStringIndex(content)
	if loc == nil {
		return nil, errors.New("record section not found")
	}

	section := content[loc[1]:]
	if next := nextSectionRe.FindStringIndex(section); next != nil {
		section = section[:next[0]]
	}

	fields := make(map[string]string, len(fieldPatterns))
	for label, re := range fieldPatterns {
		if m := re.FindStringSubmatch(section); m != nil {
			fields[label] = strings.TrimSpace(m[1])
		}
	}

	if _, ok := fields[labelNumSamples]; !ok {
		return nil, errors.New("record section missing sample count")
	}
	return fields, nil
}

// parseSamplingHz reads the first embedded integer of the sampling-rate
// string ("100 muestras/seg" → 100).
func parseSamplingHz(raw string) float64 {
	m := firstIntRe.FindString(raw)
	if m == "" {
		return defaultSamplingHz
	}
	hz, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return defaultSamplingHz
	}
	return hz
}

// parsePGA reads up to three whitespace-separated values (vertical, north,
// east); missing values default to 0.
func parsePGA(raw string) (v, n, e float64) {
	parts := strings.Fields(raw)
	vals := [3]float64{}
	for i := 0; i < len(parts) && i < 3; i++ {
		if f, err := strconv.ParseFloat(parts[i], 64); err == nil {
			vals[i] = f
		}
	}
	return vals[0], vals[1], vals[2]
}

// extractSamples reads the sample table: numeric triples after the "Z N E"
// header, terminated by the first short or non-numeric line.
func extractSamples(content string) []domain.Sample {
	loc := tableHeaderRe.FindStringIndex(content)
	if loc == nil {
		return nil
	}

	var samples []domain.Sample
	for _, line := range strings.Split(content[loc[1]:], "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}

		parts := strings.Fields(stripped)
		if len(parts) < 3 {
			break
		}

		z, errZ := strconv.ParseFloat(parts[0], 64)
		n, errN := strconv.ParseFloat(parts[1], 64)
		e, errE := strconv.ParseFloat(parts[2], 64)
		if errZ != nil || errN != nil || errE != nil {
			break
		}
		samples = append(samples, domain.Sample{Vertical: z, North: n, East: e})
	}
	return samples
}
