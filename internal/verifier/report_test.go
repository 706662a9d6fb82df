package verifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleReport() *Report {
	prefix := int64(35)

	return &Report{
		RunID:   "run-1",
		Started: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Results: []HistoryResult{
			{Path: "/tmp/a.txt", Kind: "stack", TotalOps: 1200, IsLinearizable: true, Prefix: &prefix},
			{
				Path: "/tmp/b.txt", Kind: "queue", TotalOps: 4, Reason: "no linearization exists",
				CrossCheck: &CrossCheckResult{Result: "illegal", Agrees: true, MaxPartialLen: 3},
			},
			failed("/tmp/c.txt", errors.New("open trace: no such file")),
		},
	}
}

func TestWriteReport_Bool(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleReport(), FormatBool, false))

	assert.Equal(t, "true 35\nfalse\nerror\n", buf.String())
}

func TestWriteReport_BoolTiming(t *testing.T) {
	t.Parallel()

	report := &Report{Results: []HistoryResult{{IsLinearizable: true, Seconds: 0.25}}}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, report, FormatBool, false))

	assert.Equal(t, "true 0.250000\n", buf.String())
}

func TestWriteReport_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleReport(), FormatText, false))

	out := buf.String()
	assert.Contains(t, out, "History is linearizable (stack)")
	assert.Contains(t, out, "History is NOT linearizable (queue)")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "Linearizable up to time 35")
	assert.Contains(t, out, "Porcupine: illegal (agrees: true)")
	assert.Contains(t, out, "no such file")
	assert.Contains(t, out, "1/3")
	assert.Contains(t, out, "run-1")
	assert.NotContains(t, out, "\x1b[")
}

func TestWriteReport_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleReport(), FormatJSON, false))

	var got Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "run-1", got.RunID)
	require.Len(t, got.Results, 3)
	assert.Equal(t, int64(35), *got.Results[0].Prefix)
	assert.Equal(t, 3, got.Results[1].CrossCheck.MaxPartialLen)
	assert.Equal(t, "open trace: no such file", got.Results[2].Error)
}

func TestWriteReport_YAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleReport(), FormatYAML, false))

	var got Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "run-1", got.RunID)
	require.Len(t, got.Results, 3)
	assert.Equal(t, "queue", got.Results[1].Kind)
	assert.True(t, got.Results[1].CrossCheck.Agrees)
}

func TestWriteReport_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := WriteReport(&bytes.Buffer{}, sampleReport(), "xml", false)
	require.ErrorIs(t, err, ErrUnknownFormat)
}
