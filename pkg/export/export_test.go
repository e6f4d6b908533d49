package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transcriptDataset() Dataset {
	return Dataset{
		Headers: []string{"Course Code", "Course Title", "Score", "Letter", "Grade Point"},
		Rows: [][]string{
			{"CS101", "Intro to Computing", "92", "A", "4.0"},
			{"MA201", "Linear Algebra", "68", "C+", "2.3"},
		},
	}
}

func TestCSVExporterRendersPositionalRows(t *testing.T) {
	payload, err := NewCSVExporter().Render(transcriptDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Course Code,Course Title,Score,Letter,Grade Point", lines[0])
	assert.Equal(t, "CS101,Intro to Computing,92,A,4.0", lines[1])
	assert.Equal(t, "MA201,Linear Algebra,68,C+,2.3", lines[2])
}

func TestCSVExporterRejectsRaggedRow(t *testing.T) {
	data := transcriptDataset()
	data.Rows = append(data.Rows, []string{"PH110", "too short"})

	_, err := NewCSVExporter().Render(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 5")
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRendersDocument(t *testing.T) {
	payload, err := NewPDFExporter().Render(transcriptDataset(), "Academic Transcript")
	require.NoError(t, err)
	require.NotEmpty(t, payload)
	assert.Equal(t, "%PDF", string(payload[:4]))
}

func TestPDFExporterRejectsRaggedRow(t *testing.T) {
	data := transcriptDataset()
	data.Rows = append(data.Rows, []string{"only one"})

	_, err := NewPDFExporter().Render(data, "")
	require.Error(t, err)
}
