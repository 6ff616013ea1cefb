package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"order_number", "machine_id", "duration_minutes"},
		Rows: []map[string]string{
			{"order_number": "ORD-001", "machine_id": "M-01", "duration_minutes": "130"},
			{"order_number": "ORD-002", "machine_id": "M-02", "duration_minutes": "90"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	data, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "order_number,machine_id,duration_minutes", lines[0])
	assert.Equal(t, "ORD-001,M-01,130", lines[1])
	assert.Equal(t, "ORD-002,M-02,90", lines[2])
}

func TestCSVExporterMissingCellsStayEmpty(t *testing.T) {
	data, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"a", "b"},
		Rows:    []map[string]string{{"a": "1"}},
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), "1,\n")
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data, err := NewPDFExporter().Render(sampleDataset(), "Production Schedule")
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestPDFExporterRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{}, "title")
	require.Error(t, err)
}
