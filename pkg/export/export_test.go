package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Applications",
		Headers: []string{"id", "status"},
		Rows: []map[string]string{
			{"id": "app-1", "status": "approved"},
			{"id": "app-2"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "id,status\napp-1,approved\napp-2,\n", string(out))
}

func TestCSVExporterDefusesFormulas(t *testing.T) {
	data := Dataset{
		Headers: []string{"name", "amount"},
		Rows: []map[string]string{
			{"name": "=HYPERLINK(\"http://x\")", "amount": "-1500.50"},
			{"name": "@SUM(A1)", "amount": "+7"},
			{"name": "-Ada", "amount": "12"},
		},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "name,amount\n\"'=HYPERLINK(\"\"http://x\"\")\",-1500.50\n'@SUM(A1),+7\n'-Ada,12\n", string(out))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)

	r, err := RendererFor(FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", r.ContentType())
}
