package main

import (
	"strings"
	"testing"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-studio-client/internal/models"
)

func TestRenderTable_EmptyColumns(t *testing.T) {
	assert.Empty(t, renderTable(nil, []table.Row{{"x"}}))
}

func TestRenderTable_BlankCellsRenderAsDash(t *testing.T) {
	var missing *string
	out := renderTable(
		[]column{textColumn("Name"), textColumn("Description"), textColumn("Updated"), textColumn("Extra")},
		[]table.Row{{"holiday", missing, time.Time{}}, {"  ", "beach", time.Time{}, "x"}},
	)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, 3, strings.Count(lines[3], " - "), lines[3])
	assert.Contains(t, lines[4], "beach")
	assert.Contains(t, lines[1], "Description")
}

func TestFormatSizeCell(t *testing.T) {
	assert.Equal(t, "-", formatSizeCell(int64(0)))
	assert.Equal(t, "-", formatSizeCell("12"))
	assert.Equal(t, "2.0 kB", formatSizeCell(int64(2000)))
	assert.Equal(t, "1.5 MB", formatSizeCell(1500000))
}

func TestFormatCell(t *testing.T) {
	desc := "sunsets"
	assert.Equal(t, "sunsets", formatCell(&desc))
	assert.Equal(t, "-", formatCell(""))
	assert.Equal(t, "-", formatCell(nil))
	assert.Equal(t, "7", formatCell(7))
	assert.Contains(t, formatCell(time.Now().Add(-2*time.Hour)), "ago")
}

func TestImageColumns(t *testing.T) {
	out := renderTable(imageColumns, imageRows([]models.ImageRecord{
		{ID: "img-1", FileName: "sky.png", MimeType: "image/png", Size: 2000, ProcessingStatus: models.StatusPending},
		{ID: "img-2"},
	}))

	assert.Contains(t, out, "2.0 kB")
	assert.Contains(t, out, string(models.StatusPending))
	assert.Contains(t, out, string(models.StatusStable))
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "img-2") {
			assert.GreaterOrEqual(t, strings.Count(line, " - "), 4, line)
		}
	}
}
