package printer_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipway/shipway/internal/model"
	"github.com/shipway/shipway/internal/printer"
)

func runFixture() model.Run {
	startedAt := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	finishedAt := startedAt.Add(3 * time.Minute)
	return model.Run{
		ID:         "01JXK2M9V1N8WFQ6ZT3B4C5D6E",
		Distro:     "steam-upload",
		Status:     model.RunStatusSucceeded,
		Artifacts:  3,
		StartedAt:  startedAt,
		FinishedAt: &finishedAt,
	}
}

func TestTablePrinterPrintRun(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintRun(runFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "ID:         01JXK2M9V1N8WFQ6ZT3B4C5D6E")
	assert.Contains(t, out, "Distro:     steam-upload")
	assert.Contains(t, out, "Status:     succeeded")
	assert.Contains(t, out, "Duration:   3m0s")
	assert.NotContains(t, out, "Error:")
}

func TestTablePrinterPrintRunWithError(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	run := runFixture()
	run.Status = model.RunStatusFailed
	run.Error = "zip exited with code 12"

	err := p.PrintRun(run)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Error:      zip exited with code 12")
}

func TestJSONPrinterPrintRun(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintRun(runFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"id": "01JXK2M9V1N8WFQ6ZT3B4C5D6E"`)
	assert.Contains(t, out, `"distro": "steam-upload"`)
	assert.Contains(t, out, `"status": "succeeded"`)
	assert.NotContains(t, out, `"error"`)
}

func TestTablePrinterPrintRunListEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintRunList(nil)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestTablePrinterPrintDistros(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintDistros([]model.DistroConfig{
		{Name: "archives", Zip: &model.ZipDistroConfig{OutputDir: "dist"}},
		{Name: "itch", ContinueOnError: true, Script: &model.ScriptDistroConfig{Path: "push.sh"}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "archives")
	assert.Contains(t, out, "zip")
	assert.Contains(t, out, "fail fast")
	assert.Contains(t, out, "continue")
}

func TestTablePrinterPrintChecks(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintChecks([]model.CheckResult{
		{ID: "zip_tool", Status: model.CheckStatusOK, Message: "zip found at /usr/bin/zip"},
		{ID: "upload_credential", Status: model.CheckStatusError, Message: "missing credential"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "zip_tool")
	assert.Contains(t, out, "1 ok, 0 warnings, 1 errors")
}

func TestJSONPrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintMessage("done")
	require.NoError(t, err)

	assert.JSONEq(t, `{"message": "done"}`, buf.String())
}
