package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/shipway/shipway/internal/model"
)

// JSONPrinter prints shipway information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// runListItem represents a run in the list output (subset of fields).
type runListItem struct {
	ID        string    `json:"id"`
	Distro    string    `json:"distro"`
	Status    string    `json:"status"`
	Artifacts int       `json:"artifacts"`
	StartedAt time.Time `json:"started_at"`
}

// runOutput represents the full run output.
type runOutput struct {
	ID         string     `json:"id"`
	Distro     string     `json:"distro"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Artifacts  int        `json:"artifacts"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

// artifactOutput represents one build artifact output.
type artifactOutput struct {
	Profile  string `json:"profile"`
	Platform string `json:"platform"`
	Path     string `json:"path"`
}

// distroOutput represents one distro configuration output.
type distroOutput struct {
	Name            string `json:"name"`
	Type            string `json:"type"`
	ContinueOnError bool   `json:"continue_on_error"`
}

// checkOutput represents one preflight check result output.
type checkOutput struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintRunList prints runs in JSON format with a subset of fields.
func (j *JSONPrinter) PrintRunList(runs []model.Run) error {
	items := make([]runListItem, len(runs))
	for i, r := range runs {
		items[i] = runListItem{
			ID:        r.ID,
			Distro:    r.Distro,
			Status:    string(r.Status),
			Artifacts: r.Artifacts,
			StartedAt: r.StartedAt.UTC(),
		}
	}

	return j.encode(items)
}

// PrintRun prints detailed run information in JSON format.
func (j *JSONPrinter) PrintRun(run model.Run) error {
	output := runOutput{
		ID:        run.ID,
		Distro:    run.Distro,
		Status:    string(run.Status),
		Error:     run.Error,
		Artifacts: run.Artifacts,
		StartedAt: run.StartedAt.UTC(),
	}

	if run.FinishedAt != nil {
		utcTime := run.FinishedAt.UTC()
		output.FinishedAt = &utcTime
	}

	return j.encode(output)
}

// PrintArtifacts prints build artifacts in JSON format.
func (j *JSONPrinter) PrintArtifacts(artifacts []model.BuildArtifact) error {
	items := make([]artifactOutput, len(artifacts))
	for i, a := range artifacts {
		items[i] = artifactOutput{
			Profile:  a.Profile,
			Platform: string(a.Platform),
			Path:     a.Path,
		}
	}

	return j.encode(items)
}

// PrintDistros prints distro configurations in JSON format.
func (j *JSONPrinter) PrintDistros(distros []model.DistroConfig) error {
	items := make([]distroOutput, len(distros))
	for i, d := range distros {
		items[i] = distroOutput{
			Name:            d.Name,
			Type:            distroKind(d),
			ContinueOnError: d.ContinueOnError,
		}
	}

	return j.encode(items)
}

// PrintChecks prints preflight check results in JSON format.
func (j *JSONPrinter) PrintChecks(checks []model.CheckResult) error {
	items := make([]checkOutput, len(checks))
	for i, c := range checks {
		items[i] = checkOutput{
			ID:      c.ID,
			Status:  string(c.Status),
			Message: c.Message,
		}
	}

	return j.encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
