package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shipway/shipway/internal/model"
)

// TablePrinter prints shipway information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintRunList prints runs in a table format.
func (t *TablePrinter) PrintRunList(runs []model.Run) error {
	if len(runs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header
	fmt.Fprintln(tw, "ID\tDISTRO\tSTATUS\tARTIFACTS\tDURATION\tSTARTED")

	// Print rows
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID,
			r.Distro,
			r.Status,
			r.Artifacts,
			FormatDuration(r.Duration()),
			TimeAgo(r.StartedAt),
		)
	}

	return nil
}

// PrintRun prints detailed run information.
func (t *TablePrinter) PrintRun(run model.Run) error {
	fmt.Fprintf(t.writer, "ID:         %s\n", run.ID)
	fmt.Fprintf(t.writer, "Distro:     %s\n", run.Distro)
	fmt.Fprintf(t.writer, "Status:     %s\n", run.Status)
	fmt.Fprintf(t.writer, "Artifacts:  %d\n", run.Artifacts)
	fmt.Fprintf(t.writer, "Started:    %s\n", FormatTimestamp(run.StartedAt))

	if run.FinishedAt != nil {
		fmt.Fprintf(t.writer, "Finished:   %s\n", FormatTimestamp(*run.FinishedAt))
		fmt.Fprintf(t.writer, "Duration:   %s\n", FormatDuration(run.Duration()))
	}

	if run.Error != "" {
		fmt.Fprintf(t.writer, "Error:      %s\n", run.Error)
	}

	return nil
}

// PrintArtifacts prints build artifacts in a table format.
func (t *TablePrinter) PrintArtifacts(artifacts []model.BuildArtifact) error {
	if len(artifacts) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header
	fmt.Fprintln(tw, "PROFILE\tPLATFORM\tPATH")

	// Print rows
	for _, a := range artifacts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Profile, a.Platform, a.Path)
	}

	return nil
}

// PrintDistros prints distro configurations in a table format.
func (t *TablePrinter) PrintDistros(distros []model.DistroConfig) error {
	if len(distros) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header
	fmt.Fprintln(tw, "NAME\tTYPE\tON ERROR")

	// Print rows
	for _, d := range distros {
		onError := "fail fast"
		if d.ContinueOnError {
			onError = "continue"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, distroKind(d), onError)
	}

	return nil
}

// PrintChecks prints preflight check results in a table format.
func (t *TablePrinter) PrintChecks(checks []model.CheckResult) error {
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)

	// Print header
	fmt.Fprintln(tw, "CHECK\tSTATUS\tMESSAGE")

	// Print rows
	for _, c := range checks {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Status, c.Message)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	ok, warnings, errors := model.CountByStatus(checks)
	fmt.Fprintf(t.writer, "\n%d ok, %d warnings, %d errors\n", ok, warnings, errors)

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func distroKind(d model.DistroConfig) string {
	switch {
	case d.Zip != nil:
		return "zip"
	case d.Script != nil:
		return "script"
	case d.Upload != nil:
		return "upload"
	default:
		return "unknown"
	}
}
