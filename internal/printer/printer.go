package printer

import "github.com/shipway/shipway/internal/model"

// Printer knows how to print shipway information in different formats.
type Printer interface {
	PrintRunList(runs []model.Run) error
	PrintRun(run model.Run) error
	PrintArtifacts(artifacts []model.BuildArtifact) error
	PrintDistros(distros []model.DistroConfig) error
	PrintChecks(checks []model.CheckResult) error
	PrintMessage(msg string) error
}
