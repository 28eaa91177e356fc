package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/provision"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/report"
)

// NewSetupCmd создаёт команду развёртывания топологии.
func NewSetupCmd(depsFn func() (*Deps, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Wait for the broker, declare the topology and verify it",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := depsFn()
			if err != nil {
				return err
			}
			defer d.Close()

			return runSetup(cmd.Context(), d)
		},
	}
}

// runSetup выполняет полный прогон и печатает отчёт.
//
// Ошибки отдельных ресурсов попадают в отчёт и не меняют результат.
// Ошибка возвращается, если брокер не стал доступен или соединение
// разорвалось во время развёртывания.
func runSetup(ctx context.Context, d *Deps) error {
	d.enableAudit(ctx)
	d.logConnection()

	started := time.Now()
	out, err := d.Pipeline().Setup(ctx, d.Definition)
	if err != nil {
		return err
	}

	s := report.Build(d.Definition, out.Provision, out.Verification)
	if err := d.Output.Print(s, runExtra(out.RunID, out.Attempts)); err != nil {
		return fmt.Errorf("print summary: %w", err)
	}
	d.record(ctx, "setup", out, started, s)

	if out.Provision.Aborted {
		return fmt.Errorf("provisioning aborted: %w", out.Provision.AbortErr)
	}

	if failed := out.Provision.Failed(); len(failed) > 0 {
		d.Output.Success(fmt.Sprintf("Topology setup finished with %d failed and %d skipped resource(s)",
			out.Provision.Count(provision.StatusFailed), out.Provision.Count(provision.StatusSkipped)))
	} else {
		d.Output.Success("Topology setup complete")
	}
	return nil
}

func runExtra(runID string, attempts int) map[string]any {
	return map[string]any{
		"run_id":             runID,
		"readiness_attempts": attempts,
	}
}
