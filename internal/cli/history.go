package cli

import (
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// ErrAuditDisabled — журнал прогонов не настроен.
var ErrAuditDisabled = errors.New("audit log is not configured (set DB_URL)")

// NewHistoryCmd создаёт команду просмотра журнала прогонов.
func NewHistoryCmd(depsFn func() (*Deps, error)) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := depsFn()
			if err != nil {
				return err
			}
			defer d.Close()

			ctx := cmd.Context()
			d.enableAudit(ctx)
			if d.Audit == nil {
				return ErrAuditDisabled
			}

			records, err := d.Audit.ListRecent(ctx, limit)
			if err != nil {
				return err
			}

			headers := []string{"RUN_ID", "COMMAND", "STARTED", "DURATION", "OK", "FAILED", "SKIPPED", "MISSING", "ABORTED"}
			rows := make([][]string, len(records))
			for i, r := range records {
				rows[i] = []string{
					r.RunID.String(),
					r.Command,
					r.StartedAt.Format(time.RFC3339),
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
					strconv.Itoa(r.OK),
					strconv.Itoa(r.Failed),
					strconv.Itoa(r.Skipped),
					strconv.Itoa(r.Missing),
					strconv.FormatBool(r.Aborted),
				}
			}

			return d.Output.Table(headers, rows, records)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")

	return cmd
}
