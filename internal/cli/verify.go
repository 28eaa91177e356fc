package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/report"
)

// NewVerifyCmd создаёт команду проверки без объявлений.
func NewVerifyCmd(depsFn func() (*Deps, error)) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that every queue and exchange exists, without declaring anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := depsFn()
			if err != nil {
				return err
			}
			defer d.Close()

			ctx := cmd.Context()
			d.enableAudit(ctx)

			started := time.Now()
			out, err := d.Pipeline().Check(ctx, d.Definition)
			if err != nil {
				return err
			}

			v := out.Verification
			s := report.Build(d.Definition, nil, v)
			if err := d.Output.Print(s, runExtra(out.RunID, out.Attempts)); err != nil {
				return fmt.Errorf("print summary: %w", err)
			}
			d.record(ctx, "verify", out, started, s)

			if v.Aborted {
				return fmt.Errorf("verification aborted: %w", v.AbortErr)
			}

			missing := v.MissingResources()
			if len(missing) == 0 {
				d.Output.Success("All resources present")
				return nil
			}
			if strict {
				return fmt.Errorf("missing resources: %s", strings.Join(missing, ", "))
			}
			d.Output.Error(fmt.Sprintf("missing resources: %s", strings.Join(missing, ", ")))
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error when a resource is missing")

	return cmd
}
