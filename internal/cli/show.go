package cli

import (
	"github.com/spf13/cobra"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/report"
)

// NewShowCmd создаёт команду печати настроенной топологии.
func NewShowCmd(depsFn func() (*Deps, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the configured topology without contacting the broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := depsFn()
			if err != nil {
				return err
			}
			defer d.Close()

			return d.Output.Print(report.Build(d.Definition, nil, nil), map[string]any{
				"arguments": queueArguments(d),
			})
		},
	}
}

// queueArguments возвращает аргументы объявления каждой приоритетной очереди.
func queueArguments(d *Deps) map[string]map[string]any {
	out := make(map[string]map[string]any)
	for _, q := range d.Definition.Queues() {
		out[q.Name] = d.Definition.Arguments(q)
	}
	return out
}
