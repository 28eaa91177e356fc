// topology-setup — развёртывание топологии приоритетных очередей на RabbitMQ.
//
// Использование:
//
//	topology-setup [--config PATH] [--json] [command] [flags]
//
// Команды:
//
//	setup    Ожидание брокера, объявление и проверка топологии (по умолчанию)
//	verify   Пассивная проверка без объявлений
//	show     Печать настроенной топологии
//	watch    Периодическая проверка, /metrics и /healthz
//	history  Последние прогоны из журнала
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var configPath string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "topology-setup",
		Short:         "Provision the priority queue topology on RabbitMQ",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("TOPOLOGY_CONFIG"), "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	depsFn := func() (*cli.Deps, error) { return cli.NewDeps(configPath, jsonOutput) }

	setupCmd := cli.NewSetupCmd(depsFn)
	rootCmd.RunE = setupCmd.RunE

	rootCmd.AddCommand(
		setupCmd,
		cli.NewVerifyCmd(depsFn),
		cli.NewShowCmd(depsFn),
		cli.NewWatchCmd(depsFn),
		cli.NewHistoryCmd(depsFn),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
