// Command ccfacade stores, reads and resolves cached cases from the shell.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var Version = "dev"

type rootFlags struct {
	configPath  string
	metricsAddr string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "ccfacade",
		Short:         "Contact centre cached-case facade",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&f.configPath, "config", "c", "", "YAML config file (CCFACADE_* env vars override it)")
	root.PersistentFlags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9102")

	root.AddCommand(storeCmd(f))
	root.AddCommand(readCmd(f))
	root.AddCommand(resolveCmd(f))
	root.AddCommand(publishCmd(f))
	root.AddCommand(caseCmd(f))
	root.AddCommand(addressesCmd(f))
	return root
}
