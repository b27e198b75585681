package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = logr.NewContext(ctx, klog.Background().WithName("bartuner"))
	code := 0
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		code = 1
	}
	stop()
	klog.Flush()
	os.Exit(code)
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "bartuner",
		Short:        "Tune idiophone bars by optimizing their undercut profile",
		SilenceUsage: true,
	}

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)

	cmd.AddCommand(
		newOptimizeCommand(),
		newFrequenciesCommand(),
		newCheckResolutionCommand(),
		newMaterialsCommand(),
	)
	return cmd
}
