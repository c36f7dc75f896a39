package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/phil-mansfield/nlist/lib"
	"github.com/phil-mansfield/nlist/lib/nlist"
	"github.com/phil-mansfield/nlist/lib/nlistio"
	"github.com/phil-mansfield/nlist/lib/sim"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		lib.ExternalErrorf("%s", err.Error())
	}
}

// newRootCmd builds the command tree. Variables set on the command line go
// into cmdArgs and overwrite the config file's values.
func newRootCmd() *cobra.Command {
	cmdArgs := lib.DefaultRawArgs()

	root := &cobra.Command{
		Use:           "nlist",
		Short:         "Build and maintain Verlet neighbor lists for particle simulations.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	checkCmd := &cobra.Command{
		Use:   "check <config>",
		Short: "Check a config file for errors.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processed, err := loadArgs(args[0], cmdArgs)
			if err != nil {
				return err
			}
			if err := lib.Check(processed, lib.CrashOnError, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "No errors detected.")
			return nil
		},
	}

	runCmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Run a random-walk simulation and maintain its neighbor lists.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processed, err := loadArgs(args[0], cmdArgs)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), processed)
		},
	}
	flags := runCmd.Flags()
	flags.IntVar(&cmdArgs.System.Steps, "steps", cmdArgs.System.Steps, "Number of steps to run.")
	flags.IntVar(&cmdArgs.System.Ranks, "ranks", cmdArgs.System.Ranks, "Number of in-process ranks.")
	flags.IntVar(&cmdArgs.System.Threads, "threads", cmdArgs.System.Threads, "Maximum number of OS threads, or -1 for every core.")
	flags.Int64Var(&cmdArgs.System.Seed, "seed", cmdArgs.System.Seed, "Random seed.")
	flags.StringVar(&cmdArgs.System.LogLevel, "log-level", cmdArgs.System.LogLevel, "debug, info, warn, or error.")
	flags.StringVar(&cmdArgs.System.MetricsAddr, "metrics-addr", cmdArgs.System.MetricsAddr, "Serve Prometheus metrics at this address.")
	flags.StringVar(&cmdArgs.Output.Dump, "dump", cmdArgs.Output.Dump, "Write the final neighbor list to this file.")

	dumpInfoCmd := &cobra.Command{
		Use:   "dump-info <file>",
		Short: "Print a summary of a neighbor list dump.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpInfo(cmd.OutOrStdout(), args[0])
		},
	}

	exampleCmd := &cobra.Command{
		Use:   "example-config",
		Short: "Print an example config file.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			io.WriteString(cmd.OutOrStdout(), lib.ExampleConfig)
		},
	}

	root.AddCommand(checkCmd, runCmd, dumpInfoCmd, exampleCmd)
	return root
}

// loadArgs parses a config file, overwrites it with the command line, and
// processes it.
func loadArgs(configFile string, cmdArgs *lib.RawArgs) (*lib.Args, error) {
	raw, err := lib.ParseConfigFile(configFile)
	if err != nil {
		return nil, err
	}
	raw.Overwrite(cmdArgs)
	return raw.Process()
}

func run(ctx context.Context, out io.Writer, args *lib.Args) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: args.LogLevel}))

	if err := lib.Check(args, lib.CrashOnError, logger); err != nil {
		return err
	}
	if _, err := lib.SetThreads(args.Threads); err != nil {
		return err
	}

	collector := nlist.NewCollector("nlist")
	reg := prometheus.NewRegistry()
	if err := reg.Register(collector); err != nil {
		return err
	}

	if args.MetricsAddr != "" {
		srv := &http.Server{
			Addr:    args.MetricsAddr,
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}
		go func() {
			err := srv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", "addr", args.MetricsAddr)
	}

	res, err := sim.Run(ctx, args, logger, collector)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Ran %d steps in %s.\n", res.Steps, res.Elapsed)
	for rank, s := range res.Stats {
		fmt.Fprintf(out, "rank %d: %d updates, %d forced, %d dangerous, "+
			"%d overflows, %.2f neighbors per particle\n", rank, s.Updates,
			s.ForcedUpdates, s.DangerousUpdates, s.Overflows, s.NNeighMean)
	}
	fmt.Fprintf(out, "Final buffer: %g, stored pairs: %d, particles with "+
		"exclusions: %d\n", res.RBuff, res.NPairs(), res.NExcluded)
	return nil
}

func dumpInfo(out io.Writer, fname string) error {
	snap, hd, err := nlistio.ReadFile(fname)
	if err != nil {
		return err
	}

	maxCount := uint32(0)
	for _, n := range snap.Counts {
		if n > maxCount {
			maxCount = n
		}
	}
	mean := 0.0
	if hd.N > 0 {
		mean = float64(hd.NPairs) / float64(hd.N)
	}

	fmt.Fprintf(out, "File:      %s\n", fname)
	fmt.Fprintf(out, "Timestep:  %d\n", hd.Timestep)
	fmt.Fprintf(out, "Particles: %d\n", hd.N)
	fmt.Fprintf(out, "Types:     %d\n", hd.NTypes)
	fmt.Fprintf(out, "RBuff:     %g\n", hd.RBuff)
	fmt.Fprintf(out, "Pairs:     %d\n", hd.NPairs)
	fmt.Fprintf(out, "Neighbors: %.3f mean, %d max\n", mean, maxCount)
	return nil
}
