package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-quill/internal/config"
	"github.com/23skdu/longbow-quill/internal/logger"
	"github.com/23skdu/longbow-quill/internal/metrics"
)

type options struct {
	model        string
	split        string
	numSamples   int
	showRev      int
	maxLen       int
	seedLength   int
	interactive  bool
	mType        string
	flip         int
	softmaxScale float64

	dataset     string
	seed        int64
	temperature float64
	topK        int
	topP        float64
	greedy      bool
	export      string
	flight      string
	metricsAddr string
	logLevel    string
	logFormat   string
}

func newRootCmd(settings config.Settings) *cobra.Command {
	opts := options{}
	root := &cobra.Command{
		Use:           "quill",
		Short:         "Sample text from author-conditioned character models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Setup(opts.logLevel, opts.logFormat)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.model == "" {
				return fmt.Errorf("--model is required")
			}
			if !cmd.Flags().Changed("m_type") {
				opts.mType = ""
			}
			if opts.metricsAddr != "" {
				go func() {
					if err := metrics.Serve(opts.metricsAddr); err != nil {
						logger.Log.Error("Metrics server failed", err, "addr", opts.metricsAddr)
					}
				}()
				logger.Log.Info("Metrics serving", "addr", opts.metricsAddr)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			r, err := newRunner(opts, settings, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer r.Close()

			if opts.interactive {
				err = r.interactive(ctx, cmd.InOrStdin())
			} else {
				err = r.run(ctx)
			}
			if err != nil {
				return err
			}
			return r.finish(ctx)
		},
	}

	f := root.Flags()
	f.StringVarP(&opts.model, "model", "m", "", "checkpoint file or registry name[:tag]")
	f.StringVarP(&opts.split, "split", "s", "val", "which split to sample from")
	f.IntVar(&opts.numSamples, "num_samples", 10, "how many samples to generate")
	f.IntVar(&opts.showRev, "show_rev", 0, "1 to run and print the reverse (cycle) pass")
	f.IntVarP(&opts.maxLen, "max_len", "l", 100, "atoms to generate per pass (0 uses the checkpoint max_seq_len)")
	f.IntVar(&opts.seedLength, "seed_length", 100, "atom length of the generative seed")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "read input sentences from stdin")
	f.StringVar(&opts.mType, "m_type", string(config.ModelGenerative), "model type: generative or translator")
	f.IntVar(&opts.flip, "flip", 0, "1 to condition the output on the other author")
	f.Float64Var(&opts.softmaxScale, "softmax_scale", 0, "override the checkpoint softmax scale")

	f.StringVar(&opts.dataset, "dataset", settings.Dataset, "dataset file (.json or .csv); defaults to the checkpoint's")
	f.Int64Var(&opts.seed, "seed", 0, "random seed (0 picks one from the clock)")
	f.Float64Var(&opts.temperature, "temperature", 1, "sampling temperature")
	f.IntVar(&opts.topK, "top_k", 0, "keep only the k most likely atoms (0 disables)")
	f.Float64Var(&opts.topP, "top_p", 0, "nucleus sampling threshold (0 disables)")
	f.BoolVar(&opts.greedy, "greedy", false, "always pick the most likely atom")
	f.StringVar(&opts.export, "export", "", "write the run to this Arrow IPC file")
	f.StringVar(&opts.flight, "flight", "", "upload the run to this Arrow Flight endpoint (host:port)")
	f.StringVar(&opts.metricsAddr, "metrics", settings.MetricsAddr, "serve Prometheus metrics on this address")

	pf := root.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", settings.LogLevel, "debug, info, warn or error")
	pf.StringVar(&opts.logFormat, "log-format", settings.LogFormat, "console or json")

	root.AddCommand(newInspectCmd(settings))
	return root
}

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}
	if err := newRootCmd(settings).ExecuteContext(context.Background()); err != nil {
		logger.Log.Error("quill failed", err)
		os.Exit(1)
	}
}
