package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/likeligrid/likeligrid/internal/checkpoint"
	"github.com/likeligrid/likeligrid/internal/corpus"
	"github.com/likeligrid/likeligrid/internal/likelihood"
	"github.com/likeligrid/likeligrid/internal/metrics"
	"github.com/likeligrid/likeligrid/internal/search"
	"github.com/likeligrid/likeligrid/pkg/config"
	"github.com/likeligrid/likeligrid/pkg/logger"
	"github.com/spf13/cobra"
)

// options holds the flags shared by every subcommand
type options struct {
	configPath  string
	logLevel    string
	logFormat   string
	maxSites    int
	epistasis   []int
	pleiotropy  bool
	metricsFile string

	// grid
	outDir     string
	maxResults int
	compress   bool
	gridInit   float64

	// ascent
	seed      int64
	startFrom string
	output    string
	ascInit   float64

	// loglik
	theta []float64
}

// run is the state a subcommand works with after flags and config are merged
type run struct {
	cfg     *config.Config
	log     *slog.Logger
	model   *likelihood.Model
	metrics *metrics.Collector
	out     io.Writer
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "likeligrid",
		Short: "Maximum-likelihood estimation of pathway exclusivity",
		Long: `likeligrid fits per-pathway exclusivity parameters to a mutation matrix.
The likelihood is exact: every ordered mutation path up to the mutation
ceiling is enumerated. Grid and ascent searches write resumable result files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format (json, text)")
	pf.IntVarP(&opts.maxSites, "max-sites", "s", 0, "drop samples with more mutated genes than this")
	pf.IntSliceVar(&opts.epistasis, "epistasis", nil, "pathway index pair i,j with an interaction parameter")
	pf.BoolVar(&opts.pleiotropy, "pleiotropy", false, "add a pleiotropy parameter to the epistasis pair")
	pf.StringVar(&opts.metricsFile, "metrics-textfile", "", "write prometheus metrics to this file on exit")

	gridCmd := &cobra.Command{
		Use:   "grid <input.json[.gz]>",
		Short: "Staged grid search, resumed from the stage files in --out-dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := setup(cmd, opts, args[0])
			if err != nil {
				return err
			}
			return r.finish(r.grid(cmd.Context()))
		},
	}
	gf := gridCmd.Flags()
	gf.StringVarP(&opts.outDir, "out-dir", "o", "", "directory of the stage files")
	gf.IntVar(&opts.maxResults, "max-results", 0, "rows kept in memory per stage, 0 keeps all")
	gf.BoolVar(&opts.compress, "compress", true, "gzip the stage files")
	gf.Float64Var(&opts.gridInit, "initial", 0, "value of every coordinate at the first grid center")

	ascentCmd := &cobra.Command{
		Use:   "ascent <input.json[.gz]>",
		Short: "Greedy neighbor ascent; the visited points are written to --output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := setup(cmd, opts, args[0])
			if err != nil {
				return err
			}
			return r.finish(r.ascent(cmd.Context()))
		},
	}
	af := ascentCmd.Flags()
	af.Int64Var(&opts.seed, "seed", 0, "shuffle seed, 0 draws one from the clock")
	af.StringVar(&opts.startFrom, "start-from", "", "start at the best row of this result file")
	af.StringVarP(&opts.output, "output", "o", "", "result file for the visited points (default stdout)")
	af.Float64Var(&opts.ascInit, "initial", 0, "value of every coordinate at the start")

	loglikCmd := &cobra.Command{
		Use:   "loglik <input.json[.gz]>",
		Short: "Evaluate the log-likelihood at one parameter vector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := setup(cmd, opts, args[0])
			if err != nil {
				return err
			}
			return r.finish(r.loglik(opts.theta))
		},
	}
	loglikCmd.Flags().Float64SliceVarP(&opts.theta, "theta", "t", nil, "parameter vector (default all 1)")

	root.AddCommand(gridCmd, ascentCmd, loglikCmd)
	return root
}

// setup loads the configuration, applies flag overrides, and builds the model
func setup(cmd *cobra.Command, opts *options, input string) (*run, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	applyFlags(cmd, opts, cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.NewFormat(cfg.LogFormat, cfg.LogLevel, cmd.ErrOrStderr())
	logger.SetDefault(log)
	if effective, err := config.Marshal(cfg); err == nil {
		log.Debug("effective configuration", "yaml", string(effective))
	}

	c, err := corpus.LoadFile(input, cfg.MaxSites)
	if err != nil {
		return nil, err
	}
	c.Describe(log)

	var modelOpts []likelihood.Option
	if e := cfg.Epistasis; e != nil {
		modelOpts = append(modelOpts, likelihood.WithEpistasis(e.Pair[0], e.Pair[1], e.Pleiotropy))
	}
	model, err := likelihood.NewModel(c, modelOpts...)
	if err != nil {
		return nil, err
	}
	log.Info("model ready", "parameters", model.Names(), "max_sites", model.MaxSites(),
		"samples", c.NumSamples(), "genes", c.NumGenes())

	r := &run{cfg: cfg, log: log, model: model, out: cmd.OutOrStdout()}
	if cfg.Metrics.Textfile != "" {
		r.metrics = metrics.NewCollector()
		r.metrics.Start()
	}
	return r, nil
}

// applyFlags overrides cfg with every flag given on the command line
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}
	if flags.Changed("max-sites") {
		cfg.MaxSites = opts.maxSites
	}
	if flags.Changed("epistasis") {
		// a malformed pair stays at -1 and fails validation
		e := &config.EpistasisConfig{Pair: [2]int{-1, -1}, Pleiotropy: opts.pleiotropy}
		if len(opts.epistasis) == 2 {
			e.Pair = [2]int{opts.epistasis[0], opts.epistasis[1]}
		}
		cfg.Epistasis = e
	} else if flags.Changed("pleiotropy") && cfg.Epistasis != nil {
		cfg.Epistasis.Pleiotropy = opts.pleiotropy
	}
	if flags.Changed("metrics-textfile") {
		cfg.Metrics.Textfile = opts.metricsFile
	}

	if flags.Lookup("out-dir") != nil {
		if flags.Changed("out-dir") {
			cfg.Grid.OutDir = opts.outDir
		}
		if flags.Changed("max-results") {
			cfg.Grid.MaxResults = opts.maxResults
		}
		if flags.Changed("compress") {
			cfg.Grid.Compress = opts.compress
		}
		if flags.Changed("initial") {
			cfg.Grid.Initial = opts.gridInit
		}
	}
	if flags.Lookup("start-from") != nil {
		if flags.Changed("seed") {
			cfg.Ascent.Seed = opts.seed
		}
		if flags.Changed("start-from") {
			cfg.Ascent.StartFrom = opts.startFrom
		}
		if flags.Changed("output") {
			cfg.Ascent.Output = opts.output
		}
		if flags.Changed("initial") {
			cfg.Ascent.Initial = opts.ascInit
		}
	}
}

func (r *run) grid(ctx context.Context) error {
	res, err := search.NewGrid(r.model, r.cfg.Grid).
		WithLogger(r.log).
		WithMetrics(r.metrics).
		Run(ctx)
	if err != nil {
		return err
	}
	r.log.Info("grid search finished", "status", res.Status, "stage", res.Stage, "step", res.Step,
		"evaluated", res.Evaluated, "path", res.Path)
	if res.Status == search.StatusInterrupted {
		return nil
	}
	return r.printRows([]checkpoint.Row{res.Best})
}

func (r *run) ascent(ctx context.Context) error {
	a := search.NewAscent(r.model, r.cfg.Ascent).
		WithLogger(r.log).
		WithMetrics(r.metrics)
	if _, err := a.Run(ctx); err != nil {
		return err
	}
	if r.cfg.Ascent.Output == "" {
		_, err := a.WriteTo(r.out)
		return err
	}
	return nil
}

func (r *run) loglik(theta []float64) error {
	if len(theta) == 0 {
		theta = make([]float64, r.model.Dim())
		for i := range theta {
			theta[i] = 1
		}
	}
	timer := metrics.StartTimer(r.metrics, metrics.SearchLogLik)
	ll, err := r.model.LogLikelihood(theta)
	timer.Stop()
	if err != nil {
		return err
	}
	return r.printRows([]checkpoint.Row{{LogLik: ll, Params: theta}})
}

func (r *run) printRows(rows []checkpoint.Row) error {
	if _, err := io.WriteString(r.out, checkpoint.FormatMeta(checkpoint.Meta{MaxSites: r.model.MaxSites()}, r.model.Names())); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := io.WriteString(r.out, checkpoint.FormatRow(row)); err != nil {
			return err
		}
	}
	return nil
}

// finish writes the metrics textfile, if configured, and passes err through
func (r *run) finish(err error) error {
	if r.metrics == nil {
		return err
	}
	r.metrics.Stop()
	if werr := r.metrics.WriteTextfile(r.cfg.Metrics.Textfile); werr != nil {
		if err == nil {
			return werr
		}
		r.log.Error("metrics not written", "error", werr)
	}
	return err
}
