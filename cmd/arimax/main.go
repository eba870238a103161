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
	"syscall"
	"time"

	forecaster "github.com/aouyang1/go-arimax"
	"github.com/aouyang1/go-arimax/frame"
	"github.com/aouyang1/go-arimax/internal/config"
	"github.com/aouyang1/go-arimax/internal/orchestrate"
	"github.com/aouyang1/go-arimax/internal/registry"
	"github.com/aouyang1/go-arimax/internal/server"
	"github.com/aouyang1/go-arimax/internal/warehouse"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	verbose     bool
	configPath  string
	envFile     string
	profileMode string
	profilePath string
	cfg         config.Config
	profiler    interface{ Stop() }
)

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}

// execute runs the root command and flushes any profile whether or not the command failed
func execute() error {
	defer stopProfiler()
	return rootCmd.Execute()
}

func stopProfiler() {
	if profiler != nil {
		profiler.Stop()
		profiler = nil
	}
}

var rootCmd = &cobra.Command{
	Use:     "arimax",
	Short:   "Daily count forecasts with exogenous ARIMA models",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath, envFile)
		if err != nil {
			return fmt.Errorf("unable to load config, %w", err)
		}

		lvl, err := cfg.LogLevel()
		if err != nil {
			return err
		}
		if verbose {
			lvl = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))

		switch profileMode {
		case "":
		case "cpu":
			profiler = profile.Start(profile.CPUProfile, profile.ProfilePath(profilePath), profile.Quiet)
		case "mem":
			profiler = profile.Start(profile.MemProfile, profile.ProfilePath(profilePath), profile.Quiet)
		default:
			return fmt.Errorf("unknown profile mode %q, expected cpu or mem", profileMode)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Path to an env file with overrides")
	rootCmd.PersistentFlags().StringVar(&profileMode, "profile", "", "Write a cpu or mem profile")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile-path", ".", "Directory the profile is written to")

	forecastCmd.Flags().StringVarP(&inputPath, "input", "i", "-", "Observation frame, - reads stdin")
	forecastCmd.Flags().StringVarP(&outputPath, "output", "o", "-", "Result frame, - writes stdout")
	forecastCmd.Flags().StringVar(&presetName, "preset", "", "Model preset, standard or arma2. Defaults to the config preset")
	forecastCmd.Flags().StringVar(&orient, "orient", string(frame.OrientList), "Result layout, list or index")
	forecastCmd.Flags().StringVar(&plotPath, "plot", "", "Write an html chart of a single site forecast")
	forecastCmd.Flags().BoolVar(&showModel, "model", false, "Print the fit model of a single site forecast to stderr")
	forecastCmd.Flags().IntVar(&parallelism, "parallelism", 0, "Sites forecast concurrently, 0 uses the number of cpus")

	seriesCmd.Flags().StringVarP(&inputPath, "input", "i", "-", "Series frame, - reads stdin")
	seriesCmd.Flags().StringVarP(&outputPath, "output", "o", "-", "Result, - writes stdout")
	seriesCmd.Flags().StringVar(&presetName, "preset", "", "Model preset, standard or arma2. Defaults to the config preset")

	loadCmd.Flags().StringVarP(&inputPath, "input", "i", "-", "Observation frame, - reads stdin")

	runCmd.Flags().DurationVar(&every, "every", 0, "Repeat the task at this interval until interrupted")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(seriesCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

var (
	inputPath   string
	outputPath  string
	presetName  string
	orient      string
	plotPath    string
	showModel   bool
	parallelism int
	every       time.Duration
)

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

func forecastOptions() (*forecaster.Options, error) {
	if presetName != "" {
		return forecaster.NewPresetOptions(presetName)
	}
	return cfg.ForecastOptions()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default config file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "config.yaml"
		if len(args) == 1 {
			target = args[0]
		}
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}
		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("unable to write config, %w", err)
		}
		fmt.Printf("Created config: %s\n", target)
		return nil
	},
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast the future rows of an observation frame",
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := forecastOptions()
		if err != nil {
			return err
		}

		in, err := openInput(inputPath)
		if err != nil {
			return err
		}
		rows, err := frame.Decode(in, opt.Exog)
		in.Close()
		if err != nil {
			return fmt.Errorf("unable to decode observations, %w", err)
		}

		out, err := openOutput(outputPath)
		if err != nil {
			return err
		}
		defer out.Close()

		sites, _ := forecaster.GroupBySite(rows)
		if len(sites) != 1 {
			if plotPath != "" || showModel {
				slog.Warn("plot and model output need a single site", "sites", len(sites))
			}
			res, err := forecaster.ForecastSites(rows, opt, parallelism)
			if err != nil {
				return err
			}
			return frame.EncodeSiteResults(out, res, frame.Orient(orient))
		}

		f, err := forecaster.New(opt)
		if err != nil {
			return err
		}
		res, err := f.Forecast(rows)
		if err != nil {
			return err
		}
		slog.Debug("forecast complete", "site", sites[0], "rows", res.Len())

		if showModel {
			m, err := f.Model()
			if err != nil {
				return err
			}
			if err := m.TablePrint(os.Stderr, "", "  "); err != nil {
				return err
			}
		}
		if plotPath != "" {
			if err := writePlot(f, res); err != nil {
				return err
			}
		}
		return frame.EncodeResults(out, res, frame.Orient(orient))
	},
}

func writePlot(f *forecaster.Forecaster, res *forecaster.Results) error {
	file, err := os.Create(plotPath)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := f.PlotForecast(file, res); err != nil {
		return fmt.Errorf("unable to plot forecast, %w", err)
	}
	slog.Info("wrote plot", "path", plotPath)
	return nil
}

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Forecast a single count series for a week",
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := forecastOptions()
		if err != nil {
			return err
		}

		in, err := openInput(inputPath)
		if err != nil {
			return err
		}
		counts, err := frame.DecodeSeries(in)
		in.Close()
		if err != nil {
			return fmt.Errorf("unable to decode series, %w", err)
		}

		f, err := forecaster.New(opt)
		if err != nil {
			return err
		}
		res, err := f.ForecastSeries(counts)
		if err != nil {
			return err
		}

		out, err := openOutput(outputPath)
		if err != nil {
			return err
		}
		defer out.Close()
		return frame.EncodeSeries(out, res)
	},
}

func openWarehouse(ctx context.Context) (*warehouse.Warehouse, error) {
	w, err := warehouse.Open(ctx, cfg.Warehouse.Driver, cfg.Warehouse.DSN)
	if err != nil {
		return nil, fmt.Errorf("unable to open warehouse, %w", err)
	}
	return w, nil
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load an observation frame into the warehouse",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		in, err := openInput(inputPath)
		if err != nil {
			return err
		}
		rows, err := frame.Decode(in, nil)
		in.Close()
		if err != nil {
			return fmt.Errorf("unable to decode observations, %w", err)
		}

		w, err := openWarehouse(ctx)
		if err != nil {
			return err
		}
		defer w.Close()

		if err := w.InsertObservations(ctx, rows); err != nil {
			return err
		}
		slog.Info("loaded observations", "rows", len(rows))
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Forecast every warehouse site and stage the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		w, err := openWarehouse(ctx)
		if err != nil {
			return err
		}
		defer w.Close()

		runner := &orchestrate.Runner{
			Registry:  registry.New(),
			Warehouse: w,
			Config:    cfg,
		}
		if every > 0 {
			return runner.Schedule(ctx, every)
		}

		report, err := runner.Run(ctx)
		if report != nil {
			fmt.Printf("Forecast day: %s\n", report.Day.Format(time.DateOnly))
			fmt.Printf("  Sites: %d\n", report.Sites)
			fmt.Printf("  Rows staged: %d\n", report.Rows)
			if len(report.Failed) > 0 {
				fmt.Printf("  Failed: %v\n", report.Failed)
			}
		}
		return err
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve pipeline inference over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		reg := registry.New()
		ws, err := reg.CreateWorkspace(cfg.Workspace)
		if err != nil {
			return err
		}
		opt, err := cfg.ForecastOptions()
		if err != nil {
			return err
		}
		p, err := ws.BuildPipeline(cfg.Pipeline, opt)
		if err != nil {
			return err
		}
		p.Parallelism = cfg.Forecast.Parallelism
		if err := p.Deploy(); err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           server.New(ws, slog.Default()).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			slog.Info("serving", "addr", cfg.Server.Addr, "workspace", ws.Name(), "pipeline", p.Name())
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return p.Undeploy()
	},
}
