package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/heatloop/internal/config"
	"github.com/san-kum/heatloop/internal/experiment"
	"github.com/san-kum/heatloop/internal/export"
	"github.com/san-kum/heatloop/internal/sim"
	"github.com/san-kum/heatloop/internal/storage"
	"github.com/san-kum/heatloop/internal/thermal"
	"github.com/san-kum/heatloop/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir string
	// Config sources, applied in order: preset, config file, flags.
	configFile string
	preset     string
	kind       string
	kp         int32
	ki         int32
	kd         int32
	mode       string
	target     int32
	steps      int
	dt         int32
	label      string
	recordPath string
	outPath    string
)

// main registers commands and flags and executes the root command. It
// exits with status 1 if the command returns an error.
func main() {
	rootCmd := &cobra.Command{
		Use:          "heatloop",
		Short:        "integer PID temperature control lab",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".heatloop", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate the closed loop and save the run",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().StringVar(&label, "label", "", "run label (defaults to the preset name)")
	runCmd.Flags().StringVar(&recordPath, "record", "", "also stream samples to this CSV file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export a temperature chart of a run to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")

	stepCmd := &cobra.Command{
		Use:   "step",
		Short: "record the open-loop step response of the plant",
		Args:  cobra.NoArgs,
		RunE:  stepResponse,
	}
	stepCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	stepCmd.Flags().StringVar(&recordPath, "record", "", "stream samples to this CSV file")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				c := config.GetPreset(name).Controller
				fmt.Printf("  %-8s %-7s %v\n", name, c.Kind, c.Params())
			}
			return nil
		},
	}

	compareCmd := &cobra.Command{
		Use:   "compare [preset...]",
		Short: "run presets side by side",
		RunE:  comparePresets,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run simulation with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)

	regulateCmd := &cobra.Command{
		Use:   "regulate",
		Short: "run the control loop on a simulated heater, reading commands from stdin",
		Args:  cobra.NoArgs,
		RunE:  runRegulate,
	}
	addConfigFlags(regulateCmd)
	addRegulateFlags(regulateCmd)

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd, stepCmd, presetsCmd, compareCmd, liveCmd, regulateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml), replaces the preset")
	cmd.Flags().StringVar(&preset, "preset", "brew", "preset configuration")
	cmd.Flags().StringVar(&kind, "controller", "pid", "controller (pid, onoff, manual)")
	cmd.Flags().Int32Var(&kp, "kp", config.DefaultKp, "pid kp")
	cmd.Flags().Int32Var(&ki, "ki", config.DefaultKi, "pid ki")
	cmd.Flags().Int32Var(&kd, "kd", config.DefaultKd, "pid kd")
	cmd.Flags().StringVar(&mode, "mode", "measurement", "pid derivative mode (measurement, error)")
	cmd.Flags().Int32Var(&target, "target", 7000, "target in controller units, replaces the schedule")
	cmd.Flags().IntVar(&steps, "steps", 5000, "steps for --target")
	cmd.Flags().Int32Var(&dt, "dt", 1, "sample period in controller units")
}

// loadConfig resolves the preset, then the config file, then any flag the
// user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}

	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("controller") {
		cfg.Controller.Kind = kind
	}
	if flags.Changed("kp") {
		cfg.Controller.Kp = kp
	}
	if flags.Changed("ki") {
		cfg.Controller.Ki = ki
	}
	if flags.Changed("kd") {
		cfg.Controller.Kd = kd
	}
	if flags.Changed("mode") {
		cfg.Controller.Mode = mode
	}
	if flags.Changed("dt") {
		cfg.Sim.Dt = dt
		cfg.Regulator.Dt = dt
	}
	if flags.Changed("target") || flags.Changed("steps") {
		cfg.Sim.Schedule = sim.Schedule{{Target: target, Steps: steps}}
		cfg.Regulator.Target = target
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(cfg)
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return err
	}

	if recordPath != "" {
		rec, rerr := storage.CreateRecorder(recordPath)
		if rerr != nil {
			return rerr
		}
		defer closeRecorder(rec, &err)
		exp.GetSimulator().AddObserver(rec)
	}

	fmt.Printf("running %s controller for %d steps...\n", cfg.Controller.Kind, cfg.Sim.Schedule.Len())
	start := time.Now()

	result, err := exp.Run(context.Background())
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	if label == "" {
		label = preset
		if configFile != "" {
			label = cfg.Controller.Kind
		}
	}
	runID, err := st.Save(storage.RunMetadata{
		Label:      label,
		Controller: cfg.Controller.Kind,
		Params:     cfg.Controller.Params(),
		Dt:         cfg.Sim.Dt,
		Scale:      cfg.Sim.Scale,
	}, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("final temperature: %.2f °C\n", result.Samples[len(result.Samples)-1].Temperature)
	printMetrics(result.Metrics)

	return nil
}

// closeRecorder flushes the recording and reports a failed flush unless
// the command already failed.
func closeRecorder(rec *storage.Recorder, err *error) {
	if cerr := rec.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("close recording: %w", cerr)
	}
}

func printMetrics(m map[string]float64) {
	fmt.Println("\nmetrics:")
	for _, name := range sortedNames(m) {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tCTRL\tPARAMS\tSTEPS\tIAE")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%d\t%.2f\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Controller,
			run.Params,
			run.Steps,
			run.Metrics["iae"],
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}

	if len(samples) < 2 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("controller: %s %v\n", meta.Controller, meta.Params)
	fmt.Printf("samples: %d\n\n", len(samples))

	scale := meta.Scale
	if scale <= 0 {
		scale = 1
	}
	temps := make([]float64, len(samples))
	targets := make([]float64, len(samples))
	outputs := make([]float64, len(samples))
	for i, s := range samples {
		temps[i] = s.Temperature
		targets[i] = float64(s.Target) / scale
		outputs[i] = float64(s.Output)
	}

	fmt.Println(asciigraph.PlotMany([][]float64{temps, targets},
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Red, asciigraph.Blue),
		asciigraph.Caption("temperature / target (°C)"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(outputs,
		asciigraph.Height(6),
		asciigraph.Width(80),
		asciigraph.Caption("controller output"),
	))

	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}

	return storage.ExportJSON(os.Stdout, *meta, samples)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}

	if len(samples) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)

	if err := w.Write([]string{"step", "time", "target", "measurement", "output", "temp"}); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{
			strconv.Itoa(s.Step),
			strconv.FormatInt(s.Time, 10),
			strconv.FormatInt(int64(s.Target), 10),
			strconv.FormatInt(int64(s.Measurement), 10),
			strconv.FormatInt(int64(s.Output), 10),
			strconv.FormatFloat(s.Temperature, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}

	if outPath == "" {
		return export.RunToSVG(os.Stdout, samples, meta.Scale, 800, 400)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := export.RunToSVG(f, samples, meta.Scale, 800, 400); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func stepResponse(cmd *cobra.Command, args []string) (err error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	plant, err := thermal.New(cfg.Plant)
	if err != nil {
		return err
	}

	var observers []sim.Observer
	if recordPath != "" {
		rec, rerr := storage.CreateRecorder(recordPath)
		if rerr != nil {
			return rerr
		}
		defer closeRecorder(rec, &err)
		observers = append(observers, rec)
	}

	result, err := sim.StepResponse(context.Background(), plant, cfg.Step, observers...)
	if err != nil {
		return err
	}

	fmt.Printf("power %d until %.1f °C\n", cfg.Step.Power, cfg.Step.Threshold)
	fmt.Printf("rise: %.0f steps, peak: %.2f °C, samples: %d\n\n",
		result.Metrics["rise_steps"], result.Metrics["peak_temp"], result.StepsTaken)
	fmt.Println(asciigraph.Plot(result.Temperatures(),
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("step response (°C)"),
	))

	return nil
}

func comparePresets(cmd *cobra.Command, args []string) error {
	names := args
	if len(names) == 0 {
		names = config.ListPresets()
	}

	registry := experiment.NewRegistry()
	jobs := make([]sim.Job, 0, len(names))
	for _, name := range names {
		cfg := config.GetPreset(name)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
		jobs = append(jobs, sim.Job{
			Name:   name,
			Build:  func() (*sim.Simulator, error) { return experiment.Build(registry, cfg) },
			Config: cfg.Sim,
		})
	}

	start := time.Now()
	results := sim.RunBatch(context.Background(), jobs)

	fmt.Printf("%-8s  %10s  %10s  %10s  %10s  %10s  %8s\n", "preset", "iae", "overshoot", "effort", "saturation", "stability", "final_c")
	fmt.Println(strings.Repeat("-", 76))
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%-8s  error: %v\n", r.Name, r.Err)
			continue
		}
		m := r.Result.Metrics
		final := r.Result.Samples[len(r.Result.Samples)-1].Temperature
		fmt.Printf("%-8s  %10.1f  %10.1f  %10.1f  %10.3f  %10.3f  %8.2f\n",
			r.Name, m["iae"], m["overshoot"], m["control_effort"], m["saturation"], m["stability"], final)
	}
	fmt.Printf("\n%d runs in %v\n", len(results), time.Since(start))

	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := experiment.Build(experiment.NewRegistry(), cfg)
	if err != nil {
		return err
	}

	_, maxOut := experiment.OutputRange(cfg.Controller)
	m := viz.NewModel(s, cfg.Sim, maxOut)

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
