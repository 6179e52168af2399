package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rowhit/polypath/internal/config"
	"github.com/rowhit/polypath/internal/homotopy"
	"github.com/rowhit/polypath/internal/lab"
	"github.com/rowhit/polypath/internal/storage"
	"github.com/rowhit/polypath/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	integrator string
	workers    int
	dt         float64
	tolerance  float64
	liveView   bool
	plotAfter  bool
	jsonFile   string
	svgFile    string
	// Plot axes
	component int
	pathIdx   int
	residual  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "polypath",
		Short: "polynomial system solving by homotopy continuation",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".polypath", "data directory")

	trackCmd := &cobra.Command{
		Use:   "track [preset]",
		Short: "track all start points to the target roots",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTrack,
	}
	trackCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	trackCmd.Flags().StringVar(&integrator, "integrator", "rk45", "integrator")
	trackCmd.Flags().IntVar(&workers, "workers", 0, "concurrent paths (0 = all cpus)")
	trackCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "initial timestep")
	trackCmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "step error tolerance")
	trackCmd.Flags().BoolVar(&liveView, "live", false, "show live progress view")
	trackCmd.Flags().BoolVar(&plotAfter, "plot", false, "plot trajectories after the run")
	trackCmd.Flags().IntVar(&component, "component", 0, "coordinate to plot")
	trackCmd.Flags().StringVar(&jsonFile, "json", "", "export full run to JSON file (- for stdout)")
	trackCmd.Flags().StringVar(&svgFile, "svg", "", "render trajectories to SVG file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&component, "component", 0, "coordinate to plot")
	plotCmd.Flags().IntVar(&pathIdx, "path", -1, "plot a single path")
	plotCmd.Flags().BoolVar(&residual, "residual", false, "plot |H| per step instead of trajectories")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "print the endpoint table as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSVRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "print the full run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSONRun,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "benchmark integrators on one system",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchPreset,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in systems",
		RunE:  listPresets,
	}

	rootCmd.AddCommand(trackCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, exportJSONCmd, benchCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTrack(cmd *cobra.Command, args []string) error {
	var cfg *config.Config
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	} else {
		name := "quadratic"
		if len(args) > 0 {
			name = args[0]
		}
		cfg = config.GetPreset(name)
		if cfg == nil {
			avail := config.ListPresets()
			sort.Strings(avail)
			return fmt.Errorf("unknown preset: %s (available: %v)", name, avail)
		}
	}

	// CLI flags override the preset or config file.
	if cmd.Flags().Changed("integrator") {
		cfg.Tracker.Integrator = integrator
	}
	if cmd.Flags().Changed("workers") {
		cfg.Tracker.Workers = workers
	}
	if cmd.Flags().Changed("dt") {
		cfg.Tracker.Dt = dt
	}
	if cmd.Flags().Changed("tolerance") {
		cfg.Tracker.Tolerance = tolerance
	}

	job, err := lab.New(cfg)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	var (
		results []homotopy.PathResult
		sum     lab.Summary
	)
	if liveView {
		results, sum, err = runLive(job)
	} else {
		fmt.Printf("tracking %d paths of %s...\n", job.Homotopy().Paths(), cfg.Name)
		results, sum, err = job.Run(context.Background())
	}
	if err != nil {
		return err
	}

	printResults(results, sum)

	runID, err := st.Save(cfg, results)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)

	if jsonFile == "-" {
		if err := storage.ExportJSON(os.Stdout, cfg, results, true); err != nil {
			return err
		}
	} else if jsonFile != "" {
		if err := storage.ExportJSONFile(jsonFile, cfg, results, true); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", jsonFile)
	}

	if svgFile != "" {
		svg := storage.PathsToSVG(results, component, 800, 600)
		if svg == "" {
			return fmt.Errorf("no trace data to render")
		}
		if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgFile)
	}

	if plotAfter {
		printPlots(results, component)
	}

	return nil
}

// runLive tracks the job behind a bubbletea progress view. Quitting the view
// before the run finishes cancels the run.
func runLive(job *lab.Job) ([]homotopy.PathResult, lab.Summary, error) {
	lv := viz.NewLive(job.Config().Name, job.Homotopy().Paths())
	job.SetObserver(lv.Observer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		results, _, err := job.Run(ctx)
		lv.Finish(results, err)
	}()

	begin := time.Now()
	if _, err := tea.NewProgram(lv).Run(); err != nil {
		return nil, lab.Summary{}, err
	}

	results, err := lv.Results()
	if err != nil {
		return nil, lab.Summary{}, err
	}
	if results == nil {
		return nil, lab.Summary{}, fmt.Errorf("quit before the run finished")
	}
	sum := lab.Summarize(results)
	sum.Elapsed = time.Since(begin)
	return results, sum, nil
}

func printResults(results []homotopy.PathResult, sum lab.Summary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tVERDICT\tPHASE\tT\tSTEPS\tREJECTED\tRESIDUAL\tFINAL")
	for _, r := range results {
		parts := make([]string, len(r.Final))
		for i, v := range r.Final {
			parts[i] = formatComplex(v)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.4f\t%d\t%d\t%.2e\t%s\n",
			r.Index, r.Verdict, r.Phase, r.T, r.Steps, r.Rejected, r.Residual,
			strings.Join(parts, ", "))
	}
	w.Flush()

	names := metricNames(results)
	if len(names) > 0 {
		fmt.Println("\nmetrics:")
		for _, name := range names {
			lo, hi := metricRange(results, name)
			fmt.Printf("  %s: %.3g .. %.3g\n", name, lo, hi)
		}
	}

	fmt.Printf("\ncompleted in %v\n", sum.Elapsed)
	fmt.Printf("%d converged, %d diverged, %d exhausted of %d paths\n",
		sum.Converged, sum.Diverged, sum.Exhausted, sum.Total)
}

func formatComplex(v complex128) string {
	return fmt.Sprintf("%.6g%+.6gi", real(v), imag(v))
}

func metricNames(results []homotopy.PathResult) []string {
	seen := make(map[string]bool)
	for _, r := range results {
		for name := range r.Metrics {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func metricRange(results []homotopy.PathResult, name string) (float64, float64) {
	lo, hi := 0.0, 0.0
	found := false
	for _, r := range results {
		v, ok := r.Metrics[name]
		if !ok {
			continue
		}
		if !found {
			lo, hi = v, v
			found = true
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func printPlots(results []homotopy.PathResult, component int) {
	if p := viz.PlanePlot(results, component, 70, 18); p != "" {
		fmt.Println()
		fmt.Println(p)
	}

	maxPlots := 6
	n := len(results)
	if n > maxPlots {
		n = maxPlots
	}
	for _, r := range results[:n] {
		g := viz.TracePlot(r.States, component, 70, 10)
		if g == "" {
			continue
		}
		fmt.Printf("\npath %d:\n", r.Index)
		fmt.Println(g)
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYSTEM\tTIME\tPATHS\tCONV\tDIV\tEXH\tINTEG")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Paths,
			run.Converged,
			run.Diverged,
			run.Exhausted,
			run.Integrator,
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

	records, err := st.LoadPaths(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("system: %s\n", meta.Name)
	fmt.Printf("paths: %d\n\n", meta.Paths)

	if residual {
		plotted := false
		for _, rec := range records {
			if pathIdx >= 0 && rec.Index != pathIdx {
				continue
			}
			res, err := st.LoadResidual(runID, rec.Index)
			if err != nil {
				continue
			}
			g := viz.ResidualPlot(res, 70, 10)
			if g == "" {
				continue
			}
			fmt.Printf("path %d (%s):\n", rec.Index, rec.Verdict)
			fmt.Println(g)
			fmt.Println()
			plotted = true
		}
		if !plotted {
			return fmt.Errorf("no residual data to plot")
		}
		return nil
	}

	results := make([]homotopy.PathResult, 0, len(records))
	for _, rec := range records {
		if pathIdx >= 0 && rec.Index != pathIdx {
			continue
		}
		states, times, err := st.LoadTrace(runID, rec.Index)
		if err != nil {
			continue
		}
		results = append(results, homotopy.PathResult{
			Index:  rec.Index,
			Final:  rec.Final,
			States: states,
			Times:  times,
		})
	}
	if len(results) == 0 {
		return fmt.Errorf("no trace data to plot")
	}

	printPlots(results, component)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSVRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	records, err := st.LoadPaths(runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	header := []string{"path", "verdict", "phase", "t", "steps", "rejected", "faults", "residual"}
	for i := range records[0].Final {
		header = append(header, fmt.Sprintf("z%d_re", i), fmt.Sprintf("z%d_im", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{
			strconv.Itoa(rec.Index),
			rec.Verdict,
			rec.Phase,
			strconv.FormatFloat(rec.T, 'g', -1, 64),
			strconv.Itoa(rec.Steps),
			strconv.Itoa(rec.Rejected),
			strconv.Itoa(rec.Faults),
			strconv.FormatFloat(rec.Residual, 'g', -1, 64),
		}
		for _, v := range rec.Final {
			row = append(row,
				strconv.FormatFloat(real(v), 'g', -1, 64),
				strconv.FormatFloat(imag(v), 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func exportJSONRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	return st.ExportRun(os.Stdout, args[0], true)
}

func benchPreset(cmd *cobra.Command, args []string) error {
	name := "quadratic"
	if len(args) > 0 {
		name = args[0]
	}
	if config.GetPreset(name) == nil {
		avail := config.ListPresets()
		sort.Strings(avail)
		return fmt.Errorf("unknown preset: %s (available: %v)", name, avail)
	}

	integrators := lab.NewRegistry().ListIntegrators()
	dts := []float64{0.001, 0.01}

	fmt.Printf("benchmarking %s\n\n", name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEG\tDT\tCONV\tSTEPS\tTIME\tSTEPS/SEC")

	for _, intName := range integrators {
		for _, benchDt := range dts {
			cfg := config.GetPreset(name)
			cfg.Tracker.Integrator = intName
			cfg.Tracker.Dt = benchDt

			job, err := lab.New(cfg)
			if err != nil {
				return err
			}
			results, sum, err := job.Run(context.Background())
			if err != nil {
				return err
			}

			steps := 0
			for _, r := range results {
				steps += r.Steps
			}
			stepsPerSec := float64(steps) / sum.Elapsed.Seconds()

			fmt.Fprintf(w, "%s\t%.4f\t%d/%d\t%d\t%v\t%.0f\n",
				intName, benchDt, sum.Converged, sum.Total, steps, sum.Elapsed, stepsPerSec)
		}
	}

	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	names := config.ListPresets()
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tEQUATIONS\tPATHS\tINTEG")
	for _, name := range names {
		cfg := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n",
			name, len(cfg.System), len(cfg.StartPoints), cfg.Tracker.Integrator)
	}
	return w.Flush()
}
