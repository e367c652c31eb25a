package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kdelattre/orbitflow/internal/analysis"
	"github.com/kdelattre/orbitflow/internal/config"
	"github.com/kdelattre/orbitflow/internal/flow"
	"github.com/kdelattre/orbitflow/internal/models"
	"github.com/kdelattre/orbitflow/internal/phase"
	"github.com/kdelattre/orbitflow/internal/solver"
	"github.com/kdelattre/orbitflow/internal/storage"
	"github.com/kdelattre/orbitflow/internal/viz"
)

var (
	dataDir    string
	dt         float64
	duration   float64
	absTol     float64
	relTol     float64
	algorithm  string
	initState  string
	configFile string
	workers    int
	fdStep     float64
	exact      bool
	period     float64
	runs       int
	spread     float64
	seed       int64
	xAxis      int
	yAxis      int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "orbitflow",
		Short: "flow maps, variational flows, and periodic-orbit analysis",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".orbitflow", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "integrate a trajectory and store it",
		Args:  cobra.ExactArgs(1),
		RunE:  runTrajectory,
	}
	addFlowFlags(runCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [model]",
		Short: "integrate a batch of perturbed initial conditions in parallel",
		Args:  cobra.ExactArgs(1),
		RunE:  runEnsemble,
	}
	addFlowFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&runs, "runs", 8, "batch width")
	ensembleCmd.Flags().Float64Var(&spread, "spread", 0.01, "initial-condition perturbation scale")
	ensembleCmd.Flags().Int64Var(&seed, "seed", 1, "perturbation seed")

	orbitCmd := &cobra.Command{
		Use:   "orbit [model]",
		Short: "find a periodic orbit by single shooting",
		Args:  cobra.ExactArgs(1),
		RunE:  runOrbit,
	}
	addFlowFlags(orbitCmd)
	orbitCmd.Flags().Float64Var(&period, "period", config.DefaultPeriod, "initial period guess")

	floquetCmd := &cobra.Command{
		Use:   "floquet [model]",
		Short: "Floquet multipliers of a periodic orbit",
		Args:  cobra.ExactArgs(1),
		RunE:  runFloquet,
	}
	addFlowFlags(floquetCmd)
	floquetCmd.Flags().Float64Var(&period, "period", config.DefaultPeriod, "initial period guess")

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
	plotCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for phase x-axis")
	plotCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for phase y-axis")

	rootCmd.AddCommand(runCmd, ensembleCmd, orbitCmd, floquetCmd, listCmd, plotCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addFlowFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "step size (initial step for dopri5)")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "integration horizon")
	cmd.Flags().Float64Var(&absTol, "abs-tol", config.DefaultAbsTol, "absolute tolerance")
	cmd.Flags().Float64Var(&relTol, "rel-tol", config.DefaultRelTol, "relative tolerance")
	cmd.Flags().StringVar(&algorithm, "algorithm", "dopri5", "integration algorithm (rk4, dopri5)")
	cmd.Flags().StringVar(&initState, "x0", "", "comma-separated initial state")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().IntVar(&workers, "workers", 0, "ensemble workers (0 = NumCPU)")
	cmd.Flags().Float64Var(&fdStep, "fd-step", config.DefaultFDStep, "finite-difference step")
	cmd.Flags().BoolVar(&exact, "exact", true, "use the exact variational equation for derivatives")
}

// mergeConfig applies config-file values underneath any explicitly set
// flags, then returns the effective configuration.
func mergeConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	cfg.Model = model
	if cmd.Flags().Changed("dt") || cfg.Dt == 0 {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") || cfg.Duration == 0 {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("abs-tol") || cfg.AbsTol == 0 {
		cfg.AbsTol = absTol
	}
	if cmd.Flags().Changed("rel-tol") || cfg.RelTol == 0 {
		cfg.RelTol = relTol
	}
	if cmd.Flags().Changed("algorithm") || cfg.Algorithm == "" {
		cfg.Algorithm = algorithm
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("fd-step") || cfg.FDStep == 0 {
		cfg.FDStep = fdStep
	}
	if cmd.Flags().Changed("exact") {
		cfg.Exact = exact
	}
	if cmd.Flags().Changed("period") || cfg.Period == 0 {
		cfg.Period = period
	}
	if initState != "" {
		x0, err := parseState(initState)
		if err != nil {
			return nil, err
		}
		cfg.InitState = x0
	}
	return cfg, nil
}

func parseState(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	x := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid initial state %q: %w", s, err)
		}
		x[i] = v
	}
	return x, nil
}

func lookupAlgorithm(name string) (solver.Algorithm, error) {
	switch name {
	case "rk4":
		return solver.NewRK4(), nil
	case "dopri5":
		return solver.NewDopri5(), nil
	default:
		return nil, fmt.Errorf("unknown algorithm: %s", name)
	}
}

// setup builds the model, its flow, and the effective initial state.
func setup(cmd *cobra.Command, modelName string) (*config.Config, models.Model, *flow.Flow, phase.State, error) {
	cfg, err := mergeConfig(cmd, modelName)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	model, err := models.Lookup(modelName)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	alg, err := lookupAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	opts := solver.DefaultOptions()
	opts.Dt = cfg.Dt
	opts.AbsTol = cfg.AbsTol
	opts.RelTol = cfg.RelTol

	x0 := model.DefaultState()
	if len(cfg.InitState) > 0 {
		if len(cfg.InitState) != model.Dim() {
			return nil, nil, nil, nil, fmt.Errorf("model %s needs %d state components, got %d", modelName, model.Dim(), len(cfg.InitState))
		}
		x0 = phase.State(cfg.InitState).Clone()
	}

	prob := phase.NewProblem(model, nil, x0, cfg.Duration)

	var fl *flow.Flow
	if cfg.Exact {
		vprob := phase.NewProblem(models.Variational(model), nil, make(phase.State, 2*model.Dim()), cfg.Duration)
		fl = flow.NewVariational(prob, alg, opts, vprob, alg, opts, flow.WithWorkers(cfg.Workers))
	} else {
		fl = flow.New(prob, alg, opts, flow.WithWorkers(cfg.Workers), flow.WithFDStep(cfg.FDStep))
	}

	return cfg, model, fl, x0, nil
}

func runTrajectory(cmd *cobra.Command, args []string) error {
	cfg, model, fl, x0, err := setup(cmd, args[0])
	if err != nil {
		return err
	}

	tr, err := fl.Trajectory(context.Background(), x0, nil, cfg.Duration)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(model.Name(), cfg.Algorithm, cfg.Dt, cfg.Duration, tr)
	if err != nil {
		return err
	}

	t, u := tr.Last()
	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s  (%s, %d samples)", model.Name(), cfg.Algorithm, len(tr.Times))))
	fmt.Printf("%s %s\n", viz.LabelStyle.Render("final time"), viz.ValueStyle.Render(fmt.Sprintf("%.6g", t)))
	fmt.Printf("%s %s\n\n", viz.LabelStyle.Render("final state"), viz.ValueStyle.Render(formatState(u)))
	for i := 0; i < model.Dim(); i++ {
		fmt.Println(viz.PlotComponent(tr, i, fmt.Sprintf("x%d", i)))
		fmt.Println()
	}
	fmt.Printf("saved as %s\n", runID)
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, model, fl, x0, err := setup(cmd, args[0])
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(seed))
	xs := make([]phase.State, runs)
	taus := make([]float64, runs)
	for i := range xs {
		x := x0.Clone()
		for j := range x {
			x[j] += spread * rng.NormFloat64()
		}
		xs[i] = x
		taus[i] = cfg.Duration
	}

	results, err := fl.Ensemble(context.Background(), xs, nil, taus)
	if err != nil {
		return err
	}

	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s ensemble, %d columns", model.Name(), runs)))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "col\tx0\tu(T)")
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i, formatState(xs[i]), formatState(r.U))
	}
	return w.Flush()
}

func runOrbit(cmd *cobra.Command, args []string) error {
	cfg, model, fl, x0, err := setup(cmd, args[0])
	if err != nil {
		return err
	}

	shooter := analysis.NewShooting(fl, model)
	orbit, err := shooter.Solve(context.Background(), x0, nil, cfg.Period)
	if err != nil {
		return err
	}

	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s periodic orbit", model.Name())))
	fmt.Printf("%s %s\n", viz.LabelStyle.Render("point"), viz.ValueStyle.Render(formatState(orbit.X)))
	fmt.Printf("%s %s\n", viz.LabelStyle.Render("period"), viz.ValueStyle.Render(fmt.Sprintf("%.9g", orbit.Period)))
	fmt.Printf("%s %s\n", viz.LabelStyle.Render("iterations"), viz.ValueStyle.Render(strconv.Itoa(orbit.Iterations)))
	fmt.Printf("%s %s\n", viz.LabelStyle.Render("residual"), viz.ValueStyle.Render(fmt.Sprintf("%.3g", orbit.Residual)))

	m, err := analysis.Monodromy(context.Background(), fl, orbit.X, nil, orbit.Period)
	if err != nil {
		return err
	}
	vals, err := analysis.FloquetMultipliers(m)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(viz.FormatMultipliers(vals))
	return nil
}

func runFloquet(cmd *cobra.Command, args []string) error {
	cfg, model, fl, x0, err := setup(cmd, args[0])
	if err != nil {
		return err
	}

	m, err := analysis.Monodromy(context.Background(), fl, x0, nil, cfg.Period)
	if err != nil {
		return err
	}
	vals, err := analysis.FloquetMultipliers(m)
	if err != nil {
		return err
	}

	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s monodromy over T=%.6g", model.Name(), cfg.Period)))
	fmt.Print(viz.FormatMultipliers(vals))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	metas, err := st.List()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("no runs stored")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "id\tmodel\talgorithm\tduration\tsamples\twhen")
	for _, m := range metas {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.4g\t%d\t%s\n", m.ID, m.Model, m.Algorithm, m.Duration, m.Samples, m.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, tr, err := st.Load(args[0])
	if err != nil {
		return err
	}

	dim := len(tr.States[0])
	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s  (%s)", meta.ID, meta.Model)))
	for i := 0; i < dim; i++ {
		fmt.Println(viz.PlotComponent(tr, i, fmt.Sprintf("x%d", i)))
		fmt.Println()
	}
	if dim >= 2 && xAxis < dim && yAxis < dim {
		fmt.Println(viz.PlotPhase(tr, xAxis, yAxis, 60, 20))
	}
	return nil
}

func formatState(x phase.State) string {
	parts := make([]string, len(x))
	for i, v := range x {
		parts[i] = fmt.Sprintf("%.6g", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
