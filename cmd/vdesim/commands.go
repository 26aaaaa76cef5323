package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/vdesim/internal/analysis"
	"github.com/san-kum/vdesim/internal/config"
	"github.com/san-kum/vdesim/internal/control"
	"github.com/san-kum/vdesim/internal/dynamo"
	"github.com/san-kum/vdesim/internal/optim"
	"github.com/san-kum/vdesim/internal/sim"
	"github.com/san-kum/vdesim/internal/storage"
	"github.com/san-kum/vdesim/internal/viz"
)

func newRunCmd() *cobra.Command {
	var (
		noSave  bool
		showPlt bool
		pngPath string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run one closed-loop simulation and store it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, kind, err := newSimulator(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			res, err := s.Run(ctx, kind, cfg.Duration, cfg.Seed)
			if err != nil {
				return err
			}
			fmt.Println(viz.Summary(res.Metrics))

			if showPlt {
				fmt.Println(viz.RenderASCII(res.History, 70))
			}
			if pngPath != "" {
				if err := viz.SavePNG(pngPath, res, logger); err != nil {
					return err
				}
			}
			if noSave {
				return nil
			}

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			meta := storage.NewRunMetadata(cfg.Preset, cfg.Physics, res)
			if err := st.Save(ctx, meta, res.History); err != nil {
				return err
			}
			fmt.Printf("saved: %s\n", meta.ID)
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	cmd.Flags().BoolVar(&showPlt, "plot", false, "print terminal charts of z and u")
	cmd.Flags().StringVar(&pngPath, "png", "", "also write the figure to this PNG file")
	return cmd
}

func newSweepCmd() *cobra.Command {
	var (
		runs    int
		workers int
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "run one controller over many seeds in parallel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, kind, err := newSimulator(cfg)
			if err != nil {
				return err
			}

			results, summary, err := s.Sweep(cmd.Context(), sim.SweepConfig{
				Kind:     kind,
				Duration: cfg.Duration,
				Seeds:    sim.SeedRange(cfg.Seed, runs),
				Workers:  workers,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SEED\tSTATUS\tSTEPS\tPEAK Z (mm)\tMEAN |U|\tVIOLATIONS")
			for _, r := range results {
				m := r.Metrics
				fmt.Fprintf(w, "%d\t%s\t%d\t%.2f\t%.4f\t%d\n", m.Seed, m.Status, m.Steps, m.MaxZ*1000, m.MeanU, m.Violations)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Printf("\n%d runs, success rate %.1f%%\n", summary.Runs, 100*summary.SuccessRate)
			statuses := make([]dynamo.Status, 0, len(summary.StatusCounts))
			for st := range summary.StatusCounts {
				statuses = append(statuses, st)
			}
			sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
			for _, st := range statuses {
				fmt.Printf("  %-10s %d\n", st, summary.StatusCounts[st])
			}
			fmt.Printf("peak |z|: mean %.2f mm, max %.2f mm\n", summary.MeanPeakZ*1000, summary.MaxPeakZ*1000)
			fmt.Printf("mean |u|: %.4f, mean compute %.1f ms\n", summary.MeanEffort, summary.MeanComputeMs)
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().IntVar(&runs, "runs", 16, "number of seeds, starting at --seed")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 = GOMAXPROCS)")
	return cmd
}

func newTuneCmd() *cobra.Command {
	var (
		qz  []float64
		r   []float64
		top int
	)
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "grid-search the LQR weights q_z and r by simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, _, err := newSimulator(cfg)
			if err != nil {
				return err
			}

			best, err := s.TuneLQR(cmd.Context(), sim.TuneConfig{
				QZ:       qz,
				R:        r,
				Duration: cfg.Duration,
				Seed:     cfg.Seed,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "Q_Z\tR\tOBJECTIVE")
			ranked := optim.Ranked(best.Points)
			if top > 0 && len(ranked) > top {
				ranked = ranked[:top]
			}
			for _, p := range ranked {
				fmt.Fprintf(w, "%g\t%g\t%.6g\n", p.Params["q_z"], p.Params["r"], p.Value)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\nbest: q_z=%g r=%g objective=%.6g\n", best.QZ, best.R, best.Objective)
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().Float64SliceVar(&qz, "qz", []float64{10, 100, 1000, 10000}, "q_z grid")
	cmd.Flags().Float64SliceVar(&r, "r", []float64{0.01, 0.1, 1}, "r grid")
	cmd.Flags().IntVar(&top, "top", 5, "rows to print (0 = all)")
	return cmd
}

func newLiveCmd() *cobra.Command {
	var stepsPerFrame int
	cmd := &cobra.Command{
		Use:   "live",
		Short: "step a simulation interactively in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			kind, err := control.ParseKind(cfg.Controller)
			if err != nil {
				return err
			}
			session, err := sim.NewSession(cfg.Physics, cfg.Controllers, kind, cfg.Seed, zap.NewNop())
			if err != nil {
				return err
			}

			model := viz.NewLiveModel(session, stepsPerFrame)
			if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run(); err != nil {
				return err
			}
			fmt.Println(viz.Summary(session.Metrics()))
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().IntVar(&stepsPerFrame, "steps", 4, "plant steps per frame")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPRESET\tTIME\tSTATUS\tSIM TIME\tPEAK Z (mm)\tSEED")
			for _, run := range runs {
				m := run.Metrics
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.4fs\t%.2f\t%d\n",
					run.ID,
					run.Preset,
					m.Timestamp.Local().Format("2006-01-02 15:04:05"),
					m.Status,
					m.Duration,
					m.MaxZ*1000,
					m.Seed,
				)
			}
			return w.Flush()
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [run_id]",
		Short: "print the metrics and physics of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, _, err := loadRun(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Println(viz.Summary(meta.Metrics))
			p := meta.Physics
			fmt.Printf("preset %s, %s, dt=%g s, gamma_z=%g 1/s, M_z=%g, k_eddy_z=%g, noise=%g\n",
				meta.Preset, p.Dimension, p.Dt, p.GammaZ, p.MassZ, p.KEddyZ, p.NoiseLevel)
			return nil
		},
	}
}

func newExportCSVCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run history (time, z, u_z) to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, res, err := loadRun(cmd, args[0])
			if err != nil {
				return err
			}
			if out == "" {
				return storage.WriteHistoryCSV(os.Stdout, res.History)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := storage.WriteHistoryCSV(f, res.History); err != nil {
				return err
			}
			fmt.Printf("exported %d samples to %s\n", res.History.Len(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newExportJSONCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and history as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, res, err := loadRun(cmd, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				storage.RunMetadata
				History sim.History `json:"history"`
			}{meta, res.History})
		},
	}
}

func newPlotCmd() *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, res, err := loadRun(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("run: %s  status: %s\n\n", meta.ID, meta.Metrics.Status)
			fmt.Print(viz.RenderASCII(res.History, width))
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "chart width")
	return cmd
}

func newPNGCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "png [run_id]",
		Short: "write the two-panel figure of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, res, err := loadRun(cmd, args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = meta.ID + ".png"
			}
			return viz.SavePNG(out, res, logger)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <run_id>.png)")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var maxFreq float64
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "power spectrum of the z trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, res, err := loadRun(cmd, args[0])
			if err != nil {
				return err
			}
			dt := meta.Physics.Dt
			sp, err := analysis.PowerSpectrum(res.History.Z, dt)
			if err != nil {
				return err
			}

			n := len(sp.Power)
			for n > 2 && sp.Freq[n-1] > maxFreq {
				n--
			}
			graph := asciigraph.Plot(sp.Power[:n],
				asciigraph.Height(15),
				asciigraph.Width(80),
				asciigraph.Caption(fmt.Sprintf("power spectrum of z, 0-%.0f Hz", sp.Freq[n-1])),
			)
			fmt.Printf("frequency analysis: %s\n\n%s\n\n", meta.ID, graph)

			freq, err := analysis.DominantFrequency(res.History.Z, dt)
			if err != nil {
				return err
			}
			if freq == 0 {
				fmt.Println("no dominant oscillation")
				return nil
			}
			fmt.Printf("dominant frequency: %.2f Hz\nperiod: %.4f s\n", freq, 1/freq)
			return nil
		},
	}
	cmd.Flags().Float64Var(&maxFreq, "max-freq", 500, "highest frequency to chart (Hz)")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list physics presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDIM\tGAMMA_Z\tIP_NOMINAL\tM_Z\tB_Z\tDT\tVDE_Z")
			for _, name := range config.ListPresets() {
				p, err := config.GetPreset(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%g\t%.3g\t%g\t%g\t%g\t%g\n",
					name, p.Dimension, p.GammaZ, p.IpNominal, p.MassZ, p.BControlZ, p.Dt, p.VDEThresholdZ)
			}
			return w.Flush()
		},
	}
}

// kindNames lists the controllers a user can pick.
func kindNames() string {
	var names []string
	for _, k := range []control.Kind{control.KindLQR, control.KindNMPC, control.KindNone} {
		names = append(names, strings.ToLower(k.String()))
	}
	return strings.Join(names, ", ")
}
