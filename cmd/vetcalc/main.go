// Command vetcalc runs clinical calculations from the terminal, records them
// in the calculation history, and manages animal profiles and exports.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"vetcalc/internal/blob"
	"vetcalc/internal/core"
	"vetcalc/internal/export"
	"vetcalc/pkg/calc"
	"vetcalc/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: vetcalc <command> [flags]")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  dose      total dose, draw-up volume, infusion rates")
	fmt.Fprintln(w, "  solution  solute mass for a target solution")
	fmt.Fprintln(w, "  dilution  serial dilution sequence")
	fmt.Fprintln(w, "  buffer    Henderson-Hasselbalch buffer masses")
	fmt.Fprintln(w, "  convert   single value unit conversion")
	fmt.Fprintln(w, "  history   print the calculation log")
	fmt.Fprintln(w, "  export    export the history as CSV to the blob store")
	fmt.Fprintln(w, "  profile   manage animal profiles")
}

func cli(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	cmd, rest := args[0], args[1:]

	store, err := core.OpenHistoryStore()
	if err != nil {
		fmt.Fprintf(stderr, "open history store: %v\n", err)
		return 1
	}
	svc := core.NewService(store, core.WithLogger(core.NewWriterLogger(stderr)))
	ctx := context.Background()

	switch cmd {
	case "dose":
		return runDose(ctx, svc, rest, stdout, stderr)
	case "solution":
		return runSolution(ctx, svc, rest, stdout, stderr)
	case "dilution":
		return runDilution(ctx, svc, rest, stdout, stderr)
	case "buffer":
		return runBuffer(ctx, svc, rest, stdout, stderr)
	case "convert":
		return runConvert(ctx, svc, rest, stdout, stderr)
	case "history":
		return runHistory(ctx, svc, rest, stdout, stderr)
	case "export":
		return runExport(ctx, store, rest, stdout, stderr)
	case "profile":
		return runProfile(ctx, svc, rest, stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr)
		return 2
	}
}

func submit(ctx context.Context, svc *core.Service, formula calc.Formula, raw map[string]string, stdout, stderr io.Writer) (core.Outcome, int) {
	out, err := svc.Submit(ctx, formula, raw)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return out, 1
	}
	if !out.Computed {
		fmt.Fprintln(stderr, "incomplete inputs; nothing computed")
		return out, 1
	}
	if out.SaveErr != nil {
		fmt.Fprintf(stderr, "warning: history not saved: %v\n", out.SaveErr)
	}
	fmt.Fprintln(stdout, out.Sentence)
	return out, 0
}

func runDose(ctx context.Context, svc *core.Service, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dose", flag.ContinueOnError)
	fs.SetOutput(stderr)
	weight := fs.String("weight", "", "patient weight in kg")
	dose := fs.String("dose", "", "dose per kg")
	doseUnit := fs.String("dose-unit", "", "dose unit (default mg)")
	conc := fs.String("concentration", "", "stock concentration")
	concUnit := fs.String("concentration-unit", "", "stock concentration unit (default mg/mL)")
	minutes := fs.String("time", "", "infusion time in minutes (optional)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	raw := map[string]string{
		core.InputWeight:            *weight,
		core.InputDose:              *dose,
		core.InputDoseUnit:          *doseUnit,
		core.InputConcentration:     *conc,
		core.InputConcentrationUnit: *concUnit,
		core.InputTimeMinutes:       *minutes,
	}
	out, code := submit(ctx, svc, calc.FormulaDose, raw, stdout, stderr)
	if code != 0 {
		return code
	}
	res := out.Result.(calc.DoseResult)
	fmt.Fprintf(stdout, "total dose: %s mg\n", calc.Format(res.TotalDoseMg))
	fmt.Fprintf(stdout, "volume: %s mL\n", calc.Format(res.VolumeML))
	if res.HasRate {
		fmt.Fprintf(stdout, "rate: %s mL/h (%s drops/min)\n", calc.Format(res.MLPerHour), calc.Format(res.DropsPerMinute))
	}
	return 0
}

func runSolution(ctx context.Context, svc *core.Service, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("solution", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mw := fs.String("mw", "", "molecular weight g/mol (unused for % w/v)")
	conc := fs.String("concentration", "", "target concentration")
	concUnit := fs.String("concentration-unit", "", "concentration unit (default M, or '% w/v')")
	volume := fs.String("volume", "", "target volume")
	volumeUnit := fs.String("volume-unit", "", "volume unit (default mL)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	raw := map[string]string{
		core.InputMolecularWeight:   *mw,
		core.InputConcentration:     *conc,
		core.InputConcentrationUnit: *concUnit,
		core.InputVolume:            *volume,
		core.InputVolumeUnit:        *volumeUnit,
	}
	out, code := submit(ctx, svc, calc.FormulaSolution, raw, stdout, stderr)
	if code != 0 {
		return code
	}
	res := out.Result.(calc.SolutionResult)
	fmt.Fprintf(stdout, "solute mass: %s g\n", calc.Format(res.Grams))
	return 0
}

func runDilution(ctx context.Context, svc *core.Service, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dilution", flag.ContinueOnError)
	fs.SetOutput(stderr)
	start := fs.String("start", "", "starting concentration")
	factor := fs.String("factor", "", "dilution factor per step (>1)")
	steps := fs.String("steps", "", "number of steps (1-10)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	raw := map[string]string{
		core.InputStartConcentration: *start,
		core.InputDilutionFactor:     *factor,
		core.InputSteps:              *steps,
	}
	out, code := submit(ctx, svc, calc.FormulaDilution, raw, stdout, stderr)
	if code != 0 {
		return code
	}
	res := out.Result.(calc.DilutionResult)
	for _, step := range res.Steps {
		fmt.Fprintf(stdout, "step %d: %s\n", step.Step, calc.Format(step.Concentration))
	}
	return 0
}

func runBuffer(ctx context.Context, svc *core.Service, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("buffer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	ph := fs.String("ph", "", "target pH")
	pka := fs.String("pka", "", "acid pKa")
	acidMW := fs.String("acid-mw", "", "weak acid molecular weight")
	saltMW := fs.String("salt-mw", "", "conjugate salt molecular weight")
	volume := fs.String("volume", "", "buffer volume in mL")
	conc := fs.String("concentration", "", "total buffer concentration in M")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	raw := map[string]string{
		core.InputPH:            *ph,
		core.InputPKa:           *pka,
		core.InputAcidMW:        *acidMW,
		core.InputSaltMW:        *saltMW,
		core.InputVolume:        *volume,
		core.InputConcentration: *conc,
	}
	out, code := submit(ctx, svc, calc.FormulaBuffer, raw, stdout, stderr)
	if code != 0 {
		return code
	}
	res := out.Result.(calc.BufferResult)
	fmt.Fprintf(stdout, "base/acid ratio: %s\n", calc.Format(res.Ratio))
	fmt.Fprintf(stdout, "acid: %s g, salt: %s g\n", calc.Format(res.AcidMassG), calc.Format(res.SaltMassG))
	return 0
}

func runConvert(ctx context.Context, svc *core.Service, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	value := fs.String("value", "", "value to convert")
	from := fs.String("from", "", "source unit")
	to := fs.String("to", "", "target unit")
	family := fs.String("family", "", "unit family (mass|volume|molarity|temperature)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	raw := map[string]string{
		core.InputValue:    *value,
		core.InputFromUnit: *from,
		core.InputToUnit:   *to,
		core.InputFamily:   *family,
	}
	_, code := submit(ctx, svc, calc.FormulaConversion, raw, stdout, stderr)
	return code
}

func runHistory(ctx context.Context, svc *core.Service, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	records, err := svc.History(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "history: %v\n", err)
		return 1
	}
	for _, rec := range records {
		fmt.Fprintf(stdout, "%s  %-10s  %s\n", rec.Timestamp.UTC().Format(time.RFC3339), rec.Type, rec.Sentence)
	}
	return 0
}

func runExport(ctx context.Context, store domain.HistoryStore, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	formula := fs.String("formula", "", "restrict export to one formula type")
	timeout := fs.Duration("timeout", 30*time.Second, "how long to wait for the export to finish")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	blobStore, err := blob.Open(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "open blob store: %v\n", err)
		return 1
	}
	worker := export.NewWorker(store, blobStore, nil)
	worker.Start()
	defer func() { _ = worker.Stop(context.Background()) }()

	job, err := worker.Enqueue(ctx, export.Request{
		Formula:     calc.Formula(*formula),
		RequestedBy: "cli",
	})
	if err != nil {
		fmt.Fprintf(stderr, "export: %v\n", err)
		return 1
	}
	deadline := time.Now().Add(*timeout)
	for time.Now().Before(deadline) {
		current, ok := worker.Get(job.ID)
		if !ok {
			break
		}
		switch current.Status {
		case export.StatusSucceeded:
			fmt.Fprintf(stdout, "exported %d records to %s\n", current.Artifact.Rows, current.Artifact.Key)
			if current.Artifact.URL != "" {
				fmt.Fprintln(stdout, current.Artifact.URL)
			}
			return 0
		case export.StatusFailed:
			fmt.Fprintf(stderr, "export failed: %s\n", current.Error)
			return 1
		}
		time.Sleep(25 * time.Millisecond)
	}
	fmt.Fprintln(stderr, "export timed out")
	return 1
}

func runProfile(ctx context.Context, svc *core.Service, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "", "animal name (save)")
	species := fs.String("species", "", "species (save)")
	weight := fs.Float64("weight", 0, "weight in kg (save)")
	condition := fs.String("condition", "", "clinical condition note (save)")
	id := fs.String("id", "", "profile id (update or delete)")
	del := fs.Bool("delete", false, "delete the profile given by -id")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	switch {
	case *del:
		if *id == "" {
			fmt.Fprintln(stderr, "profile -delete requires -id")
			return 2
		}
		if err := svc.DeleteProfile(ctx, *id); err != nil {
			fmt.Fprintf(stderr, "delete profile: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, "deleted")
		return 0
	case *name != "":
		saved, err := svc.SaveProfile(ctx, domain.AnimalProfile{
			ID:        *id,
			Name:      *name,
			Species:   *species,
			WeightKg:  *weight,
			Condition: *condition,
		})
		if err != nil {
			fmt.Fprintf(stderr, "save profile: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "%s  %s (%s) %s kg\n", saved.ID, saved.Name, saved.Species, calc.Format(saved.WeightKg))
		return 0
	default:
		profiles, err := svc.Profiles(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "profiles: %v\n", err)
			return 1
		}
		for _, p := range profiles {
			fmt.Fprintf(stdout, "%s  %s (%s) %s kg\n", p.ID, p.Name, p.Species, calc.Format(p.WeightKg))
		}
		return 0
	}
}
