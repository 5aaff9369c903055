package main

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/moss-lang/moss/workload"
)

var (
	outFile   string
	quietFlag bool
)

var runCmd = &cobra.Command{
	Use:   "run SPECFILE",
	Short: "Replay a stack workload and report capacity usage",
	Args:  cobra.MinimumNArgs(1),
	Run:   runCommand,
}

func init() {
	runCmd.Flags().StringVar(&outFile, "out", "", "Write the msgpack report to this file")
	runCmd.Flags().BoolVar(&quietFlag, "quiet", false, "Suppress the printed report (still writes --out)")
}

func runCommand(cmd *cobra.Command, args []string) {
	filename := args[0]
	spec, err := workload.LoadSpecFromFile(filename)
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't load workload spec")
	}
	runner, err := workload.NewRunner(spec)
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't provision pool and stacks")
	}
	defer runner.Close()

	if err := runner.Run(spec.Trace.Script, nil); err != nil {
		log.Fatal().Err(err).Msg("Workload script failed")
	}

	report := runner.Report()
	if !quietFlag {
		printReport(report)
	}
	if outFile != "" {
		if err := report.WriteFile(outFile); err != nil {
			log.Fatal().Err(err).Msg("Couldn't write report")
		}
		log.Info().Str("path", outFile).Msg("Report written")
	}
}

func printReport(report *workload.Report) {
	fmt.Fprintln(os.Stderr, color.Cyan.Sprintf("Capacity report %s (%s)", report.RunID, report.Script))
	for _, sr := range report.Stacks {
		line := fmt.Sprintf("  %-16s peak %4d / %-4d depth %4d  fingerprint %016x", sr.Name, sr.Peak, sr.Capacity, sr.Depth, sr.Fingerprint)
		switch {
		case sr.Peak == sr.Capacity:
			fmt.Fprintln(os.Stderr, color.Red.Sprint(line+"  at capacity"))
		case sr.Peak*2 < sr.Capacity:
			fmt.Fprintln(os.Stderr, color.Yellow.Sprintf("%s  over-provisioned, peak suggests %d", line, sr.Peak))
		default:
			fmt.Fprintln(os.Stderr, color.Green.Sprint(line))
		}
	}
	fmt.Fprintf(os.Stderr, "  pool: %d words, %d free now, %d free at low water\n",
		report.Pool.Capacity, report.Pool.Available, report.Pool.MinAvailable)
}
