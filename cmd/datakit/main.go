// Command datakit is the test and benchmark harness for the codec, bitmap,
// and timingwheel packages: list/test/bench/speed subcommands driven by
// cobra rather than go test, so the suites can be invoked as a plain CLI
// tool independent of the Go toolchain's process model.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"testing"

	"github.com/spf13/cobra"
)

// unknownExitCode is the sentinel for an unrecognized subcommand or suite
// name, per the harness's exit-code contract. os.Exit truncates it to 253
// the same way it would any negative POSIX status; callers scripting
// against this CLI should compare against -3 mod 256.
const unknownExitCode = -3

func main() {
	rootCmd := &cobra.Command{
		Use:   "datakit",
		Short: "Test and benchmark harness for the codec, bitmap, and timingwheel packages",
	}

	var listJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Enumerate registered suites",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(listJSON)
		},
	}
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print suites as a JSON array")

	testCmd := &cobra.Command{
		Use:   "test <name>... | ALL",
		Short: "Run one or more named suites",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Exit(runTest(args))
			return nil
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench <name>",
		Short: "Run a named suite's in-process benchmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Exit(runBench(args[0]))
			return nil
		},
	}

	var speedJSON bool
	var speedCSV bool
	speedCmd := &cobra.Command{
		Use:   "speed [MB] [iters]",
		Short: "Round-trip MB worth of synthetic data through the adaptive codec and report throughput",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpeed(args, speedJSON, speedCSV)
		},
	}
	speedCmd.Flags().BoolVar(&speedJSON, "json", false, "print results as JSON")
	speedCmd.Flags().BoolVar(&speedCSV, "csv", false, "print results as CSV")

	rootCmd.AddCommand(listCmd, testCmd, benchCmd, speedCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runList(asJSON bool) error {
	if asJSON {
		type entry struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		entries := make([]entry, 0, len(suites))
		for _, s := range suites {
			entries = append(entries, entry{Name: s.name, Description: s.description})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	for _, s := range suites {
		fmt.Printf("%-12s %s\n", s.name, s.description)
	}
	return nil
}

// runTest runs the named suites (or every suite for "ALL") and returns the
// process exit code: 0 if every suite passed, the count of failed suites
// otherwise, or unknownExitCode if any name doesn't match a registered
// suite.
func runTest(names []string) int {
	if len(names) == 1 && names[0] == "ALL" {
		names = make([]string, len(suites))
		for i, s := range suites {
			names[i] = s.name
		}
	}

	failedSuites := 0
	for _, name := range names {
		s, found := suiteByName(name)
		if !found {
			fmt.Fprintf(os.Stderr, "datakit: unknown suite %q\n", name)
			return unknownExitCode
		}

		results := s.checks()
		failedChecks := 0
		for _, r := range results {
			if r.err != nil {
				failedChecks++
				fmt.Printf("FAIL %s: %s: %v\n", s.name, r.name, r.err)
			} else {
				fmt.Printf("PASS %s: %s\n", s.name, r.name)
			}
		}

		if failedChecks > 0 {
			failedSuites++
			fmt.Printf("--- %s: %d/%d checks failed\n", s.name, failedChecks, len(results))
		} else {
			fmt.Printf("--- %s: %d checks passed\n", s.name, len(results))
		}
	}

	return failedSuites
}

func runBench(name string) int {
	s, found := suiteByName(name)
	if !found {
		fmt.Fprintf(os.Stderr, "datakit: unknown suite %q\n", name)
		return unknownExitCode
	}
	if s.benchmark == nil {
		fmt.Fprintf(os.Stderr, "datakit: suite %q has no benchmark\n", name)
		return unknownExitCode
	}

	result := testing.Benchmark(s.benchmark)
	fmt.Printf("%s\t%s\n", s.name, result.String())
	return 0
}

func runSpeed(args []string, asJSON, asCSV bool) error {
	mb := 16
	iters := 8
	if len(args) >= 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("datakit: invalid MB argument %q: %w", args[0], err)
		}
		mb = v
	}
	if len(args) >= 2 {
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("datakit: invalid iters argument %q: %w", args[1], err)
		}
		iters = v
	}

	report, err := speedRun(mb, iters)
	if err != nil {
		return err
	}

	switch {
	case asJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case asCSV:
		fmt.Println("mb,iters,encode_mb_per_sec,decode_mb_per_sec")
		fmt.Printf("%d,%d,%.2f,%.2f\n", report.MB, report.Iters, report.EncodeMBPerSec, report.DecodeMBPerSec)
		return nil
	default:
		fmt.Printf("encoded %d MB x %d iters: encode %.2f MB/s, decode %.2f MB/s\n",
			report.MB, report.Iters, report.EncodeMBPerSec, report.DecodeMBPerSec)
		return nil
	}
}
