package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kheap/heap/alloc"
	"github.com/joshuapare/kheap/internal/workload"
	"github.com/joshuapare/kheap/kernel"
)

var runList bool

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario|all>",
		Short: "Run an allocation workload against a freshly booted heap",
		Long: `The run command boots a kernel, runs the named workload against its heap
and reports the outcome together with the allocator counters. "all" runs every
workload, each on its own kernel.

Example:
  heapctl run vec-500
  heapctl run all --strategy linked-list
  heapctl run --list`,
		Args: func(cmd *cobra.Command, args []string) error {
			if runList {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if runList {
				return listScenarios()
			}
			return runScenarios(args)
		},
	}
	cmd.Flags().BoolVar(&runList, "list", false, "List available workloads")
	return cmd
}

type scenarioReport struct {
	workload.Result
	Strategy string      `json:"strategy"`
	Stats    alloc.Stats `json:"stats"`
	Error    string      `json:"error,omitempty"`
}

func listScenarios() error {
	names := workload.Names()
	if jsonOut {
		return printJSON(names)
	}
	for _, name := range names {
		s, _ := workload.Lookup(name)
		printInfo("  %-24s %s\n", name, s.Description)
	}
	return nil
}

func runScenarios(args []string) error {
	names := args
	if args[0] == "all" {
		names = workload.Names()
	}

	var reports []scenarioReport
	failed := 0
	for _, name := range names {
		if _, ok := workload.Lookup(name); !ok {
			return fmt.Errorf("unknown workload %q (see heapctl run --list)", name)
		}
		report, err := runOne(name)
		if err != nil {
			return err
		}
		if report.Error != "" {
			failed++
		}
		reports = append(reports, report)
	}

	if jsonOut {
		if err := printJSON(reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			printReport(r)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d workload(s) failed", failed, len(reports))
	}
	return nil
}

// runOne boots a kernel and runs one scenario on it. A scenario failure is
// recorded in the report; only boot failures are returned.
func runOne(name string) (scenarioReport, error) {
	k, err := bootKernel()
	if err != nil {
		return scenarioReport{}, err
	}
	defer k.Close()

	printVerbose("Running %s\n", name)
	res, err := workload.Run(name, k.Heap, kernel.HeapSize)
	report := scenarioReport{
		Result:   res,
		Strategy: k.Heap.Strategy().String(),
		Stats:    k.Heap.Stats(),
	}
	if err != nil {
		report.Error = err.Error()
	}
	return report, nil
}

func printReport(r scenarioReport) {
	if r.Error != "" {
		printError("%s (%s): %s\n", r.Scenario, r.Strategy, r.Error)
	} else {
		printInfo("✓ %s (%s): %d allocations, checksum %d, %s\n",
			r.Scenario, r.Strategy, r.Allocs, r.Checksum, r.Elapsed)
	}
	printVerbose("    alloc calls %d, failures %d, dealloc calls %d, peak in use %d bytes\n",
		r.Stats.AllocCalls, r.Stats.AllocFailures, r.Stats.DeallocCalls, r.Stats.PeakBytesInUse)
	if r.Stats.FallbackAllocs > 0 || r.Stats.ClassRefills > 0 {
		printVerbose("    fallback allocs %d, fallback deallocs %d, class refills %d\n",
			r.Stats.FallbackAllocs, r.Stats.FallbackDeallocs, r.Stats.ClassRefills)
	}
}
