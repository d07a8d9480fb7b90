package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kheap/heap/alloc"
	"github.com/joshuapare/kheap/internal/logger"
	"github.com/joshuapare/kheap/kernel"
)

var (
	// Global flags
	verbose      bool
	quiet        bool
	jsonOut      bool
	strategyName string
	logLevel     string
	logFormat    string
	encodingName string
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Boot, exercise and inspect the kernel heap",
	Long: `heapctl boots the kernel heap over simulated physical memory and runs
allocation workloads against it. Every command boots a fresh kernel, so runs
never influence each other.

The allocator is chosen with --strategy: fixed-size-block (default),
linked-list or bump.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVarP(&strategyName, "strategy", "s", alloc.StrategyFixedSizeBlock.String(),
			"Heap allocator: "+strategyList())
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "Log to stderr at this level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().
		StringVar(&encodingName, "encoding", "utf-8", "Console encoding for text output: utf-8 or cp437")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup validates global flags and configures logging before any command runs.
func setup(_ *cobra.Command, _ []string) error {
	if _, err := alloc.ParseStrategy(strategyName); err != nil {
		return err
	}
	if _, err := consoleEncoding(encodingName); err != nil {
		return err
	}
	if logLevel == "" {
		return logger.Init(logger.Options{})
	}
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	return logger.Init(logger.Options{Enabled: true, Level: level, Format: logFormat, Output: os.Stderr})
}

func strategyList() string {
	var names []string
	for _, s := range alloc.Strategies() {
		names = append(names, s.String())
	}
	return strings.Join(names, ", ")
}

// bootKernel boots a fresh kernel with the selected strategy.
func bootKernel() (*kernel.Kernel, error) {
	s, err := alloc.ParseStrategy(strategyName)
	if err != nil {
		return nil, err
	}
	cfg := kernel.DefaultConfig()
	cfg.Strategy = s

	printVerbose("Booting %s heap at %#x (%d bytes)\n", s, kernel.HeapStart, kernel.HeapSize)
	k, err := kernel.Boot(cfg)
	if err != nil {
		return nil, fmt.Errorf("boot failed: %w", err)
	}
	return k, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// formatBytes renders a byte count the way the info command prints sizes.
func formatBytes(n uintptr) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d bytes", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
