// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/veridict/veridict/pkg/logging"
	"github.com/veridict/veridict/pkg/ux"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	serverURL      string // Verifier service base URL
	requestTimeout time.Duration
	jsonOutput     bool // Raw JSON output for scripting
	plainOutput    bool
	verbose        bool
)

var logger = logging.Default()

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "veridict",
	Short: "Client for the Veridict claim-verification service",
	Long: `veridict talks to a running verifier service.

Examples:
  veridict classify "The Eiffel Tower is in Paris."
  veridict health
  veridict topics
  veridict cache-info`,
	SilenceUsage: true,
}

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Verify the factual claims in a piece of text",
	Long: `Submits text to the verifier and prints the per-claim verdicts.

Reads from stdin when no argument is given, so it composes with pipes:

  echo "Water boils at 100 degrees Celsius." | veridict classify`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show service health and knowledge-base size",
	RunE:  runHealth,
}

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List knowledge-base topics by category",
	RunE:  runTopics,
}

var cacheInfoCmd = &cobra.Command{
	Use:   "cache-info",
	Short: "Show response-cache occupancy",
	RunE:  runCacheInfo,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("veridict %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s",
		envOr("VERIDICT_SERVER", "http://localhost:12310"), "verifier service base URL")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout",
		60*time.Second, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "raw JSON output")
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "disable terminal styling")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show evidence snippets")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		ux.SetPlain(plainOutput)
	}

	rootCmd.AddCommand(classifyCmd, healthCmd, topicsCmd, cacheInfoCmd, versionCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func runClassify(cmd *cobra.Command, args []string) error {
	text, err := classifyInput(args)
	if err != nil {
		return err
	}

	client := newServiceClient(serverURL, requestTimeout)
	result, err := client.Classify(context.Background(), text)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(result)
	}

	fmt.Printf("Overall: %s (confidence %.3f)\n\n", ux.Verdict(string(result.Overall)), result.Confidence)
	counts := map[string]int{}
	for _, claim := range result.Claims {
		counts[string(claim.Classification)]++
		fmt.Printf("  [%s] %.3f  %s\n", ux.Verdict(string(claim.Classification)), claim.Confidence, claim.Claim.Text)
		if verbose && claim.BestEvidence != nil {
			fmt.Printf("         %s\n", ux.Muted(fmt.Sprintf("evidence: %q", claim.BestEvidence.Snippet)))
			fmt.Printf("         %s\n", ux.Muted(fmt.Sprintf("source: %s (nli %.3f, retrieval %.3f)",
				claim.BestEvidence.Source, claim.BestEvidence.NLIScore,
				claim.BestEvidence.RetrievalScore)))
		}
	}
	if len(result.Claims) == 0 {
		fmt.Println(ux.Muted("  (no factual claims found)"))
		return nil
	}
	ux.Summary(counts["SUPPORTED"], counts["CONTRADICTED"], counts["UNCERTAIN"])
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	client := newServiceClient(serverURL, requestTimeout)
	health, status, err := client.Health(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(health)
	}

	fmt.Printf("Status:        %s (HTTP %d)\n", health.Status, status)
	fmt.Printf("Models loaded: %v\n", health.ModelsLoaded)
	fmt.Printf("KB size:       %d snippets\n", health.KBSize)
	return nil
}

func runTopics(cmd *cobra.Command, args []string) error {
	client := newServiceClient(serverURL, requestTimeout)
	topics, err := client.Topics(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(topics)
	}

	fmt.Printf("%d topics\n", topics.TotalTopics)
	categories := make([]string, 0, len(topics.Categories))
	for cat := range topics.Categories {
		categories = append(categories, cat)
	}
	sort.Strings(categories)
	for _, cat := range categories {
		fmt.Printf("\n%s:\n", cat)
		for _, topic := range topics.Categories[cat] {
			fmt.Printf("  - %s\n", topic)
		}
	}
	return nil
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	client := newServiceClient(serverURL, requestTimeout)
	info, err := client.CacheInfo(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(info)
	}

	fmt.Printf("Entries: %d / %d\n", info.Size, info.MaxSize)
	fmt.Printf("Hits:    %d\n", info.Hits)
	fmt.Printf("Misses:  %d\n", info.Misses)
	return nil
}

// classifyInput resolves the text argument, falling back to stdin.
func classifyInput(args []string) (string, error) {
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	data, err := readAllStdin()
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no text given; pass an argument or pipe via stdin")
	}
	return text, nil
}

func readAllStdin() ([]byte, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Mode()&os.ModeCharDevice != 0 {
		return nil, nil
	}
	return io.ReadAll(os.Stdin)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
