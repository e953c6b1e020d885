package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lumera-labs/cascade-memory/internal/pipeline"
)

func init() {
	cmd := &cobra.Command{
		Use:   "estimate [bytes]",
		Short: "Estimate monthly storage cost for a blob size",
		Long:  "Prints a heuristic monthly storage cost. Mock pricing, not based on real backend rates.",
		Args:  cobra.ExactArgs(1),
		Run:   runEstimate,
	}

	cmd.Flags().IntP("redundancy", "r", 0, "Replication factor (default 3)")

	RootCmd.AddCommand(cmd)
}

func runEstimate(cmd *cobra.Command, args []string) {
	size, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || size < 0 {
		exitErr("estimate", fmt.Errorf("bytes must be a non-negative integer: %q", args[0]))
	}
	redundancy, _ := cmd.Flags().GetInt("redundancy")

	est := pipeline.EstimateCost(size, redundancy)
	b, _ := json.MarshalIndent(est, "", "  ")
	fmt.Println(string(b))
}
