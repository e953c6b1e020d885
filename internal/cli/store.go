package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lumera-labs/cascade-memory/internal/pipeline"
)

func init() {
	cmd := &cobra.Command{
		Use:   "store [session-id]",
		Short: "Store a session as an encrypted artifact",
		Long: "Exports a session, redacts it, and stores an encrypted artifact.\n" +
			"Default is artifact-only: the redacted raw session is embedded only when\n" +
			"both --allow-raw-export and the exact --ack string are given.",
		Args: cobra.ExactArgs(1),
		Run:  runStore,
	}

	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().Bool("allow-raw-export", false, "Opt in to embedding the redacted raw session")
	cmd.Flags().String("ack", "", `Risk acknowledgement (must be exactly "I understand the risk")`)
	cmd.Flags().Bool("dry-run", false, "Preview without writing")

	RootCmd.AddCommand(cmd)
}

func runStore(cmd *cobra.Command, args []string) {
	tagsStr, _ := cmd.Flags().GetString("tags")
	allowRaw, _ := cmd.Flags().GetBool("allow-raw-export")
	ack, _ := cmd.Flags().GetString("ack")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var tags []string
	for _, t := range strings.Split(tagsStr, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	pipe, cleanup, err := openPipeline()
	if err != nil {
		exitErr("open pipeline", err)
	}
	defer cleanup()

	result, err := pipe.Store(cmd.Context(), pipeline.StoreParams{
		SessionID:      args[0],
		Tags:           tags,
		AllowRawExport: allowRaw,
		RawExportAck:   ack,
		DryRun:         dryRun,
	})
	if err != nil {
		exitErr("store", err)
	}

	b, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(b))
}
