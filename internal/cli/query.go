package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lumera-labs/cascade-memory/internal/index"
)

func init() {
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Search the local index",
		Long:  "Searches the pointer index. Returns pointers and display metadata only; never decrypts.",
		Run:   runQuery,
	}

	cmd.Flags().StringP("tags", "t", "", "Comma-separated tag filters (any match)")
	cmd.Flags().String("session", "", "Filter by source session ID")
	cmd.Flags().String("since", "", "Inclusive lower time bound (RFC3339)")
	cmd.Flags().String("until", "", "Inclusive upper time bound (RFC3339)")
	cmd.Flags().IntP("limit", "l", 10, "Max results")
	cmd.Flags().Int("offset", 0, "Results to skip")

	RootCmd.AddCommand(cmd)
}

func runQuery(cmd *cobra.Command, args []string) {
	tagsStr, _ := cmd.Flags().GetString("tags")
	session, _ := cmd.Flags().GetString("session")
	sinceStr, _ := cmd.Flags().GetString("since")
	untilStr, _ := cmd.Flags().GetString("until")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	params := index.QueryParams{
		Text:      strings.Join(args, " "),
		SessionID: session,
		Limit:     limit,
		Offset:    offset,
	}
	for _, t := range strings.Split(tagsStr, ",") {
		if t = strings.TrimSpace(t); t != "" {
			params.Tags = append(params.Tags, t)
		}
	}
	var err error
	if sinceStr != "" {
		if params.Since, err = time.Parse(time.RFC3339, sinceStr); err != nil {
			exitErr("parse since", err)
		}
	}
	if untilStr != "" {
		if params.Until, err = time.Parse(time.RFC3339, untilStr); err != nil {
			exitErr("parse until", err)
		}
	}

	pipe, cleanup, err := openPipeline()
	if err != nil {
		exitErr("open pipeline", err)
	}
	defer cleanup()

	hits, err := pipe.Query(cmd.Context(), params)
	if err != nil {
		exitErr("query", err)
	}

	if len(hits) == 0 {
		fmt.Println("[]")
		return
	}
	b, _ := json.MarshalIndent(hits, "", "  ")
	fmt.Println(string(b))
}
