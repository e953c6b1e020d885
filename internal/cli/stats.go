package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumera-labs/cascade-memory/internal/cascade"
	"github.com/lumera-labs/cascade-memory/internal/index"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index and blob storage statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

type statsOut struct {
	Index *index.Stats `json:"index"`
	Blobs struct {
		CacheDir   string `json:"cache_dir"`
		Count      int    `json:"count"`
		TotalBytes int64  `json:"total_bytes"`
	} `json:"blobs"`
}

func runStats(cmd *cobra.Command, args []string) {
	idx, err := openIndex()
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	var out statsOut
	out.Index, err = idx.Stats(cmd.Context(), getDBPath())
	if err != nil {
		exitErr("stats", err)
	}

	blobs, err := cascade.NewFSConnector(getCacheDir())
	if err != nil {
		exitErr("open blob store", err)
	}
	out.Blobs.CacheDir = getCacheDir()
	if out.Blobs.Count, out.Blobs.TotalBytes, err = blobs.Stats(); err != nil {
		exitErr("blob stats", err)
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
