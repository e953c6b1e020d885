package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "retrieve [pointer]",
		Short: "Retrieve and decrypt an artifact by pointer",
		Args:  cobra.ExactArgs(1),
		Run:   runRetrieve,
	}

	RootCmd.AddCommand(cmd)
}

func runRetrieve(cmd *cobra.Command, args []string) {
	pipe, cleanup, err := openPipeline()
	if err != nil {
		exitErr("open pipeline", err)
	}
	defer cleanup()

	result, err := pipe.Retrieve(cmd.Context(), args[0])
	if err != nil {
		exitErr("retrieve", err)
	}

	b, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(b))
}
