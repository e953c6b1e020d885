package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm [pointer]",
		Short: "Remove an index entry",
		Long:  "Removes the index row for a pointer. The underlying blob is immutable and is never deleted.",
		Args:  cobra.ExactArgs(1),
		Run:   runRm,
	}

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	idx, err := openIndex()
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	deleted, err := idx.Delete(cmd.Context(), args[0])
	if err != nil {
		exitErr("rm", err)
	}
	if !deleted {
		exitErr("rm", fmt.Errorf("pointer not indexed: %s", args[0]))
	}

	fmt.Printf(`{"ok":true,"pointer":%q}`+"\n", args[0])
}
