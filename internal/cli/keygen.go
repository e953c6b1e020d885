package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumera-labs/cascade-memory/internal/crypto"
)

func init() {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new encryption key",
		Long:  "Prints a fresh hex-encoded 32-byte key suitable for " + crypto.KeyEnv + ".",
		Run:   runKeygen,
	}

	RootCmd.AddCommand(cmd)
}

func runKeygen(cmd *cobra.Command, args []string) {
	key := make([]byte, crypto.KeySize)
	if _, err := rand.Read(key); err != nil {
		exitErr("keygen", err)
	}
	fmt.Println(hex.EncodeToString(key))
}
