package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tpln/gateway/internal/auth"
)

type keygenOutput struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Prefix string `json:"prefix"`
	Hash   string `json:"hash"`
}

func (a *app) newKeygenCmd() *cobra.Command {
	var env, format string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an admin API key and its hash",
		Long: `Generates an admin API key. Give the key to the operator and append the hash
to ADMIN_API_KEY_HASHES. The key is shown once and cannot be recovered from the hash.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if env != auth.EnvLive && env != auth.EnvTest {
				return fmt.Errorf("invalid --env %q (want live or test)", env)
			}

			key, err := auth.GenerateAdminKey(env)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(keygenOutput{ID: key.ID, Key: key.Plaintext, Prefix: key.Prefix, Hash: key.Hash})
			case "plain":
				fmt.Fprintf(w, "%s %s\n", bold("Key: "), key.Plaintext)
				fmt.Fprintf(w, "%s %s\n", bold("Hash:"), key.Hash)
				fmt.Fprintln(w, warnMark("Store the key now; it is not shown again."))
				return nil
			default:
				return fmt.Errorf("invalid --format %q (want plain or json)", format)
			}
		},
	}
	cmd.Flags().StringVar(&env, "env", auth.EnvLive, "Key environment: live or test")
	cmd.Flags().StringVar(&format, "format", "plain", "Output format: plain or json")
	return cmd
}
