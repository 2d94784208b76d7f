package cmd

import (
	"errors"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/oriys/physlab/internal/auth"
	"github.com/oriys/physlab/internal/config"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an API key and the config entry for the server",
	Long: `Generate a new API key locally.

The raw key is printed once; the server only stores its SHA-256 hash.
Paste the printed YAML under auth.api_keys in the server config.`,
	Args: cobra.NoArgs,
	RunE: runKeygen,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Exchange an API key for a short-lived JWT",
	Long: `Exchange the API key (--api-key or PHYSLAB_API_KEY) for a JWT.

Export the token as PHYSLAB_TOKEN to authenticate later commands with it.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

var errMissingAPIKey = errors.New("api key required: pass --api-key or set PHYSLAB_API_KEY")

var (
	keygenName string
	keygenRole string
)

func init() {
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(tokenCmd)
	keygenCmd.Flags().StringVar(&keygenName, "name", "cli", "Name of the key owner")
	keygenCmd.Flags().StringVar(&keygenRole, "role", auth.RoleAdmin, "Role granted to the key")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	key, hash, err := auth.GenerateAPIKey()
	if err != nil {
		return err
	}

	cmd.Printf("API key: %s\n", key)
	cmd.Println("Store it now, it cannot be recovered from the server.")
	cmd.Println()

	out, err := yaml.Marshal([]config.APIKeyConfig{{Name: keygenName, Hash: hash, Role: keygenRole}})
	if err != nil {
		return err
	}
	cmd.Print(string(out))
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	key := viper.GetString("api_key")
	if key == "" {
		return errMissingAPIKey
	}
	resp, err := NewClient().IssueToken(key)
	if err != nil {
		return err
	}
	if viper.GetString("output") == "table" {
		cmd.Println(resp.Token)
		cmd.PrintErrf("role %s, expires %s\n", resp.Role, humanize.Time(resp.ExpiresAt))
		return nil
	}
	return NewPrinter(cmd.OutOrStdout()).printJSON(resp)
}
