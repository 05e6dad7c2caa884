package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/credentials"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration and manage stored API keys",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Copy before redacting so the live config keeps its secrets.
		shown := *cfg
		if shown.API.APIKey != "" {
			shown.API.APIKey = "<redacted>"
		}
		if shown.Redis.Password != "" {
			shown.Redis.Password = "<redacted>"
		}

		out, err := yaml.Marshal(&shown)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the encrypted credential store",
	Long: `API keys for tools live AES-GCM encrypted under ~/.sharingan, never
in config files. Values are read from a prompt, or from stdin when
piped in.`,
}

var configKeysSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Store a credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		var value string
		if credentials.IsInteractive() {
			fmt.Printf("Enter value for %s: ", name)
			secret, err := credentials.ReadSecret()
			if err != nil {
				return fmt.Errorf("failed to read secret: %w", err)
			}
			fmt.Println()
			value = secret
		} else {
			raw, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && raw == "" {
				return fmt.Errorf("failed to read value from stdin: %w", err)
			}
			value = strings.TrimSpace(raw)
		}
		if value == "" {
			return fmt.Errorf("empty value for %s", name)
		}

		manager, err := credentials.NewManager(log)
		if err != nil {
			return err
		}
		if err := manager.Set(name, value); err != nil {
			return err
		}
		fmt.Printf("%s %s stored\n", color.New(color.FgGreen).Sprint("✓"), name)
		return nil
	},
}

var configKeysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credential names",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := credentials.NewManager(log)
		if err != nil {
			return err
		}
		names := manager.Names()
		if len(names) == 0 {
			fmt.Println("No credentials stored.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var configKeysDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := credentials.NewManager(log)
		if err != nil {
			return err
		}
		if err := manager.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s deleted\n", args[0])
		return nil
	},
}

func init() {
	configKeysCmd.AddCommand(configKeysSetCmd, configKeysListCmd, configKeysDeleteCmd)
	configCmd.AddCommand(configShowCmd, configKeysCmd)
	rootCmd.AddCommand(configCmd)
}
