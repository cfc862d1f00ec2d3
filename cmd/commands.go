package cmd

import (
	"fmt"
	"github.com/ValgulNecron/kasuki-sub000/kasuki"
	"github.com/spf13/cobra"
)

var registerCommandsCmd = &cobra.Command{
	Use:   "register-commands",
	Short: "Register the bot's slash commands with discord",
	Long: "Overwrites the bot's slash commands. If discord.guild_id is set, " +
		"they're registered for that guild only, otherwise globally.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bot, err := kasuki.New(cfg)
		if err != nil {
			return fmt.Errorf("error creating bot: %w", err)
		}
		registered, err := bot.RegisterCommands(cmd.Context())
		if err != nil {
			return fmt.Errorf("error registering commands: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, c := range registered {
			fmt.Fprintf(out, "  /%s (%s)\n", c.Name, c.ID)
		}
		fmt.Fprintf(out, "Registered %d commands.\n", len(registered))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCommandsCmd)
}
