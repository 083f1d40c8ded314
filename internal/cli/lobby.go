package cli

import (
	"fmt"
	"strings"

	"funfriday-client/internal/domain"
	"github.com/spf13/cobra"
)

// NewLoginCmd registers a player name with the server and persists the
// returned player id for later sessions.
func NewLoginCmd(configPath, server *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login <name>",
		Short: "Register a player name and store the player identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSettings(*configPath, *server)
			userID, err := s.api().CreateUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := s.identity().Save(userID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (player id %s)\n", args[0], userID)
			return nil
		},
	}
}

// NewCategoriesCmd lists the question categories available for new parties.
func NewCategoriesCmd(configPath, server *string) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List question categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSettings(*configPath, *server)
			categories, err := s.api().Categories(cmd.Context())
			if err != nil {
				return err
			}
			for _, category := range categories {
				fmt.Fprintln(cmd.OutOrStdout(), category)
			}
			return nil
		},
	}
}

// NewPartiesCmd lists the open parties in the lobby.
func NewPartiesCmd(configPath, server *string) *cobra.Command {
	return &cobra.Command{
		Use:   "parties",
		Short: "List open parties",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSettings(*configPath, *server)
			parties, err := s.api().Parties(cmd.Context())
			if err != nil {
				return err
			}
			if len(parties) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No games have been created yet.")
				return nil
			}
			for _, p := range parties {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  creator=%s rounds=%d state=%s players=[%s]\n",
					p.PartyID, p.Creator, p.Rounds, p.State, strings.Join(p.Participants, ", "))
			}
			return nil
		},
	}
}

// NewCreateCmd creates a new party owned by the logged-in player.
func NewCreateCmd(configPath, server *string) *cobra.Command {
	var (
		category string
		rounds   int
		timeout  int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new party",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSettings(*configPath, *server)
			playerID, err := s.identity().Load()
			if err != nil {
				return err
			}
			if playerID == "" {
				return fmt.Errorf("not logged in; run `funfriday login <name>` first")
			}
			partyID, err := s.api().InitParty(cmd.Context(), playerID, domain.PartySettings{
				Category: category,
				Rounds:   rounds,
				Timeout:  timeout,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Party %s created. Start it with `funfriday play %s`\n", partyID, partyID)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "question category")
	cmd.Flags().IntVar(&rounds, "rounds", 1, "number of rounds")
	cmd.Flags().IntVar(&timeout, "timeout", 30, "seconds per question")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}
