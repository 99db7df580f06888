package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trievops/fleet-cli/internal/model"
)

var (
	ownerRole  string
	ownerName  string
	ownerEmail string
	ownerID    string
)

var ownersCmd = &cobra.Command{
	Use:   "owners",
	Short: "Manage the owner directory",
}

var ownersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List owner directory entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		owners, err := st.ListOwners(ctx, ownerRole)
		if err != nil {
			return eris.Wrap(err, "list owners")
		}
		for _, o := range owners {
			fmt.Printf("%s\t%s\t%s\n", o.ID, o.DisplayName, o.Email)
		}
		zap.L().Info("owners listed", zap.Int("count", len(owners)), zap.String("role", ownerRole))
		return nil
	},
}

var ownersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or update an owner directory entry",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		id := ownerID
		if id == "" {
			id = uuid.New().String()
		}
		entry := model.OwnerDirectoryEntry{
			ID:          id,
			DisplayName: ownerName,
			Email:       ownerEmail,
		}
		if err := st.UpsertOwner(ctx, entry, ownerRole); err != nil {
			return eris.Wrap(err, "upsert owner")
		}

		zap.L().Info("owner saved",
			zap.String("id", id),
			zap.String("name", ownerName),
			zap.String("role", ownerRole),
		)
		fmt.Println(id)
		return nil
	},
}

func init() {
	ownersCmd.PersistentFlags().StringVar(&ownerRole, "role", "team_leader", "directory role")
	ownersAddCmd.Flags().StringVar(&ownerName, "name", "", "display name (required)")
	ownersAddCmd.Flags().StringVar(&ownerEmail, "email", "", "email address")
	ownersAddCmd.Flags().StringVar(&ownerID, "id", "", "entry id (default new UUID)")
	_ = ownersAddCmd.MarkFlagRequired("name")
	ownersCmd.AddCommand(ownersListCmd)
	ownersCmd.AddCommand(ownersAddCmd)
	rootCmd.AddCommand(ownersCmd)
}
