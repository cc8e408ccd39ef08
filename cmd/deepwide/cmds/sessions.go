package cmds

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage chat sessions",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, st, _, err := newManager()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := manager.Refresh(cmd.Context()); err != nil {
				return err
			}
			for _, s := range manager.Sessions() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n",
					s.ID, s.UpdatedAt.Format("2006-01-02 15:04"), s.Title)
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a session and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, st, _, err := newManager()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := manager.Refresh(cmd.Context()); err != nil {
				return err
			}
			return manager.DeleteSession(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(listCmd)
	cmd.AddCommand(deleteCmd)

	return cmd
}
