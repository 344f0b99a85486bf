package cli

import (
	"fmt"

	"cogsearch-go/pkg/token"

	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenRole    string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue API tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Sign a bearer token with jwt.secret",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenRole != token.RoleAdmin && tokenRole != token.RoleUser {
			return fmt.Errorf("role must be %s or %s", token.RoleAdmin, token.RoleUser)
		}
		m := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
		tok, err := m.GenerateToken(tokenSubject, tokenRole)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenIssueCmd.Flags().StringVar(&tokenSubject, "subject", "", "caller name recorded in the token")
	tokenIssueCmd.Flags().StringVar(&tokenRole, "role", token.RoleUser, "ADMIN or USER")
	_ = tokenIssueCmd.MarkFlagRequired("subject")
	tokenCmd.AddCommand(tokenIssueCmd)
	rootCmd.AddCommand(tokenCmd)
}
