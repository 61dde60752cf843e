package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewAuthCmd создаёт группу команд для управления сессией Instagram.
func NewAuthCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Instagram session",
	}

	cmd.AddCommand(
		newAuthLoginCmd(clientFn, outputFn),
		newAuthStatusCmd(clientFn, outputFn),
		newAuthLogoutCmd(clientFn, outputFn),
	)

	return cmd
}

func newAuthLoginCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var username string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to Instagram and persist the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			status, err := client.Login(username, password)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Logged in as %s", status.Username))
			out.Print(
				[]string{"AUTHENTICATED", "USERNAME"},
				[][]string{{fmt.Sprintf("%t", status.Authenticated), status.Username}},
				status,
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Instagram username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Instagram password")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")

	return cmd
}

func newAuthStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			status, err := client.AuthStatus()
			if err != nil {
				return err
			}

			out.Print(
				[]string{"AUTHENTICATED", "USERNAME"},
				[][]string{{fmt.Sprintf("%t", status.Authenticated), status.Username}},
				status,
			)
			return nil
		},
	}
}

func newAuthLogoutCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.Logout(); err != nil {
				return err
			}

			out.Success("Logged out")
			return nil
		},
	}
}
