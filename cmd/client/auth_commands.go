package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"image-studio-client/internal/models"
)

func newAuthCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newLoginCommand(ctx),
		newLoginGoogleCommand(ctx),
		newRegisterCommand(ctx),
		newLogoutCommand(ctx),
		newWhoamiCommand(ctx),
	}
}

// readSecret takes the first line of r, for passwords piped on stdin.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var email, password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				secret, err := readSecret(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = secret
			}
			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				_, err := a.auth.Login(cmd.Context(), email, password)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLoginGoogleCommand(ctx *commandContext) *cobra.Command {
	var credential string

	cmd := &cobra.Command{
		Use:   "login-google",
		Short: "Sign in with a Google ID token credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				if !a.cfg.GoogleSignInEnabled() {
					return errors.New("google sign-in is disabled: set GOOGLE_CLIENT_ID to enable it")
				}
				_, err := a.auth.LoginWithGoogle(cmd.Context(), credential)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&credential, "credential", "", "Google ID token")
	_ = cmd.MarkFlagRequired("credential")
	return cmd
}

func newRegisterCommand(ctx *commandContext) *cobra.Command {
	var req models.RegisterRequest
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				secret, err := readSecret(cmd.InOrStdin())
				if err != nil {
					return err
				}
				req.Password = secret
			}
			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				return a.auth.Register(cmd.Context(), req)
			})
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&req.DisplayName, "display-name", "", "Display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "Account password")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Phone number")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				return a.auth.Logout(cmd.Context())
			})
		},
	}
}

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				user, ok, err := a.auth.Restore(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !ok {
					fmt.Fprintln(out, "Not logged in")
					return nil
				}

				rows := []table.Row{{"Subject", a.session.Subject()}}
				if user != nil {
					rows = append(rows,
						table.Row{"Name", user.Name},
						table.Row{"Display name", user.DisplayName},
						table.Row{"Email", user.Email},
					)
				}
				rows = append(rows, table.Row{"Session expires", a.session.ExpiresAt()})
				fmt.Fprint(out, renderTable(fieldColumns, rows))
				return nil
			})
		},
	}
}
