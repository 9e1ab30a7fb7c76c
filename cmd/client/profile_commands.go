package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"image-studio-client/internal/models"
)

func newProfileCommand(ctx *commandContext) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "View and edit your profile",
	}

	profileCmd.AddCommand(newProfileShowCommand(ctx))
	profileCmd.AddCommand(newProfileUpdateCommand(ctx))
	profileCmd.AddCommand(newProfileAvatarCommand(ctx))

	return profileCmd
}

func printProfile(cmd *cobra.Command, p *models.Profile) {
	rows := []table.Row{
		{"ID", p.ID},
		{"Name", p.Name},
		{"Display name", p.DisplayName},
		{"Email", p.Email},
		{"Phone", p.Phone},
		{"Avatar", p.Avatar()},
		{"Updated", p.UpdatedAt},
	}
	fmt.Fprint(cmd.OutOrStdout(), renderTable(fieldColumns, rows))
}

func newProfileShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				profile, err := a.profile.Get(cmd.Context())
				if err != nil {
					return err
				}
				printProfile(cmd, profile)
				return nil
			})
		},
	}
}

func openAvatar(path string) (string, io.ReadCloser, error) {
	if path == "" {
		return "", nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open avatar %s: %w", path, err)
	}
	return filepath.Base(path), f, nil
}

func newProfileUpdateCommand(ctx *commandContext) *cobra.Command {
	var name, displayName, email, phone, avatarPath string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields and optionally the avatar",
		RunE: func(cmd *cobra.Command, args []string) error {
			var req models.UpdateProfileRequest
			flags := cmd.Flags()
			if flags.Changed("name") {
				req.Name = &name
			}
			if flags.Changed("display-name") {
				req.DisplayName = &displayName
			}
			if flags.Changed("email") {
				req.Email = &email
			}
			if flags.Changed("phone") {
				req.Phone = &phone
			}

			filename, avatar, err := openAvatar(avatarPath)
			if err != nil {
				return err
			}
			var reader io.Reader
			if avatar != nil {
				defer avatar.Close()
				reader = avatar
			}

			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				profile, err := a.profile.Update(cmd.Context(), req, filename, reader)
				if err != nil {
					return err
				}
				printProfile(cmd, profile)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&displayName, "display-name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&avatarPath, "avatar", "", "New avatar image file")
	return cmd
}

func newProfileAvatarCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "avatar <file>",
		Short: "Upload a new avatar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename, avatar, err := openAvatar(args[0])
			if err != nil {
				return err
			}
			defer avatar.Close()

			return ctx.withApp(cmd.ErrOrStderr(), func(a *app) error {
				profile, err := a.profile.Update(cmd.Context(), models.UpdateProfileRequest{}, filename, avatar)
				if err != nil {
					return err
				}
				printProfile(cmd, profile)
				return nil
			})
		},
	}
}
