package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"avatarctl/internal/studio"
)

func newAvatarsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "avatars",
		Aliases: []string{"avatar"},
		Short:   "Manage avatars (mutations require an admin account)",
	}
	cmd.AddCommand(newAvatarListCommand(ctx))
	cmd.AddCommand(newAvatarGetCommand(ctx))
	cmd.AddCommand(newAvatarCreateCommand(ctx))
	cmd.AddCommand(newAvatarUpdateCommand(ctx))
	cmd.AddCommand(newAvatarDeleteCommand(ctx))
	return cmd
}

func printAvatars(cmd *cobra.Command, ctx *commandContext, avatars []studio.Avatar) error {
	if ctx.jsonFlag {
		return writeJSONList(cmd, avatars)
	}
	rows := make([][]string, 0, len(avatars))
	for _, a := range avatars {
		rows = append(rows, []string{a.AvatarID, a.Name, a.VoiceID})
	}
	printTable(cmd.OutOrStdout(), "No avatars", []string{"Avatar ID", "Name", "Voice ID"}, rows, nil)
	return nil
}

func newAvatarListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List avatars",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.requireSession()
			if err != nil {
				return err
			}
			avatars, err := client.ListAvatars(commandCtx(cmd))
			if err != nil {
				return err
			}
			return printAvatars(cmd, ctx, avatars)
		},
	}
}

func newAvatarGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <avatar-id>",
		Short: "Show one avatar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "avatar id")
			if err != nil {
				return err
			}
			client, err := ctx.requireSession()
			if err != nil {
				return err
			}
			avatar, err := client.GetAvatar(commandCtx(cmd), id)
			if err != nil {
				return err
			}
			return printAvatars(cmd, ctx, []studio.Avatar{avatar})
		},
	}
}

func newAvatarCreateCommand(ctx *commandContext) *cobra.Command {
	var in studio.Avatar

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register an avatar",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.requireSession()
			if err != nil {
				return err
			}
			avatar, err := client.CreateAvatar(commandCtx(cmd), in)
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, avatar)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created avatar %s (%s)\n", avatar.AvatarID, avatar.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.AvatarID, "id", "", "Avatar ID")
	cmd.Flags().StringVar(&in.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&in.VoiceID, "voice", "", "Voice ID")
	return cmd
}

func newAvatarUpdateCommand(ctx *commandContext) *cobra.Command {
	var name, voice string

	cmd := &cobra.Command{
		Use:   "update <avatar-id>",
		Short: "Rename an avatar or change its voice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "avatar id")
			if err != nil {
				return err
			}
			update := studio.AvatarUpdate{AvatarID: id}
			if cmd.Flags().Changed("name") {
				update.Name = &name
			}
			if cmd.Flags().Changed("voice") {
				update.VoiceID = &voice
			}
			if update.Name == nil && update.VoiceID == nil {
				return usageError("avatars", "update", errNothingToDo)
			}
			client, err := ctx.requireSession()
			if err != nil {
				return err
			}
			avatar, err := client.UpdateAvatar(commandCtx(cmd), update)
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, avatar)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated avatar %s\n", avatar.AvatarID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().StringVar(&voice, "voice", "", "New voice ID")
	return cmd
}

func newAvatarDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <avatar-id>",
		Short: "Delete an avatar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "avatar id")
			if err != nil {
				return err
			}
			client, err := ctx.requireSession()
			if err != nil {
				return err
			}
			if err := client.DeleteAvatar(commandCtx(cmd), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted avatar %s\n", id)
			return nil
		},
	}
}
