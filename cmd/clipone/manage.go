package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipone/internal/entry"
	"go.klb.dev/clipone/internal/grpcservice"
	"go.klb.dev/clipone/internal/history"
	"go.klb.dev/clipone/internal/session"
)

func newFavoriteCmd() *cobra.Command {
	return newEntryCmd("favorite ENTRY", "Toggle the favorite flag of an entry",
		func(ctx context.Context, cmd *cobra.Command, c *grpcservice.Client, id string) error {
			fav, err := c.ToggleFavorite(ctx, id)
			if err != nil {
				return fmt.Errorf("favorite: %w", err)
			}
			state := "no longer a favorite"
			if fav {
				state = "marked as favorite"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", id, state)
			return nil
		})
}

func newDeleteCmd() *cobra.Command {
	return newEntryCmd("delete ENTRY", "Delete an entry from the history",
		func(ctx context.Context, cmd *cobra.Command, c *grpcservice.Client, id string) error {
			if err := c.Delete(ctx, id); err != nil {
				return fmt.Errorf("delete: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			return nil
		})
}

// newEntryCmd builds a command that applies call to the entry named by its
// single argument, an id or a position from "clipone history".
func newEntryCmd(use, short string, call func(context.Context, *cobra.Command, *grpcservice.Client, string) error) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, v, func(ctx context.Context, c *grpcservice.Client, _ string) error {
				id, err := resolveEntryID(ctx, c.FetchHistory, args[0])
				if err != nil {
					return err
				}
				return call(ctx, cmd, c, id)
			})
		},
	}

	addClientFlags(cmd)
	return cmd
}

func newClearCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "clear",
		Short:   "Delete every stored entry",
		Long:    `Deletes the whole history, favorites included. Requires --yes.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !v.GetBool("yes") {
				return errors.New("clear deletes the whole history; pass --yes to confirm")
			}
			return withClient(cmd, v, func(ctx context.Context, c *grpcservice.Client, _ string) error {
				n, err := c.ClearHistory(ctx)
				if err != nil {
					return fmt.Errorf("clear: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", n)
				return nil
			})
		},
	}

	cmd.Flags().Bool("yes", false, "confirm deleting the whole history")
	addClientFlags(cmd)
	return cmd
}

// resolveEntryID maps arg to an entry id. An id in the recent history or a
// 1-based position resolves directly; any other text is taken as an id for
// the daemon to look up.
func resolveEntryID(ctx context.Context, fetch func(context.Context, int) ([]entry.Entry, error), arg string) (string, error) {
	list, err := fetch(ctx, history.DefaultLimit)
	if err != nil {
		return "", fmt.Errorf("history: %w", err)
	}
	for _, e := range list {
		if e.ID == arg {
			return arg, nil
		}
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n >= 1 && n <= len(list) {
			return list[n-1].ID, nil
		}
		return "", fmt.Errorf("%w: no entry at position %d", session.ErrEntryNotFound, n)
	}
	return arg, nil
}
