package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipone/internal/grpcservice"
	"go.klb.dev/clipone/internal/message"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the daemon is capturing",
		Long: `Displays the daemon's capture state, clipboard backend and history size.

The request is sent via the local IPC socket unless --server is given.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, v, func(ctx context.Context, c *grpcservice.Client, transport string) error {
				resp, err := c.Status(ctx)
				if err != nil {
					return fmt.Errorf("status: %w", err)
				}
				return printStatus(cmd.OutOrStdout(), resp, transport, v.GetBool("json"))
			})
		},
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addClientFlags(cmd)
	return cmd
}

func newStartCmd() *cobra.Command {
	return newToggleCmd("start", "Ask the daemon to start capturing", (*grpcservice.Client).StartCapture)
}

func newStopCmd() *cobra.Command {
	return newToggleCmd("stop", "Ask the daemon to stop capturing", (*grpcservice.Client).StopCapture)
}

func newToggleCmd(use, short string, call func(*grpcservice.Client, context.Context) error) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, v, func(ctx context.Context, c *grpcservice.Client, transport string) error {
				if err := call(c, ctx); err != nil {
					return fmt.Errorf("%s: %w", use, err)
				}
				resp, err := c.Status(ctx)
				if err != nil {
					return fmt.Errorf("status: %w", err)
				}
				return printStatus(cmd.OutOrStdout(), resp, transport, false)
			})
		},
	}

	addClientFlags(cmd)
	return cmd
}

// withClient connects to the daemon for the duration of fn.
func withClient(cmd *cobra.Command, v *viper.Viper, fn func(context.Context, *grpcservice.Client, string) error) error {
	conn, transport, err := connect(cmd, v)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(cmd.Context(), grpcservice.NewClient(conn), transport)
}

func printStatus(w io.Writer, resp *message.StatusResponse, transport string, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	state := "stopped"
	if resp.Active {
		state = "active"
	}
	tw := tabwriter.NewWriter(w, 1, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Capture:\t%s (since %s)\n", state, fmtAge(resp.Since))
	fmt.Fprintf(tw, "Backend:\t%s\n", resp.Backend)
	fmt.Fprintf(tw, "Source:\t%s\n", resp.Source)
	fmt.Fprintf(tw, "Transport:\t%s\n", transport)
	fmt.Fprintf(tw, "History:\t%d entries\n", resp.StoredItems)
	fmt.Fprintf(tw, "Watchers:\t%d\n", resp.Subscribers)
	return tw.Flush()
}
