package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"gpthome/internal/eventlog"
	"gpthome/internal/ipc"
	"gpthome/internal/web"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var socket string
	var timeout time.Duration

	root := &cobra.Command{
		Use:          "gpthome-ctl",
		Short:        "Query a running gpthome assistant",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&socket, "socket", "s", ipc.DefaultSocketPath, "Control socket path")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout")

	call := func(cmd *cobra.Command, req ipc.Request) (ipc.Response, error) {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		resp, err := ipc.Call(ctx, socket, req)
		if err != nil {
			return resp, fmt.Errorf("gpthome not reachable at %s: %w", socket, err)
		}
		return resp, nil
	}

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the text currently on the display",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := call(cmd, ipc.Request{Cmd: ipc.CmdStatus})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Status)
			return nil
		},
	})

	var n int
	logs := &cobra.Command{
		Use:   "logs",
		Short: "Print the latest event log entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := call(cmd, ipc.Request{Cmd: ipc.CmdLogs, N: n})
			if err != nil {
				return err
			}
			for _, e := range resp.Entries {
				fmt.Fprintln(cmd.OutOrStdout(), e.Line())
			}
			return nil
		},
	}
	logs.Flags().IntVarP(&n, "lines", "n", 10, "Number of entries")
	root.AddCommand(logs)

	var url string
	var reconnect time.Duration
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Follow new event log entries from the dashboard API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return web.Watch(ctx, url, reconnect, func(e eventlog.Entry) {
				fmt.Fprintln(cmd.OutOrStdout(), e.Line())
			})
		},
	}
	watch.Flags().StringVarP(&url, "url", "u", "ws://localhost:8000/events", "Event stream URL")
	watch.Flags().DurationVar(&reconnect, "reconnect", 2*time.Second, "Delay before redialling a dropped stream, 0 to exit instead")
	root.AddCommand(watch)

	return root
}
