package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vox/internal/ipc"
	"vox/internal/launcher"
)

func newServerCommand(ctx *commandContext) *cobra.Command {
	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Manage the inference server process",
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the inference server without stopping the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ServerRestart()
				if err != nil {
					return err
				}
				if resp.Message != "" {
					fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				} else if resp.Restarted {
					fmt.Fprintln(cmd.OutOrStdout(), "Server restarting")
				}
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show inference server state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				line := serverStatusLine(resp.Server)
				fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine(line.label, line.kind, line.detail, shouldColorize(cmd.OutOrStdout())))
				if resp.Server.LastExit != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "  Last exit: %s\n", resp.Server.LastExit)
				}
				return nil
			})
		},
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the inference server in the foreground",
		Long: "Launches the server process directly, without the daemon or queue.\n" +
			"Exits with the server's own exit status.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			grace := time.Duration(cfg.Supervise.StopGracePeriod) * time.Second
			code, err := launcher.Run(runCtx, launcher.BuildCommand(cfg.Server), cmd.OutOrStdout(), cmd.ErrOrStderr(), grace)
			if err != nil {
				return err
			}
			if code != 0 {
				return exitCodeError{code: code}
			}
			return nil
		},
	}

	serverCmd.AddCommand(restartCmd)
	serverCmd.AddCommand(statusCmd)
	serverCmd.AddCommand(runCmd)
	return serverCmd
}
