package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"vox/internal/ipc"
	"vox/internal/queue"
)

func newSayCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var format string
	var referenceID string
	var referenceAudio []string
	var referenceText []string
	var seed int64
	var wait bool

	cmd := &cobra.Command{
		Use:   "say <text>",
		Short: "Queue text for synthesis",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return errors.New("synthesis text is required")
			}

			var seedPtr *int64
			if cmd.Flags().Changed("seed") {
				seedPtr = &seed
			}

			if len(referenceText) > len(referenceAudio) {
				return fmt.Errorf("more --reference-text values (%d) than --reference-audio values (%d)", len(referenceText), len(referenceAudio))
			}
			refAudio := strings.Join(referenceAudio, "\n")
			refText := strings.Join(referenceText, "\n")

			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()

				if client != nil {
					resp, err := client.QueueAdd(ipc.QueueAddRequest{
						Text:           text,
						OutputPath:     outputPath,
						Format:         format,
						ReferenceID:    referenceID,
						ReferenceAudio: refAudio,
						ReferenceText:  refText,
						Seed:           seedPtr,
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Queued job %d -> %s\n", resp.Job.ID, resp.Job.OutputPath)
					if !wait {
						return nil
					}
					return waitForJob(cmd.Context(), out, client, resp.Job.ID)
				}

				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				job := &queue.Job{
					JobKey:         uuid.NewString(),
					Text:           text,
					OutputPath:     outputPath,
					Format:         format,
					ReferenceID:    referenceID,
					ReferenceAudio: refAudio,
					ReferenceText:  refText,
					Seed:           seedPtr,
				}
				if job.Format == "" {
					job.Format = cfg.TTS.Format
				}
				if strings.TrimSpace(job.OutputPath) == "" {
					job.OutputPath = filepath.Join(cfg.Paths.OutputDir, job.JobKey+"."+job.Format)
				} else if !filepath.IsAbs(job.OutputPath) {
					job.OutputPath = filepath.Join(cfg.Paths.OutputDir, job.OutputPath)
				}
				queued, err := store.Add(cmd.Context(), job)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Queued job %d -> %s\n", queued.ID, queued.OutputPath)
				fmt.Fprintln(out, "Daemon is not running; the job will be synthesized after `vox start`")
				if wait {
					return errors.New("cannot wait for completion while the daemon is stopped")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output audio path (relative paths land in the output directory)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Audio format (wav, pcm, mp3)")
	cmd.Flags().StringVar(&referenceID, "reference-id", "", "Server-side reference voice id")
	cmd.Flags().StringArrayVar(&referenceAudio, "reference-audio", nil, "Path to a reference audio sample (repeatable)")
	cmd.Flags().StringArrayVar(&referenceText, "reference-text", nil, "Transcript paired with --reference-audio in order (repeatable)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Sampling seed for reproducible output")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the job to finish")
	return cmd
}

func waitForJob(ctx context.Context, out io.Writer, client *ipc.Client, id int64) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		resp, err := client.QueueDescribe(id)
		if err != nil {
			return err
		}
		status, _ := queue.ParseStatus(resp.Job.Status)
		switch status {
		case queue.StatusCompleted:
			fmt.Fprintf(out, "Completed: %s (%s)\n", resp.Job.OutputPath, formatAudioBytes(resp.Job.AudioBytes))
			return nil
		case queue.StatusFailed:
			return fmt.Errorf("synthesis failed: %s", resp.Job.ErrorMessage)
		}
	}
}
