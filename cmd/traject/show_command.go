package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"traject/internal/dataset"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var withEpisodes bool

	cmd := &cobra.Command{
		Use:   "show <dataset>",
		Short: "Show dataset metadata and episode history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			datasetID := strings.TrimSpace(args[0])
			store, err := dataset.Load(cfg.DatasetDir(datasetID))
			if err != nil {
				return fmt.Errorf("open dataset %s: %w", datasetID, err)
			}
			defer store.Close()

			info := store.Info()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Field", "Value"},
				[][]string{
					{"Dataset", datasetID},
					{"Format", info.FormatVersion},
					{"FPS", fmt.Sprintf("%g", info.FPS)},
					{"Chunk size", fmt.Sprintf("%d", info.ChunkSize)},
					{"Episodes", fmt.Sprintf("%d", info.TotalEpisodes)},
					{"Frames", fmt.Sprintf("%d", info.TotalFrames)},
					{"Videos", fmt.Sprintf("%d", info.TotalVideos)},
					{"Features", featureSummary(info)},
					{"Tasks", fmt.Sprintf("%d", store.TaskCount())},
				},
				[]columnAlignment{alignLeft, alignLeft},
			))

			records, err := store.Episodes()
			if err != nil {
				return fmt.Errorf("read episode ledger: %w", err)
			}

			if len(records) > 0 {
				counts := make(map[int64]int64)
				for _, record := range records {
					counts[record.TaskIndex]++
				}
				taskRows := make([][]string, 0, store.TaskCount())
				for _, task := range store.Tasks() {
					taskRows = append(taskRows, []string{
						task.Task,
						fmt.Sprintf("%d", counts[task.TaskIndex]),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Task", "Episodes"},
					taskRows,
					[]columnAlignment{alignLeft, alignRight},
				))
			}

			if !withEpisodes {
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{
					fmt.Sprintf("%d", record.EpisodeIndex),
					record.Task,
					fmt.Sprintf("%d", record.Length),
					record.EndedAt.Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Episode", "Task", "Frames", "Ended"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&withEpisodes, "episodes", false, "List every recorded episode")
	return cmd
}

func featureSummary(info dataset.Info) string {
	names := info.Features.SortedNames()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		feature := info.Features[name]
		parts = append(parts, fmt.Sprintf("%s (%s)", name, feature.DType))
	}
	return strings.Join(parts, ", ")
}
