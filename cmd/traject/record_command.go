package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"traject/internal/api"
	"traject/internal/encoder"
	"traject/internal/logging"
	"traject/internal/preflight"
	"traject/internal/schema"
	"traject/internal/session"
)

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var (
		datasetID   string
		featurePath string
		task        string
		numEpisodes int64
		resume      bool
		fpsFlag     float64
		sourceName  string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record episodes into a dataset",
		Long: `Record captures frames from a source, seals them into episodes, and
persists each episode durably before advancing the dataset counters.

--num-episodes is a cumulative target: resuming a dataset that already holds
enough episodes records nothing and exits successfully.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			datasetID = strings.TrimSpace(datasetID)
			if datasetID == "" {
				return fmt.Errorf("--dataset is required")
			}
			if numEpisodes <= 0 {
				return fmt.Errorf("--num-episodes must be positive")
			}

			descriptor, err := schema.LoadDescriptor(featurePath)
			if err != nil {
				return fmt.Errorf("load feature descriptor: %w", err)
			}
			sch := descriptor.Schema()

			fps := cfg.Recording.FPS
			if cmd.Flags().Changed("fps") {
				fps = fpsFlag
			}
			if fps <= 0 {
				return fmt.Errorf("fps must be positive, got %v", fps)
			}

			needsFFmpeg := len(sch.VideoNames()) > 0
			results := preflight.RunAll(cfg, needsFFmpeg)
			if failed := preflight.Failed(results); len(failed) > 0 {
				out := cmd.ErrOrStderr()
				for _, result := range failed {
					fmt.Fprintf(out, "preflight %s: %s\n", result.Name, result.Detail)
				}
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			source, err := session.NewSource(sourceName, sch)
			if err != nil {
				return err
			}
			defer source.Close()

			framesPerEpisode := int(cfg.Recording.EpisodeSeconds * fps)
			if framesPerEpisode < 1 {
				framesPerEpisode = 1
			}

			mode := session.ModeCreate
			if resume {
				mode = session.ModeResume
			}

			sess := session.New(session.Params{
				Mode:             mode,
				DatasetDir:       cfg.DatasetDir(datasetID),
				TargetEpisodes:   numEpisodes,
				FPS:              fps,
				Schema:           sch,
				Task:             task,
				Source:           source,
				Encoder:          encoder.NewFFmpegEncoder(cfg.Storage.FFmpegBinary, cfg.Storage.VideoCodec, cfg.Storage.VideoPixelFmt),
				Logger:           logger,
				QueueCapacity:    cfg.Recording.QueueCapacity,
				BatchSize:        cfg.Recording.EncodeBatchSize,
				ChunkSize:        cfg.Recording.ChunkSize,
				FramesPerEpisode: framesPerEpisode,
				CompressFrames:   cfg.Storage.CompressFrames,
			})

			if err := sess.Validate(); err != nil {
				return fmt.Errorf("validate dataset %s: %w", datasetID, err)
			}

			server := api.NewServer(sess, logger)
			if err := server.Start(cfg.Paths.APIBind); err != nil {
				return fmt.Errorf("start status server: %w", err)
			}
			defer server.Stop()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			summary, runErr := sess.Run(runCtx)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Field", "Value"},
				[][]string{
					{"Session", summary.SessionID},
					{"Dataset", datasetID},
					{"Start index", fmt.Sprintf("%d", summary.StartIndex)},
					{"Recorded", fmt.Sprintf("%d", summary.Recorded)},
					{"Failed", fmt.Sprintf("%d", summary.Failed)},
					{"Total episodes", fmt.Sprintf("%d", summary.NewTotal)},
				},
				[]columnAlignment{alignLeft, alignRight},
			))
			if runErr != nil {
				return fmt.Errorf("recording session: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetID, "dataset", "", "Dataset identifier under the data root")
	cmd.Flags().StringVar(&featurePath, "features", "", "Path to the feature descriptor TOML")
	cmd.Flags().StringVar(&task, "task", "", "Natural-language task label for every recorded episode")
	cmd.Flags().Int64Var(&numEpisodes, "num-episodes", 0, "Cumulative episode target for the dataset")
	cmd.Flags().BoolVar(&resume, "resume", false, "Resume an existing dataset instead of creating one")
	cmd.Flags().Float64Var(&fpsFlag, "fps", 0, "Frames per second (overrides configuration)")
	cmd.Flags().StringVar(&sourceName, "source", "synthetic", "Frame source to record from")
	_ = cmd.MarkFlagRequired("dataset")
	_ = cmd.MarkFlagRequired("features")
	_ = cmd.MarkFlagRequired("num-episodes")

	return cmd
}
