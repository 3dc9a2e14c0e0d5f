package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/delivery"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/logging"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/metrics"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/notification"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/properties"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/split"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/ui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	configPath     string
	schedule       string
	statusCSV      bool
	discoverSource string

	pipeline *delivery.Pipeline

	rootCmd = &cobra.Command{
		Use:   "lucd",
		Short: "Builds the LUCD mining-site land-use change dataset",
		Long: `lucd downloads yearly Sentinel-2 imagery, land-cover labels and change
labels for mining sites, splits the completed sites into train, val and test
sets and converts them to numpy arrays. Without a subcommand it opens the
interactive menu.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner()
			ui.ShowMenu(cmd.Context(), pipeline)
			return nil
		},
	}

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Download and compress imagery for up to max_sites pending sites",
		RunE:  runGenerate,
	}
	splitCmd = &cobra.Command{
		Use:   "split",
		Short: "Partition completed sites into train, val and test trees",
		RunE:  runSplit,
	}
	convertCmd = &cobra.Command{
		Use:   "convert",
		Short: "Convert the split rasters to .npy arrays",
		RunE:  runConvert,
	}
	discoverCmd = &cobra.Command{
		Use:   "discover",
		Short: "Write AOI files for the mining polygons of the configured countries",
		RunE:  runDiscover,
	}
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the state and raster counts of every site",
		RunE:  runStatus,
	}
	previewCmd = &cobra.Command{
		Use:   "preview <site> <year>",
		Short: "Render label and change previews of a site as PNG",
		Args:  cobra.ExactArgs(2),
		RunE:  runPreview,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", properties.ConfigPath(), "path to the YAML config file")
	generateCmd.Flags().StringVar(&schedule, "schedule", "", "cron expression; keeps running and generates on every tick")
	statusCmd.Flags().BoolVar(&statusCSV, "csv", false, "print the status as CSV")
	discoverCmd.Flags().StringVar(&discoverSource, "source", delivery.SourcePostGIS,
		fmt.Sprintf("polygon source (%s or %s)", delivery.SourcePostGIS, delivery.SourceOverpass))

	rootCmd.AddCommand(generateCmd, splitCmd, convertCmd, discoverCmd, statusCmd, previewCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := properties.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}
	pipeline = &delivery.Pipeline{
		Config:   cfg,
		Log:      logger.WithField("run_id", uuid.NewString()),
		Metrics:  metrics.New(),
		Notifier: notification.NewDiscord(),
	}
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if schedule != "" {
		return runScheduled(cmd.Context(), schedule, pipeline)
	}
	summary, err := pipeline.Generate(cmd.Context())
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Completed %d of %d attempted sites, %d still pending",
		summary.Completed, summary.Attempted, summary.Pending-summary.Completed))
	return nil
}

func runSplit(cmd *cobra.Command, args []string) error {
	result, err := pipeline.Split(cmd.Context())
	if err != nil {
		return err
	}
	counts := result.Counts()
	ui.PrintSuccess(fmt.Sprintf("Train: %d, Val: %d, Test: %d", counts[split.Train], counts[split.Val], counts[split.Test]))
	if len(result.Missing) > 0 {
		ui.PrintWarning(fmt.Sprintf("%d sites had no raster directory: %v", len(result.Missing), result.Missing))
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	summary, err := pipeline.Convert(cmd.Context())
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Converted %d sites: %d image arrays, %d label arrays", summary.Sites, summary.Images, summary.Labels))
	return nil
}

func runDiscover(cmd *cobra.Command, args []string) error {
	summary, err := pipeline.Discover(cmd.Context(), discoverSource)
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Wrote %d new AOI files, kept %d existing, skipped %d", summary.Written, summary.Kept, summary.Skipped))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	if !statusCSV {
		ui.ListSites(cmd.Context(), pipeline)
		return nil
	}
	rows, err := pipeline.Status()
	if err != nil {
		return err
	}
	return delivery.WriteStatusCSV(cmd.OutOrStdout(), rows)
}

func runPreview(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid year %q: %w", args[1], err)
	}
	previews, err := pipeline.Preview(args[0], year)
	if err != nil {
		return err
	}
	for _, preview := range previews {
		ui.PrintSuccess(fmt.Sprintf("%s preview located at: %s", preview.Kind, preview.Path))
	}
	return nil
}
