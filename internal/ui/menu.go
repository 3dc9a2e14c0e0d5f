package ui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/dataset"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/delivery"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/split"
)

type menuOption struct {
	title   string
	handler func(ctx context.Context, p *delivery.Pipeline)
}

var menuOptions = []menuOption{
	{"Download and compress imagery for pending mining sites", GenerateDataset},
	{"Split completed sites into train, val and test", SplitDataset},
	{"Convert the split dataset to numpy arrays", ConvertDataset},
	{"Discover mining sites and write AOI files", DiscoverSites},
	{"View the status of every mining site", ListSites},
	{"Render label and change previews for a site", RenderPreview},
}

// ShowMenu displays the main menu and handles user input until the user
// exits or stdin is closed.
func ShowMenu(ctx context.Context, p *delivery.Pipeline) {
	exit := len(menuOptions) + 1
	for {
		fmt.Fprintf(output, "%s===================%s\n", ColorBlue, ColorReset)
		for i, opt := range menuOptions {
			fmt.Fprintf(output, "%s%d. %s%s\n", ColorBlue, i+1, opt.title, ColorReset)
		}
		fmt.Fprintf(output, "%s%d. Exit the application%s\n", ColorBlue, exit, ColorReset)

		choice, err := ReadInt("Please enter your choice: ", 1, exit)
		if err != nil {
			if _, peekErr := input.Peek(1); peekErr == io.EOF {
				return
			}
			PrintError(err.Error())
			continue
		}
		if choice == exit {
			fmt.Fprintln(output, "Exiting...")
			return
		}
		menuOptions[choice-1].handler(ctx, p)
	}
}

func GenerateDataset(ctx context.Context, p *delivery.Pipeline) {
	PrintWarning(fmt.Sprintf("- Pending AOI files are read from %s.\n- At most %d sites are processed per run.", p.Config.AOIDir, p.Config.MaxSites))
	start := time.Now()
	summary, err := p.Generate(ctx)
	if err != nil {
		PrintError(fmt.Sprintf("Error generating dataset: %s", err.Error()))
		return
	}
	PrintSuccess(fmt.Sprintf("Completed %d of %d attempted sites in %s. %d sites still pending.",
		summary.Completed, summary.Attempted, time.Since(start).Round(time.Second), summary.Pending-summary.Completed))
}

func SplitDataset(ctx context.Context, p *delivery.Pipeline) {
	result, err := p.Split(ctx)
	if err != nil {
		PrintError(fmt.Sprintf("Error splitting dataset: %s", err.Error()))
		return
	}
	counts := result.Counts()
	PrintSuccess(fmt.Sprintf("Split created at %s\nTrain: %d\nVal: %d\nTest: %d", p.Config.SplitRoot, counts[split.Train], counts[split.Val], counts[split.Test]))
	if len(result.Missing) > 0 {
		PrintWarning(fmt.Sprintf("%d sites had no raster directory: %v", len(result.Missing), result.Missing))
	}
}

func ConvertDataset(ctx context.Context, p *delivery.Pipeline) {
	summary, err := p.Convert(ctx)
	if err != nil {
		PrintError(fmt.Sprintf("Error converting dataset: %s", err.Error()))
		return
	}
	PrintSuccess(fmt.Sprintf("Converted %d sites: %d image arrays, %d label arrays at %s", summary.Sites, summary.Images, summary.Labels, p.Config.NumpyRoot))
}

func DiscoverSites(ctx context.Context, p *delivery.Pipeline) {
	PrintWarning("Existing AOI files are never overwritten.")
	source := ReadString(fmt.Sprintf("Enter the source (%s or %s): ", delivery.SourcePostGIS, delivery.SourceOverpass))
	summary, err := p.Discover(ctx, source)
	if err != nil {
		PrintError(fmt.Sprintf("Error discovering sites: %s", err.Error()))
		return
	}
	PrintSuccess(fmt.Sprintf("Wrote %d new AOI files, kept %d existing, skipped %d", summary.Written, summary.Kept, summary.Skipped))
}

func ListSites(ctx context.Context, p *delivery.Pipeline) {
	rows, err := p.Status()
	if err != nil {
		PrintError(fmt.Sprintf("Error reading AOI files: %s", err.Error()))
		return
	}
	if len(rows) == 0 {
		PrintWarning(fmt.Sprintf("No AOI files found in %s. Run the discovery step first.", p.Config.AOIDir))
		return
	}
	fmt.Fprintf(output, "%s\n%-28s %-8s %-12s %8s %8s %8s%s\n", ColorGreen, "SITE", "COUNTRY", "STATE", "SENTINEL", "LABELS", "CHANGES", ColorReset)
	for _, row := range rows {
		c := ColorYellow
		if row.State == dataset.StateCompleted.String() {
			c = ColorGreen
		}
		fmt.Fprintf(output, "%s%-28s %-8s %-12s %8d %8d %8d%s\n", c, row.SiteID, row.Country, row.State, row.Imagery, row.Labels, row.Changes, ColorReset)
	}
}

func RenderPreview(ctx context.Context, p *delivery.Pipeline) {
	site := ReadString("Enter the site id: ")
	if site == "" {
		PrintError("site id cannot be empty")
		return
	}
	year, err := ReadInt("Enter the year: ", p.Config.StartYear, p.Config.EndYear-1)
	if err != nil {
		PrintError(err.Error())
		return
	}
	previews, err := p.Preview(site, year)
	if err != nil {
		PrintError(fmt.Sprintf("Error rendering preview: %s", err.Error()))
		return
	}
	for _, preview := range previews {
		PrintSuccess(fmt.Sprintf("%s preview located at: %s", preview.Kind, preview.Path))
	}
}
