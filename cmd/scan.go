package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kozaktomas/facescan/internal/config"
	"github.com/kozaktomas/facescan/internal/constants"
	"github.com/kozaktomas/facescan/internal/facematch"
	"github.com/kozaktomas/facescan/internal/logger"
	"github.com/kozaktomas/facescan/internal/metrics"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan <image>...",
	Short: "Scan images against the reference gallery",
	Long: `Extract a face descriptor from each image and list the gallery
identities whose similarity exceeds the match threshold, best first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Bool("json", false, "Output results as JSON")
	scanCmd.Flags().Float64("threshold", facematch.DefaultMatchThreshold, "Similarity a gallery entry must exceed")
	scanCmd.Flags().Int("workers", constants.WorkerPoolSize, "Number of images scanned in parallel")
}

// ScanResult is the outcome of scanning one file.
type ScanResult struct {
	Path   string                `json:"path"`
	Record *facematch.ScanRecord `json:"record,omitempty"`
	Error  string                `json:"error,omitempty"`
}

func runScan(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	workers := max(mustGetInt(cmd, "workers"), 1)

	cfg := config.Load()
	matchOpts, err := cfg.MatchOptions()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("threshold") {
		matchOpts.MatchThreshold = mustGetFloat64(cmd, "threshold")
		if err := matchOpts.Validate(); err != nil {
			return err
		}
	}

	ctx := commandContext(cmd)
	a, err := newApp(ctx, cfg, &matchOpts)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx = logger.ContextWithLogger(ctx, a.log)

	var bar *progressbar.ProgressBar
	if !jsonOutput && len(args) > 1 {
		bar = progressbar.NewOptions(len(args),
			progressbar.OptionSetDescription("Scanning"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	startTime := time.Now()
	results := scanFiles(ctx, a.pipeline, args, workers, func() {
		if bar != nil {
			bar.Add(1)
		}
	})
	if bar != nil {
		fmt.Println()
	}

	if jsonOutput {
		return outputJSON(results)
	}

	failed := 0
	for _, r := range results {
		printScanResult(r, matchOpts.Bands)
		if r.Error != "" {
			failed++
		}
	}
	fmt.Printf("\nScanned %d image(s) against %d identities in %s\n",
		len(results), a.gallery.Snapshot().Len(), formatDuration(time.Since(startTime)))
	if failed > 0 {
		return fmt.Errorf("%d of %d scans failed", failed, len(results))
	}
	return nil
}

// scanFiles scans paths with a bounded number of workers. Results keep the
// order of paths.
func scanFiles(ctx context.Context, p *facematch.Pipeline, paths []string, workers int, done func()) []ScanResult {
	results := make([]ScanResult, len(paths))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = scanFile(ctx, p, path)
			done()
		}()
	}
	wg.Wait()
	return results
}

func scanFile(ctx context.Context, p *facematch.Pipeline, path string) ScanResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return ScanResult{Path: path, Error: err.Error()}
	}

	start := time.Now()
	rec, err := p.Scan(ctx, facematch.Image{Ref: filepath.Base(path), Data: data})
	if err != nil {
		metrics.ObserveScan(time.Since(start), 0, err)
		var dimErr *facematch.DimensionError
		if errors.As(err, &dimErr) {
			return ScanResult{Path: path, Error: fmt.Sprintf("gallery entry %s has %d values, probe has %d", dimErr.IdentityID, dimErr.Got, dimErr.Want)}
		}
		return ScanResult{Path: path, Error: err.Error()}
	}
	metrics.ObserveScan(time.Since(start), rec.MatchCount, nil)
	return ScanResult{Path: path, Record: rec}
}

func printScanResult(r ScanResult, bands facematch.Bands) {
	fmt.Printf("\n%s\n", r.Path)
	if r.Error != "" {
		fmt.Printf("  Error: %s\n", r.Error)
		return
	}
	rec := r.Record
	if rec.Degraded {
		fmt.Printf("  Warning: fallback descriptor used (%s)\n", rec.DegradedReason)
	}
	if rec.MatchCount == 0 {
		fmt.Println("  No matches found")
		return
	}
	fmt.Printf("  %-3s %-24s %-10s %-7s %-16s %s\n", "#", "NAME", "CONF", "BAND", "LOCATION", "SOURCE")
	for i, m := range rec.Matches {
		fmt.Printf("  %-3d %-24s %-10s %-7s %-16s %s\n",
			i+1, m.DisplayName,
			fmt.Sprintf("%.1f%%", m.Confidence*100),
			bands.Classify(m.Confidence),
			m.Location, m.SourceTag,
		)
	}
}
