package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kozaktomas/facescan/internal/config"
	"github.com/kozaktomas/facescan/internal/constants"
	"github.com/kozaktomas/facescan/internal/database/postgres"
	"github.com/kozaktomas/facescan/internal/facematch"
	"github.com/kozaktomas/facescan/internal/gallery"
	"github.com/kozaktomas/facescan/internal/logger"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Manage the reference gallery",
}

var gallerySeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write a deterministic synthetic gallery as YAML",
	Args:  cobra.NoArgs,
	RunE:  runGallerySeed,
}

var galleryImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import a YAML gallery into PostgreSQL",
	Long: `Import gallery entries from a YAML file into the gallery_entries table.
Existing identities are updated in place. Requires DATABASE_URL.`,
	Args: cobra.ExactArgs(1),
	RunE: runGalleryImport,
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the entries of the configured gallery",
	Args:  cobra.NoArgs,
	RunE:  runGalleryList,
}

var galleryNeighborsCmd = &cobra.Command{
	Use:   "neighbors <identity-id>",
	Short: "Show the gallery entries most similar to one identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runGalleryNeighbors,
}

var galleryValidateCmd = &cobra.Command{
	Use:   "validate [file.yaml]",
	Short: "Check a gallery for consistent descriptors",
	Long: `Check that all descriptors share one length matching EMBEDDING_DIM and
that identity ids are unique. Without an argument the configured gallery
source is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGalleryValidate,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(gallerySeedCmd, galleryImportCmd, galleryListCmd, galleryNeighborsCmd, galleryValidateCmd)

	gallerySeedCmd.Flags().String("out", "", "Output file (default: stdout)")
	gallerySeedCmd.Flags().Int("size", 100, "Number of identities")
	gallerySeedCmd.Flags().Uint64("seed", 1, "Random seed")
	gallerySeedCmd.Flags().Int("dim", 0, "Descriptor length (default: EMBEDDING_DIM)")

	galleryImportCmd.Flags().Int("batch-size", constants.ImportBatchSize, "Entries written per transaction")

	galleryListCmd.Flags().Bool("json", false, "Output as JSON")
	galleryListCmd.Flags().String("name", "", "Only entries with this display name (accent-insensitive)")

	galleryNeighborsCmd.Flags().Int("k", constants.DefaultNeighbors, "Number of neighbors")
	galleryNeighborsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runGallerySeed(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	size := mustGetInt(cmd, "size")
	dim := mustGetInt(cmd, "dim")
	if dim == 0 {
		dim = cfg.Embedding.Dim
	}
	if size < 0 || dim <= 0 {
		return fmt.Errorf("invalid size %d or dim %d", size, dim)
	}
	entries := gallery.Generate(size, dim, mustGetUint64(cmd, "seed"), time.Now().UTC())

	out := mustGetString(cmd, "out")
	if out == "" {
		return gallery.WriteYAML(os.Stdout, entries)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	if err := gallery.WriteYAML(f, entries); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %d identities (dim %d) to %s\n", len(entries), dim, out)
	return nil
}

func runGalleryImport(cmd *cobra.Command, args []string) error {
	batchSize := max(mustGetInt(cmd, "batch-size"), 1)

	entries, err := gallery.LoadYAML(args[0])
	if err != nil {
		return err
	}
	if err := gallery.Validate(entries); err != nil {
		return err
	}

	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required for import")
	}
	log, err := logger.NewLogger(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.ContextWithLogger(commandContext(cmd), log)
	pool, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = pool.Close() }()

	repo := postgres.NewGalleryRepository(pool)
	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetDescription("Importing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)
	for start := 0; start < len(entries); start += batchSize {
		end := min(start+batchSize, len(entries))
		if err := repo.InsertEntries(ctx, entries[start:end]); err != nil {
			fmt.Println()
			return fmt.Errorf("importing entries %d-%d: %w", start, end-1, err)
		}
		bar.Add(end - start)
	}
	fmt.Println()

	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d identities, gallery now holds %d\n", len(entries), total)
	return nil
}

func runGalleryList(cmd *cobra.Command, _ []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	name := mustGetString(cmd, "name")

	a, err := newApp(commandContext(cmd), config.Load(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	snap := a.gallery.Snapshot()
	entries := snap.All()
	if name != "" {
		entries = snap.FindByName(name)
	}

	if jsonOutput {
		out := make([]facematch.GalleryEntry, len(entries))
		for i, e := range entries {
			e.Descriptor = nil
			out[i] = e
		}
		return outputJSON(out)
	}

	fmt.Printf("%-24s %-24s %-16s %-12s %s\n", "ID", "NAME", "LOCATION", "SOURCE", "CAPTURED")
	fmt.Println(strings.Repeat("-", 90))
	for _, e := range entries {
		fmt.Printf("%-24s %-24s %-16s %-12s %s\n",
			e.IdentityID, e.DisplayName, e.Location, e.SourceTag, e.CapturedAt.Format("2006-01-02"))
	}
	fmt.Printf("\n%d of %d entries (dim %d)\n", len(entries), snap.Len(), snap.Dim())
	return nil
}

func runGalleryNeighbors(cmd *cobra.Command, args []string) error {
	k := mustGetInt(cmd, "k")
	if k < 1 || k > constants.MaxNeighbors {
		return fmt.Errorf("--k must be between 1 and %d", constants.MaxNeighbors)
	}
	jsonOutput := mustGetBool(cmd, "json")

	a, err := newApp(commandContext(cmd), config.Load(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	idx, err := gallery.NewNeighborIndex(a.gallery.Snapshot())
	if err != nil {
		return err
	}
	neighbors, err := idx.Neighbors(args[0], k)
	if errors.Is(err, gallery.ErrNotFound) {
		return fmt.Errorf("identity %q not in gallery", args[0])
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		for i := range neighbors {
			neighbors[i].Entry.Descriptor = nil
		}
		return outputJSON(neighbors)
	}
	if len(neighbors) == 0 {
		fmt.Println("No neighbors found")
		return nil
	}
	fmt.Printf("%-3s %-24s %-24s %s\n", "#", "ID", "NAME", "SIMILARITY")
	for i, n := range neighbors {
		fmt.Printf("%-3d %-24s %-24s %.4f\n", i+1, n.Entry.IdentityID, n.Entry.DisplayName, n.Similarity)
	}
	return nil
}

func runGalleryValidate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	var entries []facematch.GalleryEntry
	if len(args) == 1 {
		var err error
		entries, err = gallery.LoadYAML(args[0])
		if err != nil {
			return err
		}
	} else {
		a, err := newApp(commandContext(cmd), cfg, nil)
		if err != nil {
			return err
		}
		entries = a.gallery.All()
		a.Close()
	}

	problems := validateEntries(entries, cfg.Embedding.Dim)
	for _, p := range problems {
		fmt.Println("  " + p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("gallery has %d problem(s)", len(problems))
	}
	fmt.Printf("Gallery OK: %d entries\n", len(entries))
	return nil
}

// validateEntries lists every inconsistency that would make scans fail or
// misbehave.
func validateEntries(entries []facematch.GalleryEntry, dim int) []string {
	var problems []string
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		switch {
		case e.IdentityID == "":
			problems = append(problems, fmt.Sprintf("entry %q has no identity id", e.DisplayName))
		case seen[e.IdentityID]:
			problems = append(problems, fmt.Sprintf("duplicate identity id %q", e.IdentityID))
		}
		seen[e.IdentityID] = true

		if len(e.Descriptor) != dim {
			problems = append(problems, fmt.Sprintf("%s: descriptor has %d values, expected %d", e.IdentityID, len(e.Descriptor), dim))
		} else if zeroDescriptor(e.Descriptor) {
			problems = append(problems, fmt.Sprintf("%s: descriptor is all zeros and can never match", e.IdentityID))
		}
	}
	return problems
}

func zeroDescriptor(d facematch.Descriptor) bool {
	for _, v := range d {
		if v != 0 {
			return false
		}
	}
	return true
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
