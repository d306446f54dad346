package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/On-Jun9/ShutterOrient/internal/config"
	"github.com/On-Jun9/ShutterOrient/internal/index"
	"github.com/On-Jun9/ShutterOrient/internal/pipeline"
	"github.com/On-Jun9/ShutterOrient/internal/render"
	"github.com/On-Jun9/ShutterOrient/pkg/types"
)

var (
	appVersion   = "0.1.0"
	cfgFile      string
	indexFile    string
	indexBackend string
	contentRoot  string
	httpTimeout  time.Duration
	includeExt   []string
	excludes     []string
	jobs         int
	logFile      string
	logJSON      bool
	jsonOutput   bool
	outputPath   string
	longestSide  int
	jpegQuality  int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "shutterorient",
	Short: "Resolve photo display rotation from EXIF orientation",
	Long: `ShutterOrient reads the EXIF Orientation tag of images (local files,
content:// handles or http(s) URLs) and reports the clockwise rotation needed
to display them upright. Images without EXIF fall back to an orientation index.`,
	SilenceUsage: true,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <ref>...",
	Short: "Print the rotation for one or more image references",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Resolve every image under a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

var uprightCmd = &cobra.Command{
	Use:   "upright <ref>",
	Short: "Write an upright JPEG copy of an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpright,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(appVersion)
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(uprightCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file path")
	flags.StringVar(&indexFile, "index", "", "orientation index file")
	flags.StringVar(&indexBackend, "index-backend", "", "orientation index backend: json, bolt")
	flags.StringVar(&contentRoot, "content-root", "", "directory serving content:// references")
	flags.DurationVar(&httpTimeout, "http-timeout", 0, "timeout for http(s) references")
	flags.StringVar(&logFile, "log-file", "", "log file path")
	flags.BoolVar(&logJSON, "log-json", false, "output JSON logs")

	resolveCmd.Flags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	scanCmd.Flags().StringSliceVarP(&includeExt, "include-ext", "e", nil, "file extensions to include")
	scanCmd.Flags().StringSliceVarP(&excludes, "exclude", "x", nil, "glob patterns (relative to the scan root) to skip")
	scanCmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "number of concurrent workers (0=auto)")
	scanCmd.Flags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	uprightCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output JPEG path")
	uprightCmd.Flags().IntVar(&longestSide, "longest-side", 0, "scale down to this longest side (0=keep)")
	uprightCmd.Flags().IntVar(&jpegQuality, "quality", 0, "JPEG quality 1-100")
	uprightCmd.MarkFlagRequired("output")
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.LoadFromFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	if indexBackend != "" {
		cfg.IndexBackend = index.Backend(indexBackend)
	}
	if indexFile != "" {
		cfg.IndexFile = indexFile
	}
	if contentRoot != "" {
		cfg.ContentRoot = contentRoot
	}
	if httpTimeout > 0 {
		cfg.HTTPTimeout = httpTimeout
	}
	if len(includeExt) > 0 {
		cfg.IncludeExtensions = includeExt
	}
	if len(excludes) > 0 {
		cfg.ExcludePatterns = excludes
	}
	if jobs > 0 {
		cfg.Jobs = jobs
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if logJSON {
		cfg.LogJSON = true
	}
	if longestSide > 0 {
		cfg.LongestSide = longestSide
	}
	if jpegQuality > 0 {
		cfg.JPEGQuality = jpegQuality
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openPipeline() (*pipeline.Pipeline, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	return p, cfg, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runResolve(cmd *cobra.Command, args []string) error {
	p, _, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	var errs []error
	results := make([]types.Resolution, 0, len(args))
	for _, arg := range args {
		res, err := p.Resolve(cmd.Context(), types.ImageRef(arg))
		if err != nil {
			errs = append(errs, err)
		}
		results = append(results, res)
	}

	if jsonOutput {
		if err := printJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			if res.Error != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s\terror: %s\n", res.Ref, res.Error)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", res.Ref, res.Angle, res.Source)
		}
	}

	return errors.Join(errs...)
}

func runScan(cmd *cobra.Command, args []string) error {
	p, _, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	// Stdout carries only the JSON document in --json mode.
	if jsonOutput {
		p.Logger().SetConsole(cmd.ErrOrStderr())
	} else {
		p.Logger().SetConsole(cmd.OutOrStdout())
	}

	results, _, err := p.Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), results)
	}
	return nil
}

func runUpright(cmd *cobra.Command, args []string) error {
	p, cfg, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	ref := types.ImageRef(args[0])
	res, err := p.Resolve(cmd.Context(), ref)
	if err != nil {
		return err
	}

	src, err := p.Open(cmd.Context(), ref)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", ref, err)
	}
	defer src.Close()

	opts := render.Options{LongestSide: cfg.LongestSide, JPEGQuality: cfg.JPEGQuality}
	if err := render.RenderFile(src, outputPath, res.Angle, opts); err != nil {
		return err
	}

	fmt.Printf("%s -> %s (rotated %s)\n", ref, outputPath, res.Angle)
	return nil
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the fallback orientation index",
}

var indexSetCmd = &cobra.Command{
	Use:   "set <ref> <raw>",
	Short: "Record a raw EXIF orientation value (0-9) for a reference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid raw orientation %q: %w", args[1], err)
		}
		return withIndex(func(store index.Store) error {
			return store.Set(types.ImageRef(args[0]), raw)
		})
	},
}

var indexGetCmd = &cobra.Command{
	Use:   "get <ref>",
	Short: "Print the recorded orientation for a reference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIndex(func(store index.Store) error {
			raw, ok, err := store.Lookup(types.ImageRef(args[0]))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no index entry for %q", args[0])
			}
			fmt.Println(raw)
			return nil
		})
	},
}

var indexRmCmd = &cobra.Command{
	Use:   "rm <ref>",
	Short: "Remove a reference from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIndex(func(store index.Store) error {
			return store.Delete(types.ImageRef(args[0]))
		})
	},
}

var indexLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List every index entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIndex(func(store index.Store) error {
			entries, err := store.List()
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%s\t%d\t%s\n", e.Ref, e.Raw, humanize.Time(e.UpdatedAt))
			}
			return nil
		})
	},
}

func init() {
	indexCmd.AddCommand(indexSetCmd)
	indexCmd.AddCommand(indexGetCmd)
	indexCmd.AddCommand(indexRmCmd)
	indexCmd.AddCommand(indexLsCmd)
}

func withIndex(fn func(store index.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := index.Open(cfg.IndexBackend, cfg.IndexFile)
	if err != nil {
		return fmt.Errorf("failed to open orientation index: %w", err)
	}
	defer store.Close()

	return fn(store)
}
