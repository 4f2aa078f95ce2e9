package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"katalog/internal/app"
	"katalog/internal/config"
	"katalog/internal/katalog"
	"katalog/internal/snapshot"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	catalogPath string
	verbose     bool
)

// loadConfig reads the config file, falling back to defaults when none has
// been initialized yet.
func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.NewConfig(defaults["base_dir"])
	} else if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	if catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}
	return cfg, defaults["config_path"], nil
}

// newApp reads the config and creates a KatalogApp. The caller must defer a.Close().
func newApp(cmd *cobra.Command, args []string) (*app.KatalogApp, *config.Config, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	a, err := app.NewKatalogApp(cfg, cmd.CommandPath(), strings.Join(args, " "), app.Options{Verbose: verbose})
	if err != nil {
		return nil, nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, cfg, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

var rootCmd = &cobra.Command{
	Use:          "katalog",
	Short:        "Offline catalog of removable and network volumes",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Catalog:  %s\n", cfg.Catalog.Path)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Catalog:   %s (%s)\n", cfg.Catalog.Path, cfg.Catalog.Driver)
		fmt.Printf("Listen:    %s\n", cfg.Server.Addr)
		fmt.Printf("Snapshots: %s", cfg.Snapshot.Type)
		switch cfg.Snapshot.Type {
		case "s3":
			fmt.Printf(" s3://%s/%s", cfg.Snapshot.S3Bucket, cfg.Snapshot.S3Prefix)
		case "filesystem", "":
			fmt.Printf(" %s", cfg.Snapshot.Root)
		}
		if len(cfg.Snapshot.AgeRecipients) > 0 {
			fmt.Printf(" (encrypted to %d recipient(s))", len(cfg.Snapshot.AgeRecipients))
		}
		fmt.Println()
		return nil
	},
}

// open command
var openCmd = &cobra.Command{
	Use:   "open PATH",
	Short: "Create or open a catalog file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(cmd, args)
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.OpenProject(args[0])
		if err != nil {
			return err
		}
		printInfo(info)
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Summarize the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(cmd, args)
		if err != nil {
			return err
		}
		defer a.Close()

		printInfo(a.ProjectInfo())
		return nil
	},
}

func printInfo(info katalog.ProjectInfo) {
	fmt.Printf("Catalog: %s\n", info.Path)
	if !info.OK {
		fmt.Println("Status:  not open")
		return
	}
	fmt.Printf("Volumes: %d\n", info.VolumeCount)
	fmt.Printf("Files:   %d\n", info.FileCount)
	fmt.Printf("Size:    %s\n", formatBytes(info.TotalBytes))
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan PATH",
	Short: "Catalog a mounted volume or directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cfg, err := newApp(cmd, args)
		if err != nil {
			return err
		}
		defer a.Close()

		opts, err := scanOptions(cmd, cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := newProgress(os.Stdout)
		st, err := a.Scan(ctx, args[0], opts, p.update)
		p.done()
		if err != nil {
			return err
		}

		fmt.Printf("Scanned volume #%d: %d directories, %d files, %s",
			st.VolumeID, st.Directories, st.Files, formatBytes(st.Bytes))
		if st.Skipped > 0 || st.Errors > 0 {
			fmt.Printf(" (%d skipped, %d errors)", st.Skipped, st.Errors)
		}
		fmt.Println()
		return nil
	},
}

// scanOptions starts from the configured defaults and applies any scan
// flags the user set. It returns nil when no flag was set.
func scanOptions(cmd *cobra.Command, cfg *config.Config) (*katalog.ScanOptions, error) {
	f := cmd.Flags()
	if !f.Changed("hidden") && !f.Changed("follow-symlinks") && !f.Changed("hash") &&
		!f.Changed("media") && !f.Changed("max-depth") && !f.Changed("exclude") {
		return nil, nil
	}

	opts := cfg.ScanOptions()
	var err error
	if f.Changed("hidden") {
		opts.IncludeHidden, err = f.GetBool("hidden")
	}
	if err == nil && f.Changed("follow-symlinks") {
		opts.FollowSymlinks, err = f.GetBool("follow-symlinks")
	}
	if err == nil && f.Changed("hash") {
		opts.ComputeHashes, err = f.GetBool("hash")
	}
	if err == nil && f.Changed("media") {
		opts.ReadMediaTags, err = f.GetBool("media")
	}
	if err == nil && f.Changed("max-depth") {
		opts.MaxDepth, err = f.GetInt("max-depth")
	}
	if err == nil && f.Changed("exclude") {
		var extra []string
		extra, err = f.GetStringSlice("exclude")
		opts.ExcludePatterns = append(opts.ExcludePatterns, extra...)
	}
	if err != nil {
		return nil, err
	}
	return &opts, nil
}

// search command
var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Find files by name or path",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		volume, _ := cmd.Flags().GetInt64("volume")
		fileType, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")

		a, _, err := newApp(cmd, args)
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.Search(strings.Join(args, " "), volume, fileType, limit)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, r := range results {
			fmt.Printf("[%s] %s  %s  %s\n", r.VolumeLabel, r.FullPath, formatBytes(r.Size), r.FileType)
		}
		return nil
	},
}

// volumes command
var volumesCmd = &cobra.Command{
	Use:   "volumes",
	Short: "List cataloged volumes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(cmd, args)
		if err != nil {
			return err
		}
		defer a.Close()

		vols, err := a.Volumes()
		if err != nil {
			return err
		}
		if len(vols) == 0 {
			fmt.Println("No volumes cataloged.")
			return nil
		}
		for _, v := range vols {
			fmt.Printf("#%-4d %-24s %-8s %10s  updated %s\n",
				v.ID, v.Label, v.FsType, formatBytes(v.TotalSize), v.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var volumesRenameCmd = &cobra.Command{
	Use:   "rename ID LABEL",
	Short: "Change a volume's label",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, _, err := newApp(cmd, args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RenameVolume(id, args[1]); err != nil {
			return err
		}
		fmt.Printf("Volume #%d renamed to %q\n", id, args[1])
		return nil
	},
}

var volumesRemoveCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a volume and everything cataloged under it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, _, err := newApp(cmd, args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteVolume(id); err != nil {
			return err
		}
		fmt.Printf("Volume #%d removed\n", id)
		return nil
	},
}

// ls command
var lsCmd = &cobra.Command{
	Use:   "ls VOLUME_ID [PATH]",
	Short: "Browse a cataloged volume",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		dir := "/"
		if len(args) > 1 {
			dir = args[1]
		}

		a, _, err := newApp(cmd, args)
		if err != nil {
			return err
		}
		defer a.Close()

		dirs, files, err := a.Browse(id, dir)
		if err != nil {
			return err
		}
		for _, d := range dirs {
			fmt.Printf("%10s  %s/\n", "", d.Name)
		}
		for _, f := range files {
			fmt.Printf("%10s  %s\n", formatBytes(f.Size), f.Name)
		}
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cfg, err := newApp(cmd, args)
		if err != nil {
			return err
		}
		defer a.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Listening on http://%s\n", cfg.Server.Addr)
		return a.Serve(ctx)
	},
}

// snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Back up and restore the catalog",
}

var snapshotKeygenCmd = &cobra.Command{
	Use:   "keygen [PATH]",
	Short: "Generate an age identity for encrypted snapshots",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		} else {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			path = cfg.Snapshot.AgeIdentityPath
			if path == "" {
				path = filepath.Join(cfg.BaseDir, "snapshot.key")
			}
		}

		recipient, err := snapshot.GenerateIdentity(path)
		if err != nil {
			return err
		}
		fmt.Printf("Identity written to %s\n", path)
		fmt.Printf("Recipient: %s\n", recipient)
		fmt.Println("Add the recipient to snapshot.age_recipients and the path to snapshot.age_identity_path.")
		return nil
	},
}

var snapshotPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload a snapshot of the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(cmd, args)
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.PushSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Pushed %s (%s)\n", info.Name, formatBytes(info.Size))
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(cmd, args)
		if err != nil {
			return err
		}
		defer a.Close()

		infos, err := a.ListSnapshots(cmd.Context())
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}
		for _, i := range infos {
			enc := ""
			if i.Encrypted() {
				enc = "  [encrypted]"
			}
			fmt.Printf("%s  %10s  %s%s\n", i.ModTime.Local().Format("2006-01-02 15:04:05"), formatBytes(i.Size), i.Name, enc)
		}
		return nil
	},
}

var snapshotPullCmd = &cobra.Command{
	Use:   "pull NAME DEST",
	Short: "Download a snapshot to a new file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(cmd, args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.PullSnapshot(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Restored %s to %s\n", args[0], args[1])
		fmt.Printf("Open it with: katalog open %s\n", args[1])
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Catalog file to use instead of the configured one")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// scan flags
	scanCmd.Flags().Bool("hidden", false, "Include hidden files and directories")
	scanCmd.Flags().Bool("follow-symlinks", false, "Follow symbolic links")
	scanCmd.Flags().Bool("hash", false, "Compute SHA-256 content hashes")
	scanCmd.Flags().Bool("media", false, "Read embedded media tags")
	scanCmd.Flags().Int("max-depth", -1, "Maximum directory depth below the root (-1 for unlimited)")
	scanCmd.Flags().StringSlice("exclude", nil, "Glob patterns to skip (repeatable)")

	searchCmd.Flags().Int64("volume", 0, "Only search this volume")
	searchCmd.Flags().StringP("type", "t", "", "Only files of this type (e.g. image, pdf, text/plain)")
	searchCmd.Flags().IntP("limit", "n", 50, "Maximum number of results")

	volumesCmd.AddCommand(volumesRenameCmd)
	volumesCmd.AddCommand(volumesRemoveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")

	snapshotCmd.AddCommand(snapshotKeygenCmd)
	snapshotCmd.AddCommand(snapshotPushCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotPullCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(volumesCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(snapshotCmd)
}
