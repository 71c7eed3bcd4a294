package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"scopekit/internal/codec"
	"scopekit/internal/config"
	"scopekit/internal/domain"
	"scopekit/internal/repository/sqlite"
	"scopekit/internal/service"
	"scopekit/internal/watcher"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
)

const usage = `usage: scopectl [flags] <command> [command flags]

commands:
  demo     build a sample object tree and print it (or save it with -key)
  save     import a tree from a file and store it under a key (-watch to keep re-importing)
  export   print a stored tree
  list     list stored trees
  delete   remove a stored tree
  config   print the effective configuration (or write defaults with -init)

flags:
`

// app holds what every command needs once flags and config are resolved
type app struct {
	cfg     *config.Config
	svc     *service.SnapshotService
	closeDB func() error
}

func main() {
	configPath := flag.String("config", "", "config file path (default: search standard locations)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	verbose := flag.Bool("v", false, "log snapshot events")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if path != "" && *verbose {
		log.Printf("Config loaded: %s", path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if err := run(ctx, cfg, cmd, args, *verbose); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("%s: %v", cmd, err)
	}
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func run(ctx context.Context, cfg *config.Config, cmd string, args []string, verbose bool) error {
	switch cmd {
	case "config":
		return runConfig(cfg, args)
	case "demo", "save", "export", "list", "delete":
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	a, err := open(cfg, verbose)
	if err != nil {
		return err
	}
	defer a.closeDB()

	switch cmd {
	case "demo":
		return a.runDemo(ctx, args)
	case "save":
		return a.runSave(ctx, args)
	case "export":
		return a.runExport(ctx, args)
	case "list":
		return a.runList(ctx, args)
	default:
		return a.runDelete(ctx, args)
	}
}

func open(cfg *config.Config, verbose bool) (*app, error) {
	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	eventBus := service.NewEventBus()
	if verbose {
		log.Printf("Database opened: %s", cfg.Database.Path)
		events := make(chan service.Event, 16)
		eventBus.Subscribe(events)
		go func() {
			for ev := range events {
				log.Printf("event: %s %s %s", ev.Type, ev.Snapshot.Key, ev.Snapshot.Fingerprint)
			}
		}()
	}

	svc := service.NewSnapshotService(repo, eventBus, service.Options{
		Format:        cfg.Export.Format,
		Indent:        cfg.Export.Indent,
		SkipUnchanged: cfg.SkipUnchanged(),
		Timeout:       cfg.Snapshots.Timeout.Duration(),
	})

	return &app{cfg: cfg, svc: svc, closeDB: repo.Close}, nil
}

func (a *app) runDemo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	key := fs.String("key", "", "store the demo tree under this key instead of printing it")
	format := fs.String("format", a.cfg.Export.Format, "output format (yaml, json)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	world, err := buildDemo()
	if err != nil {
		return fmt.Errorf("failed to build demo tree: %w", err)
	}

	if *key != "" {
		res, err := a.svc.Save(ctx, *key, world)
		if err != nil {
			return err
		}
		printSaveResult(res)
		return nil
	}

	c, err := codec.ForFormat(*format, a.cfg.Export.Indent)
	if err != nil {
		return err
	}
	return c.Export(world.AsScope(), os.Stdout)
}

func (a *app) runSave(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	key := fs.String("key", "", "snapshot key (default: file name without extension, random for stdin)")
	file := fs.String("file", "", "file to import, - for stdin")
	format := fs.String("format", "", "input format (default: from file extension, else config)")
	watch := fs.Bool("watch", false, "re-import the file every time it changes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("-file is required")
	}
	if *watch && *file == "-" {
		return fmt.Errorf("-watch needs a file, not stdin")
	}

	inFormat := *format
	if inFormat == "" {
		inFormat = formatFromExt(*file, a.cfg.Export.Format)
	}
	k := *key
	if k == "" {
		k = keyFromPath(*file)
	}

	if *file == "-" {
		res, err := a.svc.Import(ctx, k, inFormat, os.Stdin)
		if err != nil {
			return err
		}
		printSaveResult(res)
		return nil
	}

	if err := a.importFile(ctx, k, inFormat, *file); err != nil {
		return err
	}
	if !*watch {
		return nil
	}

	w, err := watcher.New(func(src watcher.Source) {
		if err := a.importFile(ctx, src.Key, inFormat, src.Path); err != nil {
			log.Printf("Re-import failed: %v", err)
		}
	}, watcher.Source{Path: *file, Key: k})
	if err != nil {
		return err
	}
	if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *app) importFile(ctx context.Context, key, format, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	res, err := a.svc.Import(ctx, key, format, f)
	if err != nil {
		return err
	}
	printSaveResult(res)
	return nil
}

func (a *app) runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	key := fs.String("key", "", "snapshot key")
	format := fs.String("format", "", "output format (default: config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		return fmt.Errorf("-key is required")
	}
	return a.svc.Export(ctx, *key, *format, os.Stdout)
}

func (a *app) runList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	infos, err := a.svc.List(ctx)
	if err != nil {
		return err
	}

	human := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tFORMAT\tSIZE\tUPDATED\tFINGERPRINT")
	for _, info := range infos {
		fmt.Fprintln(w, listRow(info, human))
	}
	return w.Flush()
}

// listRow formats one list line. Terminals get readable sizes and ages,
// pipes get exact values.
func listRow(info domain.SnapshotInfo, human bool) string {
	fp := info.Fingerprint
	size := fmt.Sprint(info.Size)
	updated := info.UpdatedAt.UTC().Format(time.RFC3339)
	if human {
		if len(fp) > 12 {
			fp = fp[:12]
		}
		size = humanize.Bytes(uint64(info.Size))
		updated = humanize.Time(info.UpdatedAt)
	}
	return strings.Join([]string{info.Key, info.Format, size, updated, fp}, "\t")
}

func (a *app) runDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	key := fs.String("key", "", "snapshot key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		return fmt.Errorf("-key is required")
	}
	if err := a.svc.Delete(ctx, *key); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", *key)
	return nil
}

func runConfig(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	initPath := fs.String("init", "", "write the effective config to this path (- for the default location)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *initPath == "" {
		fmt.Println(cfg.Summary())
		fmt.Println("Search paths:")
		for _, sp := range config.SearchPaths() {
			fmt.Printf("  %-8s %s\n", sp.Origin, sp.Path)
		}
		return nil
	}

	path := *initPath
	if path == "-" {
		path = config.DefaultConfigPath()
	}
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func printSaveResult(res *service.SaveResult) {
	state := "saved"
	if !res.Changed {
		state = "unchanged"
	}
	fmt.Printf("%s %s (%s, %s)\n", state, res.Snapshot.Key, res.Snapshot.Format,
		humanize.Bytes(uint64(res.Snapshot.Size)))
}

// keyFromPath derives a snapshot key from a file name. Stdin gets a random key.
func keyFromPath(path string) string {
	if path == "-" {
		return uuid.NewString()
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// formatFromExt picks a codec format from a file extension
func formatFromExt(path, fallback string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, f := range codec.Formats() {
		if ext == f {
			return f
		}
	}
	if ext == "yml" {
		return "yaml"
	}
	return fallback
}
