package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kenralotamd/spending-tracker/internal/importer"
	"github.com/kenralotamd/spending-tracker/internal/learn"
	"github.com/kenralotamd/spending-tracker/internal/middleware"
	"github.com/kenralotamd/spending-tracker/internal/registry"
	"github.com/kenralotamd/spending-tracker/internal/scanner"
	"github.com/kenralotamd/spending-tracker/internal/server"
	"github.com/kenralotamd/spending-tracker/internal/store"
	fsstore "github.com/kenralotamd/spending-tracker/internal/store/firestore"
	"github.com/kenralotamd/spending-tracker/internal/store/sqlite"
	"github.com/kenralotamd/spending-tracker/internal/ui"
)

const (
	version = "0.1.0"
)

var (
	// Global flags
	versionFlag = flag.Bool("version", false, "Show version")

	// Core CLI flags
	inputDir  = flag.String("input", "", "Directory of statement files to import")
	household = flag.String("household", "", "Household identifier (required)")
	person    = flag.String("person", "", "Household member to tag imported rows with (default: both)")
	dryRun    = flag.Bool("dry-run", false, "Report what would be imported without writing")
	verbose   = flag.Bool("verbose", false, "Show detailed import logs")

	// Store selection
	storeKind = flag.String("store", "sqlite", "Record store backend: sqlite, firestore or memory")
	dbPath    = flag.String("db", "spending.db", "Path to the sqlite database file")
	projectID = flag.String("project", "", "Firebase project ID (firestore store)")
	credsPath = flag.String("credentials", "", "Path to a service account credentials file (firestore store)")

	// Server mode
	serve = flag.Bool("serve", false, "Run the HTTP API server instead of importing")
	addr  = flag.String("addr", ":8080", "Listen address for -serve")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `spendtrack - Household spending tracker: import and reconcile bank statements

Usage:
  spendtrack [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprint(os.Stderr, `
Examples:
  # Import statements into the local database
  spendtrack -input ~/statements -household smith

  # Dry run: parse and count without writing
  spendtrack -input ~/statements -household smith -dry-run

  # Import straight into Firestore
  spendtrack -input ~/statements -household smith -store firestore -project my-project

  # Serve the API over the local database
  spendtrack -serve -household smith -db spending.db

`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("spendtrack version %s\n", version)
		os.Exit(0)
	}

	if *household == "" {
		fmt.Fprintf(os.Stderr, "Error: -household flag is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if !*serve && *inputDir == "" {
		fmt.Fprintf(os.Stderr, "Error: -input flag is required (or use -serve)\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, verifier, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if *serve {
		return runServer(ctx, st, verifier)
	}
	return runImport(ctx, st)
}

// openStore builds the selected record store. The dry-run flag forces the
// in-memory store so nothing is ever written.
func openStore(ctx context.Context) (store.Store, middleware.TokenVerifier, func(), error) {
	if *dryRun {
		return store.NewMemory(), nil, func() {}, nil
	}

	switch *storeKind {
	case "memory":
		return store.NewMemory(), nil, func() {}, nil

	case "sqlite":
		s, err := sqlite.Open(*dbPath)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, nil, func() { s.Close() }, nil

	case "firestore":
		if *projectID == "" {
			return nil, nil, nil, fmt.Errorf("-project is required with -store firestore")
		}
		client, err := fsstore.NewClient(ctx, *projectID, *credsPath)
		if err != nil {
			return nil, nil, nil, err
		}
		return client, client.Auth, func() { client.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q (want sqlite, firestore or memory)", *storeKind)
	}
}

func runServer(ctx context.Context, st store.Store, verifier middleware.TokenVerifier) error {
	cfg := server.Config{Store: st}
	if verifier != nil {
		cfg.Verifier = verifier
	} else {
		cfg.LocalHousehold = *household
	}
	srv := server.New(cfg)

	httpServer := &http.Server{Addr: *addr, Handler: srv.Handler()}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "Listening on %s\n", *addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	}
}

func runImport(ctx context.Context, st store.Store) error {
	if !*verbose {
		ui.Header("Importing Bank Statements")
		ui.Step(1, 3, "Scanning directory")
	} else {
		fmt.Fprintf(os.Stderr, "Scanning directory: %s\n", *inputDir)
	}

	files, err := scanner.New(*inputDir).Scan()
	if err != nil {
		return fmt.Errorf("failed to scan directory %s: %w", *inputDir, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no statement files found in %s\n\nPlease check:\n  - Directory path is correct\n  - Files have supported extensions (.csv, .xlsx, .ofx, .qfx)\n  - You have read permissions on the directory and files", *inputDir)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Found %d statement files\n", len(files))
		for _, f := range files {
			fmt.Fprintf(os.Stderr, "  - %s\n", f.Path)
		}
	} else {
		ui.Success("Found %d statement files", len(files))
	}

	reg := registry.New()
	if *verbose {
		fmt.Fprintf(os.Stderr, "Registered parsers: %v\n", reg.ListParsers())
	}

	if !*verbose {
		ui.Step(2, 3, "Loading category rules")
	}
	learner, err := learn.New(ctx, st, *household)
	if err != nil {
		return fmt.Errorf("failed to load category rules: %w", err)
	}
	if *verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d category rules\n", learner.Len())
	}

	if !*verbose {
		ui.Step(3, 3, "Importing statements")
	}

	rec := importer.New(st)
	combined := importer.Report{}

	for i, file := range files {
		if *verbose {
			fmt.Fprintf(os.Stderr, "  Importing %s\n", file.Path)
		} else {
			percentage := float64(i+1) / float64(len(files)) * 100
			fmt.Fprintf(os.Stderr, "\r  Progress: %d/%d files (%.0f%%)...", i+1, len(files), percentage)
		}

		report, err := importFile(ctx, rec, reg, file, learner)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\n")
			ui.Warning("Skipping %s: %v", file.Path, err)
			continue
		}

		combined.Total += report.Total
		combined.Added += report.Added
		combined.Duplicates += report.Duplicates
		combined.Skipped += report.Skipped
		combined.Failed += report.Failed
	}
	if !*verbose {
		fmt.Fprintf(os.Stderr, "\n")
	}

	if *dryRun {
		ui.Info("Dry run: nothing was written")
	}
	ui.Success("Import complete: %d rows, %d added, %d duplicates, %d skipped, %d failed",
		combined.Total, combined.Added, combined.Duplicates, combined.Skipped, combined.Failed)
	if combined.Failed > 0 {
		return fmt.Errorf("%d rows failed to store", combined.Failed)
	}
	return nil
}

func importFile(ctx context.Context, rec *importer.Reconciler, reg *registry.Registry,
	file scanner.ScanResult, learner *learn.Learner) (*importer.Report, error) {

	parser, err := reg.FindParser(file.Path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Path, err)
	}
	defer f.Close()

	rows, err := parser.Parse(ctx, f, file.Metadata)
	if err != nil {
		return nil, err
	}

	return rec.Reconcile(ctx, rows, importer.Options{
		HouseholdID: *household,
		Person:      *person,
		Suggest:     learner.Suggest,
	})
}
