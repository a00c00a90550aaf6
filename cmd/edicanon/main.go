package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"edicanon/internal/catalog"
	"edicanon/internal/config"
	"edicanon/internal/connectors"
	"edicanon/internal/connectors/dropdir"
	gmailconnector "edicanon/internal/connectors/gmail"
	"edicanon/internal/connectors/mailbox"
	"edicanon/internal/listener"
	"edicanon/internal/pipeline"
	"edicanon/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	must(err)
	defer func() { _ = logger.Sync() }()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "catalog:sync":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		company := fs.String("company", "", "trading partner company code")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*company) == "" {
			must(fmt.Errorf("--company is required"))
		}
		svc := catalog.NewSyncService(db, cfg, logger)
		count, err := svc.SyncCompany(context.Background(), *company)
		must(err)
		fmt.Printf("catalog sync complete company=%s products=%d\n", *company, count)
	case "ingest:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		connector := fs.String("connector", "dropdir", "dropdir|imap|gmail")
		label := fs.String("label", "INBOX", "mailbox/label (mail connectors)")
		max := fs.Int("max", 100, "max documents")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *connector)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawDocDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("ingest fetch done connector=%s fetched=%d stored=%d\n", *connector, result.Fetched, result.Stored)
	case "po:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		recordID := fs.Int("recordId", 0, "specific source record id")
		batch := fs.Int("batch", cfg.ProcessBatch, "batch size")
		workers := fs.Int("workers", cfg.ProcessWorkers, "worker count")
		_ = fs.Parse(os.Args[2:])
		processor := pipeline.NewProcessingService(db, cfg, catalog.NewLookup(db), logger)
		if *recordID != 0 {
			record, err := db.MustSourceRecordByID(*recordID)
			must(err)
			res, err := processor.ProcessRecord(record)
			must(err)
			if res.Rejected {
				fmt.Printf("record %d rejected\n", res.SourceRecordID)
				return
			}
			fmt.Printf("processed record=%d version=%d lineItems=%d\n", res.SourceRecordID, res.Version, res.LineItems)
			return
		}
		stats, err := processor.ProcessPending(*batch, *workers)
		must(err)
		versions := pipeline.NewVersionService(db, logger)
		writes, err := versions.Recalculate(*workers)
		must(err)
		fmt.Printf("processed=%d rejected=%d lineItems=%d versionWrites=%d\n", stats.Processed, stats.Rejected, stats.LineItems, writes)
	case "version:recalc":
		versions := pipeline.NewVersionService(db, logger)
		writes, err := versions.Recalculate(cfg.ProcessWorkers)
		must(err)
		fmt.Printf("version recalculation done writes=%d\n", writes)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		recordID := fs.Int("recordId", 0, "source record id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *recordID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--recordId and --out are required"))
		}
		header, err := db.GetHeaderBySourceRecordID(*recordID)
		must(err)
		if header == nil {
			must(fmt.Errorf("no canonical header for recordId=%d", *recordID))
		}
		items, err := db.ListLineItems(header.ID)
		must(err)
		compositions, err := db.ListCompositions(header.ID)
		must(err)
		report := pipeline.BuildReport(*header, items, compositions)
		must(pipeline.ExportReportToXLSX(report, *out))
		fmt.Printf("exported %d line rows to %s\n", len(items), *out)
	case "listen":
		s := listener.NewService(db, cfg, logger)
		must(s.Run(context.Background()))
	default:
		usage()
		os.Exit(1)
	}
}

func makeConnector(cfg config.Config, name string) (connectors.DocumentConnector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dropdir":
		return dropdir.NewConnector(cfg.GatewayDropDir), nil
	case "imap":
		return mailbox.NewConnector(cfg)
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported connector: %s", name)
	}
}

func usage() {
	fmt.Println("usage: edicanon <command>")
	fmt.Println("commands:")
	fmt.Println("  catalog:sync --company=044")
	fmt.Println("  ingest:fetch --connector=dropdir|imap|gmail [--label=INBOX] [--max=100]")
	fmt.Println("  po:process [--recordId=...] [--batch=50] [--workers=4]")
	fmt.Println("  version:recalc")
	fmt.Println("  export:xlsx --recordId=1 --out=./out/report.xlsx")
	fmt.Println("  listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
