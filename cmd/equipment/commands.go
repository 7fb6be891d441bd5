package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/equipment.report/internal/api"
	"github.com/banshee-data/equipment.report/internal/config"
	"github.com/banshee-data/equipment.report/internal/db"
	"github.com/banshee-data/equipment.report/internal/httputil"
	"github.com/banshee-data/equipment.report/internal/pipeline"
	"github.com/banshee-data/equipment.report/internal/report"
	"github.com/banshee-data/equipment.report/internal/security"
)

// CLI runs the non-server subcommands against the configured database.
type CLI struct {
	Config *config.Config
	Out    io.Writer
	In     io.Reader
	Yes    bool
	// HTTP is used by upload; nil means http.DefaultClient.
	HTTP httputil.HTTPClient
}

func (c *CLI) openDB() (*db.DB, error) {
	d, err := db.NewDB(c.Config.GetDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return d, nil
}

// Migrate runs a schema migration action.
func (c *CLI) Migrate(args []string) error {
	cmd := &db.MigrateCommand{DBPath: c.Config.GetDBPath(), Out: c.Out, In: c.In, Yes: c.Yes}
	return cmd.Run(args)
}

// Ingest stores each named CSV as a dataset. Files are processed in order
// and the first failure stops the run.
func (c *CLI) Ingest(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: equipment ingest <file.csv>...")
	}
	d, err := c.openDB()
	if err != nil {
		return err
	}
	defer d.Close()

	in := pipeline.NewIngester(d, api.IngestOptions(c.Config))
	for _, path := range args {
		content, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return err
		}
		res, err := in.Ingest(ctx, filepath.Base(path), content)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(c.Out, "%s\t%s\t%d records (%d incomplete, %d invalid dropped)\n",
			res.Dataset.ID, res.Dataset.Filename, res.Dataset.RecordCount,
			res.DroppedIncomplete, res.DroppedInvalid)
		if res.Pruned > 0 {
			fmt.Fprintf(c.Out, "retention removed %d dataset(s)\n", res.Pruned)
		}
		if res.PruneErr != nil {
			fmt.Fprintf(c.Out, "warning: retention failed: %v\n", res.PruneErr)
		}
	}
	return nil
}

// List prints the stored datasets, most recent first.
func (c *CLI) List(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(c.Out)
	limit := fs.Int("limit", 20, "Maximum number of datasets to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := c.openDB()
	if err != nil {
		return err
	}
	defer d.Close()

	datasets, err := d.ListDatasets(ctx, *limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tUPLOADED\tRECORDS")
	for _, ds := range datasets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", ds.ID, ds.Filename, ds.CreatedAt.Format(time.RFC3339), ds.RecordCount)
	}
	return tw.Flush()
}

// Report renders the report for a stored dataset to a file.
func (c *CLI) Report(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(c.Out)
	formatFlag := fs.String("format", "pdf", "Report format: pdf or xlsx")
	outFlag := fs.String("o", "", "Output path (default equipment_report_<id>.<ext> in the working directory)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: equipment report [-format pdf|xlsx] [-o path] <dataset-id>")
	}
	id := fs.Arg(0)

	format, err := report.ParseFormat(*formatFlag)
	if err != nil {
		return err
	}
	out := *outFlag
	if out == "" {
		out = format.Filename(id)
	}
	if err := security.ValidateReportPath(out); err != nil {
		return err
	}

	d, err := c.openDB()
	if err != nil {
		return err
	}
	defer d.Close()

	ds, err := d.GetDataset(ctx, id)
	if err != nil {
		return err
	}
	records, err := d.Records(ctx, id)
	if err != nil {
		return err
	}
	art, err := api.ReportComposer(c.Config).Generate(ds, records, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, art.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	entry := &db.DatasetReport{
		DatasetID:  ds.ID,
		Format:     string(art.Format),
		SizeBytes:  len(art.Data),
		DurationMs: float64(art.Duration) / float64(time.Millisecond),
		Charts:     art.Charts,
	}
	if err := d.CreateDatasetReport(ctx, entry); err != nil {
		fmt.Fprintf(c.Out, "warning: failed to record report: %v\n", err)
	}
	fmt.Fprintf(c.Out, "wrote %s (%d bytes)\n", out, len(art.Data))
	return nil
}

// Prune applies the configured retention policy.
func (c *CLI) Prune(ctx context.Context) error {
	d, err := c.openDB()
	if err != nil {
		return err
	}
	defer d.Close()

	in := pipeline.NewIngester(d, api.IngestOptions(c.Config))
	n, err := in.Prune(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "removed %d dataset(s), keeping at most %d\n", n, in.Retention())
	return nil
}

// Upload sends a CSV to a running server.
func (c *CLI) Upload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(c.Out)
	server := fs.String("server", localURL(c.Config.GetListenAddr()), "Base URL of the equipment server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: equipment upload [-server url] <file.csv>")
	}
	path := fs.Arg(0)

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer f.Close()

	body, err := httputil.NewUploadClient(*server, c.HTTP).Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	_, err = c.Out.Write(body)
	return err
}

// localURL turns a listen address such as ":8080" into a loopback URL.
func localURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://127.0.0.1:8080"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
