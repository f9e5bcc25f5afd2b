package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/drive"
	"github.com/andresuchdata/stockfloat/internal/ingest"
)

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "market", Usage: "Market code, or all"},
		&cli.StringSliceFlag{Name: "distributor", Usage: "Distributor name (repeatable)"},
		&cli.StringSliceFlag{Name: "variety", Usage: "Variety name or code (repeatable)"},
		&cli.StringSliceFlag{Name: "year", Usage: "Vintage year (repeatable)"},
		&cli.StringFlag{Name: "from", Usage: "First period, e.g. 2025-01 or Jan-25"},
		&cli.StringFlag{Name: "to", Usage: "Last period"},
		&cli.StringFlag{Name: "mode", Usage: "forward or historical"},
		&cli.IntFlag{Name: "horizon", Usage: "Forward months"},
		&cli.Float64Flag{Name: "threshold", Usage: "Alert threshold in cases"},
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{Name: "format", Usage: "table or json", Value: "table"}
}

func filtersFromFlags(c *cli.Context) (domain.Filters, error) {
	f := domain.Filters{
		Market:       c.String("market"),
		Distributors: c.StringSlice("distributor"),
		Varieties:    c.StringSlice("variety"),
		Years:        c.StringSlice("year"),
		Mode:         domain.ProjectionMode(strings.ToLower(c.String("mode"))),
		Horizon:      c.Int("horizon"),
		Threshold:    c.Float64("threshold"),
	}
	switch f.Mode {
	case "", domain.ModeForward, domain.ModeHistorical:
	default:
		return f, fmt.Errorf("invalid mode %q", f.Mode)
	}
	for _, bound := range []struct {
		flag string
		dst  **domain.Period
	}{{"from", &f.From}, {"to", &f.To}} {
		raw := c.String(bound.flag)
		if raw == "" {
			continue
		}
		p, ok := ingest.ParsePeriod(raw)
		if !ok {
			return f, fmt.Errorf("invalid --%s period %q", bound.flag, raw)
		}
		*bound.dst = &p
	}
	return f, nil
}

func runIngest(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}
	category, ok := domain.ParseCategory(c.String("category"))
	if !ok {
		return fmt.Errorf("unknown category %q", c.String("category"))
	}
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	var failed int
	for _, path := range c.Args().Slice() {
		status, err := a.Ingest.IngestPath(c.Context, category, path)
		fmt.Fprintf(c.App.Writer, "%s: %s\n", path, status.Message)
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, c.NArg())
	}
	return nil
}

func runProject(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}
	f, err := filtersFromFlags(c)
	if err != nil {
		return err
	}
	result, err := a.Projection.Project(c.Context, f)
	if err != nil {
		return err
	}
	if c.String("format") == "json" {
		return writeJSON(c.App.Writer, result)
	}
	return writeProjectionTable(c.App.Writer, result)
}

func runAlerts(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}
	f, err := filtersFromFlags(c)
	if err != nil {
		return err
	}
	alerts, err := a.Projection.Alerts(c.Context, f)
	if err != nil {
		return err
	}
	if c.String("format") == "json" {
		return writeJSON(c.App.Writer, alerts)
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PERIOD\tSEVERITY\tDISTRIBUTOR\tVARIETY\tFLOAT")
	for _, al := range alerts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", al.Period, al.Severity, al.Distributor, al.VarietyOrCode, formatCases(al.StockFloat))
	}
	return w.Flush()
}

func runMarkets(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}
	markets, err := a.Projection.Markets(c.Context)
	if err != nil {
		return err
	}
	for _, m := range markets {
		fmt.Fprintln(c.App.Writer, m)
	}
	return nil
}

func runDriveSync(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}
	if a.Drive == nil {
		return fmt.Errorf("GOOGLE_DRIVE_CREDENTIALS_JSON is not set")
	}

	if dir := c.String("download-dir"); dir != "" {
		paths, err := drive.NewDownloader(a.Drive).DownloadFolder(c.Context, drive.DownloadOptions{
			FolderID:    c.String("folder-id"),
			DownloadDir: dir,
		})
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(c.App.Writer, p)
		}
		return nil
	}

	statuses, err := a.DriveIngest.SyncFolder(c.Context, c.String("folder-id"))
	if err != nil {
		return err
	}
	for _, st := range statuses {
		fmt.Fprintf(c.App.Writer, "%s (%s): %s\n", st.FileName, st.Category, st.Message)
	}
	return nil
}

func runArchivePull(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}

	if key := c.String("key"); key != "" {
		status, err := a.Ingest.Reingest(c.Context, key)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s: %s\n", key, status.Message)
		return nil
	}

	var category domain.Category
	if raw := c.String("category"); raw != "" {
		parsed, ok := domain.ParseCategory(raw)
		if !ok {
			return fmt.Errorf("unknown category %q", raw)
		}
		category = parsed
	}
	uploads, err := a.Ingest.Archived(c.Context, category)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tCATEGORY\tSIZE\tARCHIVED")
	for _, up := range uploads {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", up.Key, up.Category, up.Size, up.ArchivedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func writeProjectionTable(out io.Writer, result domain.ProjectionResult) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PERIOD\tSTOCK\tIN TRANSIT\tPREDICTED\tFLOAT\tACTUAL\tACCURACY")
	for _, p := range result.Points {
		actual, accuracy := "-", "-"
		if p.Actual != nil {
			actual = formatCases(*p.Actual)
		}
		if p.Accuracy != nil {
			accuracy = strconv.Itoa(*p.Accuracy) + "%"
		}
		label := p.Label
		if p.Forward {
			label += " *"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", label,
			formatCases(p.StockOnHand), formatCases(p.InTransit), formatCases(p.PredictedSales),
			formatCases(p.StockFloat), actual, accuracy)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	k := result.KPI
	_, err := fmt.Fprintf(out, "\navg float %s (prev %s), critical %d (prev %d), at risk %d (prev %d)\n",
		formatCases(k.AvgFloatNow), formatCases(k.AvgFloatPrev), k.CriticalNow, k.CriticalPrev, k.AtRiskNow, k.AtRiskPrev)
	return err
}

func formatCases(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
