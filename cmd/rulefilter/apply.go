package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spf13/cobra"

	"github.com/hugr-lab/rulefilter/frame"
	"github.com/hugr-lab/rulefilter/internal/recovery"
	"github.com/hugr-lab/rulefilter/rule"
)

func newApplyCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Filter a dataset with a rule",
		Long: `Filter a CSV or Arrow IPC file, or the result of a DuckDB query, and
write the matching rows. The output format follows the --out extension:
.arrow or .ipc for Arrow IPC (add .zst for ZStandard), anything else CSV.
Without --out CSV is written to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.apply(cmd)
		},
	}

	addRuleFlags(cmd)
	f := cmd.Flags()
	f.String("data", "", "Input file: .csv, .arrow, .ipc, optionally .zst compressed; - for CSV on stdin")
	f.String("out", "", "Output file; stdout CSV if empty")
	f.StringSlice("timestamp-column", nil, "CSV columns to read as timestamps")
	f.StringSlice("date-column", nil, "CSV columns to read as dates")
	f.String("duckdb", "", "DuckDB database to query instead of --data (:memory: for in-memory, needs -tags duckdb_arrow)")
	f.String("query", "", "DuckDB query producing the input rows")
	f.Bool("pushdown", false, "Evaluate the rule inside DuckDB instead of in memory")
	return cmd
}

func (c *cli) apply(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	n, err := c.loadRule(cmd)
	if err != nil {
		return err
	}

	f, err := c.filterer()
	if err != nil {
		return err
	}

	var ds frame.Dataset
	switch {
	case c.v.GetString("duckdb") != "" && c.v.GetBool("pushdown"):
		// The rule runs inside DuckDB; the result is already filtered.
		return c.pushdown(ctx, cmd, n)
	case c.v.GetString("duckdb") != "":
		var closeDB func()
		ds, closeDB, err = c.queryDuckDB(ctx, c.v.GetString("query"))
		if err != nil {
			return err
		}
		defer closeDB()
	default:
		ds, err = c.readData(cmd, f.Allocator())
		if err != nil {
			return err
		}
	}
	defer recovery.Recover(c.logger, "Release", ds.Release)

	out, err := f.FilterNode(ctx, ds, n)
	if err != nil {
		return err
	}
	defer recovery.Recover(c.logger, "Release", out.Release)

	c.logger.Info("Filtered dataset", "rows_in", ds.NumRows(), "rows_out", out.NumRows())
	return c.writeData(cmd, out, f.Allocator())
}

func (c *cli) pushdown(ctx context.Context, cmd *cobra.Command, n rule.Node) error {
	now, err := c.clock()
	if err != nil {
		return err
	}

	enc := rule.NewDuckDBEncoder(&rule.EncoderOptions{
		DateColumns: c.v.GetStringSlice("date-column"),
		Now:         now,
	})
	where, err := enc.Encode(n)
	if err != nil {
		return err
	}

	query := "SELECT * FROM (" + c.v.GetString("query") + ") AS src WHERE " + where
	c.logger.Debug("Pushdown query", "sql", query)

	ds, closeDB, err := c.queryDuckDB(ctx, query)
	if err != nil {
		return err
	}
	defer closeDB()
	defer recovery.Recover(c.logger, "Release", ds.Release)

	c.logger.Info("Filtered dataset", "rows_out", ds.NumRows(), "pushdown", true)
	return c.writeData(cmd, ds, memory.DefaultAllocator)
}

// queryDuckDB runs query against --duckdb. The returned func closes the
// database and must be called after the dataset is released.
func (c *cli) queryDuckDB(ctx context.Context, query string) (frame.Dataset, func(), error) {
	if strings.TrimSpace(c.v.GetString("query")) == "" {
		return nil, nil, fmt.Errorf("--query is required with --duckdb")
	}

	path := c.v.GetString("duckdb")
	if path == ":memory:" {
		path = ""
	}
	db, err := frame.OpenDuckDB(path)
	if err != nil {
		return nil, nil, err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to duckdb: %w", err)
	}
	closeDB := func() {
		conn.Close()
		db.Close()
	}

	ds, err := frame.QueryDuckDB(ctx, conn, query)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return ds, closeDB, nil
}

// readData loads --data, choosing the reader by file extension.
func (c *cli) readData(cmd *cobra.Command, mem memory.Allocator) (frame.Dataset, error) {
	path := c.v.GetString("data")
	if path == "" {
		return nil, fmt.Errorf("--data or --duckdb is required")
	}

	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open data: %w", err)
		}
		defer file.Close()
		r = file
	}

	if isIPC(path) {
		return frame.ReadIPC(r, frame.WithAllocator(mem))
	}

	types := make(map[string]arrow.DataType)
	for _, name := range c.v.GetStringSlice("timestamp-column") {
		types[name] = &arrow.TimestampType{Unit: arrow.Microsecond}
	}
	for _, name := range c.v.GetStringSlice("date-column") {
		types[name] = arrow.FixedWidthTypes.Date32
	}
	return frame.ReadCSV(r, frame.WithAllocator(mem), frame.WithColumnTypes(types))
}

// writeData writes ds to --out, or CSV on stdout.
func (c *cli) writeData(cmd *cobra.Command, ds frame.Dataset, mem memory.Allocator) error {
	path := c.v.GetString("out")
	if path == "" {
		return frame.WriteCSV(cmd.OutOrStdout(), ds)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}

	if isIPC(path) {
		opts := []frame.Option{frame.WithAllocator(mem)}
		if strings.EqualFold(filepath.Ext(path), ".zst") {
			opts = append(opts, frame.WithCompression())
		}
		err = frame.WriteIPC(file, ds, opts...)
	} else {
		err = frame.WriteCSV(file, ds)
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

func isIPC(path string) bool {
	name := strings.ToLower(path)
	name = strings.TrimSuffix(name, ".zst")
	switch filepath.Ext(name) {
	case ".arrow", ".ipc", ".arrows":
		return true
	}
	return false
}
