package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alecthomas/kong"
	"github.com/mcncl/jsontab/internal/config"
	"github.com/mcncl/jsontab/internal/errors"
	"github.com/mcncl/jsontab/internal/export"
	"github.com/mcncl/jsontab/internal/flattener"
	"github.com/mcncl/jsontab/internal/models"
	"github.com/mcncl/jsontab/internal/parser"
	"github.com/mcncl/jsontab/internal/summary"
	"golang.org/x/sync/errgroup"
)

// CLI defines the command-line interface
var CLI struct {
	Input           string   `help:"Path to input JSON file. If not specified, reads from stdin." short:"i" type:"path"`
	Output          string   `help:"Path to output file. If not specified, writes to stdout." short:"o" type:"path"`
	Format          string   `help:"Output format: csv or xlsx. Defaults to the output file extension, otherwise csv." short:"F"`
	Separator       string   `help:"Separator placed between joined key segments." short:"s" default:"_"`
	MaxDepth        int      `help:"Maximum nesting depth to flatten; deeper values are kept as JSON text. -1 flattens every level." short:"m" name:"max-depth" default:"-1"`
	ArrayMode       string   `help:"How arrays of objects are handled: string or rows." short:"a" name:"array-mode" default:"string"`
	DropEmpty       bool     `help:"Drop columns whose cells are all empty." name:"drop-empty"`
	KeyCase         string   `help:"Case applied to each key segment: none, snake, camel, lower-camel or kebab." name:"key-case" default:"none"`
	Delimiter       string   `help:"CSV field delimiter." default:","`
	BOM             bool     `help:"Prefix CSV output with a UTF-8 byte order mark." name:"bom"`
	NoSummary       bool     `help:"Omit the Summary sheet from XLSX output." name:"no-summary"`
	NoColumnDetails bool     `help:"Omit the Column_Details sheet from XLSX output." name:"no-column-details"`
	Config          string   `help:"Path to configuration file. If not specified, searches for .jsontab.yml in the current directory and its parents." short:"c" type:"path"`
	Batch           []string `help:"Convert several JSON files, writing <name>_converted.<ext> for each. Repeatable." short:"b" type:"path"`
	OutputDir       string   `help:"Directory for batch output files." name:"output-dir" type:"path"`
	Workers         int      `help:"Number of files converted concurrently in batch mode." short:"w" default:"4"`
	Stats           bool     `help:"Log a summary of the converted table."`
	Debug           bool     `help:"Enable debug logging." short:"d"`
	Version         bool     `help:"Show version information." short:"v"`
	Interactive     bool     `help:"Run in interactive mode, allowing direct JSON input with Ctrl+D to process." short:"I"`
}

// Context holds the runtime context
type Context struct {
	Debug  bool
	Config *config.Config
	Logger *slog.Logger
}

// Version information
const (
	Version = "0.1.0"
)

func main() {
	parser := kong.Must(&CLI,
		kong.Name("jsontab"),
		kong.Description("A tool to flatten JSON into CSV and Excel tables"),
		kong.UsageOnError(),
	)

	// Check if no arguments provided and set interactive mode by default
	if len(os.Args) == 1 {
		CLI.Interactive = true
	}

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		os.Exit(1)
	}

	if CLI.Version {
		fmt.Printf("jsontab version %s\n", Version)
		return
	}

	cfg, err := loadConfig(explicitFlags(kctx))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		os.Exit(1)
	}

	ctx := &Context{
		Debug:  cfg.Dev.Debug,
		Config: cfg,
		Logger: newLogger(os.Stderr, cfg.Dev.Debug),
	}

	if len(CLI.Batch) > 0 {
		err = runBatch(ctx, CLI.Batch)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: jsontab --help\n")
		os.Exit(1)
	}
}

// loadConfig resolves the config file and layers explicitly set flags on top.
func loadConfig(set map[string]bool) (*config.Config, error) {
	configPath := CLI.Config
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	cfg, err := config.LoadConfigWithCLI(configPath, config.Overrides{
		Separator:        CLI.Separator,
		MaxDepth:         CLI.MaxDepth,
		DropEmptyColumns: CLI.DropEmpty,
		ArrayMode:        CLI.ArrayMode,
		KeyCase:          CLI.KeyCase,
		Format:           CLI.Format,
		Delimiter:        CLI.Delimiter,
		BOM:              CLI.BOM,
		NoSummary:        CLI.NoSummary,
		NoColumnDetails:  CLI.NoColumnDetails,
		Workers:          CLI.Workers,
		OutputDir:        CLI.OutputDir,
		Debug:            CLI.Debug,
		Set:              set,
	})
	if err != nil {
		return nil, errors.NewConfigError("failed to load configuration", err)
	}
	return cfg, nil
}

// explicitFlags returns the names of the flags given on the command line,
// so config file values are only overridden by flags the user typed.
func explicitFlags(kctx *kong.Context) map[string]bool {
	set := make(map[string]bool)
	for _, p := range kctx.Path {
		if p.Flag != nil {
			set[p.Flag.Name] = true
		}
	}
	return set
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (c *Context) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

// run executes the main program logic
func run(ctx *Context) error {
	// 1. Load the JSON document
	doc, err := parseInput()
	if err != nil {
		return err
	}

	// 2. Flatten it into a table
	table, err := convert(ctx, doc)
	if err != nil {
		return err
	}

	// 3. Write the table
	format, err := export.ResolveFormat(ctx.Config.Output.Format, CLI.Output)
	if err != nil {
		return errors.NewConfigError("invalid output format", err)
	}
	return writeOutput(ctx, newExporter(ctx.Config, doc.Source), format, table)
}

// convert flattens doc and applies column renames from the config.
func convert(ctx *Context, doc models.Document) (*models.Table, error) {
	log := ctx.logger()

	f, err := flattener.NewFlattenerWithConfig(ctx.Config)
	if err != nil {
		return nil, err
	}
	table, err := f.FlattenDocument(doc)
	if err != nil {
		return nil, err
	}
	table.RenameColumns(ctx.Config.Naming.ColumnMappings)

	logCollisions(log, doc.Source, table)
	log.Debug("flattened document",
		"source", sourceName(doc.Source),
		"rows", len(table.Rows),
		"columns", len(table.Columns),
	)
	if CLI.Stats {
		logStats(log, doc.Source, table)
	}
	return table, nil
}

func logCollisions(log *slog.Logger, source string, table *models.Table) {
	if len(table.Collisions) == 0 {
		return
	}
	var order []string
	counts := make(map[string]int)
	for _, c := range table.Collisions {
		if counts[c.Column] == 0 {
			order = append(order, c.Column)
		}
		counts[c.Column]++
	}
	for _, col := range order {
		log.Warn("distinct keys flattened to the same column; later values win",
			"source", sourceName(source),
			"column", col,
			"rows", counts[col],
		)
	}
}

func logStats(log *slog.Logger, source string, table *models.Table) {
	s := summary.Analyze(table)
	log.Info("table summary",
		"source", sourceName(source),
		"rows", s.Rows,
		"columns", s.Columns,
		"missing_values", s.MissingValues,
		"complete_rows", s.CompleteRows,
		"collisions", s.Collisions,
	)
	for _, c := range s.ColumnStats {
		log.Info("column",
			"name", c.Name,
			"type", c.DataType,
			"non_null", c.NonNullCount,
			"null", c.NullCount,
			"unique", c.UniqueValues,
		)
	}
}

func sourceName(source string) string {
	if source == "" {
		return "stdin"
	}
	return source
}

func newExporter(cfg *config.Config, source string) *export.Exporter {
	return export.NewExporter(export.Options{
		Delimiter:          cfg.DelimiterRune(),
		BOM:                cfg.CSV.BOM,
		SummarySheet:       cfg.Output.SummarySheet,
		ColumnDetailsSheet: cfg.Output.ColumnDetailsSheet,
		Metadata: export.Metadata{
			Source:      source,
			Separator:   cfg.Separator,
			MaxDepth:    cfg.MaxDepth,
			ArrayMode:   cfg.Arrays.Mode,
			ConvertedAt: time.Now(),
		},
	})
}

// parseInput reads JSON from file or stdin
func parseInput() (models.Document, error) {
	if CLI.Input != "" {
		return parser.ParseFile(CLI.Input)
	}

	stdinInfo, err := os.Stdin.Stat()
	if err != nil {
		return models.Document{}, errors.NewInputError("failed to access stdin", err)
	}

	// Interactive mode or piped input
	if (stdinInfo.Mode() & os.ModeCharDevice) != 0 {
		if CLI.Interactive {
			return readInteractiveInput()
		}
		return models.Document{}, errors.NewInputError("no input provided", errors.ErrNoInput)
	}

	return parser.Parse(os.Stdin)
}

// writeOutput writes the table to the output file or stdout
func writeOutput(ctx *Context, exp *export.Exporter, format export.Format, table *models.Table) error {
	if CLI.Output != "" {
		if err := exp.WriteFile(CLI.Output, format, table); err != nil {
			return err
		}
		ctx.logger().Info("table written",
			"path", CLI.Output,
			"format", string(format),
			"rows", len(table.Rows),
			"columns", len(table.Columns),
		)
		return nil
	}

	w := bufio.NewWriter(os.Stdout)
	if err := exp.Write(w, format, table); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

// runBatch converts every input file independently. A failing file is
// logged and does not stop the others.
func runBatch(ctx *Context, inputs []string) error {
	log := ctx.logger()
	cfg := ctx.Config

	format := export.FormatXLSX
	if cfg.Output.Format != "" {
		f, err := export.ParseFormat(cfg.Output.Format)
		if err != nil {
			return errors.NewConfigError("invalid output format", err)
		}
		format = f
	}

	outputDir := cfg.Batch.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	workers := cfg.Batch.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var succeeded, failed atomic.Int64
	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(workers)

	outputs := batchOutputPaths(outputDir, inputs, format)
	for i, input := range inputs {
		output := outputs[i]
		if output != batchOutputPath(outputDir, input, format) {
			log.Warn("output name already used by another input; writing to a numbered file", "input", input, "output", output)
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if err := convertFile(ctx, input, output, format); err != nil {
				failed.Add(1)
				log.Error("conversion failed", "input", input, "error", errors.UserFriendlyError(err))
				return nil
			}
			succeeded.Add(1)
			log.Info("converted", "input", input, "output", output)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.NewOutputError("batch conversion interrupted", err)
	}

	log.Info("batch complete",
		"files", len(inputs),
		"succeeded", succeeded.Load(),
		"failed", failed.Load(),
	)
	if n := failed.Load(); n > 0 {
		return errors.NewOutputError(fmt.Sprintf("%d of %d files failed to convert", n, len(inputs)), errors.ErrBatchFailed)
	}
	return nil
}

// batchOutputPath names the output for input as <dir>/<base>_converted.<ext>.
func batchOutputPath(dir, input string, format export.Format) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+"_converted"+format.Extension())
}

// batchOutputPaths names one output per input. When inputs from different
// directories share a base name, later ones get a _2, _3, ... suffix.
func batchOutputPaths(dir string, inputs []string, format export.Format) []string {
	outputs := make([]string, len(inputs))
	taken := make(map[string]bool, len(inputs))
	for i, input := range inputs {
		first := batchOutputPath(dir, input, format)
		stem := strings.TrimSuffix(first, format.Extension())
		output := first
		// Case-insensitive filesystems would fold Data.json onto data.json.
		for n := 2; taken[strings.ToLower(output)]; n++ {
			output = fmt.Sprintf("%s_%d%s", stem, n, format.Extension())
		}
		taken[strings.ToLower(output)] = true
		outputs[i] = output
	}
	return outputs
}

func convertFile(ctx *Context, input, output string, format export.Format) error {
	doc, err := parser.ParseFile(input)
	if err != nil {
		return err
	}
	table, err := convert(ctx, doc)
	if err != nil {
		return err
	}
	return newExporter(ctx.Config, doc.Source).WriteFile(output, format, table)
}

// readInteractiveInput provides an interactive mode for users to paste JSON
// and signal completion with Ctrl+D (EOF)
func readInteractiveInput() (models.Document, error) {
	fmt.Fprintln(os.Stderr, "jsontab Interactive Mode")
	fmt.Fprintln(os.Stderr, "Paste your JSON below and press Ctrl+D (or Ctrl+Z on Windows) when done:")

	reader := bufio.NewReader(os.Stdin)
	var jsonBuilder strings.Builder

	for {
		line, err := reader.ReadString('\n')
		jsonBuilder.WriteString(line)
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.Document{}, errors.NewInputError("error reading input", err)
		}
	}

	jsonData := jsonBuilder.String()
	if strings.TrimSpace(jsonData) == "" {
		return models.Document{}, errors.NewInputError("empty input received", errors.ErrEmptyInput)
	}

	fmt.Fprintln(os.Stderr, "\nProcessing JSON...")
	return parser.ParseString(jsonData)
}
