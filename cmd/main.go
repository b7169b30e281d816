package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"

	"sentinel/internal/bootstrap"
	"sentinel/internal/domain/analysis"
	"sentinel/internal/domain/profile"
	"sentinel/pkg/errors"
)

func main() {
	platformFlag := flag.String("platform", "twitter", "platform of every identifier: twitter, instagram or facebook")
	inputFlag := flag.String("input", "", "CSV (first column, header row skipped) or text file with one identifier per line")
	fixturesFlag := flag.String("fixtures", "", "directory of <platform>/<username>.json records, overrides FETCH_FIXTURES_DIR")
	flag.Parse()

	platform, err := profile.ParsePlatform(*platformFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *inputFlag == "" {
		fmt.Fprintln(os.Stderr, "-input is required")
		flag.Usage()
		os.Exit(2)
	}

	identifiers, err := readIdentifiers(*inputFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	c := bootstrap.NewContainer()
	c.MustInitConfig()
	if *fixturesFlag != "" {
		c.Config.Fetch.FixturesDir = *fixturesFlag
	}
	if err := c.Init(c.Config); err != nil {
		c.Log.Fatalf("failed to initialize: %v", err)
	}
	defer c.Shutdown()

	if err := c.Start(); err != nil {
		c.Log.Fatalf("failed to start: %v", err)
	}

	// First signal cancels the batch; in-flight profiles still finish
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	job := c.Services.Engine.AnalyzeBatch(ctx, identifiers, platform, c.Adapters.Fetcher)

	c.Log.Infow("Batch summary",
		"profiles", humanize.Comma(int64(job.Summary.Total)),
		"fake", humanize.Comma(int64(job.Summary.FakeCount)),
		"authentic", humanize.Comma(int64(job.Summary.AuthenticCount)),
		"errors", humanize.Comma(int64(job.Summary.ErrorCount)),
		"took", humanize.RelTime(job.StartedAt, job.FinishedAt, "", ""),
	)

	if err := writeJob(os.Stdout, job); err != nil {
		c.Log.Errorf("failed to write result: %v", err)
	}
}

// readIdentifiers loads identifiers from a CSV or plain text file
func readIdentifiers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "open input: %v", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return parseCSV(f)
	}
	return parseLines(f)
}

func parseCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "parse csv: %v", err)
	}
	if len(rows) > 0 {
		rows = rows[1:]
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		ids = append(ids, strings.TrimSpace(row[0]))
	}
	return ids, nil
}

func parseLines(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "read input: %v", err)
	}
	return ids, nil
}

func writeJob(w io.Writer, job *analysis.BatchJob) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(job)
}
