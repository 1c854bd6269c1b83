// Package main provides an operator CLI for the mediakit helpers: listing,
// range streaming, EXIF, thumbnails and destination checks against the
// configured storage backend.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/fruitsalade/mediakit/internal/apierr"
	"github.com/fruitsalade/mediakit/internal/config"
	"github.com/fruitsalade/mediakit/internal/gallery"
	"github.com/fruitsalade/mediakit/internal/httprange"
	"github.com/fruitsalade/mediakit/internal/listing"
	"github.com/fruitsalade/mediakit/internal/logging"
	"github.com/fruitsalade/mediakit/internal/metrics"
	"github.com/fruitsalade/mediakit/internal/storage"
)

type options struct {
	root          string
	backendConfig string
	page          int
	pageSize      int
	sortBy        string
	order         string
	rangeHeader   string
	overwrite     bool
	out           string
	asJSON        bool
	dumpMetrics   bool
	workers       int
	verbose       bool
}

func main() {
	var o options
	flag.StringVar(&o.root, "root", "", "Storage root the paths are relative to")
	flag.StringVar(&o.backendConfig, "backend-config", "", `JSON file {"type": "...", "config": {...}} overriding STORAGE_BACKEND`)
	flag.IntVar(&o.page, "page", 1, "Listing page (1-indexed)")
	flag.IntVar(&o.pageSize, "page-size", 0, "Listing page size (default: DEFAULT_PAGE_SIZE)")
	flag.StringVar(&o.sortBy, "sort", "name", "Listing sort field: name, size or mtime")
	flag.StringVar(&o.order, "order", "asc", "Listing order: asc or desc")
	flag.StringVar(&o.rangeHeader, "range", "", `Range header value, e.g. "bytes=0-1023"`)
	flag.BoolVar(&o.overwrite, "overwrite", false, "Skip the destination existence check")
	flag.StringVar(&o.out, "out", "", "Output file (default: stdout)")
	flag.BoolVar(&o.asJSON, "json", false, "Print results as JSON")
	flag.BoolVar(&o.dumpMetrics, "metrics", false, "Print collected metrics to stderr on exit")
	flag.IntVar(&o.workers, "workers", 4, "Concurrent thumbnail workers for thumbs")
	flag.BoolVar(&o.verbose, "v", false, "Log at debug level regardless of LOG_LEVEL")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: cfg.LogOutput,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Logging error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()
	if o.verbose {
		logging.SetLevel("debug")
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "help":
		printUsage()
		return
	case "range":
		exit(cmdRange(o, cmdArgs), o)
		return
	case "serve-metrics":
		exit(cmdServeMetrics(cfg), o)
		return
	}

	ctx := logging.WithRequestID(context.Background(), strconv.FormatInt(time.Now().UnixNano(), 36))

	adapter, err := openAdapter(ctx, cfg, o.backendConfig)
	if err != nil {
		logging.Fatal("open storage backend", logging.Err(err))
	}
	defer adapter.Close()

	logging.WithContext(ctx).Debug("running command",
		logging.String("command", cmd),
		logging.String("backend", adapter.Type()))

	switch cmd {
	case "list", "ls":
		err = cmdList(ctx, adapter, cfg, o, cmdArgs)
	case "cat":
		err = cmdCat(ctx, adapter, o, cmdArgs)
	case "headers":
		err = cmdHeaders(ctx, adapter, o, cmdArgs)
	case "exif":
		err = cmdExif(ctx, adapter, cfg, o, cmdArgs)
	case "thumb":
		err = cmdThumb(ctx, adapter, cfg, o, cmdArgs)
	case "thumbs":
		err = cmdThumbs(ctx, adapter, cfg, o, cmdArgs)
	case "check-dest":
		err = cmdCheckDest(ctx, adapter, o, cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	exit(err, o)
}

func printUsage() {
	fmt.Println(`mediakit CLI

Usage: mediakit [flags] <command> [args]

Flags:
  -root <dir>             Storage root the paths are relative to
  -backend-config <file>  JSON backend config overriding STORAGE_BACKEND
  -page <n>               Listing page (default: 1)
  -page-size <n>          Listing page size (default: DEFAULT_PAGE_SIZE)
  -sort <field>           name, size or mtime (default: name)
  -order <dir>            asc or desc (default: asc)
  -range <value>          Range header value for cat/headers/range
  -overwrite              Skip the destination existence check
  -out <file>             Output file for cat/thumb (default: stdout)
  -json                   Print results as JSON
  -metrics                Print collected metrics to stderr on exit
  -workers <n>            Concurrent thumbnail workers for thumbs (default: 4)
  -v                      Log at debug level

Commands:
  ls, list [path]         List a directory, sorted and paginated
  cat <path>              Stream a file (honours -range)
  headers <path>          Print the streaming response headers for a file
  range <size> [name]     Resolve -range against a size without storage
  exif <path>             Print EXIF tags of a local file
  thumb <path>            Write a JPEG thumbnail (RAW files supported)
  thumbs [dir]            Thumbnail every image in a directory into -out <dir>
  check-dest <path>       Check whether writing to path would conflict
  serve-metrics           Serve Prometheus metrics on METRICS_ADDR
  help                    Show this help message

Examples:
  mediakit -root photos -sort mtime -order desc ls 2024
  mediakit -range bytes=0-1023 headers photos/a.jpg
  mediakit -range bytes=-500 range 10000 clip.mp4
  mediakit -out a_thumb.jpg thumb photos/IMG_0001.CR2
  mediakit -root photos -workers 8 -out /tmp/thumbs thumbs 2024`)
}

// exit prints err with its HTTP status and exits non-zero.
func exit(err error, o options) {
	if o.dumpMetrics {
		dumpMetrics(os.Stderr)
	}
	if err == nil {
		return
	}
	status := apierr.StatusOf(err)
	logging.Error("command failed", logging.Int("status", status), logging.Err(err))
	fmt.Fprintf(os.Stderr, "Error (%d): %v\n", status, err)
	logging.Sync()
	os.Exit(1)
}

// backendFile is the -backend-config file layout.
type backendFile struct {
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config"`
}

func openAdapter(ctx context.Context, cfg *config.Config, file string) (storage.Adapter, error) {
	if file == "" {
		return storage.FromConfig(ctx, cfg)
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read backend config: %w", err)
	}
	var bf backendFile
	if err := json.Unmarshal(raw, &bf); err != nil {
		return nil, fmt.Errorf("parse backend config: %w", err)
	}
	return storage.NewAdapter(ctx, bf.Type, bf.Config)
}

func requireArg(args []string, what string) (string, error) {
	if len(args) == 0 {
		return "", apierr.Newf(apierr.CodeBadRequest, "%s required", what)
	}
	return args[0], nil
}

func cmdList(ctx context.Context, a storage.Adapter, cfg *config.Config, o options, args []string) error {
	l, ok := a.(storage.Lister)
	if !ok {
		return fmt.Errorf("%s backend cannot list directories", a.Type())
	}
	rel := ""
	if len(args) > 0 {
		rel = args[0]
	}

	page, err := storage.ListDirectory(ctx, l, o.root, rel, storage.ListQuery{
		Page:     o.page,
		PageSize: o.pageSize,
		SortBy:   o.sortBy,
		Order:    o.order,
	}, listing.Options{DefaultPageSize: cfg.DefaultPageSize, MaxPageSize: cfg.MaxPageSize})
	if err != nil {
		return err
	}

	if o.asJSON {
		return printJSON(page)
	}

	if len(page.Entries) == 0 {
		fmt.Println("No entries")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED")
	fmt.Fprintln(w, "----\t----\t--------")
	for _, e := range page.Entries {
		name, size := e.Name, formatSize(e.Size)
		if e.IsDir {
			name += "/"
			size = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, size, formatTime(e.ModTime))
	}
	w.Flush()
	fmt.Printf("\nPage %d of %d (%d entries)\n", page.Page, page.Pages, page.Total)
	return nil
}

func openStream(ctx context.Context, a storage.Adapter, o options, args []string) (*storage.Stream, error) {
	rel, err := requireArg(args, "path")
	if err != nil {
		return nil, err
	}
	opener, ok := a.(storage.Opener)
	if !ok {
		return nil, fmt.Errorf("%s backend cannot open files", a.Type())
	}
	return storage.OpenStream(ctx, opener, o.root, rel, o.rangeHeader)
}

func cmdCat(ctx context.Context, a storage.Adapter, o options, args []string) error {
	s, err := openStream(ctx, a, o, args)
	if err != nil {
		return err
	}
	defer s.Body.Close()

	printHeaders(os.Stderr, s.Status, s.Headers)

	w, closeOut, err := output(o.out)
	if err != nil {
		return err
	}
	defer closeOut()

	n, err := io.Copy(w, s.Body)
	if err != nil {
		return fmt.Errorf("copy body: %w", err)
	}
	logging.WithContext(ctx).Debug("streamed range",
		logging.Int64("start", s.Range.Start),
		logging.Int64("bytes", n))
	return nil
}

func cmdHeaders(ctx context.Context, a storage.Adapter, o options, args []string) error {
	s, err := openStream(ctx, a, o, args)
	if err != nil {
		if apierr.IsCode(err, apierr.CodeRangeNotSatisfiable) {
			var ae *apierr.Error
			if errors.As(err, &ae) {
				printHeaders(os.Stdout, ae.Code, httprange.UnsatisfiableHeaders(ae.Size))
			}
		}
		return err
	}
	defer s.Body.Close()

	if o.asJSON {
		return printJSON(map[string]any{"status": s.Status, "headers": s.Headers})
	}
	printHeaders(os.Stdout, s.Status, s.Headers)
	return nil
}

func cmdRange(o options, args []string) error {
	sizeArg, err := requireArg(args, "size")
	if err != nil {
		return err
	}
	size, err := strconv.ParseInt(sizeArg, 10, 64)
	if err != nil || size < 0 {
		return apierr.Newf(apierr.CodeBadRequest, "invalid size %q", sizeArg)
	}
	name := ""
	if len(args) > 1 {
		name = args[1]
	}

	r, err := httprange.ParseRange(o.rangeHeader, size)
	if err != nil {
		if apierr.IsCode(err, apierr.CodeRangeNotSatisfiable) {
			printHeaders(os.Stdout, apierr.CodeRangeNotSatisfiable, httprange.UnsatisfiableHeaders(size))
		}
		return err
	}

	headers := httprange.HeadersFor(httprange.ContentType(name, nil), size, r, name)
	if o.asJSON {
		return printJSON(map[string]any{"status": r.Status, "start": r.Start, "end": r.End, "headers": headers})
	}
	printHeaders(os.Stdout, r.Status, headers)
	return nil
}

// localPather is implemented by adapters whose files live on local disk.
type localPather interface {
	LocalPath(root, relPath string) (string, error)
}

func cmdExif(ctx context.Context, a storage.Adapter, cfg *config.Config, o options, args []string) error {
	rel, err := requireArg(args, "path")
	if err != nil {
		return err
	}
	lp, ok := a.(localPather)
	if !ok {
		return fmt.Errorf("exif needs a local backend, have %s", a.Type())
	}
	p, err := lp.LocalPath(o.root, rel)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ExifTimeout)
	defer cancel()

	tags, ok := gallery.ExtractExifTags(ctx, p)
	if !ok {
		fmt.Println("No EXIF data")
		return nil
	}

	if o.asJSON {
		return printJSON(tags)
	}
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, k)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, k := range names {
		fmt.Fprintf(w, "%s\t%s\n", k, tags[k])
	}
	return w.Flush()
}

func cmdThumb(ctx context.Context, a storage.Adapter, cfg *config.Config, o options, args []string) error {
	rel, err := requireArg(args, "path")
	if err != nil {
		return err
	}
	opener, ok := a.(storage.Opener)
	if !ok {
		return fmt.Errorf("%s backend cannot open files", a.Type())
	}

	data, err := readAll(ctx, opener, o.root, rel)
	if err != nil {
		return err
	}

	img, err := gallery.Preview(path.Base(rel), data)
	if err != nil {
		return err
	}
	summary := gallery.ExtractExif(bytes.NewReader(data))

	thumb, w, h, err := gallery.GenerateThumbnail(img, summary.Orientation, gallery.ThumbOptions{
		MaxSize: cfg.ThumbMaxSize,
		Quality: cfg.ThumbQuality,
	})
	if err != nil {
		return err
	}

	out, closeOut, err := output(o.out)
	if err != nil {
		return err
	}
	defer closeOut()
	if _, err := out.Write(thumb); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}

	logging.WithContext(ctx).Info("thumbnail generated",
		logging.String("path", rel),
		logging.Int("width", w),
		logging.Int("height", h),
		logging.Int("bytes", len(thumb)))
	return nil
}

func cmdThumbs(ctx context.Context, a storage.Adapter, cfg *config.Config, o options, args []string) error {
	if o.out == "" {
		return apierr.New(apierr.CodeBadRequest, "thumbs needs -out <dir>")
	}
	l, ok := a.(storage.Lister)
	if !ok {
		return fmt.Errorf("%s backend cannot list directories", a.Type())
	}
	opener, ok := a.(storage.Opener)
	if !ok {
		return fmt.Errorf("%s backend cannot open files", a.Type())
	}
	dir := ""
	if len(args) > 0 {
		dir = args[0]
	}

	entries, err := l.List(ctx, o.root, dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(o.out, 0755); err != nil {
		return fmt.Errorf("create %s: %w", o.out, err)
	}

	p := gallery.NewProcessor(
		func(ctx context.Context, name string) ([]byte, error) {
			return readAll(ctx, opener, o.root, path.Join(dir, name))
		},
		func(_ context.Context, name string, thumb []byte) error {
			return os.WriteFile(filepath.Join(o.out, gallery.ThumbName(name)), thumb, 0644)
		},
		gallery.ThumbOptions{MaxSize: cfg.ThumbMaxSize, Quality: cfg.ThumbQuality},
		o.workers,
	)
	start := time.Now()
	p.Start(ctx)
	for _, e := range entries {
		if e.IsDir || !gallery.IsImageFile(e.Name) {
			continue
		}
		if err := p.Submit(ctx, e.Name); err != nil {
			break
		}
	}
	results := p.Stop()
	logging.WithContext(ctx).Info("thumbnails finished",
		logging.String("dir", dir),
		logging.Int("files", len(results)),
		logging.Duration("elapsed", time.Since(start)))

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", r.Name, r.Err)
			continue
		}
		fmt.Printf("%s -> %s (%dx%d)\n", r.Name, gallery.ThumbName(r.Name), r.Width, r.Height)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d thumbnails failed", failed, len(results))
	}
	return nil
}

func readAll(ctx context.Context, opener storage.Opener, root, rel string) ([]byte, error) {
	f, _, err := opener.Open(ctx, root, rel)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return data, nil
}

func cmdCheckDest(ctx context.Context, a storage.Adapter, o options, args []string) error {
	rel, err := requireArg(args, "path")
	if err != nil {
		return err
	}
	if err := storage.CheckDestination(ctx, a, o.root, rel, o.overwrite); err != nil {
		return err
	}
	fmt.Printf("%s: ok\n", rel)
	return nil
}

func cmdServeMetrics(cfg *config.Config) error {
	addr := cfg.MetricsAddr
	if addr == "" {
		addr = ":9090"
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	logging.Info("serving metrics", logging.String("addr", addr))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func printHeaders(w io.Writer, status int, h httprange.StreamHeaders) {
	fmt.Fprintf(w, "%d %s\n", status, http.StatusText(status))
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %s\n", k, h[k])
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func output(file string) (io.Writer, func(), error) {
	if file == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(file)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", file, err)
	}
	return f, func() { f.Close() }, nil
}

func dumpMetrics(w io.Writer) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		fmt.Fprintf(w, "gather metrics: %v\n", err)
		return
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return
		}
	}
}

func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
