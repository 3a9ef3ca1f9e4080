package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"math/bits"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/sales-api/internal/domain/product"
	"github.com/xenking/sales-api/internal/domain/sale"
	"github.com/xenking/sales-api/internal/validation"
)

const (
	bloomFPR      = 0.001
	progressEvery = 100_000
	maxLineBytes  = 1 << 20
)

type saleCreator interface {
	Create(ctx context.Context, d sale.Draft) (*sale.Sale, error)
}

// importer loads NDJSON sale files. A code present in more than one file is
// ambiguous and skipped; repeats within one file hit the unique constraint
// and count as duplicates.
type importer struct {
	sales    saleCreator
	checker  *validation.Checker
	workers  int
	expected uint
}

// Stats counts import outcomes.
type Stats struct {
	Created        int64
	Invalid        int64
	Duplicates     int64
	Ambiguous      int64
	MissingProduct int64
}

func (imp *importer) Run(ctx context.Context, files []string) (Stats, error) {
	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := imp.buildFilters(ctx, files)
	if err != nil {
		return Stats{}, errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: confirming codes shared between files")

	ambiguous, err := findShared(ctx, files, filters)
	if err != nil {
		return Stats{}, errors.Wrap(err, "find shared codes")
	}
	if len(ambiguous) > 0 {
		slog.Warn("codes present in several files will be skipped", slog.Int("count", len(ambiguous)))
	}

	slog.Info("pass 3: creating sales")

	var stats Stats
	for _, f := range files {
		if err := imp.importFile(ctx, f, ambiguous, &stats); err != nil {
			return stats, errors.Wrapf(err, "import %s", f)
		}
	}
	return stats, nil
}

func (imp *importer) buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(imp.expected, bloomFPR)
			var count uint64
			err := streamFile(ctx, path, func(_ int, line []byte) error {
				if code := lineCode(line); code != "" {
					filter.AddString(code)
					count++
				}
				return nil
			})
			if err != nil {
				return err
			}
			slog.Info("pass 1 complete", slog.String("file", path), slog.Uint64("codes", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findShared re-reads every file and keeps codes whose presence in another
// file's filter is confirmed by the exact per-file bitmask.
func findShared(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]struct{}, error) {
	results := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			candidates := make(map[string]uint)
			fileBit := uint(1) << uint(i)
			err := streamFile(ctx, path, func(_ int, line []byte) error {
				code := lineCode(line)
				if code == "" {
					return nil
				}
				for j, f := range filters {
					if j != i && f.TestString(code) {
						candidates[code] |= fileBit
						break
					}
				}
				return nil
			})
			results[i] = candidates
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, r := range results {
		for code, mask := range r {
			merged[code] |= mask
		}
	}

	shared := make(map[string]struct{})
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			shared[code] = struct{}{}
		}
	}
	return shared, nil
}

func (imp *importer) importFile(ctx context.Context, path string, skip map[string]struct{}, stats *Stats) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(imp.workers, 1))

	var seen atomic.Int64
	err := streamFile(ctx, path, func(lineNo int, line []byte) error {
		draft, res := imp.checker.DecodeDraft(line)
		if !res.OK() {
			atomic.AddInt64(&stats.Invalid, 1)
			slog.Warn("invalid sale",
				slog.String("file", path),
				slog.Int("line", lineNo),
				slog.String("error", res.Err().Error()),
			)
			return nil
		}
		if _, ok := skip[draft.Code]; ok {
			atomic.AddInt64(&stats.Ambiguous, 1)
			return nil
		}

		g.Go(func() error {
			if err := imp.create(ctx, draft, stats); err != nil {
				return errors.Wrapf(err, "line %d", lineNo)
			}
			if n := seen.Add(1); n%progressEvery == 0 {
				slog.Info("pass 3 progress", slog.String("file", path), slog.Int64("sales", n))
			}
			return nil
		})
		return nil
	})
	if werr := g.Wait(); werr != nil {
		return werr
	}
	return err
}

func (imp *importer) create(ctx context.Context, d sale.Draft, stats *Stats) error {
	_, err := imp.sales.Create(ctx, d)
	switch {
	case err == nil:
		atomic.AddInt64(&stats.Created, 1)
	case errors.Is(err, sale.ErrDuplicateCode):
		atomic.AddInt64(&stats.Duplicates, 1)
	case errors.Is(err, product.ErrNotFound):
		atomic.AddInt64(&stats.MissingProduct, 1)
		slog.Warn("sale references a missing product", slog.String("code", d.Code), slog.String("error", err.Error()))
	default:
		return errors.Wrapf(err, "create sale %s", d.Code)
	}
	return nil
}

// lineCode extracts the trimmed "code" member without validating the line.
func lineCode(line []byte) string {
	var code string
	d := jx.DecodeBytes(line)
	if d.Next() != jx.Object {
		return ""
	}
	_ = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "code" || d.Next() != jx.String {
			return d.Skip()
		}
		s, err := d.Str()
		code = strings.TrimSpace(s)
		return err
	})
	return code
}

// streamFile calls fn for each non-blank line, decompressing .gz files.
// The line slice is only valid during the call.
func streamFile(ctx context.Context, path string, fn func(lineNo int, line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
