// Command fraudlist-ingest loads flagged network origins from gzipped
// third-party feed dumps into PostgreSQL. The feeds are large and noisy, so
// an address is flagged only when it is reported by at least two independent
// feeds. Each feed is streamed twice: pass 1 builds a bloom filter per feed,
// pass 2 collects addresses that probably appear in another feed.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-api/internal/postgres"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	numFeeds      = 3
	progressEvery = 10_000_000
)

// feedResult holds candidate addresses found in a single feed during pass 2.
type feedResult struct {
	candidates map[string]uint
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing fraudbaseN.gz feed dumps")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("fraud list ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("fraud list ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	feeds := make([]string, numFeeds)
	for i := range numFeeds {
		feeds[i] = filepath.Join(dataDir, fmt.Sprintf("fraudbase%d.gz", i+1))
	}
	for _, f := range feeds {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check feed %s", f)
		}
	}

	// Pass 1: build bloom filters concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("feeds", numFeeds))

	filters, err := buildBloomFilters(ctx, feeds)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: find addresses reported by 2+ feeds.
	slog.Info("pass 2: finding corroborated addresses")

	flagged, err := findFlaggedOrigins(ctx, feeds, filters)
	if err != nil {
		return errors.Wrap(err, "find flagged origins")
	}

	slog.Info("flagged origins found", slog.Int("count", len(flagged)))

	if len(flagged) == 0 {
		slog.Info("no flagged origins to insert")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writeFlaggedOrigins(ctx, postgres.NewFraudRepository(pool), flagged); err != nil {
		return errors.Wrap(err, "write flagged origins to database")
	}

	return nil
}

// buildBloomFilters creates one bloom filter per feed, concurrently.
func buildBloomFilters(ctx context.Context, feeds []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		g.Go(buildFilterForFeed(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFeed(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFeed(ctx, path, func(addr string) {
			filter.AddString(addr)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("feed", idx+1),
					slog.Uint64("addresses", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for feed %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_addresses", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findFlaggedOrigins re-streams each feed and checks addresses against OTHER
// feeds' bloom filters. An address is flagged if it appears in 2 or more feeds.
func findFlaggedOrigins(ctx context.Context, feeds []string, filters []*bloom.BloomFilter) ([]string, error) {
	results := make([]feedResult, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		g.Go(findCandidatesInFeed(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge bitmasks from all feeds.
	merged := make(map[string]uint)
	for _, r := range results {
		for addr, mask := range r.candidates {
			merged[addr] |= mask
		}
	}

	// Keep addresses appearing in 2+ feeds.
	var flagged []string
	for addr, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			flagged = append(flagged, addr)
		}
	}

	return flagged, nil
}

func findCandidatesInFeed(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []feedResult,
) func() error {
	return func() error {
		candidates := make(map[string]uint)
		feedBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFeed(ctx, path, func(addr string) {
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("feed", idx+1),
					slog.Uint64("addresses", count),
				)
			}

			// Check if this address appears in any OTHER feed's bloom filter.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(addr) {
					candidates[addr] |= feedBit
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan feed %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_addresses", count),
			slog.Int("candidates", len(candidates)),
		)

		results[idx] = feedResult{candidates: candidates}
		return nil
	}
}

func writeFlaggedOrigins(ctx context.Context, repo *postgres.FraudRepository, flagged []string) error {
	slog.Info("upserting flagged origins", slog.Int("count", len(flagged)))

	var written int
	for _, addr := range flagged {
		if err := repo.Upsert(ctx, addr, "reported by 2+ feeds"); err != nil {
			return errors.Wrapf(err, "upsert origin %s", addr)
		}
		written++
		if written%1000 == 0 {
			slog.Info("upsert progress", slog.Int("written", written))
		}
	}

	return nil
}

// streamGzFeed opens a gzip-compressed feed and calls fn for each line that
// parses as an IP address. Malformed lines are skipped.
func streamGzFeed(ctx context.Context, path string, fn func(addr string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		addr := strings.TrimSpace(scanner.Text())
		if net.ParseIP(addr) == nil {
			continue
		}
		fn(addr)
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
