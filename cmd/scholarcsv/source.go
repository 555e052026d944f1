package main

import (
	"fmt"
	"time"

	"github.com/mkoval/scholarcsv/internal/config"
	"github.com/mkoval/scholarcsv/internal/scholar"
)

// buildSource assembles the data source from configuration: the live
// scraping client by default, or a JSONL fixture source for offline
// runs. The returned closer releases the page cache, if any.
func buildSource(cfg config.Config, fixturePath string) (scholar.Source, func(), error) {
	if fixturePath != "" {
		src, err := scholar.NewLocalSource(fixturePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load fixture source: %w", err)
		}
		return src, func() {}, nil
	}

	opts := []scholar.ClientOption{
		scholar.WithDelayWindow(cfg.DelayMin, cfg.DelayMax),
	}

	closer := func() {}
	if cfg.CachePath != "" {
		cache, err := scholar.OpenPageCache(cfg.CachePath, cfg.CacheTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open page cache: %w", err)
		}
		opts = append(opts, scholar.WithCache(cache))
		closer = func() { _ = cache.Close() }
	}
	if cfg.UseBrowser {
		opts = append(opts, scholar.WithBrowserFallback(60*time.Second))
	}

	return scholar.NewClient(opts...), closer, nil
}
