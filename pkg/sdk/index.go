package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dbpedia/lookup/internal/config"
	"github.com/dbpedia/lookup/internal/domain/job"
)

// Index runs an index job given as YAML and waits for it to finish.
// keys restricts the job to the listed document keys.
func (c *Client) Index(ctx context.Context, jobYAML []byte, keys ...string) (IndexStats, error) {
	j, err := config.ParseJob(jobYAML)
	if err != nil {
		return IndexStats{}, err
	}
	return c.run(ctx, j, keys)
}

// IndexFile runs the index job stored at path. A relative dataPath is
// resolved against the file's directory.
func (c *Client) IndexFile(ctx context.Context, path string, keys ...string) (IndexStats, error) {
	j, err := config.LoadJob(path)
	if err != nil {
		return IndexStats{}, err
	}
	return c.run(ctx, j, keys)
}

func (c *Client) run(ctx context.Context, j job.Job, keys []string) (stats IndexStats, err error) {
	start := time.Now()
	defer func() {
		c.obs.observe("index", start, err,
			slog.Int("bindings", stats.Bindings),
			slog.Int("commits", stats.Commits),
		)
	}()

	if len(keys) > 0 {
		j = j.WithKeys(keys)
	}
	s, err := c.indexSvc.Run(ctx, j)
	if err != nil {
		return statsFromDomain(s), fmt.Errorf("index: %w", err)
	}
	return statsFromDomain(s), nil
}
