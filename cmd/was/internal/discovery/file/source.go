package file

import (
	"context"
	"fmt"
	"os"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/config"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/core"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/logger"
)

// Source reads the site document from a local JSON or YAML file.
type Source struct {
	path string
}

func NewSource(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Load(ctx context.Context) (*core.Sites, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site document: %w", err)
	}

	sites, err := config.ParseSites(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}

	logger.Info("Loaded site document", "path", s.path, "virtual_hosts", len(sites.Hosts))
	return sites, nil
}
