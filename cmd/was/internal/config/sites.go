package config

import (
	"errors"
	"fmt"

	"sigs.k8s.io/yaml"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/core"
)

const (
	DefaultServerPort  = 8080
	DefaultThreadCount = 10
)

// ErrMissingKey is returned when a required key is absent from the site document.
var ErrMissingKey = errors.New("missing required key")

// siteDocument mirrors server.json. Pointers distinguish absent keys from
// zero values.
type siteDocument struct {
	MainLogPath *string       `json:"mainLogPath"`
	ThreadCount *int          `json:"threadCount"`
	ServerSpec  *[]serverSpec `json:"serverSpec"`
}

type serverSpec struct {
	ServerName   *string      `json:"serverName"`
	PortNumber   *int64       `json:"portNumber"`
	DocumentPath *string      `json:"documentPath"`
	LogPath      *string      `json:"logPath"`
	IndexPage    *string      `json:"indexPage"`
	ErrorPage    *[]errorPage `json:"errorPage"`
}

type errorPage struct {
	Code *int    `json:"code"`
	Page *string `json:"page"`
}

// ParseSites decodes a JSON or YAML site document.
func ParseSites(data []byte) (*core.Sites, error) {
	var doc siteDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode site document: %w", err)
	}

	if doc.MainLogPath == nil {
		return nil, fmt.Errorf("%w: mainLogPath", ErrMissingKey)
	}
	if doc.ServerSpec == nil {
		return nil, fmt.Errorf("%w: serverSpec", ErrMissingKey)
	}

	sites := &core.Sites{
		MainLogTarget: *doc.MainLogPath,
		ThreadCount:   DefaultThreadCount,
	}
	if doc.ThreadCount != nil {
		if *doc.ThreadCount <= 0 {
			return nil, fmt.Errorf("threadCount must be positive: %d", *doc.ThreadCount)
		}
		sites.ThreadCount = *doc.ThreadCount
	}

	for i, spec := range *doc.ServerSpec {
		host, err := spec.toVirtualHost()
		if err != nil {
			return nil, fmt.Errorf("serverSpec[%d]: %w", i, err)
		}
		sites.Hosts = append(sites.Hosts, host)
	}

	return sites, nil
}

func (s serverSpec) toVirtualHost() (*core.VirtualHost, error) {
	required := []struct {
		key     string
		present bool
	}{
		{"serverName", s.ServerName != nil},
		{"portNumber", s.PortNumber != nil},
		{"documentPath", s.DocumentPath != nil},
		{"logPath", s.LogPath != nil},
		{"indexPage", s.IndexPage != nil},
		{"errorPage", s.ErrorPage != nil},
	}
	for _, r := range required {
		if !r.present {
			return nil, fmt.Errorf("%w: %s", ErrMissingKey, r.key)
		}
	}

	host := &core.VirtualHost{
		ServerName:   *s.ServerName,
		PortNumber:   DefaultServerPort,
		DocumentRoot: *s.DocumentPath,
		LogTarget:    *s.LogPath,
		IndexPage:    *s.IndexPage,
		ErrorPages:   make(map[int]string, len(*s.ErrorPage)),
	}
	if p := *s.PortNumber; 0 < p && p <= 65535 {
		host.PortNumber = int(p)
	}

	for j, ep := range *s.ErrorPage {
		if ep.Code == nil || ep.Page == nil {
			return nil, fmt.Errorf("%w: errorPage[%d] needs code and page", ErrMissingKey, j)
		}
		host.ErrorPages[*ep.Code] = *ep.Page
	}

	return host, nil
}
