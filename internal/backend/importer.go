package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/nao1215/safarnama/internal/model"
)

// maxInstancesFileSize limits the size of an instances.json document.
const maxInstancesFileSize = 50 * 1024 * 1024

// instancesDocument is the searx.space instances.json layout.
type instancesDocument struct {
	Instances map[string]searxInstance `json:"instances"`
}

type searxInstance struct {
	Version *string `json:"version"`
	TLS     struct {
		Grade       *string `json:"grade"`
		Certificate struct {
			Issuer struct {
				CommonName *string `json:"commonName"`
			} `json:"issuer"`
		} `json:"certificate"`
	} `json:"tls"`
	HTTP struct {
		Grade *string `json:"grade"`
	} `json:"http"`
	HTML struct {
		Grade *string `json:"grade"`
	} `json:"html"`
	Network struct {
		IPv6 bool `json:"ipv6"`
	} `json:"network"`
	Country     *string `json:"country"`
	NetworkType *string `json:"network_type"`
	Timing      struct {
		Search   timingGroup `json:"search"`
		SearchGo timingGroup `json:"search_go"`
		Initial  struct {
			All struct {
				Value *float64 `json:"value"`
			} `json:"all"`
		} `json:"initial"`
	} `json:"timing"`
	Uptime struct {
		UptimeYear *float64 `json:"uptimeYear"`
	} `json:"uptime"`
}

type timingGroup struct {
	All struct {
		Median *float64 `json:"median"`
	} `json:"all"`
}

// toModel maps the searx.space fields onto a BackendInstance.
func (s *searxInstance) toModel(rawURL string) *model.BackendInstance {
	return &model.BackendInstance{
		URL:                 rawURL,
		Version:             deref(s.Version),
		TLSGrade:            deref(s.TLS.Grade),
		CSPGrade:            deref(s.HTTP.Grade),
		HTMLGrade:           deref(s.HTML.Grade),
		Certificate:         deref(s.TLS.Certificate.Issuer.CommonName),
		IPv6:                s.Network.IPv6,
		Country:             deref(s.Country),
		NetworkType:         deref(s.NetworkType),
		SearchResponseTime:  s.Timing.Search.All.Median,
		GoogleResponseTime:  s.Timing.SearchGo.All.Median,
		InitialResponseTime: s.Timing.Initial.All.Value,
		Uptime:              s.Uptime.UptimeYear,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Importer loads instance metadata into the registry.
type Importer struct {
	registry *Registry
	client   *http.Client
	logger   *slog.Logger
}

// NewImporter creates an Importer. client is used for http(s) sources.
func NewImporter(registry *Registry, client *http.Client, logger *slog.Logger) *Importer {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{registry: registry, client: client, logger: logger}
}

// Import reads an instances.json document from source, an http(s) URL or
// a file path, and upserts every instance. Existing priorities and
// cooldowns are kept; the new uptime takes effect at the next refresh.
// It returns the number of instances imported.
func (im *Importer) Import(ctx context.Context, source string) (int, error) {
	data, err := im.read(ctx, source)
	if err != nil {
		return 0, err
	}

	var doc instancesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	urls := make([]string, 0, len(doc.Instances))
	for u := range doc.Instances {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	imported := 0
	for _, u := range urls {
		inst := doc.Instances[u]
		if err := im.registry.Upsert(ctx, inst.toModel(u)); err != nil {
			im.logger.Warn("failed to import instance", "instance", u, "error", err)
			continue
		}
		imported++
	}
	im.logger.Info("imported backend instances", "source", source, "count", imported)
	return imported, nil
}

func (im *Importer) read(ctx context.Context, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		f, err := os.Open(source) //nolint:gosec // path given by the user
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", source, err)
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxInstancesFileSize))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := im.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxInstancesFileSize))
}
