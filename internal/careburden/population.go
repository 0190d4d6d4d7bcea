package careburden

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"eldercare-survey/internal/domain"
)

// PopulationSource supplies estimated solitary-elder populations keyed by
// canonical region name.
type PopulationSource interface {
	Estimates(ctx context.Context) (map[string]int, error)
}

// StaticSource fixed estimates, mostly for tests and the CLI.
type StaticSource map[string]int

func (s StaticSource) Estimates(ctx context.Context) (map[string]int, error) {
	return normalizeKeys(s), nil
}

// populationFile layout of the YAML estimates file:
//
//	regions:
//	  창원시: 21450
//	  진주시: 9870
type populationFile struct {
	Regions map[string]int `yaml:"regions"`
}

// FileSource reads estimates from a YAML file on every call.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) Estimates(ctx context.Context) (map[string]int, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read population file: %w", err)
	}
	return ParsePopulationYAML(data)
}

// ParsePopulationYAML decodes the estimates file format.
func ParsePopulationYAML(data []byte) (map[string]int, error) {
	var pf populationFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse population file: %w", err)
	}
	return normalizeKeys(pf.Regions), nil
}

// populationResponse body returned by the statistics endpoint.
type populationResponse struct {
	Status  int    `json:"status"`
	Msg     string `json:"msg"`
	Regions []struct {
		Region         string `json:"region"`
		SolitaryElders int    `json:"solitary_elders"`
	} `json:"regions"`
}

// HTTPSource fetches estimates from the regional statistics API.
type HTTPSource struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewHTTPSource(baseURL, apiKey string, logger *zap.Logger) *HTTPSource {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("X-API-Key", apiKey)
	}
	return &HTTPSource{httpClient: client, logger: logger}
}

func (h *HTTPSource) Estimates(ctx context.Context) (map[string]int, error) {
	var body populationResponse
	resp, err := h.httpClient.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/population/solitary-elders")
	if err != nil {
		h.logger.Error("Population API call failed", zap.Error(err))
		return nil, fmt.Errorf("failed to call population API: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("population API returned HTTP %d", resp.StatusCode())
	}
	if body.Status != 0 {
		return nil, fmt.Errorf("population API error: %s (status: %d)", body.Msg, body.Status)
	}

	raw := make(map[string]int, len(body.Regions))
	for _, r := range body.Regions {
		raw[r.Region] += r.SolitaryElders
	}
	out := normalizeKeys(raw)
	h.logger.Debug("Fetched population estimates", zap.Int("region_count", len(out)))
	return out, nil
}

// normalizeKeys maps free-text region keys onto canonical names. Keys that
// do not resolve are kept verbatim; values landing on the same region add up.
func normalizeKeys(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		if canonical, ok := domain.NormalizeRegion(k); ok {
			k = canonical
		}
		out[k] += v
	}
	return out
}
