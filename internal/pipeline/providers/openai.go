package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

func init() {
	Register(KindCloud, "openai", NewOpenAIEmbedder)
}

const (
	defaultEmbeddingAPI = "https://api.openai.com/v1/embeddings"
	defaultModelName    = "text-embedding-3-small"
)

// OpenAIEmbedder is the from_cloud backend for OpenAI-compatible embedding
// APIs (also used for Azure OpenAI and self-hosted drop-in replacements via
// the api_url override).
type OpenAIEmbedder struct {
	apiKey    string
	client    *http.Client
	apiURL    string
	modelName string
	dimension int
}

// NewOpenAIEmbedder builds a cloud backend from a flat option map. Required:
// api_key. Optional: model, api_url, timeout, dimension (overrides the
// built-in per-model table, needed for custom deployments).
func NewOpenAIEmbedder(config map[string]interface{}) (RawEmbedder, error) {
	apiKey, ok := config["api_key"].(string)
	if !ok || apiKey == "" {
		return nil, errors.New("api_key is required for the openai backend")
	}

	e := &OpenAIEmbedder{
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 30 * time.Second},
		apiURL:    defaultEmbeddingAPI,
		modelName: defaultModelName,
	}

	if model, ok := config["model"].(string); ok && model != "" {
		e.modelName = model
	}
	if apiURL, ok := config["api_url"].(string); ok && apiURL != "" {
		e.apiURL = apiURL
	}
	if timeout, ok := config["timeout"].(time.Duration); ok {
		e.client.Timeout = timeout
	}
	if dim, ok := config["dimension"].(int); ok && dim > 0 {
		e.dimension = dim
	} else {
		e.dimension = dimensionForModel(e.modelName)
	}

	return e, nil
}

func dimensionForModel(model string) int {
	switch model {
	case "text-embedding-3-small":
		return 1536
	case "text-embedding-3-large":
		return 3072
	case "text-embedding-ada-002":
		return 1536
	default:
		return 1536
	}
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// EmbedBatch sends all texts in a single request, per OpenAI's batched
// embeddings endpoint, and reorders results by the response's index field
// rather than assuming response order matches request order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody, err := json.Marshal(embeddingRequest{Input: texts, Model: e.modelName})
	if err != nil {
		return nil, errors.Wrap(err, "marshal embedding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, errors.Wrap(err, "build embedding request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "embedding request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read embedding response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("embedding API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "unmarshal embedding response")
	}
	if len(parsed.Data) != len(texts) {
		return nil, errors.Newf("embedding API returned %d vectors for %d inputs", len(parsed.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (e *OpenAIEmbedder) Dimension() int { return e.dimension }
func (e *OpenAIEmbedder) Close() error   { return nil }
