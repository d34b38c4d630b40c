package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

func init() {
	RegisterSink("qdrant", newQdrantSink)
}

// QdrantSink is a production Sink backend, grounded on the pack's Qdrant
// gRPC client usage: each point's vector is the unit's dense embedding, its
// payload carries the chunk text plus metadata.
type QdrantSink struct {
	client *qdrant.Client
}

func newQdrantSink(cfg *SinkConfig) (Sink, error) {
	host, port := splitHostPort(cfg.Address, "localhost", 6334)
	apiKey, _ := cfg.Parameters["api_key"].(string)
	useTLS, _ := cfg.Parameters["use_tls"].(bool)

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, NewSinkError(SinkTransient, err)
	}
	return &QdrantSink{client: client}, nil
}

func (q *QdrantSink) CreateIndex(ctx context.Context, name string, dimension int, metric Metric, options map[string]interface{}) error {
	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return NewSinkError(SinkTransient, err)
	}
	if exists {
		return nil
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrantDistance(metric),
		}),
	})
	if err != nil {
		return NewSinkError(SinkTransient, err)
	}
	return nil
}

func (q *QdrantSink) DeleteIndex(ctx context.Context, name string) error {
	if err := q.client.DeleteCollection(ctx, name); err != nil {
		return NewSinkError(SinkTransient, err)
	}
	return nil
}

func (q *QdrantSink) Convert(units []EmbedUnit) (interface{}, error) {
	points := make([]*qdrant.PointStruct, 0, len(units))
	for _, u := range units {
		if u.Kind != VectorKindDense {
			return nil, NewConfigError("qdrant sink only supports dense vectors")
		}
		payload := map[string]interface{}{"text": u.Text}
		for k, v := range u.Metadata {
			payload[k] = v
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.NewString()),
			Vectors: qdrant.NewVectors(u.Dense...),
			Payload: qdrant.NewValueMap(payload),
		})
	}
	return points, nil
}

func (q *QdrantSink) Upsert(ctx context.Context, name string, units []EmbedUnit) error {
	converted, err := q.Convert(units)
	if err != nil {
		return err
	}
	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points:         converted.([]*qdrant.PointStruct),
	})
	if err != nil {
		return NewSinkError(SinkTransient, err)
	}
	return nil
}

func (q *QdrantSink) Close() error { return q.client.Close() }

func qdrantDistance(metric Metric) qdrant.Distance {
	switch metric {
	case MetricIP:
		return qdrant.Distance_Dot
	case MetricCosine:
		return qdrant.Distance_Cosine
	default:
		return qdrant.Distance_Euclid
	}
}

func splitHostPort(address, defaultHost string, defaultPort int) (string, int) {
	if address == "" {
		return defaultHost, defaultPort
	}
	host := address
	port := defaultPort
	for i := len(address) - 1; i >= 0; i-- {
		if address[i] == ':' {
			host = address[:i]
			if p, err := parsePort(address[i+1:]); err == nil {
				port = p
			}
			break
		}
	}
	return host, port
}

func parsePort(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, NewConfigError("invalid port in sink address")
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}
