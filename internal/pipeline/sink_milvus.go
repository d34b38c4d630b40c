package pipeline

import (
	"context"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

func init() {
	RegisterSink("milvus", newMilvusSink)
}

// MilvusSink is the production Sink backend, generalized from the
// teacher's MilvusDB: it stores an EmbedUnit's dense vector, text, and its
// file_path metadata value; other metadata keys are not stored.
type MilvusSink struct {
	client client.Client
	cfg    *SinkConfig
}

func newMilvusSink(cfg *SinkConfig) (Sink, error) {
	c, err := client.NewClient(context.Background(), client.Config{Address: cfg.Address})
	if err != nil {
		return nil, NewSinkError(SinkTransient, err)
	}
	return &MilvusSink{client: c, cfg: cfg}, nil
}

const (
	fieldID       = "id"
	fieldVector   = "vector"
	fieldText     = "text"
	fieldFilePath = "file_path"
)

func (m *MilvusSink) CreateIndex(ctx context.Context, name string, dimension int, metric Metric, options map[string]interface{}) error {
	has, err := m.client.HasCollection(ctx, name)
	if err != nil {
		return NewSinkError(SinkTransient, err)
	}
	if has {
		return nil
	}

	schema := entity.NewSchema().WithName(name).WithDescription("embedflow embedding index")
	schema.WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeInt64).WithIsPrimaryKey(true).WithIsAutoID(true))
	schema.WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dimension)))
	schema.WithField(entity.NewField().WithName(fieldText).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535))
	schema.WithField(entity.NewField().WithName(fieldFilePath).WithDataType(entity.FieldTypeVarChar).WithMaxLength(4096))

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return NewSinkError(SinkTransient, err)
	}

	idx, err := entity.NewIndexHNSW(milvusMetric(metric), 16, 200)
	if err != nil {
		return NewSinkError(SinkPermanent, err)
	}
	if err := m.client.CreateIndex(ctx, name, fieldVector, idx, false); err != nil {
		return NewSinkError(SinkTransient, err)
	}
	return m.client.LoadCollection(ctx, name, false)
}

func (m *MilvusSink) DeleteIndex(ctx context.Context, name string) error {
	if err := m.client.DropCollection(ctx, name); err != nil {
		return NewSinkError(SinkTransient, err)
	}
	return nil
}

// milvusRow is the native representation Convert produces: three parallel
// columns ready for client.Insert.
type milvusRow struct {
	vectors   [][]float32
	texts     []string
	filePaths []string
}

func (m *MilvusSink) Convert(units []EmbedUnit) (interface{}, error) {
	row := milvusRow{
		vectors:   make([][]float32, 0, len(units)),
		texts:     make([]string, 0, len(units)),
		filePaths: make([]string, 0, len(units)),
	}
	for _, u := range units {
		if u.Kind != VectorKindDense {
			return nil, NewSinkError(SinkPermanent, errUnsupportedVectorKind(u.Kind))
		}
		row.vectors = append(row.vectors, []float32(u.Dense))
		row.texts = append(row.texts, u.Text)
		row.filePaths = append(row.filePaths, u.Metadata["file_path"])
	}
	return row, nil
}

func (m *MilvusSink) Upsert(ctx context.Context, name string, units []EmbedUnit) error {
	converted, err := m.Convert(units)
	if err != nil {
		return err
	}
	row := converted.(milvusRow)

	columns := []entity.Column{
		entity.NewColumnFloatVector(fieldVector, len(row.vectors[0]), row.vectors),
		entity.NewColumnVarChar(fieldText, row.texts),
		entity.NewColumnVarChar(fieldFilePath, row.filePaths),
	}
	if _, err := m.client.Insert(ctx, name, "", columns...); err != nil {
		return NewSinkError(SinkTransient, err)
	}
	if err := m.client.Flush(ctx, name, false); err != nil {
		return NewSinkError(SinkTransient, err)
	}
	return nil
}

func (m *MilvusSink) Close() error {
	return m.client.Close()
}

func milvusMetric(metric Metric) entity.MetricType {
	switch metric {
	case MetricIP:
		return entity.IP
	default:
		return entity.L2
	}
}

func errUnsupportedVectorKind(k VectorKind) error {
	return NewConfigError("milvus sink only supports dense vectors")
}
