package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/raglab/raglab/common/logger"
	"github.com/raglab/raglab/config"
	"github.com/raglab/raglab/schema"
)

const (
	fieldID        = "id"
	fieldContent   = "content"
	fieldNamespace = "namespace"
	fieldMetadata  = "metadata"
	fieldVector    = "vector"

	maxContentLength = 65535
	maxIDLength      = 64
	maxNSLength      = 256
)

// milvusProvider stores chunks in a Milvus collection with a fixed
// schema: id, content, namespace, metadata (JSON) and the embedding
// vector.
type milvusProvider struct {
	c          client.Client
	collection string
	dimensions int
	metricType entity.MetricType
}

func newMilvusProvider(ctx context.Context, cfg config.VectorDBConfig, dimensions int) (*milvusProvider, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("milvus provider requires positive embedding dimensions")
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	c, err := client.NewClient(ctx, client.Config{
		Address:  addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus %s: %w", addr, err)
	}

	metric := entity.IP
	if strings.EqualFold(cfg.MetricType, "L2") {
		metric = entity.L2
	}
	p := &milvusProvider{
		c:          c,
		collection: cfg.Collection,
		dimensions: dimensions,
		metricType: metric,
	}
	if err := p.ensureCollection(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return p, nil
}

func (p *milvusProvider) ensureCollection(ctx context.Context) error {
	has, err := p.c.HasCollection(ctx, p.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", p.collection, err)
	}
	if !has {
		sch := entity.NewSchema().
			WithName(p.collection).
			WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxIDLength).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(fieldContent).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxContentLength)).
			WithField(entity.NewField().WithName(fieldNamespace).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxNSLength)).
			WithField(entity.NewField().WithName(fieldMetadata).WithDataType(entity.FieldTypeJSON)).
			WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(p.dimensions)))
		if err := p.c.CreateCollection(ctx, sch, 1); err != nil {
			return fmt.Errorf("create collection %s: %w", p.collection, err)
		}
		idx, err := entity.NewIndexAUTOINDEX(p.metricType)
		if err != nil {
			return fmt.Errorf("build index: %w", err)
		}
		if err := p.c.CreateIndex(ctx, p.collection, fieldVector, idx, false); err != nil {
			return fmt.Errorf("create index on %s: %w", p.collection, err)
		}
		logger.Infof("milvus: created collection %s (dim=%d, metric=%s)", p.collection, p.dimensions, p.metricType)
	}
	if err := p.c.LoadCollection(ctx, p.collection, false); err != nil {
		return fmt.Errorf("load collection %s: %w", p.collection, err)
	}
	return nil
}

func (p *milvusProvider) AddDoc(ctx context.Context, docs []schema.Document) error {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(docs))
	contents := make([]string, 0, len(docs))
	namespaces := make([]string, 0, len(docs))
	metadatas := make([][]byte, 0, len(docs))
	vectors := make([][]float32, 0, len(docs))
	for _, doc := range docs {
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", doc.ID, err)
		}
		ids = append(ids, doc.ID)
		contents = append(contents, truncate(doc.Content, maxContentLength))
		namespaces = append(namespaces, doc.Namespace)
		metadatas = append(metadatas, meta)
		vectors = append(vectors, doc.Vector)
	}

	_, err := p.c.Insert(ctx, p.collection, "",
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldContent, contents),
		entity.NewColumnVarChar(fieldNamespace, namespaces),
		entity.NewColumnJSONBytes(fieldMetadata, metadatas),
		entity.NewColumnFloatVector(fieldVector, p.dimensions, vectors),
	)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", p.collection, err)
	}
	return nil
}

func (p *milvusProvider) SearchDocs(ctx context.Context, vector []float32, opts *schema.SearchOptions) ([]schema.SearchResult, error) {
	topK := 10
	threshold := 0.0
	expr := ""
	if opts != nil {
		if opts.TopK > 0 {
			topK = opts.TopK
		}
		threshold = opts.Threshold
		if opts.Namespace != "" {
			expr = fmt.Sprintf(`%s == "%s"`, fieldNamespace, escapeExpr(opts.Namespace))
		}
	}

	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, fmt.Errorf("build search params: %w", err)
	}
	res, err := p.c.Search(ctx, p.collection, nil, expr,
		[]string{fieldID, fieldContent, fieldNamespace, fieldMetadata},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector, p.metricType, topK, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", p.collection, err)
	}

	var out []schema.SearchResult
	for _, rs := range res {
		idCol := rs.Fields.GetColumn(fieldID)
		contentCol := rs.Fields.GetColumn(fieldContent)
		nsCol := rs.Fields.GetColumn(fieldNamespace)
		metaCol := rs.Fields.GetColumn(fieldMetadata)
		for i := 0; i < rs.ResultCount; i++ {
			score := float64(rs.Scores[i])
			if threshold > 0 && score < threshold {
				continue
			}
			doc := schema.Document{}
			if idCol != nil {
				doc.ID, _ = idCol.GetAsString(i)
			}
			if contentCol != nil {
				doc.Content, _ = contentCol.GetAsString(i)
			}
			if nsCol != nil {
				doc.Namespace, _ = nsCol.GetAsString(i)
			}
			if metaCol != nil {
				if raw, err := metaCol.GetAsString(i); err == nil && raw != "" {
					var meta map[string]interface{}
					if err := json.Unmarshal([]byte(raw), &meta); err == nil {
						doc.Metadata = meta
					}
				}
			}
			out = append(out, schema.SearchResult{Document: doc, Score: score})
		}
	}
	return out, nil
}

func (p *milvusProvider) ListDocs(ctx context.Context, count int) ([]schema.Document, error) {
	if count <= 0 {
		count = 100
	}
	rs, err := p.c.Query(ctx, p.collection, nil, fmt.Sprintf(`%s != ""`, fieldID),
		[]string{fieldID, fieldContent, fieldNamespace, fieldMetadata},
		client.WithLimit(int64(count)),
	)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", p.collection, err)
	}

	idCol := rs.GetColumn(fieldID)
	if idCol == nil {
		return nil, nil
	}
	contentCol := rs.GetColumn(fieldContent)
	nsCol := rs.GetColumn(fieldNamespace)
	metaCol := rs.GetColumn(fieldMetadata)

	docs := make([]schema.Document, 0, idCol.Len())
	for i := 0; i < idCol.Len(); i++ {
		doc := schema.Document{}
		doc.ID, _ = idCol.GetAsString(i)
		if contentCol != nil {
			doc.Content, _ = contentCol.GetAsString(i)
		}
		if nsCol != nil {
			doc.Namespace, _ = nsCol.GetAsString(i)
		}
		if metaCol != nil {
			if raw, err := metaCol.GetAsString(i); err == nil && raw != "" {
				var meta map[string]interface{}
				if err := json.Unmarshal([]byte(raw), &meta); err == nil {
					doc.Metadata = meta
				}
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (p *milvusProvider) DeleteDocs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	quoted := make([]string, 0, len(ids))
	for _, id := range ids {
		quoted = append(quoted, fmt.Sprintf(`"%s"`, escapeExpr(id)))
	}
	expr := fmt.Sprintf("%s in [%s]", fieldID, strings.Join(quoted, ","))
	if err := p.c.Delete(ctx, p.collection, "", expr); err != nil {
		return fmt.Errorf("delete from %s: %w", p.collection, err)
	}
	return nil
}

func (p *milvusProvider) Close() error {
	return p.c.Close()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func escapeExpr(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
