// Package qdrant provides a VectorDB implementation using Qdrant.
package qdrant

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/infrastructure/config"
)

// pointNamespace seeds the deterministic point ids of concept vectors.
var pointNamespace = uuid.MustParse("6f1c2a4e-93b0-4d55-8a57-0b1f3c5e7d21")

// Repository implements the VectorDB interface using Qdrant. All knowledge
// bases share one collection; points carry their knowledge base id in the
// payload.
type Repository struct {
	client     pb.CollectionsClient
	points     pb.PointsClient
	collection string
	conn       *grpc.ClientConn
}

// NewRepository creates a new Qdrant repository.
func NewRepository(cfg config.QdrantConfig) (*Repository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if cfg.APIKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	return &Repository{
		client:     pb.NewCollectionsClient(conn),
		points:     pb.NewPointsClient(conn),
		collection: cfg.Collection,
		conn:       conn,
	}, nil
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// Close closes the gRPC connection.
func (r *Repository) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// EnsureCollection creates the collection if it doesn't exist.
func (r *Repository) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	_, err := r.client.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collection,
	})
	if err == nil {
		return nil
	}

	_, err = r.client.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     vectorSize,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	return nil
}

// DeleteCollection drops the collection.
func (r *Repository) DeleteCollection(ctx context.Context) error {
	_, err := r.client.Delete(ctx, &pb.DeleteCollection{CollectionName: r.collection})
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	return nil
}

// Upsert stores concept vectors, replacing earlier vectors of the same concepts.
func (r *Repository) Upsert(ctx context.Context, vectors []entities.ConceptVector) error {
	if len(vectors) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, 0, len(vectors))
	for _, v := range vectors {
		points = append(points, &pb.PointStruct{
			Id: pointID(v.KnowledgeBaseID, v.ConceptID),
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: v.Vector},
				},
			},
			Payload: map[string]*pb.Value{
				"kb_id":      {Kind: &pb.Value_StringValue{StringValue: v.KnowledgeBaseID}},
				"concept_id": {Kind: &pb.Value_IntegerValue{IntegerValue: v.ConceptID}},
				"name":       {Kind: &pb.Value_StringValue{StringValue: v.Name}},
				"category":   {Kind: &pb.Value_StringValue{StringValue: v.Category}},
			},
		})
	}

	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	return nil
}

// Delete removes the vectors of the given concepts.
func (r *Repository) Delete(ctx context.Context, kbID string, conceptIDs []int64) error {
	if len(conceptIDs) == 0 {
		return nil
	}

	ids := make([]*pb.PointId, len(conceptIDs))
	for i, id := range conceptIDs {
		ids[i] = pointID(kbID, id)
	}

	_, err := r.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: ids},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}

	return nil
}

// DeleteKnowledgeBase removes every vector of a knowledge base.
func (r *Repository) DeleteKnowledgeBase(ctx context.Context, kbID string) error {
	_, err := r.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: kbFilter(kbID),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting points by knowledge base: %w", err)
	}

	return nil
}

// Search performs a semantic search within one knowledge base.
func (r *Repository) Search(ctx context.Context, kbID string, embedding []float32, limit int) ([]entities.ConceptHit, error) {
	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         embedding,
		Limit:          uint64(limit),
		Filter:         kbFilter(kbID),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("searching points: %w", err)
	}

	hits := make([]entities.ConceptHit, 0, len(resp.Result))
	for _, point := range resp.Result {
		hits = append(hits, scoredPointToHit(point))
	}
	return hits, nil
}

// Count returns the number of vectors stored for a knowledge base.
func (r *Repository) Count(ctx context.Context, kbID string) (uint64, error) {
	resp, err := r.points.Count(ctx, &pb.CountPoints{
		CollectionName: r.collection,
		Filter:         kbFilter(kbID),
		Exact:          pb.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return resp.GetResult().GetCount(), nil
}

// pointID derives a stable point id from a knowledge base and concept id.
func pointID(kbID string, conceptID int64) *pb.PointId {
	id := uuid.NewSHA1(pointNamespace, []byte(kbID+"/"+strconv.FormatInt(conceptID, 10)))
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id.String()}}
}

func kbFilter(kbID string) *pb.Filter {
	return &pb.Filter{
		Must: []*pb.Condition{
			{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key: "kb_id",
						Match: &pb.Match{
							MatchValue: &pb.Match_Keyword{Keyword: kbID},
						},
					},
				},
			},
		},
	}
}

func scoredPointToHit(point *pb.ScoredPoint) entities.ConceptHit {
	payload := point.Payload
	return entities.ConceptHit{
		KnowledgeBaseID: getStringValue(payload, "kb_id"),
		ConceptID:       getIntValue(payload, "concept_id"),
		Name:            getStringValue(payload, "name"),
		Category:        getStringValue(payload, "category"),
		Score:           point.Score,
	}
}

// Helper functions for payload extraction.
func getStringValue(payload map[string]*pb.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func getIntValue(payload map[string]*pb.Value, key string) int64 {
	if v, ok := payload[key]; ok {
		return v.GetIntegerValue()
	}
	return 0
}
