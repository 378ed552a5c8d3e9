package a

import "context"

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type VectorDB interface {
	Upsert(ctx context.Context, ids []int64) error
	Search(ctx context.Context, embedding []float32, limit int) ([]int64, error)
}

func bad(ctx context.Context, names []string, e Embedder, db VectorDB) {
	for i, name := range names {
		vec, _ := e.Embed(ctx, name) // want "potential N\\+1: Embed called inside loop - use EmbedBatch"
		db.Upsert(ctx, []int64{int64(i)}) // want "potential N\\+1: Upsert called inside loop"
		db.Search(ctx, vec, 1)           // want "potential N\\+1: Search called inside loop"
	}
}

func nested(ctx context.Context, groups [][]string, e Embedder) {
	for _, g := range groups {
		for _, name := range g {
			e.Embed(ctx, name) // want "potential N\\+1: Embed called inside loop"
		}
	}
}

func good(ctx context.Context, names []string, e Embedder, db VectorDB) {
	vecs, _ := e.EmbedBatch(ctx, names)
	ids := make([]int64, 0, len(vecs))
	for i := range vecs {
		ids = append(ids, int64(i))
	}
	db.Upsert(ctx, ids)
}
