// Package semantic answers neighbour queries from a Qdrant collection.
package semantic

import (
	"context"
	"fmt"
	"math"

	"github.com/WessleyAI/census-search/engine/annindex"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// pointsSearcher is the subset of pb.PointsClient the store uses.
type pointsSearcher interface {
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// VectorStore answers neighbour queries from a Qdrant collection whose
// points carry numeric ids equal to the chunk labels.
type VectorStore struct {
	conn       *grpc.ClientConn
	points     pointsSearcher
	collection string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:       conn,
		points:     pb.NewPointsClient(conn),
		collection: collection,
	}, nil
}

// NewWithClient wraps an existing points client.
func NewWithClient(points pointsSearcher, collection string) *VectorStore {
	return &VectorStore{points: points, collection: collection}
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// Search performs k-NN similarity search and returns one label/distance pair
// per returned point (at most k), nearest first. Points without a numeric id
// leave an annindex.NoLabel slot. Distance is 1 - score.
func (v *VectorStore) Search(ctx context.Context, embedding []float32, k int) ([]int64, []float32, error) {
	if k <= 0 {
		return nil, nil, fmt.Errorf("semantic: invalid k %d", k)
	}
	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         embedding,
		Limit:          uint64(k),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("semantic: search: %w", err)
	}

	slots := min(k, len(resp.GetResult()))
	labels := make([]int64, slots)
	distances := make([]float32, slots)
	for i := range labels {
		labels[i] = annindex.NoLabel
		distances[i] = float32(math.Inf(1))
	}
	n := 0
	for _, r := range resp.GetResult() {
		if n == slots {
			break
		}
		id, ok := r.GetId().GetPointIdOptions().(*pb.PointId_Num)
		if !ok || id.Num > math.MaxInt64 {
			continue
		}
		labels[n] = int64(id.Num)
		distances[n] = 1 - r.GetScore()
		n++
	}
	return labels, distances, nil
}
