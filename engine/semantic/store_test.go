package semantic

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/WessleyAI/census-search/engine/annindex"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

type mockPoints struct {
	searchResp *pb.SearchResponse
	searchErr  error
	got        *pb.SearchPoints
}

func (m *mockPoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	m.got = in
	return m.searchResp, m.searchErr
}

func numPoint(id uint64, score float32) *pb.ScoredPoint {
	return &pb.ScoredPoint{
		Id:    &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: id}},
		Score: score,
	}
}

func TestSearch_LabelsInOrder(t *testing.T) {
	m := &mockPoints{searchResp: &pb.SearchResponse{Result: []*pb.ScoredPoint{
		numPoint(4, 0.9),
		numPoint(17, 0.5),
	}}}
	vs := NewWithClient(m, "census")

	labels, distances, err := vs.Search(context.Background(), []float32{0.1, 0.2, 0.3}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if m.got.GetCollectionName() != "census" || m.got.GetLimit() != 3 {
		t.Fatalf("unexpected request: %v", m.got)
	}
	want := []int64{4, 17}
	if len(labels) != len(want) {
		t.Fatalf("expected %v, got %v", want, labels)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, labels)
		}
	}
	if distances[0] >= distances[1] {
		t.Fatalf("expected ascending distances, got %v", distances)
	}
}

func TestSearch_SkipsUUIDPoints(t *testing.T) {
	m := &mockPoints{searchResp: &pb.SearchResponse{Result: []*pb.ScoredPoint{
		{Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "a2c4"}}, Score: 0.99},
		numPoint(8, 0.7),
	}}}
	labels, _, err := NewWithClient(m, "census").Search(context.Background(), []float32{1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if labels[0] != 8 || labels[1] != annindex.NoLabel {
		t.Fatalf("expected [8 -1], got %v", labels)
	}
}

func TestSearch_HugeKBoundedByResults(t *testing.T) {
	m := &mockPoints{searchResp: &pb.SearchResponse{Result: []*pb.ScoredPoint{numPoint(3, 0.8)}}}
	labels, distances, err := NewWithClient(m, "census").Search(context.Background(), []float32{1}, math.MaxInt32)
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 1 || len(distances) != 1 || labels[0] != 3 {
		t.Fatalf("expected [3], got %v", labels)
	}
}

func TestSearch_Error(t *testing.T) {
	m := &mockPoints{searchErr: errors.New("unavailable")}
	if _, _, err := NewWithClient(m, "census").Search(context.Background(), []float32{1}, 1); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearch_InvalidK(t *testing.T) {
	if _, _, err := NewWithClient(&mockPoints{}, "census").Search(context.Background(), []float32{1}, 0); err == nil {
		t.Fatal("expected error for k=0")
	}
}

func TestCloseWithoutConn(t *testing.T) {
	if err := NewWithClient(&mockPoints{}, "census").Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
