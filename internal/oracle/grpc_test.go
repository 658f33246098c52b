package oracle

import (
	"context"
	"errors"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/treegen/internal/features"
)

// #region mock
type mockConn struct {
	method  string
	request *structpb.Struct
	resp    *structpb.ListValue
	err     error
	// failures makes the first calls fail with err before succeeding.
	failures int
	calls    int
}

func (m *mockConn) Invoke(_ context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	m.method = method
	m.request = args.(*structpb.Struct)
	m.calls++
	if m.err != nil && (m.failures == 0 || m.calls <= m.failures) {
		return m.err
	}
	proto.Merge(reply.(*structpb.ListValue), m.resp)
	return nil
}

func (m *mockConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("streams not supported")
}

func numbers(xs ...float64) *structpb.ListValue {
	out := &structpb.ListValue{}
	for _, x := range xs {
		out.Values = append(out.Values, structpb.NewNumberValue(x))
	}
	return out
}

// #endregion mock

// #region constructor-tests
func TestNewGRPCScorer(t *testing.T) {
	c, err := NewGRPCScorer("localhost:0", nil)
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewGRPCScorerWithConn(t *testing.T) {
	c := NewGRPCScorerWithConn(&mockConn{}, nil)
	if c == nil || c.cc == nil {
		t.Fatal("expected client with connection")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close without owned conn: %v", err)
	}
}

// #endregion constructor-tests

// #region score-tests
func TestGRPCScore_Success(t *testing.T) {
	_, st := testSystem(t)
	ex, err := features.Parse("stack.focus stack.label")
	if err != nil {
		t.Fatalf("parse features: %v", err)
	}
	mock := &mockConn{resp: numbers(0.25, -1)}
	c := NewGRPCScorerWithConn(mock, ex)

	scores, err := c.Score(context.Background(), st, []int{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) != 2 || scores[0] != 0.25 || scores[1] != -1 {
		t.Errorf("scores = %v, want [0.25 -1]", scores)
	}
	if mock.method != ScoreMethod {
		t.Errorf("method = %q, want %q", mock.method, ScoreMethod)
	}

	req, err := DecodeRequest(mock.request)
	if err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if len(req.Candidates) != 2 || req.Candidates[0] != 1 || req.Candidates[1] != 2 {
		t.Errorf("candidates = %v", req.Candidates)
	}
	if req.Features["stack.focus"] != -1 {
		t.Errorf("stack.focus = %d, want -1", req.Features["stack.focus"])
	}
	if req.Features["stack.label"] != 2 {
		t.Errorf("stack.label = %d, want 2 (root)", req.Features["stack.label"])
	}
	if req.Stack != "[ROOT]" {
		t.Errorf("stack = %q", req.Stack)
	}
}

func TestGRPCScore_Error(t *testing.T) {
	_, st := testSystem(t)
	conn := &mockConn{err: errors.New("boom")}
	c := NewGRPCScorerWithConn(conn, nil)
	if _, err := c.Score(context.Background(), st, []int{1}); err == nil {
		t.Fatal("expected error")
	}
	if conn.calls != 1 {
		t.Errorf("calls = %d, want 1 (plain errors are not retried)", conn.calls)
	}
}

func TestGRPCScore_RetriesUnavailable(t *testing.T) {
	_, st := testSystem(t)
	conn := &mockConn{err: status.Error(codes.Unavailable, "warming up"), failures: 2, resp: numbers(0.5)}
	c := NewGRPCScorerWithConn(conn, nil)
	scores, err := c.Score(context.Background(), st, []int{1})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if conn.calls != 3 || scores[0] != 0.5 {
		t.Errorf("calls = %d, scores = %v", conn.calls, scores)
	}
}

func TestGRPCScore_RetryLimit(t *testing.T) {
	_, st := testSystem(t)
	conn := &mockConn{err: status.Error(codes.Unavailable, "down")}
	c := NewGRPCScorerWithConn(conn, nil)
	_, err := c.Score(context.Background(), st, []int{1})
	if status.Code(errors.Unwrap(err)) != codes.Unavailable {
		t.Fatalf("err = %v, want Unavailable", err)
	}
	if conn.calls != maxRetries+1 {
		t.Errorf("calls = %d, want %d", conn.calls, maxRetries+1)
	}
}

func TestGRPCScore_LengthMismatch(t *testing.T) {
	_, st := testSystem(t)
	c := NewGRPCScorerWithConn(&mockConn{resp: numbers(1)}, nil)
	if _, err := c.Score(context.Background(), st, []int{1, 2}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

// #endregion score-tests

// #region server-tests
func TestScorerServer_RoundTrip(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterScorerServer(srv, ScorerServerFunc(func(_ context.Context, req ScoreRequest) ([]float64, error) {
		out := make([]float64, len(req.Candidates))
		for i, a := range req.Candidates {
			out[i] = float64(a) / 10
		}
		return out, nil
	}))
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_, st := testSystem(t)
	scores, err := NewGRPCScorerWithConn(conn, nil).Score(context.Background(), st, []int{1, 4})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if len(scores) != 2 || scores[0] != 0.1 || scores[1] != 0.4 {
		t.Errorf("scores = %v, want [0.1 0.4]", scores)
	}
}

func TestDecodeRequest_MissingCandidates(t *testing.T) {
	if _, err := DecodeRequest(&structpb.Struct{}); err == nil {
		t.Fatal("expected error for missing candidates")
	}
}

// #endregion server-tests
