package oracle

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/treegen/internal/features"
	"github.com/danielpatrickdp/treegen/internal/state"
)

// ScoreMethod is the full gRPC method name of the scoring RPC. The request
// is a google.protobuf.Struct, the response a google.protobuf.ListValue of
// numbers.
const ScoreMethod = "/treegen.oracle.Scorer/Score"

const (
	maxRetries   = 2 // max 2 retries = 3 total attempts
	retryBackoff = 50 * time.Millisecond
)

// #region request
// ScoreRequest is the decoded form of the RPC request.
type ScoreRequest struct {
	Features   map[string]int
	Candidates []int
	Stack      string
	NumTokens  int
}

// EncodeRequest builds the wire message for a request.
func EncodeRequest(r ScoreRequest) *structpb.Struct {
	feats := make(map[string]*structpb.Value, len(r.Features))
	for k, v := range r.Features {
		feats[k] = structpb.NewNumberValue(float64(v))
	}
	cands := make([]*structpb.Value, len(r.Candidates))
	for i, a := range r.Candidates {
		cands[i] = structpb.NewNumberValue(float64(a))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"features":   structpb.NewStructValue(&structpb.Struct{Fields: feats}),
		"candidates": structpb.NewListValue(&structpb.ListValue{Values: cands}),
		"stack":      structpb.NewStringValue(r.Stack),
		"num_tokens": structpb.NewNumberValue(float64(r.NumTokens)),
	}}
}

// DecodeRequest parses the wire message of a request.
func DecodeRequest(msg *structpb.Struct) (ScoreRequest, error) {
	fields := msg.GetFields()
	r := ScoreRequest{
		Features:  make(map[string]int),
		Stack:     fields["stack"].GetStringValue(),
		NumTokens: int(fields["num_tokens"].GetNumberValue()),
	}
	cands, ok := fields["candidates"].GetKind().(*structpb.Value_ListValue)
	if !ok {
		return ScoreRequest{}, fmt.Errorf("request: missing candidates list")
	}
	for _, v := range cands.ListValue.GetValues() {
		r.Candidates = append(r.Candidates, int(v.GetNumberValue()))
	}
	for k, v := range fields["features"].GetStructValue().GetFields() {
		r.Features[k] = int(v.GetNumberValue())
	}
	return r, nil
}

// #endregion request

// #region client-struct
// GRPCScorer asks a remote model for scores over gRPC.
type GRPCScorer struct {
	conn      *grpc.ClientConn
	cc        grpc.ClientConnInterface
	extractor *features.Extractor
}

// #endregion client-struct

// #region constructor
// NewGRPCScorer connects to the scoring service at addr. ex may be nil, in
// which case no features are sent.
func NewGRPCScorer(addr string, ex *features.Extractor) (*GRPCScorer, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &GRPCScorer{conn: conn, cc: conn, extractor: ex}, nil
}

// NewGRPCScorerWithConn uses an existing connection, which the caller closes.
func NewGRPCScorerWithConn(cc grpc.ClientConnInterface, ex *features.Extractor) *GRPCScorer {
	return &GRPCScorer{cc: cc, extractor: ex}
}

// #endregion constructor

// #region close
// Close shuts down a connection opened by NewGRPCScorer.
func (c *GRPCScorer) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region score
func (c *GRPCScorer) Score(ctx context.Context, st *state.State, candidates []int) ([]float64, error) {
	req := ScoreRequest{
		Features:   map[string]int{},
		Candidates: candidates,
		Stack:      st.String(),
		NumTokens:  st.NumTokens(),
	}
	if c.extractor != nil {
		values, err := c.extractor.Extract(st)
		if err != nil {
			return nil, fmt.Errorf("extract features: %w", err)
		}
		for _, v := range values {
			req.Features[v.Name] = v.ID
		}
	}

	resp, err := c.invoke(ctx, EncodeRequest(req))
	if err != nil {
		return nil, fmt.Errorf("score rpc: %w", err)
	}
	if len(resp.GetValues()) != len(candidates) {
		return nil, fmt.Errorf("score rpc: got %d scores for %d candidates", len(resp.GetValues()), len(candidates))
	}
	scores := make([]float64, len(candidates))
	for i, v := range resp.GetValues() {
		scores[i] = v.GetNumberValue()
	}
	return scores, nil
}

// invoke retries the call while the server reports Unavailable.
func (c *GRPCScorer) invoke(ctx context.Context, msg *structpb.Struct) (*structpb.ListValue, error) {
	var err error
	for attempt := 0; ; attempt++ {
		resp := new(structpb.ListValue)
		err = c.cc.Invoke(ctx, ScoreMethod, msg, resp)
		if err == nil {
			return resp, nil
		}
		if status.Code(err) != codes.Unavailable || attempt == maxRetries {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt+1)):
		}
	}
}

// #endregion score

// #region server
// ScorerServer is implemented by scoring services.
type ScorerServer interface {
	Score(ctx context.Context, req ScoreRequest) ([]float64, error)
}

// ScorerServerFunc adapts a function to ScorerServer.
type ScorerServerFunc func(ctx context.Context, req ScoreRequest) ([]float64, error)

func (f ScorerServerFunc) Score(ctx context.Context, req ScoreRequest) ([]float64, error) {
	return f(ctx, req)
}

// RegisterScorerServer exposes srv on s under ScoreMethod.
func RegisterScorerServer(s grpc.ServiceRegistrar, srv ScorerServer) {
	s.RegisterService(&scorerServiceDesc, srv)
}

var scorerServiceDesc = grpc.ServiceDesc{
	ServiceName: "treegen.oracle.Scorer",
	HandlerType: (*ScorerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Score", Handler: scoreHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "treegen/oracle/scorer",
}

func scoreHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, req interface{}) (interface{}, error) {
		r, err := DecodeRequest(req.(*structpb.Struct))
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		scores, err := srv.(ScorerServer).Score(ctx, r)
		if err != nil {
			return nil, err
		}
		out := &structpb.ListValue{Values: make([]*structpb.Value, len(scores))}
		for i, s := range scores {
			out.Values[i] = structpb.NewNumberValue(s)
		}
		return out, nil
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ScoreMethod}
	return interceptor(ctx, in, info, handle)
}

// #endregion server
