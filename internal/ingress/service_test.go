package ingress

import (
	"context"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/ransched/internal/logging"
	"github.com/signalsfoundry/ransched/internal/observability"
	"github.com/signalsfoundry/ransched/internal/sched"
	"github.com/signalsfoundry/ransched/model"
)

type ingressEnv struct {
	mgr       *sched.EventManager
	client    *Client
	conn      *grpc.ClientConn
	collector *observability.IngressCollector
}

func newIngressEnv(t *testing.T) *ingressEnv {
	t.Helper()

	mgr := sched.NewEventManager(nil)
	mgr.AddCell(model.CellConfig{Index: 0}, nil)
	mgr.AddCell(model.CellConfig{Index: 1}, nil)

	collector, err := observability.NewIngressCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewIngressCollector: %v", err)
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RequestIDUnaryServerInterceptor(logging.Noop()),
		TracingUnaryServerInterceptor(),
		collector.UnaryServerInterceptor(),
	))
	RegisterIngressServer(srv, NewService(mgr, collector, nil))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(RequestIDUnaryClientInterceptor()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return &ingressEnv{mgr: mgr, client: NewClient(conn), conn: conn, collector: collector}
}

func TestIngressCreateApplyAndFeedback(t *testing.T) {
	env := newIngressEnv(t)
	ctx := context.Background()

	err := env.client.CreateUE(ctx, &model.UECreationRequest{
		UEIndex:         5,
		CRNTI:           0x4601,
		Cells:           []model.CellIndex{1},
		LogicalChannels: []model.LogicalChannelConfig{{LCID: model.LCIDSRB1, LCGID: 0}, {LCID: 4, LCGID: 2}},
	})
	if err != nil {
		t.Fatalf("CreateUE: %v", err)
	}
	err = env.client.ULBSRIndication(ctx, &model.ULBSRIndication{
		CellIndex: 1,
		UEIndex:   5,
		CRNTI:     0x4601,
		Format:    model.LongBSR,
		Reports:   []model.RawLCGReport{{LCGID: 2, BufferSizeIndex: 10}},
	})
	if err != nil {
		t.Fatalf("ULBSRIndication: %v", err)
	}
	err = env.client.CRCIndication(ctx, &model.CRCIndication{
		CellIndex: 1,
		SlotRx:    model.NewSlot(0, 3, 4),
		CRCs:      []model.CRCPDU{{UEIndex: 5, RNTI: 0x4601, HARQID: 0, TBCRCSuccess: true}},
	})
	if err != nil {
		t.Fatalf("CRCIndication: %v", err)
	}

	env.mgr.Run(model.NewSlot(0, 3, 5), 0)
	env.mgr.Run(model.NewSlot(0, 3, 5), 1)

	snap := env.mgr.Snapshot()
	if len(snap) != 1 || snap[0].Index != 5 || snap[0].PCell != 1 {
		t.Fatalf("snapshot = %+v, want UE 5 on cell 1", snap)
	}
	if snap[0].ULBuffer[2] != 19 {
		t.Fatalf("UL buffer of LCG 2 = %d, want 19", snap[0].ULBuffer[2])
	}
	if got := testutil.ToFloat64(env.collector.FeedbackPDUs.WithLabelValues("crc")); got != 1 {
		t.Fatalf("crc feedback PDUs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(env.collector.RPCRequests.WithLabelValues("Ingress", MethodCreateUE, "OK")); got != 1 {
		t.Fatalf("CreateUE requests = %v, want 1", got)
	}
}

func TestIngressErrorCodes(t *testing.T) {
	env := newIngressEnv(t)
	ctx := context.Background()

	if err := env.client.CreateUE(ctx, &model.UECreationRequest{UEIndex: 1, CRNTI: 0x100, Cells: []model.CellIndex{0}}); err != nil {
		t.Fatalf("CreateUE: %v", err)
	}

	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"duplicate", env.client.CreateUE(ctx, &model.UECreationRequest{UEIndex: 1, CRNTI: 0x100, Cells: []model.CellIndex{0}}), codes.AlreadyExists},
		{"capacity", env.client.CreateUE(ctx, &model.UECreationRequest{UEIndex: model.MaxUEs, CRNTI: 0x100, Cells: []model.CellIndex{0}}), codes.ResourceExhausted},
		{"unknown cell", env.client.CreateUE(ctx, &model.UECreationRequest{UEIndex: 2, CRNTI: 0x100, Cells: []model.CellIndex{9}}), codes.InvalidArgument},
		{"delete absent", env.client.DeleteUE(ctx, 3), codes.NotFound},
		{"reconfigure absent", env.client.ReconfigureUE(ctx, &model.UEReconfigurationRequest{UEIndex: 3}), codes.NotFound},
	}
	for _, tc := range cases {
		if got := status.Code(tc.err); got != tc.want {
			t.Fatalf("%s: code = %v, want %v (err=%v)", tc.name, got, tc.want, tc.err)
		}
	}

	if err := env.client.DeleteUE(ctx, 1); err != nil {
		t.Fatalf("DeleteUE: %v", err)
	}
}

func TestIngressRejectsMalformedStruct(t *testing.T) {
	env := newIngressEnv(t)

	in, err := structpb.NewStruct(map[string]any{"ue_index": 1, "colour": "blue"})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	err = env.conn.Invoke(context.Background(), "/"+ServiceName+"/"+MethodDLMACCEIndication, in, new(structpb.Struct))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("unknown field code = %v, want InvalidArgument (err=%v)", status.Code(err), err)
	}

	err = env.conn.Invoke(context.Background(), "/"+ServiceName+"/"+MethodDeleteUE, &structpb.Struct{}, new(structpb.Struct))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("missing ue_index code = %v, want InvalidArgument (err=%v)", status.Code(err), err)
	}
}
