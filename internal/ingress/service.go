// Package ingress exposes the scheduler's producer API over gRPC.
//
// The service is described by hand rather than generated: every request is a
// google.protobuf.Struct whose JSON form matches the model message, and every
// response is google.protobuf.Empty.
package ingress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/ransched/internal/logging"
	"github.com/signalsfoundry/ransched/model"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "ransched.ingress.v1.Ingress"

// Method names of the ingress service.
const (
	MethodCreateUE                = "CreateUE"
	MethodReconfigureUE           = "ReconfigureUE"
	MethodDeleteUE                = "DeleteUE"
	MethodULBSRIndication         = "ULBSRIndication"
	MethodCRCIndication           = "CRCIndication"
	MethodUCIIndication           = "UCIIndication"
	MethodDLMACCEIndication       = "DLMACCEIndication"
	MethodDLBufferStateIndication = "DLBufferStateIndication"
)

// Scheduler is the producer side of the event manager.
type Scheduler interface {
	HandleUECreationRequest(ctx context.Context, req *model.UECreationRequest) error
	HandleUEReconfigurationRequest(ctx context.Context, req *model.UEReconfigurationRequest) error
	HandleUEDeletionRequest(ctx context.Context, ueIndex model.UEIndex) error
	HandleULBSRIndication(ind *model.ULBSRIndication) error
	HandleCRCIndication(ind *model.CRCIndication) error
	HandleUCIIndication(ind *model.UCIIndication) error
	HandleDLMACCEIndication(ind *model.DLMACCEIndication) error
	HandleDLBufferStateIndication(ind *model.DLBufferStateIndication) error
}

// FeedbackCounter counts accepted feedback PDUs per kind.
type FeedbackCounter interface {
	AddFeedbackPDUs(kind string, n int)
}

// IngressServer is the server API of the ingress service.
type IngressServer interface {
	CreateUE(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	ReconfigureUE(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	DeleteUE(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	ULBSRIndication(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	CRCIndication(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	UCIIndication(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	DLMACCEIndication(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	DLBufferStateIndication(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

type unaryCall func(IngressServer, context.Context, *structpb.Struct) (*emptypb.Empty, error)

func methodDesc(method string, call unaryCall) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(IngressServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(IngressServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc describes the ingress service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IngressServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc(MethodCreateUE, IngressServer.CreateUE),
		methodDesc(MethodReconfigureUE, IngressServer.ReconfigureUE),
		methodDesc(MethodDeleteUE, IngressServer.DeleteUE),
		methodDesc(MethodULBSRIndication, IngressServer.ULBSRIndication),
		methodDesc(MethodCRCIndication, IngressServer.CRCIndication),
		methodDesc(MethodUCIIndication, IngressServer.UCIIndication),
		methodDesc(MethodDLMACCEIndication, IngressServer.DLMACCEIndication),
		methodDesc(MethodDLBufferStateIndication, IngressServer.DLBufferStateIndication),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ransched/ingress/v1/ingress.proto",
}

// RegisterIngressServer registers srv on s.
func RegisterIngressServer(s grpc.ServiceRegistrar, srv IngressServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Service implements IngressServer on top of a Scheduler.
type Service struct {
	sched    Scheduler
	feedback FeedbackCounter
	log      logging.Logger
}

// NewService constructs a Service. counter may be nil.
func NewService(s Scheduler, counter FeedbackCounter, log logging.Logger) *Service {
	if log == nil {
		log = logging.Noop()
	}
	return &Service{sched: s, feedback: counter, log: log}
}

var empty = &emptypb.Empty{}

func (s *Service) CreateUE(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	var req model.UECreationRequest
	if err := decode(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	if err := s.sched.HandleUECreationRequest(ctx, &req); err != nil {
		s.logger(ctx).Warn(ctx, "UE creation rejected",
			logging.Int("ue_index", int(req.UEIndex)), logging.Err(err))
		return nil, ToStatusError(err)
	}
	s.logger(ctx).Info(ctx, "UE creation accepted",
		logging.Int("ue_index", int(req.UEIndex)), logging.String("crnti", req.CRNTI.String()))
	return empty, nil
}

func (s *Service) ReconfigureUE(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	var req model.UEReconfigurationRequest
	if err := decode(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	if err := s.sched.HandleUEReconfigurationRequest(ctx, &req); err != nil {
		return nil, ToStatusError(err)
	}
	return empty, nil
}

type deleteUERequest struct {
	UEIndex *model.UEIndex `json:"ue_index"`
}

func (s *Service) DeleteUE(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	var req deleteUERequest
	if err := decode(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	if req.UEIndex == nil {
		return nil, ToStatusError(fmt.Errorf("%w: ue_index is required", ErrInvalidMessage))
	}
	if err := s.sched.HandleUEDeletionRequest(ctx, *req.UEIndex); err != nil {
		return nil, ToStatusError(err)
	}
	return empty, nil
}

func (s *Service) ULBSRIndication(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	var ind model.ULBSRIndication
	if err := decode(in, &ind); err != nil {
		return nil, ToStatusError(err)
	}
	if err := s.sched.HandleULBSRIndication(&ind); err != nil {
		return nil, ToStatusError(err)
	}
	s.count("bsr", 1)
	return empty, nil
}

func (s *Service) CRCIndication(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	var ind model.CRCIndication
	if err := decode(in, &ind); err != nil {
		return nil, ToStatusError(err)
	}
	if err := s.sched.HandleCRCIndication(&ind); err != nil {
		return nil, ToStatusError(err)
	}
	s.count("crc", len(ind.CRCs))
	return empty, nil
}

func (s *Service) UCIIndication(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	var ind model.UCIIndication
	if err := decode(in, &ind); err != nil {
		return nil, ToStatusError(err)
	}
	if err := s.sched.HandleUCIIndication(&ind); err != nil {
		return nil, ToStatusError(err)
	}
	s.count("uci", len(ind.UCIs))
	return empty, nil
}

func (s *Service) DLMACCEIndication(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	var ind model.DLMACCEIndication
	if err := decode(in, &ind); err != nil {
		return nil, ToStatusError(err)
	}
	if err := s.sched.HandleDLMACCEIndication(&ind); err != nil {
		return nil, ToStatusError(err)
	}
	s.count("mac_ce", 1)
	return empty, nil
}

func (s *Service) DLBufferStateIndication(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	var ind model.DLBufferStateIndication
	if err := decode(in, &ind); err != nil {
		return nil, ToStatusError(err)
	}
	if err := s.sched.HandleDLBufferStateIndication(&ind); err != nil {
		return nil, ToStatusError(err)
	}
	s.count("dl_bs", 1)
	return empty, nil
}

func (s *Service) count(kind string, n int) {
	if s.feedback != nil {
		s.feedback.AddFeedbackPDUs(kind, n)
	}
}

func (s *Service) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

// decode converts a Struct into dst through its JSON form. Unknown fields are
// rejected.
func decode(in *structpb.Struct, dst any) error {
	if in == nil {
		return fmt.Errorf("%w: empty request", ErrInvalidMessage)
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}

// encode is the inverse of decode, used by the client.
func encode(msg any) (*structpb.Struct, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}
