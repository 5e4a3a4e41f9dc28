package ingress

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/signalsfoundry/ransched/model"
)

// Client is a typed client for the ingress service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, msg any, opts ...grpc.CallOption) error {
	in, err := encode(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, new(emptypb.Empty), opts...)
}

func (c *Client) CreateUE(ctx context.Context, req *model.UECreationRequest, opts ...grpc.CallOption) error {
	return c.invoke(ctx, MethodCreateUE, req, opts...)
}

func (c *Client) ReconfigureUE(ctx context.Context, req *model.UEReconfigurationRequest, opts ...grpc.CallOption) error {
	return c.invoke(ctx, MethodReconfigureUE, req, opts...)
}

func (c *Client) DeleteUE(ctx context.Context, idx model.UEIndex, opts ...grpc.CallOption) error {
	return c.invoke(ctx, MethodDeleteUE, deleteUERequest{UEIndex: &idx}, opts...)
}

func (c *Client) ULBSRIndication(ctx context.Context, ind *model.ULBSRIndication, opts ...grpc.CallOption) error {
	return c.invoke(ctx, MethodULBSRIndication, ind, opts...)
}

func (c *Client) CRCIndication(ctx context.Context, ind *model.CRCIndication, opts ...grpc.CallOption) error {
	return c.invoke(ctx, MethodCRCIndication, ind, opts...)
}

func (c *Client) UCIIndication(ctx context.Context, ind *model.UCIIndication, opts ...grpc.CallOption) error {
	return c.invoke(ctx, MethodUCIIndication, ind, opts...)
}

func (c *Client) DLMACCEIndication(ctx context.Context, ind *model.DLMACCEIndication, opts ...grpc.CallOption) error {
	return c.invoke(ctx, MethodDLMACCEIndication, ind, opts...)
}

func (c *Client) DLBufferStateIndication(ctx context.Context, ind *model.DLBufferStateIndication, opts ...grpc.CallOption) error {
	return c.invoke(ctx, MethodDLBufferStateIndication, ind, opts...)
}
