package receiver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/chirpwall/chirpwall/pkg/wire"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "chirpwall.v1.Board"

// ListMessagesRequest takes no arguments.
type ListMessagesRequest struct{}

// ListMessagesResponse carries every message in creation order.
type ListMessagesResponse struct {
	Messages []wire.Message `json:"messages"`
}

// CreateMessageRequest carries the fields of a new message.
type CreateMessageRequest struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

// BoardServer is the server side of chirpwall.v1.Board.
type BoardServer interface {
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	CreateMessage(context.Context, *CreateMessageRequest) (*wire.Message, error)
}

// RegisterBoardServer registers srv on s.
func RegisterBoardServer(s grpc.ServiceRegistrar, srv BoardServer) {
	s.RegisterService(&boardServiceDesc, srv)
}

var boardServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BoardServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListMessages", Handler: listMessagesHandler},
		{MethodName: "CreateMessage", Handler: createMessageHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chirpwall/v1/board",
}

func listMessagesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListMessagesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BoardServer).ListMessages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ListMessages"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BoardServer).ListMessages(ctx, req.(*ListMessagesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func createMessageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateMessageRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BoardServer).CreateMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/CreateMessage"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BoardServer).CreateMessage(ctx, req.(*CreateMessageRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// BoardClient calls chirpwall.v1.Board over an established connection.
type BoardClient struct {
	cc grpc.ClientConnInterface
}

// NewBoardClient returns a client using cc.
func NewBoardClient(cc grpc.ClientConnInterface) *BoardClient {
	return &BoardClient{cc: cc}
}

// ListMessages returns every message in creation order.
func (c *BoardClient) ListMessages(ctx context.Context, opts ...grpc.CallOption) (*ListMessagesResponse, error) {
	out := new(ListMessagesResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ListMessages", &ListMessagesRequest{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateMessage creates a message and returns it.
func (c *BoardClient) CreateMessage(ctx context.Context, in *CreateMessageRequest, opts ...grpc.CallOption) (*wire.Message, error) {
	out := new(wire.Message)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/CreateMessage", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
