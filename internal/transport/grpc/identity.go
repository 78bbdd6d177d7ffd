package transportgrpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
	"github.com/ndk123-web/backend-structure/internal/usecase"
)

const (
	// IdentityServiceName is the fully qualified gRPC service name.
	IdentityServiceName = "videotube.identity.v1.IdentityService"
	// WhoAmIMethod resolves the caller of an authenticated request.
	WhoAmIMethod = "/" + IdentityServiceName + "/WhoAmI"
)

// IdentityService lets internal content services resolve the user behind a
// forwarded access token. The messages are protobuf well-known types, so
// callers need no generated stubs.
type IdentityService interface {
	WhoAmI(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// IdentityServer implements IdentityService on top of the auth interceptor.
type IdentityServer struct {
	logger *zap.Logger
}

// NewIdentityServer constructs an IdentityServer.
func NewIdentityServer(logger *zap.Logger) *IdentityServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityServer{logger: logger}
}

// WhoAmI returns the sanitized identity attached by the auth interceptor.
func (s *IdentityServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	identity, ok := usecase.IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	resp, err := structpb.NewStruct(identityFields(identity))
	if err != nil {
		s.logger.Error("failed to encode identity", zap.String("identity_id", identity.ID), zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to encode identity")
	}
	return resp, nil
}

func identityFields(identity domain.Identity) map[string]any {
	return map[string]any{
		"id":          identity.ID,
		"username":    identity.Username,
		"email":       identity.Email,
		"fullname":    identity.FullName,
		"avatar":      identity.Avatar,
		"cover_image": identity.CoverImage,
		"created_at":  identity.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":  identity.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// RegisterIdentityServiceServer registers srv on s.
func RegisterIdentityServiceServer(s grpc.ServiceRegistrar, srv IdentityService) {
	s.RegisterService(&identityServiceDesc, srv)
}

// WhoAmI calls the identity service over conn.
func WhoAmI(ctx context.Context, conn grpc.ClientConnInterface, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, WhoAmIMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

var identityServiceDesc = grpc.ServiceDesc{
	ServiceName: IdentityServiceName,
	HandlerType: (*IdentityService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "WhoAmI", Handler: whoAmIHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "videotube/identity/v1/identity.proto",
}

func whoAmIHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IdentityService).WhoAmI(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: WhoAmIMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IdentityService).WhoAmI(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
