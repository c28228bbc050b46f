package interceptor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/metrics"
)

const requestIDKey = "x-request-id"

type LoggingInterceptor struct{}

func NewLoggingInterceptor() *LoggingInterceptor {
	return &LoggingInterceptor{}
}

// Unary returns a server interceptor that tags the context with a request id, logs every
// call, turns panics into codes.Internal and maps domain errors onto gRPC status codes.
func (i *LoggingInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		start := time.Now()
		ctx = logger.NewContext(ctx, "request_id", requestID(ctx), "rpc", info.FullMethod)

		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(ctx, "gRPC handler panicked", "panic", r)
				metrics.OperationErrorsTotal.WithLabelValues("grpc_panic").Inc()
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
			code := status.Code(err)
			if code == codes.OK || code == codes.NotFound || code == codes.InvalidArgument {
				logger.DebugContext(ctx, "gRPC call", "code", code.String(), "duration_ms", time.Since(start).Milliseconds())
			} else {
				logger.WarnContext(ctx, "gRPC call failed", "code", code.String(), "error", err, "duration_ms", time.Since(start).Milliseconds())
			}
		}()

		resp, err = handler(ctx, req)
		if err != nil {
			err = ToStatus(err)
		}
		return resp, err
	}
}

func requestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(requestIDKey); len(ids) > 0 && ids[0] != "" {
			return ids[0]
		}
	}
	return uuid.NewString()
}

// ToStatus converts a domain error into a gRPC status error. Errors that already carry a
// status are returned unchanged.
func ToStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrProductNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrOrderAlreadyReturned),
		errors.Is(err, domain.ErrIdempotencyKeyReused):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrInvalidReturnQuantity),
		errors.Is(err, domain.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
