package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/core"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/ocr"
)

const (
	ServiceName = "regatta.v1.ExtractionService"

	extractRegattaMethod       = "/" + ServiceName + "/ExtractRegatta"
	extractInvoiceMethod       = "/" + ServiceName + "/ExtractInvoiceAmount"
	extractRegattaStreamMethod = "/" + ServiceName + "/ExtractRegattaStream"

	// progress updates beyond this many unsent ones are dropped
	progressBuffer = 16
)

// ExtractionServer is the server API for regatta.v1.ExtractionService.
// Messages are google.protobuf.Struct carrying the JSON shapes of
// RegattaRequest, InvoiceRequest, core.RegattaResponse and core.InvoiceResponse.
type ExtractionServer interface {
	ExtractRegatta(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExtractInvoiceAmount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExtractRegattaStream(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

// StreamMessage is one message of ExtractRegattaStream: zero or more
// "progress" messages followed by exactly one "result".
type StreamMessage struct {
	Type     string                `json:"type"`
	Progress *ocr.Progress         `json:"progress,omitempty"`
	Result   *core.RegattaResponse `json:"result,omitempty"`
}

type ExtractionService struct {
	proc   Processor
	logger *slog.Logger
}

func NewExtractionService(proc Processor, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{proc: proc, logger: logger}
}

func (s *ExtractionService) ExtractRegatta(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeRegatta(in)
	if err != nil {
		return nil, err
	}
	resp := s.proc.ExtractRegatta(ctx, req.ToDomain(nil))
	s.logger.Info("grpc.extract_regatta", "job_id", resp.JobID, "cached", resp.Cached,
		"success", resp.Result.Success, "confidence", resp.Result.Confidence)
	return encodeStruct(resp)
}

func (s *ExtractionService) ExtractInvoiceAmount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req InvoiceRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	resp := s.proc.ExtractInvoice(ctx, req.PDFBase64, nil)
	s.logger.Info("grpc.extract_invoice", "job_id", resp.JobID, "cached", resp.Cached,
		"success", resp.Result.Success, "amount", resp.Result.Amount)
	return encodeStruct(resp)
}

// ExtractRegattaStream relays OCR progress while the extraction runs, then
// sends the result. Progress is advisory: when the client reads slower than
// pages are recognised, updates are dropped rather than stalling OCR.
func (s *ExtractionService) ExtractRegattaStream(in *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	req, err := decodeRegatta(in)
	if err != nil {
		return err
	}
	ctx := stream.Context()

	updates := make(chan ocr.Progress, progressBuffer)
	done := make(chan core.RegattaResponse, 1)
	go func() {
		progress := func(p ocr.Progress) {
			select {
			case updates <- p:
			default:
			}
		}
		done <- s.proc.ExtractRegatta(ctx, req.ToDomain(progress))
		close(updates)
	}()

	for p := range updates {
		if err := sendStream(stream, StreamMessage{Type: "progress", Progress: &p}); err != nil {
			s.logger.Warn("grpc.stream_send_failed", "error", err)
			return err
		}
	}
	resp := <-done
	s.logger.Info("grpc.extract_regatta_stream", "job_id", resp.JobID, "cached", resp.Cached,
		"success", resp.Result.Success)
	return sendStream(stream, StreamMessage{Type: "result", Result: &resp})
}

func sendStream(stream grpc.ServerStreamingServer[structpb.Struct], msg StreamMessage) error {
	out, err := encodeStruct(msg)
	if err != nil {
		return err
	}
	return stream.Send(out)
}

func decodeRegatta(in *structpb.Struct) (RegattaRequest, error) {
	var req RegattaRequest
	if err := decodeStruct(in, &req); err != nil {
		return req, err
	}
	req.Normalize()
	return req, req.Validate()
}

func decodeStruct(in *structpb.Struct, v any) error {
	if in == nil {
		return common.InvalidArgumentError("request body is required")
	}
	b, err := protojson.Marshal(in)
	if err != nil {
		return common.InvalidArgumentErrorf("unreadable request: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return common.InvalidArgumentErrorf("unreadable request: %v", err)
	}
	return nil
}

func encodeStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return out, nil
}

// RegisterExtractionService registers srv and a health service reporting
// SERVING for both the server and ServiceName.
func RegisterExtractionService(s grpc.ServiceRegistrar, srv ExtractionServer) *health.Server {
	s.RegisterService(&ExtractionServiceDesc, srv)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return hs
}

var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ExtractRegatta", Handler: extractRegattaHandler},
		{MethodName: "ExtractInvoiceAmount", Handler: extractInvoiceHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "ExtractRegattaStream", Handler: extractRegattaStreamHandler, ServerStreams: true},
	},
	Metadata: "regatta/v1/extraction.proto",
}

func extractRegattaHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractionServer).ExtractRegatta(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: extractRegattaMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExtractionServer).ExtractRegatta(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func extractInvoiceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractionServer).ExtractInvoiceAmount(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: extractInvoiceMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExtractionServer).ExtractInvoiceAmount(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func extractRegattaStreamHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ExtractionServer).ExtractRegattaStream(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// ExtractionClient calls regatta.v1.ExtractionService.
type ExtractionClient struct {
	cc grpc.ClientConnInterface
}

func NewExtractionClient(cc grpc.ClientConnInterface) *ExtractionClient {
	return &ExtractionClient{cc: cc}
}

func (c *ExtractionClient) ExtractRegatta(ctx context.Context, req RegattaRequest, opts ...grpc.CallOption) (core.RegattaResponse, error) {
	var resp core.RegattaResponse
	err := c.invoke(ctx, extractRegattaMethod, req, &resp, opts...)
	return resp, err
}

func (c *ExtractionClient) ExtractInvoiceAmount(ctx context.Context, req InvoiceRequest, opts ...grpc.CallOption) (core.InvoiceResponse, error) {
	var resp core.InvoiceResponse
	err := c.invoke(ctx, extractInvoiceMethod, req, &resp, opts...)
	return resp, err
}

// ExtractRegattaStream calls onProgress for every progress message and
// returns the final result.
func (c *ExtractionClient) ExtractRegattaStream(ctx context.Context, req RegattaRequest, onProgress ocr.ProgressFunc, opts ...grpc.CallOption) (core.RegattaResponse, error) {
	in, err := encodeStruct(req)
	if err != nil {
		return core.RegattaResponse{}, err
	}
	cs, err := c.cc.NewStream(ctx, &ExtractionServiceDesc.Streams[0], extractRegattaStreamMethod, opts...)
	if err != nil {
		return core.RegattaResponse{}, err
	}
	stream := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: cs}
	if err := stream.ClientStream.SendMsg(in); err != nil {
		return core.RegattaResponse{}, err
	}
	if err := stream.ClientStream.CloseSend(); err != nil {
		return core.RegattaResponse{}, err
	}
	for {
		out, err := stream.Recv()
		if err != nil {
			return core.RegattaResponse{}, err
		}
		var msg StreamMessage
		if err := decodeStruct(out, &msg); err != nil {
			return core.RegattaResponse{}, err
		}
		switch {
		case msg.Type == "progress" && msg.Progress != nil && onProgress != nil:
			onProgress(*msg.Progress)
		case msg.Type == "result" && msg.Result != nil:
			return *msg.Result, nil
		}
	}
}

func (c *ExtractionClient) invoke(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := encodeStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return err
	}
	return decodeStruct(out, resp)
}
