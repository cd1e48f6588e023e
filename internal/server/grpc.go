package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/labex-extractor/internal/common"
	"github.com/joseph-ayodele/labex-extractor/internal/ingest"
	"github.com/joseph-ayodele/labex-extractor/internal/pipeline"
)

const (
	ExtractionServiceName = "labreport.v1.ExtractionService"
	ExtractFullMethod     = "/" + ExtractionServiceName + "/Extract"

	// FilenameMetadataKey carries the uploaded file name; it selects the report family.
	FilenameMetadataKey = "x-filename"
	defaultFilename     = "upload.pdf"
)

// ExtractionServer takes raw PDF bytes and answers with the extraction
// result as a Struct: job_id, deduplicated and the serialized result fields.
type ExtractionServer interface {
	Extract(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error)
}

// ExtractionServiceDesc registers an ExtractionServer without generated stubs;
// both messages are well-known protobuf types.
var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: ExtractionServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: extractHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "labreport/v1/extraction.proto",
}

func extractHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractionServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExtractFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExtractionServer).Extract(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ExtractionService stages the uploaded bytes and runs them through the processor.
type ExtractionService struct {
	stager    *ingest.Stager
	processor *pipeline.Processor
	logger    *slog.Logger
}

func NewExtractionService(stager *ingest.Stager, proc *pipeline.Processor, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{stager: stager, processor: proc, logger: logger}
}

func (s *ExtractionService) Extract(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error) {
	if len(in.GetValue()) == 0 {
		s.logger.Error("extract request without content")
		return nil, status.Error(codes.InvalidArgument, "value must hold the PDF bytes")
	}
	filename := defaultFilename
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(FilenameMetadataKey); len(v) > 0 && strings.TrimSpace(v[0]) != "" {
			filename = strings.TrimSpace(v[0])
		}
	}

	staged, err := s.stager.Stage(ctx, filename, bytes.NewReader(in.GetValue()))
	if err != nil {
		s.logger.Error("staging failed", "filename", filename, "error", err)
		return nil, common.ToStatus(err)
	}

	out, err := s.processor.ProcessFile(ctx, staged.Path, staged.Filename)
	if err != nil {
		s.logger.Error("extraction failed", "filename", staged.Filename, "job_id", out.JobID, "error", err)
		return nil, common.ToStatus(err)
	}

	b, err := json.Marshal(out.Result)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "marshal result: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, status.Errorf(codes.Internal, "decode result: %v", err)
	}
	fields["job_id"] = out.JobID.String()
	fields["deduplicated"] = out.Deduplicated

	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	s.logger.Info("extract served", "filename", staged.Filename, "job_id", out.JobID, "deduplicated", out.Deduplicated)
	return resp, nil
}

// RegisterGRPC mounts the extraction service and the standard health service.
func RegisterGRPC(s *grpc.Server, svc ExtractionServer) *health.Server {
	s.RegisterService(&ExtractionServiceDesc, svc)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ExtractionServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return hs
}

// CallExtract is the client side of ExtractFullMethod.
func CallExtract(ctx context.Context, cc grpc.ClientConnInterface, filename string, pdf []byte, opts ...grpc.CallOption) (*structpb.Struct, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, FilenameMetadataKey, filename)
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, ExtractFullMethod, wrapperspb.Bytes(pdf), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
