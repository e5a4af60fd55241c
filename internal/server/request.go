package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/core"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/regatta-tracker/internal/regatta"
)

// Processor is satisfied by *core.Processor.
type Processor interface {
	ExtractRegatta(ctx context.Context, req regatta.Request) core.RegattaResponse
	ExtractInvoice(ctx context.Context, pdfBase64 string, progress ocr.ProgressFunc) core.InvoiceResponse
}

// base64 inflates by 4/3; leave room for a data: URL prefix.
const maxPayloadChars = constants.MaxDocumentBytes/3*4 + 256

// RegattaRequest is the wire form of regatta.Request shared by gRPC and HTTP.
type RegattaRequest struct {
	PDFBase64  string `json:"pdfBase64"`
	SailNumber string `json:"sailNumber"`
	SailorName string `json:"sailorName,omitempty"`
	BoatClass  string `json:"boatClass,omitempty"`
}

// InvoiceRequest is the wire form of an invoice amount request.
type InvoiceRequest struct {
	PDFBase64 string `json:"pdfBase64"`
}

// Normalize trims the free-text fields.
func (r *RegattaRequest) Normalize() {
	r.SailNumber = strings.TrimSpace(r.SailNumber)
	r.SailorName = strings.TrimSpace(r.SailorName)
	r.BoatClass = strings.TrimSpace(r.BoatClass)
}

// Validate returns an InvalidArgument status listing every failed field.
func (r RegattaRequest) Validate() error {
	v := common.NewValidator().
		Field("pdfBase64", r.PDFBase64, common.Required, payloadSize, common.Base64).
		Field("sailNumber", r.SailNumber, common.Required, common.SailNumber).
		Field("sailorName", r.SailorName, common.MaxLen(200)).
		Field("boatClass", r.BoatClass, common.MaxLen(100))
	return common.ValidateAndReturnError(v)
}

func (r RegattaRequest) ToDomain(progress ocr.ProgressFunc) regatta.Request {
	return regatta.Request{
		PDFBase64:  r.PDFBase64,
		SailNumber: r.SailNumber,
		Context:    regatta.Enrichment{SailorName: r.SailorName, BoatClass: r.BoatClass},
		Progress:   progress,
	}
}

func (r InvoiceRequest) Validate() error {
	v := common.NewValidator().
		Field("pdfBase64", r.PDFBase64, common.Required, payloadSize, common.Base64)
	return common.ValidateAndReturnError(v)
}

// payloadSize keeps the payload itself out of the error message.
func payloadSize(fieldName string, value interface{}) *common.ValidationError {
	if s, _ := value.(string); len(s) > maxPayloadChars {
		return &common.ValidationError{
			Field:   fieldName,
			Value:   "<binary>",
			Message: fmt.Sprintf("must decode to at most %d MiB", constants.MaxDocumentBytes>>20),
		}
	}
	return nil
}

// toStatus maps repository and validation errors onto gRPC status errors.
// Errors that already carry a status pass through.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, common.ErrNotFound):
		return common.NotFoundError(err.Error())
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		return common.InvalidArgumentError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return common.InternalError(err.Error())
	}
}

func httpStatus(err error) int {
	switch status.Code(toStatus(err)) {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Canceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}
