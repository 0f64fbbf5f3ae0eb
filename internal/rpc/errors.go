package rpc

import (
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
)

// ErrorDomain is the ErrorInfo domain of gate check errors.
const ErrorDomain = "gatecheck.onsiteclub"

// grpcCodes maps wire error codes to gRPC status codes.
var grpcCodes = map[string]codes.Code{
	model.CodeInvalidTransition:    codes.InvalidArgument,
	model.CodeInvalidResult:        codes.InvalidArgument,
	model.CodeInvalidInput:         codes.InvalidArgument,
	model.CodeAlreadyInProgress:    codes.AlreadyExists,
	model.CodeGateCheckClosed:      codes.FailedPrecondition,
	model.CodeIncompleteChecklist:  codes.FailedPrecondition,
	model.CodeDeficiencyLinkFailed: codes.Unavailable,
	model.CodeNotFound:             codes.NotFound,
}

// StatusError converts a service error into a gRPC status error. Errors in
// the gate check taxonomy carry an ErrorInfo detail whose Reason is the
// upper-case wire code; anything else becomes codes.Internal.
func StatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := model.ErrorCode(err)
	c, ok := grpcCodes[code]
	if !ok {
		return status.Error(codes.Internal, err.Error())
	}
	st := status.New(c, err.Error())
	withInfo, derr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: strings.ToUpper(code),
		Domain: ErrorDomain,
	})
	if derr != nil {
		return st.Err()
	}
	return withInfo.Err()
}

// Error is a gate check error received over gRPC. It unwraps to the matching
// model sentinel so errors.Is works on the client side.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return model.ErrorForCode(e.Code)
}

// FromStatusError converts a gRPC status error back into an *Error when it
// carries a gate check ErrorInfo. Other errors are returned unchanged.
func FromStatusError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if ok && info.GetDomain() == ErrorDomain {
			return &Error{Code: strings.ToLower(info.GetReason()), Message: st.Message()}
		}
	}
	return err
}
