package grpc

import (
	"errors"

	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/shopspring/decimal"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const errorDomain = "exchange"

func codeOf(kind domain.Kind) codes.Code {
	switch kind {
	case domain.KindValidation:
		return codes.InvalidArgument
	case domain.KindInsufficientFunds, domain.KindInsufficientLiquidity:
		return codes.FailedPrecondition
	case domain.KindNotFound:
		return codes.NotFound
	default:
		return codes.Internal
	}
}

// toStatus converts err to a gRPC status carrying an ErrorInfo with the
// error kind and, for shortfalls, the required and available amounts.
func toStatus(err error) error {
	var de *domain.Error
	if !errors.As(err, &de) {
		return status.Error(codes.Internal, "internal error")
	}
	st := status.New(codeOf(de.Kind), de.Error())
	info := &errdetails.ErrorInfo{Reason: string(de.Kind), Domain: errorDomain}
	if de.Kind == domain.KindInsufficientFunds || de.Kind == domain.KindInsufficientLiquidity {
		info.Metadata = map[string]string{
			"required":  de.Required.String(),
			"available": de.Available.String(),
		}
	}
	detailed, derr := st.WithDetails(info)
	if derr != nil {
		return st.Err()
	}
	return detailed.Err()
}

// FromStatus turns a status produced by the server back into a
// *domain.Error, so callers can use errors.Is against the domain sentinels.
// Other errors are returned unchanged.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != errorDomain {
			continue
		}
		de := &domain.Error{Kind: domain.Kind(info.GetReason()), Message: st.Message(), Cause: err}
		if v, ok := info.GetMetadata()["required"]; ok {
			de.Required, _ = decimal.NewFromString(v)
		}
		if v, ok := info.GetMetadata()["available"]; ok {
			de.Available, _ = decimal.NewFromString(v)
		}
		return de
	}
	return err
}
