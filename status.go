package rulefilter

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/rulefilter/rule"
)

// Status converts a filtering error into a gRPC status error, for
// embedders serving filters over Arrow Flight. Nil stays nil.
//
//	out, err := f.Filter(ctx, ds, req.Rule)
//	if err != nil {
//	    return rulefilter.Status(err)
//	}
func Status(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(Code(err), err.Error())
}

// Code returns the gRPC code for a filtering error.
func Code(err error) codes.Code {
	switch rule.KindOf(err) {
	case rule.KindStructural, rule.KindOperator, rule.KindLiteral:
		return codes.InvalidArgument
	case rule.KindReference:
		return codes.NotFound
	}
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	return codes.Internal
}
