package mongo

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/soundledger/royalty-service/internal/core/domain"
)

const (
	labelTransientTransaction = "TransientTransactionError"
	labelUnknownCommitResult  = "UnknownTransactionCommitResult"
)

// mapError classifies driver failures into the domain taxonomy. Domain errors
// returned from transaction callbacks pass through unchanged.
func mapError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case domain.IsKnown(err):
		return err
	case mongo.IsDuplicateKeyError(err):
		return &classifiedError{op: op, class: domain.ErrConflict, cause: err}
	case isTransient(err):
		return &classifiedError{op: op, class: domain.ErrTransient, cause: err}
	default:
		return errors.Wrap(err, op)
	}
}

// classifiedError matches its domain class with errors.Is. Unwrap must return
// the driver error alone: WithTransaction follows single-error Unwrap calls to
// find the TransientTransactionError label before retrying a callback.
type classifiedError struct {
	op    string
	class error
	cause error
}

func (e *classifiedError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.op, e.class, e.cause)
}

func (e *classifiedError) Unwrap() error { return e.cause }

func (e *classifiedError) Is(target error) bool { return target == e.class }

func isTransient(err error) bool {
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) {
		return labeled.HasErrorLabel(labelTransientTransaction) ||
			labeled.HasErrorLabel(labelUnknownCommitResult)
	}
	return false
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, errors.Wrapf(domain.ErrValidation, "amount %s out of range", d)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "decode decimal %s", v)
	}
	return d, nil
}
