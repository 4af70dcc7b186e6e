package server

import (
	"git.appkode.ru/pub/go/failure"

	"trip_sentinel/internal/domain"
	"trip_sentinel/pkg/errcodes"
)

// asFailure переводит доменные коды в транспортные ошибки, которые reply.Error
// умеет раскладывать по HTTP-статусам.
func asFailure(err error) error {
	code, ok := domain.GetCode(err)
	if !ok {
		return err
	}

	switch code {
	case errcodes.DealNotFound, errcodes.AttemptNotFound, errcodes.NotFound:
		return failure.NewNotFoundError(err.Error(), failure.WithCode(code))
	case errcodes.InvalidDeal, errcodes.InvalidBudgetProfile, errcodes.ValidationError:
		return failure.NewInvalidArgumentError(err.Error(), failure.WithCode(code))
	case errcodes.DealExpired, errcodes.DealAlreadyTerminal, errcodes.BookingConflict:
		return failure.NewConflictError(err.Error(), failure.WithCode(code))
	default:
		return err
	}
}
