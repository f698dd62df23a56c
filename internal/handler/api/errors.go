package api

import (
	"context"

	"ShapeFinder/internal/domain/models"
	xhttp "ShapeFinder/pkg/http"
)

// pipelineErrors maps pipeline and store errors onto HTTP errors. Messages
// keep the wrapped context, which names the offending series or column.
var pipelineErrors = xhttp.ErrorMap{
	{Target: models.ErrSeriesNotFound, Build: xhttp.NotFoundError},
	{Target: models.ErrInsufficientData, Build: xhttp.UnprocessableError},
	{Target: models.ErrEmptyCandidateSet, Build: xhttp.UnprocessableError},
	{Target: models.ErrNoDateColumnFound, Build: xhttp.BadRequestError},
	{Target: models.ErrUnknownColumn, Build: xhttp.BadRequestError},
	{Target: models.ErrEmptySeries, Build: xhttp.BadRequestError},
	{Target: models.ErrInvalidSeriesName, Build: xhttp.BadRequestError},
	{Target: models.ErrInvalidNeighborCount, Build: xhttp.BadRequestError},
	{Target: models.ErrInvalidPeriod, Build: xhttp.BadRequestError},
	{Target: models.ErrLengthMismatch, Build: xhttp.BadRequestError},
	{Target: context.DeadlineExceeded, Build: func(string) *xhttp.AppError {
		return xhttp.ServiceUnavailableError("matching timed out")
	}},
}

func toAppError(err error) *xhttp.AppError {
	return pipelineErrors.Resolve(err)
}
