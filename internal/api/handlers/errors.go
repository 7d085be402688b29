package handlers

import (
	"errors"
	"net/http"

	"stocksync/internal/apperrors"
	"stocksync/internal/events"
	"stocksync/internal/repository"
	"stocksync/internal/services/catalogsync"
	"stocksync/internal/services/clover"
)

// toAppError maps service errors to the status and message the caller sees.
func toAppError(err error) *apperrors.Error {
	var authErr *clover.AuthExchangeError
	var remoteErr *clover.RemoteCatalogError

	switch {
	case errors.Is(err, catalogsync.ErrNotConfigured):
		return apperrors.New(http.StatusInternalServerError, "Clover integration is not configured", err)

	case errors.As(err, &authErr):
		if authErr.Status >= 400 && authErr.Status < 500 {
			msg := "Clover authorization failed"
			if authErr.Reason != "" {
				msg += ": " + authErr.Reason
			}
			return apperrors.BadRequest(msg, err)
		}
		return apperrors.BadGateway("Failed to exchange authorization code", err)

	case errors.Is(err, catalogsync.ErrInvalidState),
		errors.Is(err, catalogsync.ErrMissingMerchant),
		errors.Is(err, catalogsync.ErrInvalidSession),
		errors.Is(err, catalogsync.ErrNotConnected),
		errors.Is(err, catalogsync.ErrLocationRequired),
		errors.Is(err, catalogsync.ErrInvalidDirection),
		errors.Is(err, catalogsync.ErrUnknownRequest):
		return apperrors.BadRequest(err.Error(), err)

	case errors.Is(err, catalogsync.ErrLocationNotFound):
		return apperrors.NotFound("Location not found", err)

	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("Not found", err)

	case errors.Is(err, catalogsync.ErrSyncInProgress):
		return apperrors.Conflict(err.Error(), err)

	case errors.Is(err, events.ErrAsyncUnavailable):
		return apperrors.New(http.StatusServiceUnavailable, "Background sync is not available", err)

	case errors.Is(err, clover.ErrPageLimitExceeded):
		return apperrors.BadGateway("Clover catalog is too large to import", err)

	case errors.As(err, &remoteErr):
		return apperrors.BadGateway("Clover request failed", err)

	default:
		return apperrors.As(err)
	}
}
