package services

import (
	"errors"

	"github.com/shopfront/apiserver/internal/apperror"
	"github.com/shopfront/apiserver/internal/store"
)

// storeError maps repository errors onto application errors. Errors that
// already carry a kind pass through.
func storeError(err error, resource, action string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperror.New(apperror.KindNotFound, resource+" not found", err)
	case errors.Is(err, store.ErrDuplicate):
		return apperror.New(apperror.KindConflict, resource+" already exists", err)
	case errors.Is(err, store.ErrInUse):
		return apperror.New(apperror.KindConflict, resource+" is still in use", err)
	}
	return apperror.Internal("failed to "+action+" "+resource, err)
}
