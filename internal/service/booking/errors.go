package booking

import (
	"errors"
	"fmt"

	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/repository"
)

// Errors returned by the booking manager. All of them match with errors.Is.
var (
	ErrSlotTaken              = model.ErrSlotTaken
	ErrServiceInactive        = model.ErrServiceInactive
	ErrOutsideOperatingWindow = model.ErrOutsideOperatingWindow
	ErrNotFound               = model.ErrNotFound
	ErrNotOwner               = model.ErrNotOwner
	ErrAlreadyTerminal        = model.ErrAlreadyTerminal
	ErrTooLateToCancel        = model.ErrTooLateToCancel
	ErrInvalidTransition      = model.ErrInvalidTransition
	ErrForbidden              = model.ErrForbidden
	ErrInvalidInput           = model.ErrInvalidInput
)

// rejections are business outcomes, as opposed to infrastructure failures.
var rejections = []error{
	ErrSlotTaken, ErrServiceInactive, ErrOutsideOperatingWindow, ErrNotFound, ErrNotOwner,
	ErrAlreadyTerminal, ErrTooLateToCancel, ErrInvalidTransition, ErrForbidden, ErrInvalidInput,
}

func isRejection(err error) bool {
	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// notFound translates a repository miss into ErrNotFound for what.
func notFound(what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}
