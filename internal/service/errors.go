package service

import (
	"errors"

	"github.com/gdrocha-io/togglr-backend/internal/repository"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrConstraintViolation = repository.ErrConstraintViolation
)
