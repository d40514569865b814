package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrConstraintViolation covers unique natural keys and referential
// constraints reported by the database.
var ErrConstraintViolation = errors.New("constraint violation")

// translate maps driver errors (already normalised by gorm's TranslateError)
// onto repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return errors.Join(ErrConstraintViolation, err)
	}
	return err
}

// PageRequest is a zero-based page window.
type PageRequest struct {
	Page int
	Size int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
	// MaxPage keeps Page*Size far from overflowing on any platform.
	MaxPage = 1_000_000
)

func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p PageRequest) Offset() int {
	return p.Page * p.Size
}
