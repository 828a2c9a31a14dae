package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique column already holds the value.
	ErrDuplicate = errors.New("record already exists")
	// ErrMissingTable is returned when the schema has not been migrated.
	ErrMissingTable = errors.New("table does not exist")
	// ErrPermission is returned when the database role may not touch the table.
	ErrPermission = errors.New("permission denied")
)

// translate maps driver specific failures onto the store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Join(ErrDuplicate, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"),
		strings.Contains(msg, "duplicate key value"),
		strings.Contains(msg, "sqlstate 23505"):
		return errors.Join(ErrDuplicate, err)
	case strings.Contains(msg, "no such table"),
		strings.Contains(msg, "sqlstate 42p01"),
		strings.Contains(msg, "does not exist") && strings.Contains(msg, "relation"):
		return errors.Join(ErrMissingTable, err)
	case strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "sqlstate 42501"):
		return errors.Join(ErrPermission, err)
	}

	return err
}
