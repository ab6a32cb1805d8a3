package database

import "errors"

var (
	ErrNotFound          = errors.New("record not found")
	ErrUnsupportedDBType = errors.New("unsupported database type")
	ErrInvalidRecord     = errors.New("invalid asset record")
	ErrDuplicate         = errors.New("asset id already recorded")
)
