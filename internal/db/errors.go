package db

import "errors"

// Sentinels callers match with errors.Is.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
)

// Command names recorded in Error.Op.
const (
	OpPing        = "PING"
	OpGet         = "GET"
	OpSet         = "SET"
	OpHSet        = "HSET"
	OpHGetAll     = "HGETALL"
	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
)

// Error is a backend failure annotated with the command that hit it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "db " + e.Op + ": " + e.Err.Error() }

// Unwrap exposes the backend error.
func (e *Error) Unwrap() error { return e.Err }
