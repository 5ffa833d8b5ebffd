// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies why a reconciliation run failed.
type ErrorKind string

const (
	KindDescriptor    ErrorKind = "descriptor"
	KindConnection    ErrorKind = "connection"
	KindIntrospection ErrorKind = "introspection"
	KindDDL           ErrorKind = "ddl_execution"
)

// Sentinels for errors.Is; an *Error matches the sentinel of its Kind.
var (
	ErrDescriptor    = errors.New("invalid schema descriptor")
	ErrConnection    = errors.New("database connection failed")
	ErrIntrospection = errors.New("schema introspection failed")
	ErrDDL           = errors.New("ddl execution failed")
)

// Error is a reconciliation failure with enough context to diagnose it.
type Error struct {
	Kind      ErrorKind
	Table     string // empty if not table-specific
	Column    string // empty if not column-specific
	Statement string // the statement that failed, if any
	Err       error
}

func (e *Error) Error() string {
	var parts []string

	parts = append(parts, string(e.Kind))

	if e.Table != "" {
		target := e.Table
		if e.Column != "" {
			target += "." + e.Column
		}
		parts = append(parts, target)
	}

	if e.Statement != "" {
		parts = append(parts, fmt.Sprintf("statement %q", compact(e.Statement)))
	}

	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's Kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindDescriptor:
		return target == ErrDescriptor
	case KindConnection:
		return target == ErrConnection
	case KindIntrospection:
		return target == ErrIntrospection
	case KindDDL:
		return target == ErrDDL
	}
	return false
}

func connectionError(err error) *Error {
	return &Error{Kind: KindConnection, Err: err}
}

func introspectionError(table string, err error) *Error {
	return &Error{Kind: KindIntrospection, Table: table, Err: err}
}

func ddlError(table, column, stmt string, err error) *Error {
	return &Error{Kind: KindDDL, Table: table, Column: column, Statement: stmt, Err: err}
}

// compact collapses whitespace so multi-line DDL fits on one log line.
func compact(stmt string) string {
	return strings.Join(strings.Fields(stmt), " ")
}
