// Package reporting turns raw ledger records into computed reports.
//
// Every builder is a pure function of its input: no I/O, no caching, no
// shared state. Callers fetch transactions, categories, budgets and month
// configs up front and pass them in. Builders return a complete report or
// one of the named validation errors below, never a partial report.
package reporting

import "errors"

var (
	ErrInvalidMode      = errors.New("invalid rollup mode")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrDuplicateBudget  = errors.New("more than one budget for the same category and month")
	ErrInvalidRange     = errors.New("date range ends before it starts")
	ErrRangeSpansMonths = errors.New("date range spans more than one month")
)
