// Package http provides the JSON API server and its handlers.
//
// This file implements the query, path and body parsing shared by the
// handlers. Every parse failure wraps errBadRequest.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cashflow/internal/core"
	"cashflow/internal/ledger"
	"cashflow/internal/reporting"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// ParseMonthParam reads a YYYY-MM parameter, defaulting to the month of now.
func ParseMonthParam(query url.Values, key string, now time.Time) (core.Month, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.MonthOf(now), nil
	}
	m, err := core.ParseMonth(v)
	if err != nil {
		return core.Month{}, fmt.Errorf("%w: %s: %w", errBadRequest, key, err)
	}
	return m, nil
}

// ParseDateParam reads a required YYYY-MM-DD parameter.
func ParseDateParam(query url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.Date{}, fmt.Errorf("%w: missing %s", errBadRequest, key)
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %s: %w", errBadRequest, key, err)
	}
	return d, nil
}

// ParseOptionalDateParam reads a YYYY-MM-DD parameter; absence yields nil.
func ParseOptionalDateParam(query url.Values, key string) (*core.Date, error) {
	if strings.TrimSpace(query.Get(key)) == "" {
		return nil, nil
	}
	d, err := ParseDateParam(query, key)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ParseIDParam reads an optional positive integer id; absence yields nil.
func ParseIDParam(query url.Values, key string) (*int64, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, key)
	}
	return &id, nil
}

// ParseModeParam reads the rollup mode; absence is leaf.
func ParseModeParam(query url.Values) (reporting.Mode, error) {
	m, err := reporting.ParseMode(query.Get("mode"))
	if err != nil {
		return reporting.Leaf, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return m, nil
}

// ParseTransactionFilter builds a list filter from month or from/to, account,
// category and limit parameters. An explicit range wins over month.
func ParseTransactionFilter(query url.Values) (ledger.TransactionFilter, error) {
	var f ledger.TransactionFilter
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := core.ParseMonth(v)
		if err != nil {
			return f, fmt.Errorf("%w: month: %w", errBadRequest, err)
		}
		f = ledger.MonthFilter(m)
	}
	from, err := ParseOptionalDateParam(query, "from")
	if err != nil {
		return f, err
	}
	if from != nil {
		f.From = *from
	}
	to, err := ParseOptionalDateParam(query, "to")
	if err != nil {
		return f, err
	}
	if to != nil {
		f.To = *to
	}
	if f.AccountID, err = ParseIDParam(query, "account"); err != nil {
		return f, err
	}
	if f.CategoryID, err = ParseIDParam(query, "category"); err != nil {
		return f, err
	}
	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("%w: limit must be a non-negative integer", errBadRequest)
		}
		f.Limit = n
	}
	return f, nil
}

// PathID reads the {id} wildcard of the matched route.
func PathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, r.PathValue("id"))
	}
	return id, nil
}

// DecodeJSON reads one JSON object into v, rejecting unknown fields,
// trailing data and bodies over maxBodyBytes.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON object", errBadRequest)
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
