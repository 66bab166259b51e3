// Package http provides HTTP server and handler implementations.
//
// This file turns query strings and request bodies into report filters and
// titles.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"caixa/internal/core"
)

// MaxImportBytes bounds the body of a title import.
const MaxImportBytes = 32 << 20

// ParseFilter reads the report selection from query parameters. Missing
// parameters stay zero so the service fills its defaults.
//
// accounts and projects are comma separated and may repeat. Empty account
// ids are dropped; an empty project id selects unassigned titles, so
// "projects=" alone asks for those only.
func ParseFilter(query url.Values) (core.Filter, error) {
	var f core.Filter

	f.AccountIDs = splitList(query["accounts"], false)
	if _, ok := query["projects"]; ok {
		f.ProjectIDs = splitList(query["projects"], true)
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1900 || y > 9999 {
			return core.Filter{}, fmt.Errorf("invalid year %q", v)
		}
		f.Year = y
	}
	if v := strings.TrimSpace(query.Get("granularity")); v != "" {
		f.Granularity = core.Granularity(strings.ToLower(v))
		if err := f.Granularity.Validate(); err != nil {
			return core.Filter{}, fmt.Errorf("granularity %q: %w", v, err)
		}
	}
	if v := strings.TrimSpace(query.Get("projection")); v != "" {
		f.Projection = core.Projection(strings.ToLower(v))
		if err := f.Projection.Validate(); err != nil {
			return core.Filter{}, fmt.Errorf("projection %q: %w", v, err)
		}
	}
	if v := strings.TrimSpace(query.Get("now")); v != "" {
		p, err := core.ParsePeriodKey(v)
		if err != nil || p.Month == 0 {
			return core.Filter{}, fmt.Errorf("invalid now %q: want MM-YYYY", v)
		}
		f.Now = p
	}
	return f, nil
}

func splitList(values []string, keepEmpty bool) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = sanitizeInput(part)
			if part == "" && !keepEmpty {
				continue
			}
			out = append(out, part)
		}
	}
	return out
}

// DecodeTitles reads a JSON array of titles, or an object with a "titles"
// array.
func DecodeTitles(r io.Reader) ([]core.Title, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxImportBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > MaxImportBytes {
		return nil, errors.New("request body too large")
	}
	body = []byte(strings.TrimSpace(string(body)))
	if len(body) == 0 {
		return nil, errors.New("empty request body")
	}

	var titles []core.Title
	if body[0] == '{' {
		var wrapped struct {
			Titles []core.Title `json:"titles"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("decode titles: %w", err)
		}
		titles = wrapped.Titles
	} else if err := json.Unmarshal(body, &titles); err != nil {
		return nil, fmt.Errorf("decode titles: %w", err)
	}

	for i, t := range titles {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("title %d: %w", i, err)
		}
	}
	return titles, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
