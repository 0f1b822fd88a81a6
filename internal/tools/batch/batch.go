package batch

import (
	"context"
	"encoding/json"
	"fmt"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// MaxItems bounds the number of ids a single call may carry.
const MaxItems = 25

// Result is the outcome for a single id.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Summary aggregates the results of a batch.
type Summary struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseIDs accepts a single id or an array of ids. Duplicates are dropped and
// order is preserved.
func ParseIDs(param any, paramName string) ([]string, error) {
	var raw []string
	switch v := param.(type) {
	case nil:
		return nil, fmt.Errorf("%s is required", paramName)
	case string:
		raw = []string{v}
	case []string:
		raw = v
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			raw = append(raw, s)
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	seen := make(map[string]struct{}, len(raw))
	ids := make([]string, 0, len(raw))
	for i, id := range raw {
		if id == "" {
			if len(raw) == 1 {
				return nil, fmt.Errorf("%s cannot be empty", paramName)
			}
			return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", paramName)
	}
	if len(ids) > MaxItems {
		return nil, fmt.Errorf("%s accepts at most %d ids, got %d", paramName, MaxItems, len(ids))
	}
	return ids, nil
}

// Process calls fn for each id in order. Once ctx is done the remaining ids
// fail with the context error without calling fn.
func Process(ctx context.Context, ids []string, fn func(ctx context.Context, id string) (any, error)) Summary {
	summary := Summary{Total: len(ids), Results: make([]Result, 0, len(ids))}
	for _, id := range ids {
		var (
			res any
			err = ctx.Err()
		)
		if err == nil {
			res, err = fn(ctx, id)
		}
		if err != nil {
			summary.Failed++
			summary.Results = append(summary.Results, Result{ID: id, Status: StatusError, Error: err.Error()})
			continue
		}
		summary.Successful++
		summary.Results = append(summary.Results, Result{ID: id, Status: StatusSuccess, Result: res})
	}
	return summary
}

// JSON renders the summary as indented JSON.
func (s Summary) JSON() string {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}
