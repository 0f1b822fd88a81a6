package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestParseIDs(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    []string
		wantErr bool
	}{
		{name: "single string", input: "m1", want: []string{"m1"}},
		{name: "array", input: []any{"m1", "m2"}, want: []string{"m1", "m2"}},
		{name: "string slice", input: []string{"m1"}, want: []string{"m1"}},
		{name: "duplicates dropped", input: []any{"m1", "m2", "m1"}, want: []string{"m1", "m2"}},
		{name: "nil", input: nil, wantErr: true},
		{name: "empty string", input: "", wantErr: true},
		{name: "empty array", input: []any{}, wantErr: true},
		{name: "empty item", input: []any{"m1", ""}, wantErr: true},
		{name: "non-string item", input: []any{"m1", 2.0}, wantErr: true},
		{name: "wrong type", input: 3.0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIDs(tt.input, "emailIds")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIDs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("ParseIDs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseIDs_TooMany(t *testing.T) {
	ids := make([]any, MaxItems+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%d", i)
	}
	if _, err := ParseIDs(ids, "emailIds"); err == nil {
		t.Error("expected error for too many ids")
	}
}

func TestProcess(t *testing.T) {
	summary := Process(context.Background(), []string{"m1", "bad", "m3"},
		func(_ context.Context, id string) (any, error) {
			if id == "bad" {
				return nil, errors.New("not found")
			}
			return "subject " + id, nil
		})

	if summary.Total != 3 || summary.Successful != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.Results[1].Status != StatusError || summary.Results[1].Error != "not found" {
		t.Errorf("unexpected failure result: %+v", summary.Results[1])
	}
	if summary.Results[2].Result != "subject m3" {
		t.Errorf("unexpected result: %+v", summary.Results[2])
	}
}

func TestProcess_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	summary := Process(ctx, []string{"m1", "m2"}, func(context.Context, string) (any, error) {
		calls++
		return nil, nil
	})
	if calls != 0 {
		t.Errorf("fn called %d times after cancel", calls)
	}
	if summary.Failed != 2 {
		t.Errorf("expected 2 failures, got %d", summary.Failed)
	}
}

func TestSummaryJSON(t *testing.T) {
	summary := Summary{
		Total:      1,
		Successful: 1,
		Results:    []Result{{ID: "m1", Status: StatusSuccess, Result: "ok"}},
	}

	var decoded Summary
	if err := json.Unmarshal([]byte(summary.JSON()), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Total != 1 || decoded.Results[0].ID != "m1" {
		t.Errorf("unexpected decoded summary: %+v", decoded)
	}
}
