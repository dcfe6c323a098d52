// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package validation

import (
	"strings"
	"testing"
)

type runRequest struct {
	Limit int      `json:"limit" validate:"omitempty,min=1,max=10000"`
	Users []string `json:"users" validate:"omitempty,max=3,unique,dive,user_key"`
	Mode  string   `json:"mode" validate:"omitempty,run_mode"`
	RunID string   `json:"run_id,omitempty" validate:"omitempty,uuid"`
	Note  string   `validate:"omitempty,max=5"`
}

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()

	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     runRequest
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{name: "empty request", input: runRequest{}},
		{
			name: "all fields valid",
			input: runRequest{
				Limit: 100,
				Users: []string{"alice", "bob"},
				Mode:  "candidate_set",
				RunID: "0b9e8c1e-5f2d-4d7b-9a34-2f1c0c9f6a11",
			},
		},
		{
			name:      "limit above maximum",
			input:     runRequest{Limit: 10001},
			wantField: "limit",
			wantTag:   "max",
			wantMsg:   "limit must be at most 10000",
		},
		{
			name:      "negative limit",
			input:     runRequest{Limit: -1},
			wantField: "limit",
			wantTag:   "min",
			wantMsg:   "limit must be at least 1",
		},
		{
			name:      "unknown mode",
			input:     runRequest{Mode: "popular"},
			wantField: "mode",
			wantTag:   "run_mode",
			wantMsg:   "mode must be candidate_set or user_subset",
		},
		{
			name:      "too many users",
			input:     runRequest{Users: []string{"a", "b", "c", "d"}},
			wantField: "users",
			wantTag:   "max",
			wantMsg:   "users must be at most 3 items",
		},
		{
			name:      "duplicate users",
			input:     runRequest{Users: []string{"alice", "alice"}},
			wantField: "users",
			wantTag:   "unique",
			wantMsg:   "users must not contain duplicates",
		},
		{
			name:      "blank user",
			input:     runRequest{Users: []string{" alice"}},
			wantField: "users[0]",
			wantTag:   "user_key",
		},
		{
			name:      "invalid run id",
			input:     runRequest{RunID: "not-a-uuid"},
			wantField: "run_id",
			wantTag:   "uuid",
		},
		{
			name:      "field without json tag uses struct name",
			input:     runRequest{Note: "too long"},
			wantField: "Note",
			wantTag:   "max",
			wantMsg:   "Note must be at most 5 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateStruct(&tt.input)
			if tt.wantTag == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if len(err.Errors()) != 1 {
				t.Fatalf("errors = %v, want exactly one", err.Errors())
			}
			fe := err.Errors()[0]
			if fe.Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", fe.Field(), tt.wantField)
			}
			if fe.Tag() != tt.wantTag {
				t.Errorf("Tag() = %q, want %q", fe.Tag(), tt.wantTag)
			}
			if tt.wantMsg != "" && fe.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", fe.Error(), tt.wantMsg)
			}
		})
	}
}

func TestRequestValidationError_ToAPIError(t *testing.T) {
	t.Parallel()

	t.Run("single error carries field details", func(t *testing.T) {
		t.Parallel()

		err := ValidateStruct(&runRequest{Limit: 20000})
		apiErr := err.ToAPIError()
		if apiErr.Code != ErrorCode {
			t.Errorf("Code = %q, want %q", apiErr.Code, ErrorCode)
		}
		if apiErr.Details["field"] != "limit" || apiErr.Details["tag"] != "max" {
			t.Errorf("Details = %v", apiErr.Details)
		}
		if apiErr.Details["value"] != 20000 {
			t.Errorf("Details[value] = %v, want 20000", apiErr.Details["value"])
		}
	})

	t.Run("multiple errors are listed", func(t *testing.T) {
		t.Parallel()

		err := ValidateStruct(&runRequest{Limit: 20000, Mode: "bogus"})
		apiErr := err.ToAPIError()
		fields, ok := apiErr.Details["fields"].([]map[string]interface{})
		if !ok || len(fields) != 2 {
			t.Fatalf("Details[fields] = %v, want two entries", apiErr.Details["fields"])
		}
		if !strings.Contains(apiErr.Message, "limit") || !strings.Contains(apiErr.Message, "mode") {
			t.Errorf("Message = %q, want both fields", apiErr.Message)
		}
	})

	t.Run("empty error", func(t *testing.T) {
		t.Parallel()

		ve := &RequestValidationError{}
		if ve.Error() != "validation failed" {
			t.Errorf("Error() = %q", ve.Error())
		}
		if got := ve.ToAPIError(); got.Code != ErrorCode || got.Details != nil {
			t.Errorf("ToAPIError() = %+v", got)
		}
	})
}

func TestValidateStruct_NonStruct(t *testing.T) {
	t.Parallel()

	err := ValidateStruct("not a struct")
	if err == nil {
		t.Fatal("expected error for non-struct input")
	}
	if err.Errors()[0].Field() != "unknown" {
		t.Errorf("Field() = %q, want unknown", err.Errors()[0].Field())
	}
}
