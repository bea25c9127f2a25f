package validator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type registration struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email,max=150"`
	Optional string
}

func TestValidator_ValidateStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name  string
		input interface{}
		want  []ValidationError
	}{
		{
			name: "Valid",
			input: registration{
				Name:  "Anna Petrova",
				Email: "anna@example.com",
			},
			want: nil,
		},
		{
			name:  "MissingRequired",
			input: registration{},
			want: []ValidationError{
				{Field: "Name", Message: "Name is required"},
				{Field: "Email", Message: "Email is required"},
			},
		},
		{
			name: "InvalidEmail",
			input: registration{
				Name:  "Anna Petrova",
				Email: "not-an-email",
			},
			want: []ValidationError{
				{Field: "Email", Message: "Email must be a valid email address"},
			},
		},
		{
			name: "TooLong",
			input: registration{
				Name:  string(make([]byte, 101)),
				Email: "anna@example.com",
			},
			want: []ValidationError{
				{Field: "Name", Message: "Name must be at most 100 characters"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.ValidateStruct(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ValidateStruct() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNew(t *testing.T) {
	v := New()
	if v == nil || v.cli == nil {
		t.Error("New() returned invalid validator")
	}
}
