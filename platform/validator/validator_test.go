package validator

import "testing"

type sampleRequest struct {
	Email  string `json:"customerEmail" validate:"required,email"`
	Intent string `json:"intent" validate:"required,oneof=buy rent"`
}

func TestFieldErrorsUsesJSONNames(t *testing.T) {
	v := New()

	err := v.Struct(sampleRequest{Email: "not-an-email", Intent: "lease"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	fields := FieldErrors(err)
	if fields["customerEmail"] != "email" {
		t.Errorf("customerEmail rule = %q, want email", fields["customerEmail"])
	}
	if fields["intent"] != "oneof=buy rent" {
		t.Errorf("intent rule = %q, want oneof=buy rent", fields["intent"])
	}
}

func TestFieldErrorsIgnoresOtherErrors(t *testing.T) {
	if FieldErrors(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}
