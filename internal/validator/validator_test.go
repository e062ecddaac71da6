package validator

import (
	"errors"
	"testing"
)

func TestNew_CompilesAllSchemas(t *testing.T) {
	v := MustNew()
	for _, name := range []string{
		CreateTask, SubmitTask, ApproveTask, RequestCancellation, ApproveCancellation,
		OpenDispute, ResolveDispute, WalletAmount, BanUser,
	} {
		if _, ok := v.schemas[name]; !ok {
			t.Errorf("schema %q not loaded", name)
		}
	}
}

func TestValidate(t *testing.T) {
	v := MustNew()

	cases := []struct {
		name   string
		schema string
		body   string
		valid  bool
	}{
		{"job ok", CreateTask, `{"type":"job","title":"Landing page","price":5000}`, true},
		{"gig with category", CreateTask, `{"type":"gig","title":"Voiceover","category":"audio","price":1}`, true},
		{"zero price", CreateTask, `{"type":"job","title":"Landing page","price":0}`, false},
		{"fractional price", CreateTask, `{"type":"job","title":"Landing page","price":10.5}`, false},
		{"unknown type", CreateTask, `{"type":"contest","title":"Landing page","price":10}`, false},
		{"extra field", CreateTask, `{"type":"job","title":"Landing page","price":10,"status":"completed"}`, false},
		{"rating ok", ApproveTask, `{"rating":5,"review":"great"}`, true},
		{"rating too high", ApproveTask, `{"rating":6}`, false},
		{"refund pct ok", ApproveCancellation, `{"refund_percentage":60}`, true},
		{"refund pct above 100", ApproveCancellation, `{"refund_percentage":101}`, false},
		{"dispute without reason", OpenDispute, `{"description":"x"}`, false},
		{"too many attachments", OpenDispute, `{"reason":"x","attachments":["a","b","c","d","e","f"]}`, false},
		{"negative amount", WalletAmount, `{"amount":-5}`, false},
		{"submission ok", SubmitTask, `{"submission_ref":"s3://bucket/file.zip"}`, true},
		{"not json", SubmitTask, `{`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.schema, []byte(tc.body))
			if tc.valid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.valid && !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	v := MustNew()
	err := v.Validate("nope", []byte(`{}`))
	if err == nil || errors.Is(err, ErrValidation) {
		t.Fatalf("expected a non-validation error, got %v", err)
	}
}
