package validate

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type sendParams struct {
	ChatID string `json:"chat_id" validate:"required"`
	Text   string `json:"text"    validate:"required,max=10"`
	Limit  int    `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	Secret string `json:"-"       validate:"omitempty,min=2"`
}

func TestCheck(t *testing.T) {
	testCases := []struct {
		name      string
		val       sendParams
		expFields []string
	}{
		{
			name: "Valid",
			val:  sendParams{ChatID: "123", Text: "hi"},
		},
		{
			name:      "Missing required",
			val:       sendParams{},
			expFields: []string{"chat_id", "text"},
		},
		{
			name:      "Too long",
			val:       sendParams{ChatID: "123", Text: "this is far too long"},
			expFields: []string{"text"},
		},
		{
			name:      "Out of range",
			val:       sendParams{ChatID: "123", Text: "hi", Limit: 101},
			expFields: []string{"limit"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Check(tc.val)

			if tc.expFields == nil {
				if err != nil {
					t.Errorf("exp nil err, got: %v", err)
				}
				return
			}

			var fe FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("exp FieldErrors, got: %T %v", err, err)
			}
			if diff := cmp.Diff(tc.expFields, fe.Fields()); diff != "" {
				t.Errorf("unexpected fields (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFieldErrors_Error(t *testing.T) {
	fe := FieldErrors{
		{Field: "chat_id", Err: "This field is required"},
		{Field: "text", Err: "text must be a maximum of 10 characters in length"},
	}

	exp := "chat_id: This field is required; text: text must be a maximum of 10 characters in length"
	if got := fe.Error(); got != exp {
		t.Errorf("exp %q, got %q", exp, got)
	}
}

func TestCheck_RequiredMessage(t *testing.T) {
	err := Check(sendParams{Text: "hi"})

	var fe FieldErrors
	if !errors.As(err, &fe) || len(fe) != 1 {
		t.Fatalf("exp one field error, got: %v", err)
	}
	if fe[0].Err != "This field is required" {
		t.Errorf("exp required message, got %q", fe[0].Err)
	}
}
