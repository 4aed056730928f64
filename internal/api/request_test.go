package api

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecodeRequest(t *testing.T) {
	t.Parallel()

	req, err := decodeRequest([]byte(`{"items":[{"text":"EPS up 12%"},{"text":""}]}`))
	if err != nil {
		t.Fatalf("decodeRequest() error = %v", err)
	}
	if got, want := req.Texts(), []string{"EPS up 12%", ""}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Texts() = %q, want %q", got, want)
	}
}

func TestDecodeRequestErrorsAreInvalidRequest(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "[1", `{"items":[{"text":1}]}`} {
		_, err := decodeRequest([]byte(body))
		if !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("decodeRequest(%q) error = %v, want ErrInvalidRequest", body, err)
		}
	}

	_, err := decodeRequest([]byte(`{"items":[1,2]}`))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("decodeRequest() error = %T, want *ValidationError", err)
	}
	if len(verr.Errors) != 2 || verr.Error() != "2 validation errors" {
		t.Fatalf("ValidationError = %v (%d errors)", verr, len(verr.Errors))
	}
}
