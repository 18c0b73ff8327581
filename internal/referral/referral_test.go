package referral

import (
	"reflect"
	"testing"
)

func TestCompletionFields(t *testing.T) {
	tests := []struct {
		name     string
		fields   CompletionFields
		complete bool
		missing  []string
	}{
		{
			name:     "all set",
			fields:   CompletionFields{ProfilePhotoURL: "https://cdn/p.jpg", Airline: "Lufthansa", Base: "FRA"},
			complete: true,
		},
		{
			name:     "empty",
			fields:   CompletionFields{},
			complete: false,
			missing:  []string{"profile_photo", "airline", "base"},
		},
		{
			name:     "missing base",
			fields:   CompletionFields{ProfilePhotoURL: "https://cdn/p.jpg", Airline: "KLM"},
			complete: false,
			missing:  []string{"base"},
		},
		{
			name:     "missing photo and airline",
			fields:   CompletionFields{Base: "AMS"},
			complete: false,
			missing:  []string{"profile_photo", "airline"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fields.Complete(); got != tt.complete {
				t.Errorf("Complete() = %v, want %v", got, tt.complete)
			}
			if got := tt.fields.MissingFields(); !reflect.DeepEqual(got, tt.missing) {
				t.Errorf("MissingFields() = %v, want %v", got, tt.missing)
			}
		})
	}
}
