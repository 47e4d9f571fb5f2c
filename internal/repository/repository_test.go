package repository

import "testing"

func TestListOptionsNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListOptions
		want ListOptions
	}{
		{name: "zero value gets defaults", in: ListOptions{}, want: ListOptions{Limit: DefaultListLimit}},
		{name: "limit capped", in: ListOptions{Limit: 500}, want: ListOptions{Limit: MaxListLimit}},
		{name: "negative offset reset", in: ListOptions{Limit: 5, Offset: -3}, want: ListOptions{Limit: 5}},
		{name: "valid options untouched", in: ListOptions{Limit: 10, Offset: 30}, want: ListOptions{Limit: 10, Offset: 30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalize(); got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
