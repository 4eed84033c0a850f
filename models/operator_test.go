package models_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/esteira_backend/models"
)

func TestComputeScore(t *testing.T) {
	cases := []struct {
		name      string
		errors    int
		processed int
		want      int
	}{
		{"clean batch", 0, 10, 100},
		{"quarter error rate", 2, 8, 75},
		{"half error rate", 5, 10, 50},
		{"rounding up", 1, 3, 67},
		{"nothing processed scores clean", 0, 0, 100},
		{"errors with nothing processed still score clean", 5, 0, 100},
		{"more errors than processed", 20, 10, -100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := models.ComputeScore(tc.errors, tc.processed); got != tc.want {
				t.Fatalf("ComputeScore(%d, %d) = %d, want %d", tc.errors, tc.processed, got, tc.want)
			}
		})
	}
}
