// File: cmd/sauceprobe/main_test.go
package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"failure", errors.New("smoke scenarios failed: 1 of 4"), 1},
		{"interrupted", fmt.Errorf("running scenarios: %w", context.Canceled), 130},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := run(context.Background(), func(context.Context) error { return tt.err })
			assert.Equal(t, tt.want, got)
		})
	}
}
