package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTokens(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"a", []string{"a"}},
		{"b,a", []string{"b", "a"}},
		{" a , ,b,", []string{" a ", " ", "b", ""}},
		{"a,a", []string{"a", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, splitTokens(tt.in))
		})
	}
}
