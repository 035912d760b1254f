package reqctx

import (
	"context"
	"testing"
)

func TestLogPrefix(t *testing.T) {
	base := context.Background()
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"empty", base, ""},
		{"rid only", WithRID(base, "r1"), "[rid=r1] "},
		{"uid only", WithUID(base, "u1"), "[uid=u1] "},
		{"both", WithUID(WithRID(base, "r1"), "u1"), "[rid=r1 uid=u1] "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LogPrefix(tt.ctx); got != tt.want {
				t.Fatalf("got=%q want=%q", got, tt.want)
			}
		})
	}
}
