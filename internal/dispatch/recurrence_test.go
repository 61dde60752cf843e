package dispatch

import (
	"testing"
	"time"
)

func TestNextOccurrence(t *testing.T) {
	from := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

	next, err := NextOccurrence("0 12 * * *", from)
	if err != nil {
		t.Fatalf("NextOccurrence() error = %v", err)
	}

	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextOccurrence() = %v, want %v", next, want)
	}
}

func TestNextOccurrenceInvalid(t *testing.T) {
	if _, err := NextOccurrence("not a cron", time.Now()); err == nil {
		t.Error("NextOccurrence() with invalid expression: expected error")
	}
}

func TestValidateCronExpr(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 12 * * *", false},
		{"*/15 * * * *", false},
		{"0 9 * * 1-5", false},
		{"", true},
		{"not a cron", true},
		{"0 12 * *", true}, // 4 поля вместо 5
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := ValidateCronExpr(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCronExpr(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}
