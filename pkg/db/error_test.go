package db

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm sentinel", gorm.ErrDuplicatedKey, true},
		{"wrapped gorm sentinel", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"postgres", errors.New(`ERROR: duplicate key value violates unique constraint "ux_licenses_license_key" (SQLSTATE 23505)`), true},
		{"mysql", errors.New("Error 1062 (23000): Duplicate entry 'SK-...' for key 'ux_licenses_license_key'"), true},
		{"sqlite", errors.New("UNIQUE constraint failed: activations.license_id"), true},
		{"unrelated", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		if got := IsDuplicateKeyErr(tc.err); got != tc.want {
			t.Errorf("%s: IsDuplicateKeyErr = %v, want %v", tc.name, got, tc.want)
		}
	}
}
