package pgstore

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLegacyFlag(t *testing.T) {
	tests := []struct {
		name string
		raw  sql.NullString
		want bool
	}{
		{name: "null", raw: sql.NullString{}, want: false},
		{name: "empty", raw: sql.NullString{String: "", Valid: true}, want: false},
		{name: "false", raw: sql.NullString{String: "false", Valid: true}, want: false},
		{name: "false upper", raw: sql.NullString{String: "FALSE", Valid: true}, want: false},
		{name: "zero", raw: sql.NullString{String: "0", Valid: true}, want: false},
		{name: "padded false", raw: sql.NullString{String: " false ", Valid: true}, want: false},
		{name: "true", raw: sql.NullString{String: "true", Valid: true}, want: true},
		{name: "true upper", raw: sql.NullString{String: "TRUE", Valid: true}, want: true},
		{name: "one", raw: sql.NullString{String: "1", Valid: true}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, parseLegacyFlag(tt.raw))
		})
	}
}
