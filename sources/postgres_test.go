package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sluicedata/sluice/sluice"
)

func TestPostgresTypeMapping(t *testing.T) {
	tests := []struct {
		udt  string
		want sluice.Type
	}{
		{udt: "int8", want: sluice.TypeInt},
		{udt: "varchar", want: sluice.TypeString},
		{udt: "numeric", want: sluice.TypeFloat},
		{udt: "bool", want: sluice.TypeBoolean},
		{udt: "timestamptz", want: sluice.TypeTime},
		{udt: "date", want: sluice.TypeTime},
		{udt: "bytea", want: sluice.TypeBytes},
		{udt: "jsonb", want: sluice.TypeString},
		{udt: "_int4", want: sluice.TypeUnspecified},
		{udt: "hstore", want: sluice.TypeUnspecified},
	}
	for _, tt := range tests {
		t.Run(tt.udt, func(t *testing.T) {
			assert.Equal(t, tt.want, postgresType(tt.udt))
		})
	}
}
