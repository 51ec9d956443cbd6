package sources

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sluicedata/sluice/sluice"
)

func TestJSONInference(t *testing.T) {
	input := strings.Join([]string{
		`{"name": "ada", "score": 12.5, "active": true, "seen": "2021-03-04T05:06:07Z"}`,
		`{"name": "brin", "score": 3, "active": false, "tags": ["a", "b"]}`,
	}, "\n")

	schema, err := inferJSONSchema(strings.NewReader(input), 100)
	assert.NoError(t, err)

	assert.Equal(t, []sluice.Field{
		{Name: "active", Type: sluice.TypeBoolean},
		{Name: "name", Type: sluice.TypeString},
		{Name: "score", Type: sluice.TypeFloat},
		{Name: "seen", Type: sluice.TypeTime},
		{Name: "tags", Type: sluice.TypeUnspecified},
	}, schema.Fields())
}

func TestJSONInferenceWidensConflictingTypes(t *testing.T) {
	input := strings.Join([]string{
		`{"value": "eleven"}`,
		`{"value": 11}`,
	}, "\n")

	schema, err := inferJSONSchema(strings.NewReader(input), 100)
	assert.NoError(t, err)

	field, ok := schema.FieldByName("value")
	assert.True(t, ok)
	assert.Equal(t, sluice.TypeUnspecified, field.Type)
}

func TestJSONInferenceHonorsSampleBound(t *testing.T) {
	input := strings.Join([]string{
		`{"early": 1}`,
		`{"early": 2}`,
		`{"late": 3}`,
	}, "\n")

	schema, err := inferJSONSchema(strings.NewReader(input), 2)
	assert.NoError(t, err)

	assert.True(t, schema.Has("early"))
	assert.False(t, schema.Has("late"))
}

func TestJSONInferenceErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "malformed line",
			input:   `{"name": `,
			wantErr: "couldn't parse json",
		},
		{
			name:    "non-object line",
			input:   `[1, 2, 3]`,
			wantErr: "expected JSON object",
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: "no objects found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := inferJSONSchema(strings.NewReader(tt.input), 100)
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
