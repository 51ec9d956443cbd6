package aggregates

import (
	"reflect"
	"testing"

	"github.com/sluicedata/sluice/sluice"
)

func TestLookup(t *testing.T) {
	descriptor, err := Lookup("sum")
	if err != nil {
		t.Fatal(err)
	}
	if descriptor.Name != "sum" || descriptor.Kind != KindAggregator {
		t.Errorf("Lookup(sum) = %+v", descriptor)
	}

	_, err = Lookup("median")
	if err == nil {
		t.Fatal("expected an error for an unknown operation")
	}
	if kind := sluice.KindOf(err); kind != sluice.ErrorKindUnsupportedAggregation {
		t.Errorf("KindOf(err) = %v, want %v", kind, sluice.ErrorKindUnsupportedAggregation)
	}
}

func TestCompositeEquivalentsResolve(t *testing.T) {
	for name, descriptor := range Table {
		if descriptor.Composite == "" {
			continue
		}
		equivalent, err := Lookup(descriptor.Composite)
		if err != nil {
			t.Errorf("composite equivalent of %s: %v", name, err)
			continue
		}
		if equivalent.Arity != descriptor.Arity {
			t.Errorf("composite equivalent of %s takes %d arguments, the operation takes %d", name, equivalent.Arity, descriptor.Arity)
		}
	}
}

func TestOutputSchema(t *testing.T) {
	temp := sluice.Field{Name: "temp", Type: sluice.TypeFloat}
	city := sluice.Field{Name: "city", Type: sluice.TypeString}

	tests := []struct {
		op        string
		arguments []sluice.Field
		as        []string
		want      []sluice.Field
		wantErr   bool
	}{
		{
			op:        "sum",
			arguments: []sluice.Field{temp},
			want:      []sluice.Field{{Name: "sum", Type: sluice.TypeFloat}},
		},
		{
			op:        "sum",
			arguments: []sluice.Field{temp},
			as:        []string{"total_temp"},
			want:      []sluice.Field{{Name: "total_temp", Type: sluice.TypeFloat}},
		},
		{
			op:   "count",
			as:   []string{"n"},
			want: []sluice.Field{{Name: "n", Type: sluice.TypeInt}},
		},
		{
			op:        "min",
			arguments: []sluice.Field{city},
			want:      []sluice.Field{{Name: "min", Type: sluice.TypeString}},
		},
		{
			op:        "sum",
			arguments: []sluice.Field{city},
			want:      []sluice.Field{{Name: "sum", Type: sluice.TypeUnspecified}},
		},
		{
			op:        "collect",
			arguments: []sluice.Field{temp},
			as:        []string{"temps"},
			want:      []sluice.Field{{Name: "temps", Type: sluice.TypeUnspecified}},
		},
		{
			op:        "take",
			arguments: []sluice.Field{city, temp},
			want:      []sluice.Field{city, temp},
		},
		{
			op:        "take",
			arguments: []sluice.Field{city, temp},
			as:        []string{"top_city", "top_temp"},
			want: []sluice.Field{
				{Name: "top_city", Type: sluice.TypeString},
				{Name: "top_temp", Type: sluice.TypeFloat},
			},
		},
		{
			op:        "sum",
			arguments: []sluice.Field{city, temp},
			wantErr:   true,
		},
		{
			op:      "count",
			as:      []string{"a", "b"},
			wantErr: true,
		},
		{
			op:      "take",
			wantErr: true,
		},
		{
			op:        "take",
			arguments: []sluice.Field{city, temp},
			as:        []string{"only_one"},
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			descriptor, err := Lookup(tt.op)
			if err != nil {
				t.Fatal(err)
			}
			got, err := descriptor.OutputSchema(tt.arguments, tt.as)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				if kind := sluice.KindOf(err); kind != sluice.ErrorKindUnsupportedAggregation {
					t.Errorf("KindOf(err) = %v, want %v", kind, sluice.ErrorKindUnsupportedAggregation)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got.Fields(), tt.want) {
				t.Errorf("OutputSchema(%s) = %v, want %v", tt.op, got, tt.want)
			}
		})
	}
}
