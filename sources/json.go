package sources

import (
	"bufio"
	"io"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fastjson"

	"github.com/sluicedata/sluice/sluice"
)

const defaultJSONSampleSize = 100

// JSONFile infers a schema from a newline-delimited JSON file by sampling
// its leading objects. Field names are unioned across the sample and type
// tags widen to unspecified when objects disagree.
type JSONFile struct {
	Path string

	// SampleSize bounds how many lines are inspected. Zero means the
	// default of 100.
	SampleSize int
}

func (s JSONFile) Name() string {
	return "json"
}

func (s JSONFile) DeclaredSchema() (sluice.Schema, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return sluice.Schema{}, errors.Wrap(err, "couldn't open file")
	}
	defer f.Close()

	sample := s.SampleSize
	if sample == 0 {
		sample = defaultJSONSampleSize
	}
	return inferJSONSchema(f, sample)
}

func inferJSONSchema(r io.Reader, sample int) (sluice.Schema, error) {
	types := make(map[string]sluice.Type)

	sc := bufio.NewScanner(bufio.NewReaderSize(r, 4096*1024))

	var p fastjson.Parser
	i := 0
	for sc.Scan() && i < sample {
		i++
		v, err := p.ParseBytes(sc.Bytes())
		if err != nil {
			return sluice.Schema{}, errors.Wrap(err, "couldn't parse json")
		}
		o, err := v.Object()
		if err != nil {
			return sluice.Schema{}, errors.Errorf("expected JSON object, got '%s'", sc.Text())
		}

		o.Visit(func(key []byte, v *fastjson.Value) {
			if t, ok := types[string(key)]; ok {
				types[string(key)] = sluice.TypeSum(t, jsonValueType(v))
			} else {
				types[string(key)] = jsonValueType(v)
			}
		})
	}
	if sc.Err() != nil {
		return sluice.Schema{}, errors.Wrap(sc.Err(), "couldn't scan lines")
	}
	if len(types) == 0 {
		return sluice.Schema{}, errors.Errorf("no objects found in the first %d lines", sample)
	}

	fields := make([]sluice.Field, 0, len(types))
	for name, t := range types {
		fields = append(fields, sluice.Field{Name: name, Type: t})
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Name < fields[j].Name
	})
	return sluice.NewSchemaOfFields(fields)
}

func jsonValueType(value *fastjson.Value) sluice.Type {
	switch value.Type() {
	case fastjson.TypeString:
		v, _ := value.StringBytes()
		if _, err := time.Parse(time.RFC3339Nano, string(v)); err == nil {
			return sluice.TypeTime
		}
		return sluice.TypeString
	case fastjson.TypeNumber:
		return sluice.TypeFloat
	case fastjson.TypeTrue, fastjson.TypeFalse:
		return sluice.TypeBoolean
	default:
		// Nulls, nested objects and arrays carry no flat field tag.
		return sluice.TypeUnspecified
	}
}
