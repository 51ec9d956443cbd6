package sources

import (
	"os"

	"github.com/pkg/errors"
	"github.com/segmentio/parquet-go"

	"github.com/sluicedata/sluice/sluice"
)

// ParquetFile reads the field layout out of a parquet file footer. Groups
// and repeated fields keep their name but carry no flat type tag.
type ParquetFile struct {
	Path string
}

func (s ParquetFile) Name() string {
	return "parquet"
}

func (s ParquetFile) DeclaredSchema() (sluice.Schema, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return sluice.Schema{}, errors.Wrap(err, "couldn't open file")
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return sluice.Schema{}, errors.Wrap(err, "couldn't stat file")
	}

	pr, err := parquet.OpenFile(f, stat.Size(), &parquet.FileConfig{
		SkipPageIndex:    true,
		SkipBloomFilters: true,
	})
	if err != nil {
		return sluice.Schema{}, errors.Wrap(err, "couldn't open parquet file")
	}

	nodes := pr.Schema().Fields()
	fields := make([]sluice.Field, 0, len(nodes))
	for _, node := range nodes {
		t, ok := parquetNodeType(node)
		if !ok {
			continue
		}
		fields = append(fields, sluice.Field{Name: node.Name(), Type: t})
	}
	return sluice.NewSchemaOfFields(fields)
}

func parquetNodeType(node parquet.Node) (sluice.Type, bool) {
	if !node.Leaf() || node.Repeated() {
		return sluice.TypeUnspecified, true
	}
	if node.Type().String() == "NULL" {
		return sluice.TypeUnspecified, false
	}
	switch node.Type().Kind() {
	case parquet.Boolean:
		return sluice.TypeBoolean, true
	case parquet.Int32, parquet.Int64:
		return sluice.TypeInt, true
	case parquet.Int96:
		return sluice.TypeString, true
	case parquet.Float, parquet.Double:
		return sluice.TypeFloat, true
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return sluice.TypeString, true
	}
	return sluice.TypeUnspecified, true
}
