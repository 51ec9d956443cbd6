package sources

import (
	"context"
	"strings"

	"github.com/jackc/pgx"
	"github.com/pkg/errors"

	"github.com/sluicedata/sluice/sluice"
)

// PostgresConfig locates one postgres database.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// Postgres reads a table's column list from information_schema. Column
// order follows ordinal_position, so the declared schema matches what a
// SELECT * against the table would produce.
type Postgres struct {
	Config PostgresConfig
	Table  string
}

func (s Postgres) Name() string {
	return "postgres"
}

func (s Postgres) DeclaredSchema() (sluice.Schema, error) {
	db, err := pgx.NewConnPool(pgx.ConnPoolConfig{
		ConnConfig: pgx.ConnConfig{
			Host:     s.Config.Host,
			Port:     uint16(s.Config.Port),
			User:     s.Config.User,
			Database: s.Config.Database,
			Password: s.Config.Password,
		},
	})
	if err != nil {
		return sluice.Schema{}, errors.Wrap(err, "couldn't open database")
	}
	defer db.Close()

	rows, err := db.QueryEx(context.Background(), "SELECT column_name, udt_name FROM information_schema.columns WHERE table_name = $1 ORDER BY ordinal_position", nil, s.Table)
	if err != nil {
		return sluice.Schema{}, errors.Wrap(err, "couldn't describe table")
	}
	defer rows.Close()

	var fields []sluice.Field
	for rows.Next() {
		var column, udt string
		if err := rows.Scan(&column, &udt); err != nil {
			return sluice.Schema{}, errors.Wrap(err, "couldn't scan table description")
		}
		fields = append(fields, sluice.Field{Name: column, Type: postgresType(udt)})
	}
	if len(fields) == 0 {
		return sluice.Schema{}, errors.Errorf("table %s does not exist", s.Table)
	}

	return sluice.NewSchemaOfFields(fields)
}

// postgresType maps a udt_name to a flat field tag. Arrays and types with
// no flat counterpart stay in the schema as unspecified.
func postgresType(typename string) sluice.Type {
	if strings.HasPrefix(typename, "_") {
		return sluice.TypeUnspecified
	}

	switch typename {
	case "int", "int2", "int4", "int8":
		return sluice.TypeInt
	case "text", "character", "varchar", "bpchar":
		return sluice.TypeString
	case "real", "numeric", "float4", "float8":
		return sluice.TypeFloat
	case "bool", "boolean":
		return sluice.TypeBoolean
	case "timestamptz", "timestamp", "timetz", "time", "date":
		return sluice.TypeTime
	case "bytea":
		return sluice.TypeBytes
	case "jsonb", "json", "uuid":
		return sluice.TypeString
	default:
		return sluice.TypeUnspecified
	}
}
