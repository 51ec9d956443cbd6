package pipefile

// fileDef is the top-level pipefile document.
type fileDef struct {
	// Cascade is optional; when set the flow is registered under it.
	Cascade string       `yaml:"cascade,omitempty"`
	Flow    string       `yaml:"flow"`
	Sources []sourceDef  `yaml:"sources,omitempty"`
	Combine []combineDef `yaml:"combine,omitempty"`
	Sinks   []sinkDef    `yaml:"sinks,omitempty"`
}

// sourceDef declares one source and the stage chain hanging off it. Exactly
// one descriptor key must be set.
type sourceDef struct {
	Name     string       `yaml:"name,omitempty"`
	Static   *staticDef   `yaml:"static,omitempty"`
	JSON     *jsonDef     `yaml:"json,omitempty"`
	Parquet  *parquetDef  `yaml:"parquet,omitempty"`
	Postgres *postgresDef `yaml:"postgres,omitempty"`
	Ops      []opDef      `yaml:"ops,omitempty"`
}

type staticDef struct {
	Fields []fieldDef `yaml:"fields"`
}

type jsonDef struct {
	Path   string `yaml:"path"`
	Sample int    `yaml:"sample,omitempty"`
}

type parquetDef struct {
	Path string `yaml:"path"`
}

type postgresDef struct {
	// Database names a connection from Options.Databases.
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

type fieldDef struct {
	Name string `yaml:"name"`
	// Type is one of int, float, boolean, string, time, bytes; empty
	// leaves the field untagged.
	Type string `yaml:"type,omitempty"`
}

// opDef is one stage in an assembly's chain. Exactly one key must be set.
type opDef struct {
	Project []string          `yaml:"project,omitempty"`
	Discard []string          `yaml:"discard,omitempty"`
	Rename  map[string]string `yaml:"rename,omitempty"`
	Copy    map[string]string `yaml:"copy,omitempty"`
	Each    *eachDef          `yaml:"each,omitempty"`
	Branch  *branchDef        `yaml:"branch,omitempty"`
	GroupBy *groupByDef       `yaml:"group_by,omitempty"`
}

type eachDef struct {
	Name string   `yaml:"name,omitempty"`
	Args []string `yaml:"args,omitempty"`
	// Filter names a predicate op; Function declares a computing op.
	// Exactly one must be set.
	Filter   string       `yaml:"filter,omitempty"`
	Function *functionDef `yaml:"function,omitempty"`
}

type functionDef struct {
	Op       string     `yaml:"op"`
	Declared []fieldDef `yaml:"declared,omitempty"`
	Replace  bool       `yaml:"replace,omitempty"`
}

type branchDef struct {
	Name string  `yaml:"name,omitempty"`
	Ops  []opDef `yaml:"ops,omitempty"`
}

type groupByDef struct {
	Name        string          `yaml:"name,omitempty"`
	Keys        []string        `yaml:"keys"`
	SortBy      []string        `yaml:"sort_by,omitempty"`
	Reverse     bool            `yaml:"reverse,omitempty"`
	Aggregators []aggregatorDef `yaml:"aggregators,omitempty"`
	Buffers     []aggregatorDef `yaml:"buffers,omitempty"`
}

type aggregatorDef struct {
	Name string   `yaml:"name,omitempty"`
	Op   string   `yaml:"op"`
	Args []string `yaml:"args,omitempty"`
	As   []string `yaml:"as,omitempty"`
}

// combineDef brings named branches together. Exactly one key must be set.
type combineDef struct {
	Join     *joinDef  `yaml:"join,omitempty"`
	HashJoin *joinDef  `yaml:"hash_join,omitempty"`
	Union    *unionDef `yaml:"union,omitempty"`
}

type joinDef struct {
	Name     string   `yaml:"name,omitempty"`
	Branches []string `yaml:"branches"`
	// Keys applies one field list to every branch; KeysByBranch gives each
	// branch its own list.
	Keys         []string            `yaml:"keys,omitempty"`
	KeysByBranch map[string][]string `yaml:"keys_by_branch,omitempty"`
	// Joiner is inner, left, right, outer or mixed; empty means inner.
	Joiner string `yaml:"joiner,omitempty"`
	// Required holds the per-branch flags of a mixed joiner.
	Required    []bool          `yaml:"required,omitempty"`
	Declared    []fieldDef      `yaml:"declared,omitempty"`
	Aggregators []aggregatorDef `yaml:"aggregators,omitempty"`
	Buffers     []aggregatorDef `yaml:"buffers,omitempty"`
	Ops         []opDef         `yaml:"ops,omitempty"`
}

type unionDef struct {
	Name     string   `yaml:"name,omitempty"`
	Branches []string `yaml:"branches"`
	// Keys defaults to the first field of the first branch.
	Keys        []string        `yaml:"keys,omitempty"`
	SortBy      []string        `yaml:"sort_by,omitempty"`
	Reverse     bool            `yaml:"reverse,omitempty"`
	Aggregators []aggregatorDef `yaml:"aggregators,omitempty"`
	Buffers     []aggregatorDef `yaml:"buffers,omitempty"`
	Ops         []opDef         `yaml:"ops,omitempty"`
}

// sinkDef closes an assembly with a sink. Exactly one descriptor key must
// be set.
type sinkDef struct {
	Name string `yaml:"name,omitempty"`
	// Of names the assembly to bind.
	Of       string       `yaml:"of"`
	Memory   bool         `yaml:"memory,omitempty"`
	Manifest *manifestDef `yaml:"manifest,omitempty"`
}

type manifestDef struct {
	Path string `yaml:"path"`
}
