package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DistanceMetric is the vector similarity measure of an index.
type DistanceMetric string

// Supported distance metrics.
const (
	DistanceCosine DistanceMetric = "COSINE"
	DistanceL2     DistanceMetric = "L2"
	DistanceIP     DistanceMetric = "IP"
)

// VectorAlgorithm selects how a vector field is indexed.
type VectorAlgorithm string

// Supported algorithms. FLAT is exact brute force; HNSW is approximate.
const (
	VectorHNSW VectorAlgorithm = "HNSW"
	VectorFlat VectorAlgorithm = "FLAT"
)

// ParseVectorAlgorithm maps a config value to an algorithm. Anything but FLAT means HNSW.
func ParseVectorAlgorithm(s string) VectorAlgorithm {
	if strings.EqualFold(s, string(VectorFlat)) {
		return VectorFlat
	}
	return VectorHNSW
}

// FieldKind is the index type of one hash field.
type FieldKind int

// Field kinds the schema index uses.
const (
	// FieldTag is an exact-match field. Values are case sensitive and may contain dots.
	FieldTag FieldKind = iota + 1
	// FieldVector is a FLOAT32 embedding.
	FieldVector
)

// VectorParams configures a vector field. M and EFConstruction only apply to HNSW;
// zero keeps the server default.
type VectorParams struct {
	Algorithm      VectorAlgorithm
	Dim            int
	Distance       DistanceMetric
	M              int
	EFConstruction int
}

// IndexField is one indexed hash field.
type IndexField struct {
	Name   string
	Kind   FieldKind
	Vector VectorParams
}

// IndexDefinition describes an FT index over hashes sharing a key prefix.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// Validate checks names, duplicates and vector dimensions.
func (d *IndexDefinition) Validate() error {
	if !IsValidIdentifier(d.Name) {
		return fmt.Errorf("index name %q must match [A-Za-z0-9_:-]+", d.Name)
	}
	if len(d.Fields) == 0 {
		return errors.New("index needs at least one field")
	}
	seen := make(map[string]struct{}, len(d.Fields))
	for i, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %d has no name", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.Kind == FieldVector && f.Vector.Dim <= 0 {
			return fmt.Errorf("vector field %q needs a positive dimension", f.Name)
		}
	}
	return nil
}

// CreateArgs renders the FT.CREATE arguments after the command name.
func (d *IndexDefinition) CreateArgs() ([]string, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	args := []string{d.Name, "ON", "HASH"}
	if len(d.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(d.Prefixes)))
		args = append(args, d.Prefixes...)
	}
	args = append(args, "SCHEMA")
	for _, f := range d.Fields {
		fa, err := f.args()
		if err != nil {
			return nil, err
		}
		args = append(args, fa...)
	}
	return args, nil
}

// String renders the full FT.CREATE command for logs.
func (d *IndexDefinition) String() string {
	args, err := d.CreateArgs()
	if err != nil {
		return "FT.CREATE " + d.Name + " <invalid: " + err.Error() + ">"
	}
	return "FT.CREATE " + strings.Join(args, " ")
}

func (f IndexField) args() ([]string, error) {
	switch f.Kind {
	case FieldTag:
		return []string{f.Name, "TAG", "SEPARATOR", "|", "CASESENSITIVE"}, nil
	case FieldVector:
		return f.vectorArgs(), nil
	default:
		return nil, fmt.Errorf("field %q: unknown kind %d", f.Name, f.Kind)
	}
}

func (f IndexField) vectorArgs() []string {
	v := f.Vector
	algo := v.Algorithm
	if algo == "" {
		algo = VectorFlat
	}
	distance := v.Distance
	if distance == "" {
		distance = DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(v.Dim),
		"DISTANCE_METRIC", string(distance),
	}
	if algo == VectorHNSW {
		if v.M > 0 {
			attrs = append(attrs, "M", strconv.Itoa(v.M))
		}
		if v.EFConstruction > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(v.EFConstruction))
		}
	}
	return append([]string{f.Name, "VECTOR", string(algo), strconv.Itoa(len(attrs))}, attrs...)
}

// IsValidIdentifier reports whether s is a non-empty run of [A-Za-z0-9_:-].
func IsValidIdentifier(s string) bool {
	return s != "" && !strings.ContainsFunc(s, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return false
		case r == '_', r == ':', r == '-':
			return false
		}
		return true
	})
}
