package harness

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cloudrec/internal/asset"
	"github.com/roach88/cloudrec/internal/catalog"
	"github.com/roach88/cloudrec/internal/ir"
	"github.com/roach88/cloudrec/internal/object"
)

// graph is the object graph a scenario declares.
type graph struct {
	objects map[string]*object.Dynamic
	order   []string // declaration order
	assets  *asset.Store // nil keeps asset content in memory
}

// buildGraph creates every declared object first and fills in values
// second, so refs may point forward and form cycles.
func buildGraph(cat *catalog.Catalog, decls []ObjectDecl, assets *asset.Store) (*graph, error) {
	g := &graph{objects: make(map[string]*object.Dynamic, len(decls)), assets: assets}

	for i, decl := range decls {
		id := decl.ID
		if id == "" {
			key, ok := declKey(cat, decl)
			if !ok {
				return nil, fmt.Errorf("objects[%d]: id is required when %s has no string or integer primary key value", i, decl.Type)
			}
			id = decl.Type + "/" + key
		}
		if _, dup := g.objects[id]; dup {
			return nil, fmt.Errorf("objects[%d]: duplicate object %q", i, id)
		}
		g.objects[id] = object.NewDynamic(decl.Type)
		g.order = append(g.order, id)
	}

	for i, decl := range decls {
		obj := g.objects[g.order[i]]
		if err := g.fill(obj, decl.Values); err != nil {
			return nil, fmt.Errorf("objects[%d] (%s): %w", i, g.order[i], err)
		}
	}

	return g, nil
}

// declKey renders the declared primary key value, if the type is
// registered and the value is a string or an integer.
func declKey(cat *catalog.Catalog, decl ObjectDecl) (string, bool) {
	schema, ok := cat.Lookup(decl.Type)
	if !ok || schema.PrimaryKey == "" {
		return "", false
	}
	return object.FormatKey(decl.Values[schema.PrimaryKey])
}

func (g *graph) fill(obj *object.Dynamic, values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v, err := g.value(values[name])
		if err != nil {
			return fmt.Errorf("value %q: %w", name, err)
		}
		obj.Set(name, v)
	}
	return nil
}

// value converts a YAML-parsed value to a held property value.
func (g *graph) value(raw any) (any, error) {
	switch v := raw.(type) {
	case []any:
		list := make(object.List, len(v))
		for i, elem := range v {
			member, err := g.value(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			if member == nil {
				continue
			}
			o, ok := member.(object.Object)
			if !ok {
				return nil, fmt.Errorf("[%d]: list members must be objects, got %T", i, member)
			}
			list[i] = o
		}
		return list, nil
	case map[string]any:
		return g.special(v)
	default:
		return raw, nil
	}
}

// special decodes the single-key map forms: ref, object, date, data, asset.
func (g *graph) special(m map[string]any) (any, error) {
	if len(m) != 1 {
		return nil, fmt.Errorf("expected one of ref, object, date, data, asset; got %d keys", len(m))
	}

	var form string
	var arg any
	for k, v := range m {
		form, arg = k, v
	}

	switch form {
	case "ref":
		target, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("ref must be a string")
		}
		obj, ok := g.objects[target]
		if !ok {
			return nil, fmt.Errorf("ref to undeclared object %q", target)
		}
		return obj, nil

	case "object":
		spec, ok := arg.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("object must be a map with type and values")
		}
		typ, _ := spec["type"].(string)
		if typ == "" {
			return nil, fmt.Errorf("object requires a type")
		}
		obj := object.NewDynamic(typ)
		if values, ok := spec["values"].(map[string]any); ok {
			if err := g.fill(obj, values); err != nil {
				return nil, err
			}
		}
		return obj, nil

	case "date":
		s, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("date must be an RFC 3339 string")
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("date: %w", err)
		}
		return t, nil

	case "data":
		s, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("data must be a base64 string")
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
		return b, nil

	case "asset":
		s, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("asset must be a string of content")
		}
		if g.assets != nil {
			return g.assets.Put([]byte(s))
		}
		return inlineAsset([]byte(s)), nil

	default:
		return nil, fmt.Errorf("unknown value form %q", form)
	}
}

// inlineAsset describes content that is never written to disk. Its URL
// derives from the checksum so snapshots stay stable.
func inlineAsset(data []byte) *object.Asset {
	sum := ir.AssetChecksum(data)
	return object.NewAsset(ir.IRAsset{
		FileURL:  "memory:///" + sum + asset.Ext,
		Checksum: sum,
		Size:     int64(len(data)),
	})
}

// ObjectsFile is a standalone YAML document of object declarations, in the
// same form as a scenario's objects block.
type ObjectsFile struct {
	Objects []ObjectDecl `yaml:"objects"`
}

// LoadObjects reads an objects file. Unknown fields are rejected.
func LoadObjects(path string) ([]ObjectDecl, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read objects file: %w", err)
	}

	var file ObjectsFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	for i, decl := range file.Objects {
		if decl.Type == "" {
			return nil, fmt.Errorf("objects[%d]: type is required", i)
		}
	}
	return file.Objects, nil
}

// BuildObjects builds the declared object graph and returns its objects in
// declaration order. Asset content is written to assets when it is non-nil.
func BuildObjects(cat *catalog.Catalog, decls []ObjectDecl, assets *asset.Store) ([]*object.Dynamic, error) {
	g, err := buildGraph(cat, decls, assets)
	if err != nil {
		return nil, err
	}
	objs := make([]*object.Dynamic, len(g.order))
	for i, id := range g.order {
		objs[i] = g.objects[id]
	}
	return objs, nil
}
