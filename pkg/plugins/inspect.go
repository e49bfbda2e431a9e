package plugins

import (
	"os"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
	"github.com/pkg/errors"
)

// Info describes a plugin script without executing it.
type Info struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Version string `json:"version"`
	File    string `json:"file"`
}

// ErrNoMetadata is returned when a script parses but declares no id and
// version literals.
var ErrNoMetadata = errors.New("plugins: script declares no id/version metadata")

// InspectFile statically reads a plugin script's declared id, name, and
// version. The script is parsed, never executed: inspection must be safe on
// untrusted files. The first object literal declaring each key as a string
// literal wins.
func InspectFile(path string) (*Info, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	program, err := parser.ParseFile(nil, path, string(src), 0)
	if err != nil {
		return nil, errors.Wrap(err, "parse plugin script")
	}

	info := &Info{}
	ast.Walk(&metadataVisitor{info: info}, program)

	if info.ID == "" || info.Version == "" {
		return nil, errors.WithStack(ErrNoMetadata)
	}

	return info, nil
}

type metadataVisitor struct {
	info *Info
}

func (v *metadataVisitor) Enter(n ast.Node) ast.Visitor {
	obj, ok := n.(*ast.ObjectLiteral)
	if !ok {
		return v
	}

	for _, prop := range obj.Value {
		keyed, ok := prop.(*ast.PropertyKeyed)
		if ok {
			v.record(keyed)
		}
	}

	return v
}

func (v *metadataVisitor) Exit(ast.Node) {}

func (v *metadataVisitor) record(prop *ast.PropertyKeyed) {
	value, ok := prop.Value.(*ast.StringLiteral)
	if !ok {
		return
	}

	switch keyName(prop.Key) {
	case "id":
		if v.info.ID == "" {
			v.info.ID = value.Value.String()
		}
	case "name":
		if v.info.Name == "" {
			v.info.Name = value.Value.String()
		}
	case "version":
		if v.info.Version == "" {
			v.info.Version = value.Value.String()
		}
	}
}

func keyName(key ast.Expression) string {
	switch k := key.(type) {
	case *ast.Identifier:
		return k.Name.String()
	case *ast.StringLiteral:
		return k.Value.String()
	}
	return ""
}
