// Package hclload populates a container from declarative HCL data files.
// Model structure stays in Go code; the input data that changes between
// runs (set elements, parameter records, bounds) lives in .hcl files next
// to the model.
package hclload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/optalg/internal/algebra"
	"github.com/vk/optalg/internal/ctxlog"
)

// Loader reads .hcl data files and declares their contents on a container.
type Loader struct{}

// NewLoader creates a data loader.
func NewLoader() *Loader {
	return &Loader{}
}

type setBlock struct {
	Name     string   `hcl:"name,label"`
	Domain   []string `hcl:"domain,optional"`
	Elements []string `hcl:"elements"`
}

type aliasBlock struct {
	Name string `hcl:"name,label"`
	Of   string `hcl:"of"`
}

type scalarBlock struct {
	Name  string  `hcl:"name,label"`
	Value float64 `hcl:"value"`
}

type parameterBlock struct {
	Name    string    `hcl:"name,label"`
	Domain  []string  `hcl:"domain"`
	Records cty.Value `hcl:"records,optional"`
}

type variableBlock struct {
	Name   string    `hcl:"name,label"`
	Type   string    `hcl:"type,optional"`
	Domain []string  `hcl:"domain,optional"`
	Lower  cty.Value `hcl:"lower,optional"`
	Upper  cty.Value `hcl:"upper,optional"`
}

// fileRoot decodes every top-level block a data file may carry. There is
// no remain catch-all: an unrecognized block is a decode error, not
// silently ignored input.
type fileRoot struct {
	Sets       []*setBlock       `hcl:"set,block"`
	Aliases    []*aliasBlock     `hcl:"alias,block"`
	Scalars    []*scalarBlock    `hcl:"scalar,block"`
	Parameters []*parameterBlock `hcl:"parameter,block"`
	Variables  []*variableBlock  `hcl:"variable,block"`
}

// Load discovers .hcl files under the given paths and declares their
// blocks on c. Sets across all files are declared before aliases, aliases
// before parameters and variables, so domain references may point at sets
// defined in a later file.
func (l *Loader) Load(ctx context.Context, c *algebra.Container, paths ...string) error {
	logger := ctxlog.Maybe(ctx)

	files, err := findHCLFiles(paths)
	if err != nil {
		return err
	}
	logger.Debug("discovered data files", "count", len(files))

	parser := hclparse.NewParser()
	var roots []*fileRoot
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return fmt.Errorf("failed to parse data file %s: %w", file, diags)
		}
		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return fmt.Errorf("failed to decode data file %s: %w", file, diags)
		}
		roots = append(roots, &root)
	}

	for _, root := range roots {
		for _, b := range root.Sets {
			domain, err := l.domainSets(c, b.Domain)
			if err != nil {
				return fmt.Errorf("set %q: %w", b.Name, err)
			}
			if _, err := c.AddSet(b.Name, domain, b.Elements...); err != nil {
				return err
			}
		}
	}
	for _, root := range roots {
		for _, b := range root.Aliases {
			target, err := l.setRef(c, b.Of)
			if err != nil {
				return fmt.Errorf("alias %q: %w", b.Name, err)
			}
			if _, err := c.AddAlias(b.Name, target); err != nil {
				return err
			}
		}
	}
	for _, root := range roots {
		for _, b := range root.Scalars {
			p, err := c.AddParameter(b.Name)
			if err != nil {
				return err
			}
			if err := p.SetRecords(b.Value); err != nil {
				return err
			}
		}
		for _, b := range root.Parameters {
			if err := l.loadParameter(c, b); err != nil {
				return err
			}
		}
		for _, b := range root.Variables {
			if err := l.loadVariable(c, b); err != nil {
				return err
			}
		}
	}

	logger.Debug("data loading complete", "files", len(files))
	return nil
}

func (l *Loader) loadParameter(c *algebra.Container, b *parameterBlock) error {
	domain, err := l.domainSets(c, b.Domain)
	if err != nil {
		return fmt.Errorf("parameter %q: %w", b.Name, err)
	}
	p, err := c.AddParameter(b.Name, domain...)
	if err != nil {
		return err
	}
	if b.Records.IsNull() {
		return nil
	}
	records, err := recordMap(b.Records)
	if err != nil {
		return fmt.Errorf("parameter %q: %w", b.Name, err)
	}
	rows := make([][]any, 0, len(records))
	for key, f := range records {
		labels := strings.Split(key, ".")
		row := make([]any, 0, len(labels)+1)
		for _, lab := range labels {
			row = append(row, lab)
		}
		rows = append(rows, append(row, f))
	}
	return p.SetRecords(rows)
}

func (l *Loader) loadVariable(c *algebra.Container, b *variableBlock) error {
	vtype, err := varType(b.Type)
	if err != nil {
		return fmt.Errorf("variable %q: %w", b.Name, err)
	}
	domain, err := l.domainSets(c, b.Domain)
	if err != nil {
		return fmt.Errorf("variable %q: %w", b.Name, err)
	}
	v, err := c.AddVariable(b.Name, vtype, domain...)
	if err != nil {
		return err
	}
	if err := applyBounds(v, algebra.AttrLower, b.Lower); err != nil {
		return fmt.Errorf("variable %q: %w", b.Name, err)
	}
	if err := applyBounds(v, algebra.AttrUpper, b.Upper); err != nil {
		return fmt.Errorf("variable %q: %w", b.Name, err)
	}
	return nil
}

// applyBounds accepts either a single number (scalar variable) or a map
// of dotted key tuples to numbers.
func applyBounds(v *algebra.Variable, attr algebra.Attr, val cty.Value) error {
	if val.IsNull() {
		return nil
	}
	if val.Type() == cty.Number || val.Type() == cty.String {
		f, err := ctyFloat(val)
		if err != nil {
			return err
		}
		return v.AssignAttr(attr, algebra.Number(v.Container(), f), algebra.All)
	}
	records, err := recordMap(val)
	if err != nil {
		return err
	}
	for key, f := range records {
		labels := strings.Split(key, ".")
		idx := make([]any, len(labels))
		for i, lab := range labels {
			idx[i] = lab
		}
		if err := v.AssignAttr(attr, algebra.Number(v.Container(), f), idx...); err != nil {
			return err
		}
	}
	return nil
}

// recordMap converts a cty object or map into tuple-key records. Multi
// dimensional keys are written dotted, "seattle.new-york".
func recordMap(val cty.Value) (map[string]float64, error) {
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("records must be an object of key = number pairs, got %s", val.Type().FriendlyName())
	}
	out := make(map[string]float64)
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		f, err := ctyFloat(v)
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", k.AsString(), err)
		}
		out[k.AsString()] = f
	}
	return out, nil
}

func ctyFloat(val cty.Value) (float64, error) {
	conv, err := convert.Convert(val, cty.Number)
	if err != nil {
		return 0, fmt.Errorf("value is not numeric: %w", err)
	}
	f, _ := conv.AsBigFloat().Float64()
	return f, nil
}

func varType(name string) (algebra.VarType, error) {
	switch strings.ToLower(name) {
	case "", "free":
		return algebra.VarFree, nil
	case "positive":
		return algebra.VarPositive, nil
	case "negative":
		return algebra.VarNegative, nil
	case "binary":
		return algebra.VarBinary, nil
	case "integer":
		return algebra.VarInteger, nil
	}
	return algebra.VarFree, fmt.Errorf("unknown variable type %q", name)
}

func (l *Loader) domainSets(c *algebra.Container, names []string) ([]algebra.SetLike, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]algebra.SetLike, len(names))
	for i, name := range names {
		s, err := l.setRef(c, name)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (l *Loader) setRef(c *algebra.Container, name string) (algebra.SetLike, error) {
	if name == "*" {
		return c.Universe(), nil
	}
	sym, ok := c.Symbol(name)
	if !ok {
		return nil, fmt.Errorf("references undeclared set %q", name)
	}
	s, ok := sym.(algebra.SetLike)
	if !ok {
		return nil, fmt.Errorf("references %q which is a %s, not a set", name, sym.Kind())
	}
	return s, nil
}

// findHCLFiles walks the given paths and returns every .hcl file found,
// deduplicated, in walk order. A missing path is skipped, not an error.
func findHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == ".hcl" {
					if _, wasSeen := seen[p]; !wasSeen {
						allFiles = append(allFiles, p)
						seen[p] = struct{}{}
					}
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if filepath.Ext(path) == ".hcl" {
			if _, wasSeen := seen[path]; !wasSeen {
				allFiles = append(allFiles, path)
				seen[path] = struct{}{}
			}
		}
	}
	return allFiles, nil
}
