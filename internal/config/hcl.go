package config

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/tellae/eqasim/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// HCLLoader reads pipeline configuration documents in the equivalent HCL
// form:
//
//	working_directory = "cache"
//	run               = ["synthesis.output", "matsim.output"]
//
//	config {
//	  sampling_rate = 0.05
//	  random_seed   = 1234
//	}
type HCLLoader struct{}

// documentSchema describes the top level of the HCL form. Only literal
// values are meaningful in a pipeline document, so expressions are
// evaluated without a variable context.
var documentSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "working_directory", Required: true},
		{Name: "run", Required: true},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "config"},
	},
}

// Load implements Loader.
func (l *HCLLoader) Load(ctx context.Context, path string) (*Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading HCL configuration document.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %w", path, diags)
	}

	content, diags := file.Body.Content(documentSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %w", path, diags)
	}

	doc := &Document{Params: map[string]any{}, Path: path}

	workdir, err := attrString(content.Attributes["working_directory"])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	doc.WorkingDirectory = workdir

	run, err := attrStringList(content.Attributes["run"])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	doc.Run = run

	// Several config blocks merge into one parameter map; a key written
	// twice takes its last value, matching how the YAML form would read
	// after a manual merge.
	for _, block := range content.Blocks {
		attrs, diags := block.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("decode %s: %w", path, diags)
		}
		for name, attr := range attrs {
			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("decode %s: config.%s: %w", path, name, diags)
			}
			goVal, err := ctyToGo(val)
			if err != nil {
				return nil, fmt.Errorf("decode %s: config.%s: %w", path, name, err)
			}
			doc.Params[name] = goVal
		}
	}
	doc.Params = normalizeParams(doc.Params)

	logger.Debug("HCL configuration document loaded.",
		"run_targets", len(doc.Run), "params", len(doc.Params))
	return doc, nil
}

func attrString(attr *hcl.Attribute) (string, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	if val.Type() != cty.String {
		return "", fmt.Errorf("%s must be a string", attr.Name)
	}
	return val.AsString(), nil
}

func attrStringList(attr *hcl.Attribute) ([]string, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if !val.CanIterateElements() {
		return nil, fmt.Errorf("%s must be a list of strings", attr.Name)
	}
	var out []string
	for it := val.ElementIterator(); it.Next(); {
		_, element := it.Element()
		if element.Type() != cty.String {
			return nil, fmt.Errorf("%s must be a list of strings", attr.Name)
		}
		out = append(out, element.AsString())
	}
	return out, nil
}

// ctyToGo converts a cty.Value into the loader-normalized Go shapes.
// Numbers become int when integral, float64 otherwise; config.AsInt and
// config.AsFloat accept both shapes, so the two document forms behave
// identically.
func ctyToGo(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			n, _ := bf.Int64()
			return int(n), nil
		}
		f, _ := bf.Float64()
		return f, nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		var out []any
		for it := val.ElementIterator(); it.Next(); {
			_, element := it.Element()
			converted, err := ctyToGo(element)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			key, element := it.Element()
			converted, err := ctyToGo(element)
			if err != nil {
				return nil, err
			}
			out[key.AsString()] = converted
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
