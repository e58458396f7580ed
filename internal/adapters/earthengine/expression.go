package earthengine

import (
	"strconv"

	"github.com/samirrijal/canopyviz/internal/core/domain"
)

// Expression is a serialized computation graph. Values are keyed by id and
// Result names the node whose value is the graph's output.
type Expression struct {
	Result string               `json:"result"`
	Values map[string]ValueNode `json:"values"`
}

// ValueNode holds exactly one of its fields.
type ValueNode struct {
	ConstantValue           any                 `json:"constantValue,omitempty"`
	FunctionInvocationValue *FunctionInvocation `json:"functionInvocationValue,omitempty"`
	ValueReference          string              `json:"valueReference,omitempty"`
}

// FunctionInvocation calls a named platform algorithm.
type FunctionInvocation struct {
	FunctionName string               `json:"functionName"`
	Arguments    map[string]ValueNode `json:"arguments"`
}

type graphBuilder struct {
	values map[string]ValueNode
}

func (g *graphBuilder) add(fn string, args map[string]ValueNode) string {
	id := strconv.Itoa(len(g.values))
	g.values[id] = ValueNode{FunctionInvocationValue: &FunctionInvocation{FunctionName: fn, Arguments: args}}
	return id
}

func constant(v any) ValueNode { return ValueNode{ConstantValue: v} }
func ref(id string) ValueNode  { return ValueNode{ValueReference: id} }

// ImageExpression builds the graph that loads dataset, applies its self-mask
// when requested, and scales the result so its longer side is maxDimension
// pixels when maxDimension > 0.
func ImageExpression(dataset domain.DatasetRef, maxDimension int) Expression {
	g := &graphBuilder{values: make(map[string]ValueNode)}

	img := g.add("Image.load", map[string]ValueNode{
		"id": constant(dataset.ID),
	})
	if dataset.Masked {
		img = g.add("Image.updateMask", map[string]ValueNode{
			"image": ref(img),
			"mask":  ref(img),
		})
	}
	if maxDimension > 0 {
		img = g.add("Image.clipToBoundsAndScale", map[string]ValueNode{
			"input":        ref(img),
			"maxDimension": constant(maxDimension),
		})
	}

	return Expression{Result: img, Values: g.values}
}
