// Package visibility decides which fields of a form are shown for a given
// answer set. The whole set is recomputed from scratch on every call.
//
// Fields depend on the questions their conditions reference and on their
// enclosing group. Fields that take part in a dependency cycle, including a
// condition on themselves, are hidden and reported. Every other field is
// evaluated exactly once, after everything it depends on, so chains of
// conditions settle within a single pass.
package visibility

import (
	"sort"

	"github.com/gofhir/forms/pkg/field"
)

// Reference is a condition pointing at a question that is not in the form.
type Reference struct {
	LinkID     string `json:"linkId"`
	QuestionID string `json:"questionId"`
}

// Result is the visibility of every field of one evaluation.
type Result struct {
	order    []string
	visible  map[string]bool
	cyclic   []string
	cycles   [][]string
	dangling []Reference
}

// Visible reports whether linkID is shown. Unknown linkIds are not.
func (r *Result) Visible(linkID string) bool {
	return r.visible[linkID]
}

// VisibleLinkIDs lists the shown fields in form order, groups before their children.
func (r *Result) VisibleLinkIDs() []string {
	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if r.visible[id] {
			out = append(out, id)
		}
	}
	return out
}

// HiddenLinkIDs lists the hidden fields in form order.
func (r *Result) HiddenLinkIDs() []string {
	var out []string
	for _, id := range r.order {
		if !r.visible[id] {
			out = append(out, id)
		}
	}
	return out
}

// Cyclic lists the fields hidden because of a dependency cycle, in form order.
func (r *Result) Cyclic() []string {
	return append([]string(nil), r.cyclic...)
}

// Cycles groups the cyclic fields by the cycle they belong to. A field
// conditioned on itself alone forms a cycle of one.
func (r *Result) Cycles() [][]string {
	out := make([][]string, len(r.cycles))
	for i, c := range r.cycles {
		out[i] = append([]string(nil), c...)
	}
	return out
}

// Dangling lists conditions whose question does not exist.
func (r *Result) Dangling() []Reference {
	return append([]Reference(nil), r.dangling...)
}

type node struct {
	linkID string
	cfg    *field.Config
	parent string
	deps   []string
	self   bool
}

// Evaluate computes the visible set of fields for answers.
// Duplicate linkIds resolve to the last field declared.
func Evaluate(fields []field.Config, answers map[string]any) *Result {
	nodes, order := buildGraph(fields)

	r := &Result{
		order:   order,
		visible: make(map[string]bool, len(order)),
	}

	for _, id := range order {
		n := nodes[id]
		if !n.cfg.Conditional.Active() {
			continue
		}
		for _, q := range n.cfg.Conditional.References() {
			if _, ok := nodes[q]; !ok {
				r.dangling = append(r.dangling, Reference{LinkID: id, QuestionID: q})
			}
		}
	}

	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}
	components := stronglyConnected(nodes, order)
	inCycle := make(map[string]bool)
	for _, comp := range components {
		if len(comp) > 1 || nodes[comp[0]].self {
			cycle := append([]string(nil), comp...)
			sort.Slice(cycle, func(i, j int) bool { return position[cycle[i]] < position[cycle[j]] })
			r.cycles = append(r.cycles, cycle)
			for _, id := range comp {
				inCycle[id] = true
			}
		}
	}
	sort.Slice(r.cycles, func(i, j int) bool { return position[r.cycles[i][0]] < position[r.cycles[j][0]] })
	for _, id := range order {
		if inCycle[id] {
			r.cyclic = append(r.cyclic, id)
		}
	}

	// Components come out dependencies first.
	for _, comp := range components {
		for _, id := range comp {
			if inCycle[id] {
				r.visible[id] = false
				continue
			}
			r.visible[id] = r.evaluate(nodes[id], nodes, answers)
		}
	}
	return r
}

func (r *Result) evaluate(n *node, nodes map[string]*node, answers map[string]any) bool {
	if n.parent != "" && !r.visible[n.parent] {
		return false
	}
	cond := n.cfg.Conditional
	if !cond.Active() {
		return true
	}

	anyOf := cond.Combinator() == field.CombineAny
	for _, c := range cond.Conditions {
		ok := r.condition(c, nodes, answers)
		if anyOf && ok {
			return true
		}
		if !anyOf && !ok {
			return false
		}
	}
	return !anyOf
}

func (r *Result) condition(c field.Condition, nodes map[string]*node, answers map[string]any) bool {
	if _, ok := nodes[c.QuestionID]; !ok {
		return false
	}
	if !c.Operator.Known() {
		return false
	}
	var actual any
	if r.visible[c.QuestionID] {
		actual = answers[c.QuestionID]
	}
	return Compare(c.Operator, actual, c.Answer)
}

func buildGraph(fields []field.Config) (map[string]*node, []string) {
	nodes := make(map[string]*node)
	var order []string

	field.Walk(fields, func(f, parent *field.Config) {
		n, seen := nodes[f.LinkID]
		if !seen {
			n = &node{linkID: f.LinkID}
			nodes[f.LinkID] = n
			order = append(order, f.LinkID)
		}
		n.cfg = f
		n.parent = ""
		if parent != nil {
			n.parent = parent.LinkID
		}
	})

	for _, id := range order {
		n := nodes[id]
		n.deps = n.deps[:0]
		n.self = false
		if n.parent != "" && n.parent != id {
			n.deps = append(n.deps, n.parent)
		}
		if !n.cfg.Conditional.Active() {
			continue
		}
		for _, q := range n.cfg.Conditional.References() {
			if q == id {
				n.self = true
				continue
			}
			if _, ok := nodes[q]; ok {
				n.deps = append(n.deps, q)
			}
		}
	}
	return nodes, order
}

// stronglyConnected runs Tarjan's algorithm over the dependency edges.
// A component is emitted only after every component it depends on.
func stronglyConnected(nodes map[string]*node, order []string) [][]string {
	var (
		index    = 0
		indices  = make(map[string]int, len(order))
		lowlinks = make(map[string]int, len(order))
		onStack  = make(map[string]bool, len(order))
		stack    []string
		out      [][]string
	)

	var connect func(id string)
	connect = func(id string) {
		indices[id] = index
		lowlinks[id] = index
		index++
		stack = append(stack, id)
		onStack[id] = true

		for _, dep := range nodes[id].deps {
			if _, visited := indices[dep]; !visited {
				connect(dep)
				lowlinks[id] = min(lowlinks[id], lowlinks[dep])
			} else if onStack[dep] {
				lowlinks[id] = min(lowlinks[id], indices[dep])
			}
		}

		if lowlinks[id] == indices[id] {
			var comp []string
			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[top] = false
				comp = append(comp, top)
				if top == id {
					break
				}
			}
			out = append(out, comp)
		}
	}

	for _, id := range order {
		if _, visited := indices[id]; !visited {
			connect(id)
		}
	}
	return out
}

// ClearHidden returns a copy of answers without the answers of hidden
// fields. Keys that are not fields of the evaluated form are kept.
func ClearHidden(answers map[string]any, r *Result) map[string]any {
	out := make(map[string]any, len(answers))
	for k, v := range answers {
		if visible, known := r.visible[k]; known && !visible {
			continue
		}
		out[k] = v
	}
	return out
}
