/*
Copyright 2023 The Lakegate Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package planbuilder

// ApplyResult tracks whether a visitor rewrote a node and why.
type ApplyResult struct {
	reasons []string
}

// NoRewrite is returned by visitors that leave the node untouched.
var NoRewrite *ApplyResult

// Rewrote returns an ApplyResult signalling a rewrite, with a reason
// used in rewrite logging.
func Rewrote(reason string) *ApplyResult {
	return &ApplyResult{reasons: []string{reason}}
}

// Changed reports whether the visitor rewrote the node.
func (ar *ApplyResult) Changed() bool { return ar != nil }

// Reasons returns the recorded rewrite reasons.
func (ar *ApplyResult) Reasons() []string {
	if ar == nil {
		return nil
	}
	return ar.reasons
}

// VisitFunc visits a single node and either returns it unchanged with
// NoRewrite or returns a replacement.
type VisitFunc func(LogicalPlan) (LogicalPlan, *ApplyResult, error)

// BottomUp rewrites the plan from the leaves up. Identity is preserved:
// when neither a node's inputs nor the node itself change, the original
// node is returned, so a pass that rewrites nothing yields the very
// plan object it was given.
func BottomUp(plan LogicalPlan, visit VisitFunc) (LogicalPlan, error) {
	inputs := plan.Inputs()
	var newInputs []LogicalPlan
	for i, input := range inputs {
		rewritten, err := BottomUp(input, visit)
		if err != nil {
			return nil, err
		}
		if rewritten != input && newInputs == nil {
			newInputs = make([]LogicalPlan, len(inputs))
			copy(newInputs, inputs[:i])
		}
		if newInputs != nil {
			newInputs[i] = rewritten
		}
	}
	if newInputs != nil {
		plan = plan.Clone(newInputs)
	}

	rewritten, result, err := visit(plan)
	if err != nil {
		return nil, err
	}
	if result.Changed() {
		return rewritten, nil
	}
	return plan, nil
}
