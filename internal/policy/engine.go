/*
Copyright 2026 CK11Core Authors.

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

package policy

import (
	"github.com/cryptoklabs/ck11core/internal/attr"
	"github.com/cryptoklabs/ck11core/internal/ckerr"
	"github.com/cryptoklabs/ck11core/internal/mechanism"
)

// Engine bundles spec.md §4.5's mandated check ordering behind a single
// collaborator the façade holds one of per token. ExperimentalRule is the
// SPEC_FULL.md §4.10 extension hook: it is never consulted by CheckCreate or
// CheckParent below, only by EvalExperimentalRule, so wiring one in changes
// nothing until a caller opts in explicitly.
type Engine struct {
	ExperimentalRule *ParentRule
}

// EvalExperimentalRule runs e.ExperimentalRule against parent/template if one
// is configured. A nil Engine or a nil ExperimentalRule is a no-op, returning
// nil so the mandated check ordering is unaffected by default.
func (e *Engine) EvalExperimentalRule(mech string, parent, template *attr.Blob) error {
	if e == nil || e.ExperimentalRule == nil {
		return nil
	}
	return EvalParentRule(e.ExperimentalRule, mech, parent, template)
}

// CheckCreate runs spec.md §4.5's mandated ordering for a key/object creation
// path: token/session constraints, then processing constraints, then the
// created attribute set itself, short-circuiting on the first non-OK
// verdict.
func (e *Engine) CheckCreate(session Session, mech mechanism.ID, fn mechanism.CreationFunction, k1, k2 *attr.Blob) ckerr.CKR {
	for _, k := range []*attr.Blob{k1, k2} {
		if k == nil {
			continue
		}
		if code := CheckCreatedAttrsAgainstToken(session, k); code != ckerr.OK {
			return code
		}
		if code := CheckAccessAttrsAgainstToken(session, k); code != ckerr.OK {
			return code
		}
		if code := CheckCreatedAttrsAgainstProcessing(mech, fn, k); code != ckerr.OK {
			return code
		}
	}
	return CheckCreatedAttrs(mech, k1, k2)
}

// CheckParent runs spec.md §4.5's check_parent_attrs_against_processing for
// an operation (encrypt/decrypt/sign/verify/wrap/unwrap/derive) keyed off an
// existing parent object, and the mechanism-vs-processing-state check for
// the step being taken.
func (e *Engine) CheckParent(mech mechanism.ID, fn mechanism.Function, step mechanism.Step, proc Processing, parent *attr.Blob) ckerr.CKR {
	if code := CheckParentAttrsAgainstProcessing(mech, fn, parent); code != ckerr.OK {
		return code
	}
	return CheckMechanismAgainstProcessing(mech, proc, step)
}
