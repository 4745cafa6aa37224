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
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/cryptoklabs/ck11core/internal/attr"
)

// celEnv is the single shared CEL environment every parent rule compiles
// against: the parent object's attributes, the child template under
// construction, and the mechanism name driving the wrap/unwrap/derive call.
// It is built once since cel.NewEnv is not cheap and rules recompile often
// as policies are loaded.
var celEnv *cel.Env

func init() {
	env, err := cel.NewEnv(
		cel.Variable("parent", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("template", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("mechanism", cel.StringType),
	)
	if err != nil {
		panic(fmt.Sprintf("policy: building CEL environment: %v", err))
	}
	celEnv = env
}

// ParentRule is a compiled CEL expression gating a wrap, unwrap, or derive
// template against the parent key's attributes, per SPEC_FULL.md §4.10.
// A rule that evaluates true DENIES the operation, matching the teacher's
// deny-rule convention.
type ParentRule struct {
	Name    string
	Message string
	program cel.Program
}

// CompileParentRule compiles expr into a ParentRule. expr sees three
// variables: parent (the parent object's attributes), template (the child
// template being built), and mechanism (the mechanism name string).
func CompileParentRule(name, expr, message string) (*ParentRule, error) {
	ast, issues := celEnv.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("policy: compiling rule %q: %w", name, issues.Err())
	}
	program, err := celEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("policy: building program for rule %q: %w", name, err)
	}
	return &ParentRule{Name: name, Message: message, program: program}, nil
}

// EvalParentRule runs rule against parent's attributes, the child template,
// and the mechanism name. It returns an error with the rule's message if
// the expression evaluates true (deny); a non-bool result also returns an
// error, so it denies conservatively.
func EvalParentRule(rule *ParentRule, mech string, parent, template *attr.Blob) error {
	out, _, err := rule.program.Eval(map[string]any{
		"parent":    blobToCEL(parent),
		"template":  blobToCEL(template),
		"mechanism": mech,
	})
	if err != nil {
		return fmt.Errorf("policy: evaluating rule %q: %w", rule.Name, err)
	}

	denied, ok := boolValue(out)
	if !ok {
		return fmt.Errorf("policy: rule %q did not return a bool", rule.Name)
	}
	if denied {
		if rule.Message != "" {
			return fmt.Errorf("policy: %s", rule.Message)
		}
		return fmt.Errorf("policy: denied by rule %q", rule.Name)
	}
	return nil
}

func boolValue(val ref.Val) (bool, bool) {
	if val.Type() != types.BoolType {
		return false, false
	}
	b, ok := val.Value().(bool)
	return b, ok
}

// blobToCEL projects the subset of a Blob's attributes a parent-key policy
// actually reasons about into the plain map CEL's DynType variables
// expect. Unset boolean properties read as false, matching the Blob's own
// GetBool default.
func blobToCEL(blob *attr.Blob) map[string]any {
	if blob == nil {
		empty := attr.New()
		blob = &empty
	}
	out := map[string]any{
		"sensitive":          blob.GetBool(attr.Sensitive),
		"extractable":        blob.GetBool(attr.Extractable),
		"never_extractable":  blob.GetBool(attr.NeverExtractable),
		"always_sensitive":   blob.GetBool(attr.AlwaysSensitive),
		"wrap":               blob.GetBool(attr.Wrap),
		"unwrap":             blob.GetBool(attr.Unwrap),
		"derive":             blob.GetBool(attr.Derive),
		"trusted":            blob.GetBool(attr.Trusted),
		"wrap_with_trusted":  blob.GetBool(attr.WrapWithTrusted),
		"always_authenticate": blob.GetBool(attr.AlwaysAuthenticate),
	}
	if keyType, err := blob.GetU32(attr.KeyType); err == nil {
		out["key_type"] = int64(keyType)
	}
	if class, err := blob.GetU32(attr.Class); err == nil {
		out["class"] = int64(class)
	}
	return out
}
