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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptoklabs/ck11core/internal/attr"
)

func TestCompileParentRuleRejectsBadExpression(t *testing.T) {
	_, err := CompileParentRule("bad", "parent.sensitive ==", "")
	assert.Error(t, err)
}

func TestEvalParentRuleDeniesUnwrapOfNonExtractableParent(t *testing.T) {
	rule, err := CompileParentRule(
		"deny-unwrap-non-extractable",
		`mechanism == "unwrap" && parent.extractable == false`,
		"parent key is not extractable",
	)
	require.NoError(t, err)

	parent := attr.New()
	parent.PutBool(attr.Extractable, false)
	template := attr.New()

	err = EvalParentRule(rule, "unwrap", &parent, &template)
	assert.ErrorContains(t, err, "parent key is not extractable")
}

func TestEvalParentRuleAllowsWhenConditionFalse(t *testing.T) {
	rule, err := CompileParentRule(
		"deny-unwrap-non-extractable",
		`mechanism == "unwrap" && parent.extractable == false`,
		"parent key is not extractable",
	)
	require.NoError(t, err)

	parent := attr.New()
	parent.PutBool(attr.Extractable, true)
	template := attr.New()

	assert.NoError(t, EvalParentRule(rule, "unwrap", &parent, &template))
}

func TestEvalParentRuleDeniesWrapWithUntrustedWrappingKeyWhenRequired(t *testing.T) {
	rule, err := CompileParentRule(
		"deny-wrap-with-trusted",
		`mechanism == "wrap" && parent.wrap_with_trusted == true && template.trusted == false`,
		"wrapping key requires a trusted wrapper",
	)
	require.NoError(t, err)

	parent := attr.New()
	parent.PutBool(attr.WrapWithTrusted, true)

	untrustedTemplate := attr.New()
	untrustedTemplate.PutBool(attr.Trusted, false)
	assert.ErrorContains(t, EvalParentRule(rule, "wrap", &parent, &untrustedTemplate), "trusted wrapper")

	trustedTemplate := attr.New()
	trustedTemplate.PutBool(attr.Trusted, true)
	assert.NoError(t, EvalParentRule(rule, "wrap", &parent, &trustedTemplate))
}

func TestEvalParentRuleUsesDefaultMessageWhenNoneGiven(t *testing.T) {
	rule, err := CompileParentRule("deny-all", "true", "")
	require.NoError(t, err)

	parent := attr.New()
	template := attr.New()
	err = EvalParentRule(rule, "derive", &parent, &template)
	assert.ErrorContains(t, err, "deny-all")
}

func TestEvalParentRuleRejectsNonBoolResult(t *testing.T) {
	rule, err := CompileParentRule("not-bool", `parent.key_type`, "")
	require.NoError(t, err)

	parent := attr.New()
	parent.PutU32(attr.KeyType, 0x1f)
	template := attr.New()

	err = EvalParentRule(rule, "derive", &parent, &template)
	assert.ErrorContains(t, err, "did not return a bool")
}

func TestBlobToCELDefaultsUnsetBooleansToFalse(t *testing.T) {
	blob := attr.New()
	fields := blobToCEL(&blob)

	assert.Equal(t, false, fields["sensitive"])
	assert.Equal(t, false, fields["extractable"])
	assert.Equal(t, false, fields["trusted"])
	assert.NotContains(t, fields, "key_type")
	assert.NotContains(t, fields, "class")
}

func TestBlobToCELHandlesNilBlob(t *testing.T) {
	fields := blobToCEL(nil)
	assert.Equal(t, false, fields["sensitive"])
}
