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

package mechanism

// Function is one of the Cryptoki function families a mechanism may be
// invoked under, per spec.md §3's GLOSSARY and §4.4's allowed_functions
// bitset.
type Function uint32

const (
	FuncEncrypt Function = 1 << iota
	FuncDecrypt
	FuncDigest
	FuncSign
	FuncSignRecover
	FuncVerify
	FuncVerifyRecover
	FuncGenerate
	FuncGenerateKeyPair
	FuncWrap
	FuncUnwrap
	FuncDerive
)

func (f Function) String() string {
	switch f {
	case FuncEncrypt:
		return "ENCRYPT"
	case FuncDecrypt:
		return "DECRYPT"
	case FuncDigest:
		return "DIGEST"
	case FuncSign:
		return "SIGN"
	case FuncSignRecover:
		return "SIGN_RECOVER"
	case FuncVerify:
		return "VERIFY"
	case FuncVerifyRecover:
		return "VERIFY_RECOVER"
	case FuncGenerate:
		return "GENERATE"
	case FuncGenerateKeyPair:
		return "GENERATE_KEY_PAIR"
	case FuncWrap:
		return "WRAP"
	case FuncUnwrap:
		return "UNWRAP"
	case FuncDerive:
		return "DERIVE"
	default:
		return "UNKNOWN_FUNCTION"
	}
}

// Step is the processing step a session is at for a given multi-part
// operation, per spec.md §4.5's check_mechanism_against_processing.
type Step int

const (
	StepInit Step = iota
	StepUpdate
	StepOneShot
	StepFinal
)

// CreationFunction is the object-creation entry point driving
// build_object's LOCAL derivation (spec.md §4.3 step 3, §6.2's
// build_object(template, parent?, function)).
type CreationFunction int

const (
	CreationImport CreationFunction = iota
	CreationGenerate
	CreationGenerateKeyPair
	CreationDerive
	CreationCopy
)
