// Copyright 2024 Red Hat, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reconcile decides whether a Renovate configuration document already
// extends the desired presets and, if not, produces the updated document.
package reconcile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"

	"github.com/konflux-ci/renovate-setup/internal/pkg/constant"
	"github.com/konflux-ci/renovate-setup/pkg/rserrors"
)

const indent = "  "

var extendsSeparator = regexp.MustCompile(`\s*,\s*`)

// Document is the current state of the remote configuration file.
type Document struct {
	Path    string
	Exists  bool
	Content []byte
}

type Result struct {
	// Changed is false when the document already extends the desired presets,
	// Content is then the unmodified input.
	Changed bool
	Content []byte
	// Field is the gjson path of the extends list, e.g. "renovate.extends"
	Field string
	// HadPrevious is set when the extends field existed before, Previous holds
	// its value if it was a list of strings and PreviousRaw the raw JSON.
	HadPrevious bool
	Previous    []string
	PreviousRaw string
}

// ParseExtends splits the comma separated extends option into presets.
func ParseExtends(option string) ([]string, error) {
	option = strings.TrimSpace(option)
	if option == "" {
		return nil, rserrors.NewRenovateSetupError(rserrors.EExtendsRequired, errors.New("--extends is required"))
	}

	presets := extendsSeparator.Split(option, -1)
	for _, preset := range presets {
		if preset == "" {
			return nil, rserrors.NewRenovateSetupError(rserrors.EExtendsInvalid,
				fmt.Errorf("--extends %q contains an empty preset", option))
		}
	}
	return presets, nil
}

func IsPackageJSON(path string) bool {
	return strings.HasSuffix(path, constant.DefaultConfigPath)
}

// FieldPath returns where the extends list lives in the document at path.
func FieldPath(path string) string {
	if IsPackageJSON(path) {
		return constant.PackageJSONRenovateField + "." + constant.ExtendsField
	}
	return constant.ExtendsField
}

// Equal reports whether both preset lists hold the same presets in any order.
func Equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sortedA := slices.Clone(a)
	sortedB := slices.Clone(b)
	slices.Sort(sortedA)
	slices.Sort(sortedB)
	return slices.Equal(sortedA, sortedB)
}

// Reconcile sets the extends field of doc to desired. All other fields keep
// their values and order; the document is re-indented with two spaces and
// ends with a newline.
func Reconcile(doc Document, desired []string) (*Result, error) {
	if len(desired) == 0 {
		return nil, rserrors.NewRenovateSetupError(rserrors.EExtendsRequired, errors.New("--extends is required"))
	}

	content := []byte("{}")
	if doc.Exists {
		content = doc.Content
		// Renovate accepts comments in its own config files, but not in package.json
		if !IsPackageJSON(doc.Path) {
			content = jsonc.ToJSON(content)
		}
		if !gjson.ValidBytes(content) || !gjson.ParseBytes(content).IsObject() {
			return nil, rserrors.NewRenovateSetupError(rserrors.EInvalidJSON,
				fmt.Errorf("%s is not a valid JSON object", doc.Path))
		}
		if key, ok := duplicateKey(gjson.ParseBytes(content)); ok {
			return nil, rserrors.NewRenovateSetupError(rserrors.EInvalidJSON,
				fmt.Errorf("%s has duplicate key %q", doc.Path, key))
		}
	}

	field := FieldPath(doc.Path)
	result := &Result{Field: field}

	if IsPackageJSON(doc.Path) {
		renovate := gjson.GetBytes(content, constant.PackageJSONRenovateField)
		switch {
		case !renovate.Exists():
			// sjson creates the object when missing
		case renovate.IsObject():
			if key, ok := duplicateKey(renovate); ok {
				return nil, rserrors.NewRenovateSetupError(rserrors.EInvalidJSON,
					fmt.Errorf("%q field in %s has duplicate key %q", constant.PackageJSONRenovateField, doc.Path, key))
			}
		case renovate.Type == gjson.Null, renovate.Type == gjson.False:
			var err error
			content, err = sjson.SetRawBytes(content, constant.PackageJSONRenovateField, []byte("{}"))
			if err != nil {
				return nil, fmt.Errorf("failed to reset %q field: %w", constant.PackageJSONRenovateField, err)
			}
		default:
			return nil, rserrors.NewRenovateSetupError(rserrors.ERenovateNotObject,
				fmt.Errorf("%q field in %s is not an object", constant.PackageJSONRenovateField, doc.Path))
		}
	}

	current := gjson.GetBytes(content, field)
	if current.Exists() {
		result.HadPrevious = true
		result.PreviousRaw = current.Raw
		if previous, ok := stringList(current); ok {
			result.Previous = previous
			if Equal(previous, desired) {
				result.Content = doc.Content
				return result, nil
			}
		}
	}

	raw, err := marshalPresets(desired)
	if err != nil {
		return nil, err
	}
	updated, err := sjson.SetRawBytes(content, field, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to set %q: %w", field, err)
	}
	formatted, err := format(updated)
	if err != nil {
		return nil, rserrors.NewRenovateSetupError(rserrors.EInvalidJSON, err)
	}

	result.Changed = true
	result.Content = formatted
	return result, nil
}

// duplicateKey reports the first key repeated in object. gjson and sjson
// address the first occurrence of a key, JSON.parse the last one.
func duplicateKey(object gjson.Result) (string, bool) {
	seen := map[string]struct{}{}
	var duplicate string
	object.ForEach(func(key, _ gjson.Result) bool {
		if _, ok := seen[key.Str]; ok {
			duplicate = key.Str
			return false
		}
		seen[key.Str] = struct{}{}
		return true
	})
	return duplicate, duplicate != ""
}

func stringList(value gjson.Result) ([]string, bool) {
	if !value.IsArray() {
		return nil, false
	}
	items := value.Array()
	list := make([]string, 0, len(items))
	for _, item := range items {
		if item.Type != gjson.String {
			return nil, false
		}
		list = append(list, item.Str)
	}
	return list, true
}

// marshalPresets keeps characters like '>' in "github>owner/repo" unescaped.
func marshalPresets(presets []string) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(presets); err != nil {
		return nil, fmt.Errorf("failed to encode presets: %w", err)
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

func format(content []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(content), "", indent); err != nil {
		return nil, fmt.Errorf("failed to format document: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
