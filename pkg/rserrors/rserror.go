/*
Copyright 2024 Red Hat, Inc.

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

package rserrors

import (
	"errors"
	"fmt"
)

var _ error = (*RenovateSetupError)(nil)

// RenovateSetupError extends standard error to:
//  1. Keep persistent / transient property of the error.
//     All errors, except ETransientError considered persistent.
//  2. Have error ID to show the root cause of the error and optionally short message.
type RenovateSetupError struct {
	// id is used to determine if error is persistent and to know the root cause of the error
	id RSErrorId
	// typically used to log the error message along with nested errors
	err error
	// Optional. To provide extra information about this error
	// If set, it will be appended to the error message returned from Error
	ExtraInfo string
}

func NewRenovateSetupError(id RSErrorId, err error) *RenovateSetupError {
	return &RenovateSetupError{
		id:        id,
		err:       err,
		ExtraInfo: "",
	}
}

func (r RenovateSetupError) Error() string {
	if r.err == nil {
		return r.ShortError()
	}
	if r.ExtraInfo == "" {
		return r.err.Error()
	}
	return fmt.Sprintf("%s %s", r.err.Error(), r.ExtraInfo)
}

func (r RenovateSetupError) Unwrap() error {
	return r.err
}

func (r RenovateSetupError) GetErrorId() int {
	return int(r.id)
}

// ShortError returns short message with error ID in case of persistent error or
// standard error message for transient errors.
func (r RenovateSetupError) ShortError() string {
	if r.id == ETransientError {
		if r.err != nil {
			return r.err.Error()
		}
		return "transient error"
	}
	return fmt.Sprintf("%d: %s", r.id, rsErrorMessages[r.id])
}

func (r RenovateSetupError) IsPersistent() bool {
	return r.id != ETransientError
}

type RSErrorId int

const (
	ETransientError RSErrorId = 0
	EUnknownError   RSErrorId = 1

	// The extends option was not given or is empty.
	EExtendsRequired RSErrorId = 10
	// The extends option contains an empty preset, e.g. "a,,b".
	EExtendsInvalid RSErrorId = 11
	// The repository descriptor has no owner.
	EOwnerMissing RSErrorId = 12
	// Repository reference is neither owner/name nor a git URL.
	EInvalidRepositoryRef RSErrorId = 13

	// The configuration path points to a directory, submodule or symlink.
	ENotAFile RSErrorId = 20
	// The configuration file is not a JSON object.
	EInvalidJSON RSErrorId = 21
	// package.json has a "renovate" field which is not an object.
	ERenovateNotObject RSErrorId = 22

	// Platform other than github or gitlab was requested.
	EUnsupportedPlatform RSErrorId = 60
	// Neither a token nor GitHub App credentials were configured.
	ENoCredentials RSErrorId = 61

	// The configured GitHub App is not installed for the repository owner.
	EGitHubAppNotInstalled RSErrorId = 70
	// Bad formatted private key
	EGitHubAppMalformedPrivateKey RSErrorId = 71
	// GitHub Application ID is not a valid integer
	EGitHubAppMalformedId RSErrorId = 72

	// EGitHubTokenUnauthorized access token can't be recognized by GitHub and 401 is responded.
	// This error may be caused by a malformed token string or an expired token.
	EGitHubTokenUnauthorized RSErrorId = 74
	// EGitHubReachRateLimit reach the GitHub REST API rate limit.
	EGitHubReachRateLimit RSErrorId = 76

	// EGitLabTokenUnauthorized access token is not recognized by GitLab and 401 is responded.
	// The access token may be malformed or expired.
	EGitLabTokenUnauthorized RSErrorId = 90
	// EGitLabTokenInsufficientScope the access token does not have sufficient scope and 403 is responded.
	EGitLabTokenInsufficientScope RSErrorId = 91
)

var rsErrorMessages = map[RSErrorId]string{
	ETransientError: "",
	EUnknownError:   "unknown error",

	EExtendsRequired:      "--extends is required",
	EExtendsInvalid:       "--extends contains an empty preset",
	EOwnerMissing:         "repository must have an 'owner' associated",
	EInvalidRepositoryRef: "invalid repository reference",

	ENotAFile:          "configuration path is not a file",
	EInvalidJSON:       "configuration file is not a valid JSON object",
	ERenovateNotObject: "\"renovate\" field in package.json is not an object",

	EUnsupportedPlatform: "unsupported git platform",
	ENoCredentials:       "no credentials configured for git platform",

	EGitHubAppNotInstalled:        "GitHub Application is not installed for repository owner",
	EGitHubAppMalformedPrivateKey: "malformed GitHub Application private key",
	EGitHubAppMalformedId:         "malformed GitHub Application ID",

	EGitHubTokenUnauthorized: "Access token is unrecognizable by GitHub",
	EGitHubReachRateLimit:    "Reach GitHub REST API rate limit",

	EGitLabTokenUnauthorized:      "Access token is unrecognizable by remote GitLab service",
	EGitLabTokenInsufficientScope: "GitLab access token does not have enough scope",
}

// IsRenovateSetupError returns true if the specified error is RenovateSetupError with certain code.
func IsRenovateSetupError(err error, code RSErrorId) bool {
	var rsErr *RenovateSetupError
	if err != nil && errors.As(err, &rsErr) {
		if rsErr.GetErrorId() == int(code) {
			return true
		}
	}
	return false
}
