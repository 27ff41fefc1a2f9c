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

package setup

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-github/v45/github"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/konflux-ci/renovate-setup/internal/pkg/repository/base"
	ghclient "github.com/konflux-ci/renovate-setup/internal/pkg/repository/github"
	"github.com/konflux-ci/renovate-setup/pkg/rserrors"
)

var originalPackageJSON = map[string]interface{}{
	"name":        "octoherd-cli",
	"version":     "0.0.0",
	"description": "",
	"main":        "index.js",
	"scripts": map[string]interface{}{
		"test": `echo "Error: no test specified" && exit 1`,
	},
	"author":  "",
	"license": "ISC",
}

func withFields(doc map[string]interface{}, fields map[string]interface{}) map[string]interface{} {
	result := map[string]interface{}{}
	for k, v := range doc {
		result[k] = v
	}
	for k, v := range fields {
		result[k] = v
	}
	return result
}

func mustMarshal(doc interface{}) []byte {
	raw, err := json.Marshal(doc)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return raw
}

func decode(content []byte) map[string]interface{} {
	var doc map[string]interface{}
	ExpectWithOffset(1, json.Unmarshal(content, &doc)).To(Succeed())
	return doc
}

var _ = Describe("Run", func() {

	var (
		client *fakeClient
		repo   *base.Repository
		opts   Options
	)

	BeforeEach(func() {
		client = &fakeClient{}
		repo = &base.Repository{
			Owner:   &base.Owner{Login: "octocat"},
			Name:    "Hello-World",
			HTMLURL: "https://github.com/octocat/Hello-World",
		}
		opts = Options{Extends: "github>octoherd/.github"}
	})

	Context("Preconditions", func() {

		It("Should fail before any network call when extends is missing", func() {
			for _, extends := range []string{"", " "} {
				opts.Extends = extends
				_, err := Run(testContext(), client, repo, opts)
				Expect(err).To(MatchError("--extends is required"))
				Expect(rserrors.IsRenovateSetupError(err, rserrors.EExtendsRequired)).To(BeTrue())
			}
			Expect(client.networkCalls()).To(BeZero())
		})

		It("Should fail before any network call when the owner is missing", func() {
			repo.Owner = nil
			_, err := Run(testContext(), client, repo, opts)
			Expect(err).To(MatchError("repository must have an 'owner' associated"))
			Expect(rserrors.IsRenovateSetupError(err, rserrors.EOwnerMissing)).To(BeTrue())
			Expect(client.networkCalls()).To(BeZero())
		})

		It("Should skip archived repositories without any network call", func() {
			repo.Archived = true
			outcome, err := Run(testContext(), client, repo, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Status).To(Equal(StatusSkippedArchived))
			Expect(client.networkCalls()).To(BeZero())
		})
	})

	Context("When the file does not exist", func() {

		It("Should create it with only the extends field", func() {
			outcome, err := Run(testContext(), client, repo, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Status).To(Equal(StatusCreated))
			Expect(outcome.CommitURL).To(HavePrefix("https://github.com/octocat/Hello-World/commit/"))
			Expect(client.putCalls).To(Equal(1))
			Expect(client.putPath).To(Equal("package.json"))
			Expect(client.putChange.SHA).To(BeEmpty())
			Expect(client.putChange.Message).To(Equal("build: renovate setup"))
			Expect(decode(client.putChange.Content)).To(Equal(map[string]interface{}{
				"renovate": map[string]interface{}{"extends": []interface{}{"github>octoherd/.github"}},
			}))
		})

		It("Should leave the repository alone with SkipMissing", func() {
			opts.SkipMissing = true
			outcome, err := Run(testContext(), client, repo, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Status).To(Equal(StatusSkippedMissing))
			Expect(client.putCalls).To(BeZero())
		})

		It("Should use top-level extends for other paths", func() {
			opts.Path = "renovate.json"
			opts.Extends = "config:base, github>octoherd/.github"
			_, err := Run(testContext(), client, repo, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(client.putPath).To(Equal("renovate.json"))
			Expect(decode(client.putChange.Content)).To(Equal(map[string]interface{}{
				"extends": []interface{}{"config:base", "github>octoherd/.github"},
			}))
		})
	})

	Context("When the file exists", func() {

		It("Should replace a different extends list and keep other fields", func() {
			client.file = &base.File{
				Path: "package.json",
				SHA:  "randomSha",
				Content: mustMarshal(withFields(originalPackageJSON, map[string]interface{}{
					"renovate": map[string]interface{}{"extends": []string{"github>octokit/.github"}},
				})),
			}

			outcome, err := Run(testContext(), client, repo, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Status).To(Equal(StatusUpdated))
			Expect(outcome.PreviousExtends).To(Equal(`["github>octokit/.github"]`))
			Expect(client.putChange.SHA).To(Equal("randomSha"))

			expected := withFields(originalPackageJSON, map[string]interface{}{
				"renovate": map[string]interface{}{"extends": []interface{}{"github>octoherd/.github"}},
			})
			Expect(cmp.Diff(expected, decode(client.putChange.Content))).To(BeEmpty())
		})

		It("Should not write when the same presets are set in a different order", func() {
			client.file = &base.File{
				Path: "package.json",
				SHA:  "randomSha",
				Content: mustMarshal(withFields(originalPackageJSON, map[string]interface{}{
					"renovate": map[string]interface{}{"extends": []string{"github>octokit/.github", "github>octoherd/.github"}},
				})),
			}
			opts.Extends = "github>octoherd/.github,github>octokit/.github"

			outcome, err := Run(testContext(), client, repo, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Status).To(Equal(StatusUnchanged))
			Expect(client.putCalls).To(BeZero())
		})

		It("Should not write in dry run mode", func() {
			client.file = &base.File{Path: "package.json", SHA: "randomSha", Content: mustMarshal(originalPackageJSON)}
			opts.DryRun = true

			outcome, err := Run(testContext(), client, repo, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Status).To(Equal(StatusDryRun))
			Expect(client.putCalls).To(BeZero())
		})

		It("Should fail on invalid JSON without writing", func() {
			client.file = &base.File{Path: "package.json", SHA: "randomSha", Content: []byte("not json")}

			_, err := Run(testContext(), client, repo, opts)
			Expect(rserrors.IsRenovateSetupError(err, rserrors.EInvalidJSON)).To(BeTrue())
			Expect(client.putCalls).To(BeZero())
		})
	})

	Context("When the platform fails", func() {

		It("Should return read errors unchanged", func() {
			readErr := errors.New("500 Internal Server Error")
			client.getErr = readErr

			_, err := Run(testContext(), client, repo, opts)
			Expect(err).To(BeIdenticalTo(readErr))
			Expect(client.putCalls).To(BeZero())
		})

		It("Should return write errors", func() {
			client.putErr = errors.New("409 Conflict")

			_, err := Run(testContext(), client, repo, opts)
			Expect(err).To(MatchError("409 Conflict"))
		})
	})
})

var _ = Describe("Run against the GitHub API", func() {

	const contentsPath = "/repos/octocat/Hello-World/contents/package.json"

	var (
		mux    *http.ServeMux
		server *httptest.Server
		client *ghclient.Client
		repo   *base.Repository
		opts   Options
	)

	respondWithFile := func(doc map[string]interface{}) {
		mux.HandleFunc("GET "+contentsPath, func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			w.Header().Set("Content-Type", "application/json")
			Expect(json.NewEncoder(w).Encode(map[string]interface{}{
				"type":     "file",
				"encoding": "base64",
				"sha":      "randomSha",
				"content":  base64.StdEncoding.EncodeToString(mustMarshal(doc)),
			})).To(Succeed())
		})
	}

	expectPut := func(expected map[string]interface{}) {
		mux.HandleFunc("PUT "+contentsPath, func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			var body struct {
				Content string `json:"content"`
				SHA     string `json:"sha"`
				Message string `json:"message"`
			}
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			content, err := base64.StdEncoding.DecodeString(body.Content)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(HaveSuffix("}\n"))
			Expect(cmp.Diff(expected, decode(content))).To(BeEmpty())
			Expect(body.SHA).To(Equal("randomSha"))
			Expect(body.Message).To(Equal("build: renovate setup"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"commit":{"html_url":"link to commit"}}`))
		})
	}

	BeforeEach(func() {
		mux = http.NewServeMux()
		server = httptest.NewServer(mux)
		DeferCleanup(server.Close)

		var err error
		client, err = ghclient.NewClient(server.Client(), server.URL)
		Expect(err).NotTo(HaveOccurred())

		repo = &base.Repository{
			Owner:   &base.Owner{Login: "octocat"},
			Name:    "Hello-World",
			HTMLURL: "https://github.com/octocat/Hello-World",
		}
		opts = Options{Extends: "github>octoherd/.github"}
	})

	It("Adds 'renovate' entry to package.json if it did not exist", func() {
		respondWithFile(originalPackageJSON)
		expectPut(withFields(originalPackageJSON, map[string]interface{}{
			"renovate": map[string]interface{}{"extends": []interface{}{"github>octoherd/.github"}},
		}))

		outcome, err := Run(testContext(), client, repo, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.CommitURL).To(Equal("link to commit"))
	})

	It("Adds 'extends' entry to 'renovate' entry if it did not exist", func() {
		respondWithFile(withFields(originalPackageJSON, map[string]interface{}{"renovate": map[string]interface{}{}}))
		expectPut(withFields(originalPackageJSON, map[string]interface{}{
			"renovate": map[string]interface{}{"extends": []interface{}{"github>octoherd/.github"}},
		}))

		outcome, err := Run(testContext(), client, repo, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.Status).To(Equal(StatusUpdated))
	})

	It("Throws if package.json is not a file", func() {
		mux.HandleFunc("GET "+contentsPath, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sha":"randomSha","type":"dir"}`))
		})

		_, err := Run(testContext(), client, repo, opts)
		Expect(err).To(MatchError(server.URL + contentsPath + " is not a file, but a dir"))
	})

	It("Throws if server fails when retrieving package.json", func() {
		mux.HandleFunc("GET "+contentsPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := Run(testContext(), client, repo, opts)
		var errorResponse *github.ErrorResponse
		Expect(errors.As(err, &errorResponse)).To(BeTrue())
		Expect(errorResponse.Response.StatusCode).To(Equal(http.StatusInternalServerError))
	})
})
