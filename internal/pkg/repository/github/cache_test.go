package github

import (
	"github.com/google/go-github/v45/github"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("InstallationCache", func() {

	It("Should return nothing for an unknown owner", func() {
		cache := NewInstallationCache()
		client, ok := cache.Get("octocat")
		Expect(ok).To(BeFalse())
		Expect(client).To(BeNil())
	})

	It("Should return the stored client regardless of owner case", func() {
		cache := NewInstallationCache()
		client := github.NewClient(nil)
		cache.Set("OctoCat", client)

		result, ok := cache.Get("octocat")
		Expect(ok).To(BeTrue())
		Expect(result).To(BeIdenticalTo(client))
	})
})
