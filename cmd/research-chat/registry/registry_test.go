package registrycmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	registrycmder "github.com/ai-asa/chat-websearch/cmd/research-chat/registry"
	"github.com/ai-asa/chat-websearch/pkg/registry"
)

var _ = Describe("Registry Command", func() {
	var (
		tmpDir string
		path   string
	)

	run := func(args ...string) (string, error) {
		cmd := registrycmder.NewRegistryCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "registry-cmd-test-*")
		Expect(err).NotTo(HaveOccurred())
		path = filepath.Join(tmpDir, "activity-registry.json")
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("lists the embedded activities", func() {
		out, err := run("list")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("research-turn"))
		Expect(out).To(ContainSubstring("research-aggregate"))
		Expect(out).To(ContainSubstring("icebreak-briefing"))
	})

	It("validates the embedded registry", func() {
		out, err := run("validate")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Registry validation passed (3 activities)"))
	})

	It("adds to a new file and updates it", func() {
		_, err := run("add", "--path", path, "--id", "news-digest", "--display-name", "News Digest")
		Expect(err).NotTo(HaveOccurred())

		_, err = run("update", "--path", path, "--id", "news-digest", "--field", "retries", "--value", "2")
		Expect(err).NotTo(HaveOccurred())

		reg, err := registry.LoadRegistry(path)
		Expect(err).NotTo(HaveOccurred())
		a, ok := reg.Find("news-digest")
		Expect(ok).To(BeTrue())
		Expect(a.Retries).To(Equal(2))
		Expect(a.Category).To(Equal("research"))
	})

	It("rejects non kebab-case ids", func() {
		_, err := run("add", "--path", path, "--id", "News_Digest", "--display-name", "News Digest")
		Expect(err).To(HaveOccurred())
		_, statErr := os.Stat(path)
		Expect(os.IsNotExist(statErr)).To(BeTrue())
	})

	It("requires a file for edits", func() {
		_, err := run("update", "--id", "research-turn", "--field", "status", "--value", "verified")
		Expect(err).To(MatchError(ContainSubstring("--path is required")))
	})

	It("reports unknown fields", func() {
		Expect(registry.Default().Save(path)).To(Succeed())
		_, err := run("update", "--path", path, "--id", "research-turn", "--field", "color", "--value", "red")
		Expect(err).To(MatchError(ContainSubstring("unknown field")))
	})
})
