package receipt

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(filepath.Join(tmpDir, "images"))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		It("writes the file and returns its name", func() {
			name, err := storage.Save("run_0_receipt.jpg", []byte("jpeg"))
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("run_0_receipt.jpg"))
			Expect(filepath.Join(tmpDir, "images", name)).To(BeAnExistingFile())
		})

		It("refuses names that leave the storage directory", func() {
			_, err := storage.Save("../escape.jpg", []byte("x"))
			Expect(err).To(MatchError(ErrInvalidInput))
			Expect(filepath.Join(tmpDir, "escape.jpg")).NotTo(BeAnExistingFile())
		})
	})

	Describe("Get", func() {
		It("returns the saved data", func() {
			_, err := storage.Save("a.png", []byte("png data"))
			Expect(err).NotTo(HaveOccurred())

			data, err := storage.Get("a.png")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("png data"))
		})

		It("returns ErrNotFound for a missing file", func() {
			_, err := storage.Get("missing.png")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("Delete", func() {
		It("removes the file", func() {
			_, err := storage.Save("a.png", []byte("png data"))
			Expect(err).NotTo(HaveOccurred())

			Expect(storage.Delete("a.png")).To(Succeed())
			Expect(filepath.Join(tmpDir, "images", "a.png")).NotTo(BeAnExistingFile())
		})

		It("fails for a missing file", func() {
			Expect(storage.Delete("missing.png")).NotTo(Succeed())
		})
	})
})

var _ = DescribeTable("sanitizeFilename",
	func(in, expected string) {
		Expect(sanitizeFilename(in)).To(Equal(expected))
	},
	Entry("keeps a plain name", "receipt.jpg", "receipt.jpg"),
	Entry("replaces spaces", "IMG 2025 10 05.jpeg", "IMG_2025_10_05.jpeg"),
	Entry("strips special characters", "Kroger (1)!.png", "Kroger_1.png"),
	Entry("drops directories", "/tmp/photos/scan.pdf", "scan.pdf"),
	Entry("falls back when nothing is left", "###.heic", "receipt.heic"),
	Entry("trims surrounding spaces", "  milk run  .jpg", "milk_run.jpg"),
	Entry("truncates long names", "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz.jpg", "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwx.jpg"),
)
