package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	return img
}

func testPNG() []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, testImage())).To(Succeed())
	return buf.Bytes()
}

func testJPEG() []byte {
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, testImage(), nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("ToPNG", func() {
	var (
		input       []byte
		contentType string
		output      []byte
		converted   bool
		err         error
	)

	JustBeforeEach(func() {
		output, converted, err = ToPNG(input, contentType)
	})

	When("the upload is already PNG", func() {
		BeforeEach(func() {
			input = testPNG()
			contentType = "image/png"
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the data untouched", func() {
			Expect(converted).To(BeFalse())
			Expect(output).To(Equal(input))
		})
	})

	When("the upload is labelled PNG but is not an image", func() {
		BeforeEach(func() {
			input = []byte("<script>alert(1)</script>")
			contentType = "image/png"
		})

		It("returns ErrUnsupportedFormat", func() {
			Expect(err).To(MatchError(ErrUnsupportedFormat))
			Expect(output).To(BeNil())
		})
	})

	When("the upload is labelled PNG but is JPEG", func() {
		BeforeEach(func() {
			input = testJPEG()
			contentType = "image/png"
		})

		It("should convert it to PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(converted).To(BeTrue())
			_, decodeErr := png.Decode(bytes.NewReader(output))
			Expect(decodeErr).NotTo(HaveOccurred())
		})
	})

	When("the upload is JPEG", func() {
		BeforeEach(func() {
			input = testJPEG()
			contentType = " IMAGE/JPEG "
		})

		It("should convert it to PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(converted).To(BeTrue())
			_, decodeErr := png.Decode(bytes.NewReader(output))
			Expect(decodeErr).NotTo(HaveOccurred())
		})
	})

	When("no content type is given", func() {
		BeforeEach(func() {
			input = testJPEG()
			contentType = ""
		})

		It("should sniff the image and convert it", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(converted).To(BeTrue())
		})
	})

	When("the upload is not an image", func() {
		BeforeEach(func() {
			input = []byte("just some text")
			contentType = "text/plain"
		})

		It("returns ErrUnsupportedFormat", func() {
			Expect(err).To(MatchError(ErrUnsupportedFormat))
		})
	})
})

var _ = Describe("isHEICFormat", func() {
	It("should detect the heic brand", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypheic\x00\x00"))).To(BeTrue())
	})

	It("should detect the mif1 brand", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypmif1\x00\x00"))).To(BeTrue())
	})

	It("should reject other ftyp brands", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypisom\x00\x00"))).To(BeFalse())
	})

	It("should reject short data", func() {
		Expect(isHEICFormat([]byte("ftyp"))).To(BeFalse())
	})
})
