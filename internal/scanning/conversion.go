package scanning

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// ticketScanPrompt is the shared prompt used by all LLM providers for scanning order tickets
const ticketScanPrompt = `You are reading a handwritten or printed order ticket from a small cafe. Carefully read every line and extract each ordered item with its price.

Typical item names include: Espresso, Cappuccino, Nescaffe, Tea, Soft Drinks, Meza, Ice Tea, Water, Biliardo 3, Biliardo 5, Lahmi, Kafta, Tawook.

Return ONLY valid JSON in this exact format:
{
  "items": [
    {"name": "Item Name", "price": 0.00}
  ]
}

Important:
- Use the item name exactly as written on the ticket
- The price must be a number (not a string), the line total for that item
- If the same item appears more than once, add its prices into one line
- If you cannot read a price, use null for that price
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// ErrUnsupportedFormat is returned for uploads that are neither an image nor a PDF
var ErrUnsupportedFormat = errors.New("unsupported image format (supported: JPEG, PNG, GIF, HEIC, HEIF, PDF)")

// ToPNG normalizes the MIME type and converts the upload to PNG if needed.
// The returned data is always PNG; converted reports whether any work was done.
func ToPNG(imageData []byte, contentType string) (pngData []byte, converted bool, err error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	switch {
	case mimeType == "application/pdf":
		pngData, err = pdfToPNG(imageData)
		if err != nil {
			return nil, false, fmt.Errorf("converting PDF to image: %w", err)
		}
		return pngData, true, nil
	case mimeType == "image/png" && isPNG(imageData):
		return imageData, false, nil
	default:
		pngData, err = imageToPNG(imageData, mimeType)
		if err != nil {
			return nil, false, fmt.Errorf("converting image to PNG: %w", err)
		}
		return pngData, true, nil
	}
}

// pdfToPNG renders the first page of a PDF, tickets are single page
func pdfToPNG(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	return encodePNG(img)
}

func imageToPNG(imageData []byte, mimeType string) ([]byte, error) {
	var (
		img image.Image
		err error
	)

	// The standard library has no HEIC decoder (iPhone camera default)
	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return encodePNG(img)
	}

	img, _, err = image.Decode(bytes.NewReader(imageData))
	if errors.Is(err, image.ErrFormat) {
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isPNG reports whether data carries a readable PNG header, whatever it was labelled
func isPNG(data []byte) bool {
	_, err := png.DecodeConfig(bytes.NewReader(data))
	return err == nil
}

// isHEICFormat looks for an ftyp box at offset 4 with a HEIF brand
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
