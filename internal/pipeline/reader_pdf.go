package pipeline

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"
)

func init() {
	RegisterReader(newPDFReader, "pdf")
}

// weakTextSignalChars is the per-page character floor below which a page is
// considered to have failed native text extraction and is routed to OCR,
// grounded in the pack's page-level weak-text-signal heuristic.
const weakTextSignalChars = 40

// PageRasterizer renders one page of a PDF to an image so it can be handed
// to an OCRProvider. Concrete rasterization is out of scope (the teacher
// pack treats it the same way, delegating to an external renderer); callers
// that need OCR must supply one.
type PageRasterizer interface {
	RasterizePage(ctx context.Context, path string, page int, dpi int) ([]byte, error)
}

// OCRProvider recognizes text in a rasterized page image, shaped after
// yungbote's Vision.OCRImageBytes. This module ships no implementation; the
// caller supplies one.
type OCRProvider interface {
	OCRImageBytes(ctx context.Context, image []byte, mimeType string) (string, error)
}

type pdfReader struct {
	cfg        TextEmbedConfig
	rasterizer PageRasterizer
	ocr        OCRProvider
}

func newPDFReader(cfg TextEmbedConfig) Reader {
	return &pdfReader{cfg: cfg}
}

// NewPDFReaderWithOCR attaches the collaborators needed for the OCR fallback
// path. A pdfReader built via NewReaderForPath has neither set, so use this
// constructor directly when use_ocr or scanned PDFs are expected.
func NewPDFReaderWithOCR(cfg TextEmbedConfig, rasterizer PageRasterizer, ocr OCRProvider) Reader {
	return &pdfReader{cfg: cfg, rasterizer: rasterizer, ocr: ocr}
}

func (r *pdfReader) Read(ctx context.Context, path string, out chan<- RawSegment) error {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return NewSourceError(SourceDecodeFailed, path, err)
	}
	defer f.Close()

	numPages := reader.NumPage()
	for page := 1; page <= numPages; page++ {
		if err := ctx.Err(); err != nil {
			return ErrCancelled
		}

		text, pageErr := extractPDFPageText(reader, page)
		weak := pageErr != nil || len(strings.TrimSpace(text)) < weakTextSignalChars

		if (r.cfg.UseOCR || weak) && r.rasterizer != nil && r.ocr != nil {
			if ocrText, ocrErr := r.ocrPage(ctx, path, page); ocrErr == nil && strings.TrimSpace(ocrText) != "" {
				text = ocrText
			} else if text == "" {
				continue // neither native extraction nor OCR produced text for this page
			}
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		seg := RawSegment{
			Kind:       SegmentText,
			Content:    text,
			FilePath:   path,
			PageNumber: page,
		}
		select {
		case out <- seg:
		case <-ctx.Done():
			return ErrCancelled
		}
	}
	return nil
}

func (r *pdfReader) ocrPage(ctx context.Context, path string, page int) (string, error) {
	image, err := r.rasterizer.RasterizePage(ctx, path, page, 150)
	if err != nil {
		return "", err
	}
	return r.ocr.OCRImageBytes(ctx, image, "image/png")
}

func extractPDFPageText(reader *pdf.Reader, page int) (string, error) {
	p := reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	var buf bytes.Buffer
	text, err := p.GetPlainText(nil)
	if err != nil {
		return "", err
	}
	buf.WriteString(text)
	return buf.String(), nil
}
