package export

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"
)

// PDF page size in points, 16:9.
const (
	pageWidthPt  = 960.0
	pageHeightPt = 540.0
)

// renderPDF writes a self-contained PDF: one page per slide with the
// slide image embedded as a JPEG XObject and text set in Helvetica.
// PNG blobs are transcoded to JPEG so DCTDecode can carry them.
func renderPDF(pages []page) ([]byte, error) {
	type object struct {
		num  int
		data []byte
	}

	var objs []object
	next := 4 // 1 catalog, 2 pages, 3 font
	var kids []int

	for i, p := range pages {
		imgNum := 0
		var imgW, imgH int
		if p.image != nil {
			data, w, h, err := toJPEG(p.image)
			if err != nil {
				return nil, fmt.Errorf("page %d image: %w", i+1, err)
			}
			imgNum = next
			next++
			imgW, imgH = w, h

			var sb bytes.Buffer
			fmt.Fprintf(&sb, "%d 0 obj\n<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>\nstream\n", imgNum, w, h, len(data))
			sb.Write(data)
			sb.WriteString("\nendstream\nendobj\n")
			objs = append(objs, object{imgNum, sb.Bytes()})
		}

		content := contentStream(p, i, imgNum, imgW, imgH)
		contentsNum := next
		next++
		objs = append(objs, object{contentsNum, []byte(fmt.Sprintf(
			"%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n",
			contentsNum, len(content), content))})

		pageNum := next
		next++
		kids = append(kids, pageNum)

		resources := "/Font << /F1 3 0 R >>"
		if imgNum != 0 {
			resources += fmt.Sprintf(" /XObject << /Im%d %d 0 R >>", i, imgNum)
		}
		objs = append(objs, object{pageNum, []byte(fmt.Sprintf(
			"%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.0f %.0f] /Resources << %s >> /Contents %d 0 R >>\nendobj\n",
			pageNum, pageWidthPt, pageHeightPt, resources, contentsNum))})
	}

	var kidRefs []string
	for _, k := range kids {
		kidRefs = append(kidRefs, fmt.Sprintf("%d 0 R", k))
	}

	head := []object{
		{1, []byte("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")},
		{2, []byte(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kidRefs, " "), len(kids)))},
		{3, []byte("3 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>\nendobj\n")},
	}
	objs = append(head, objs...)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make(map[int]int, len(objs))
	for _, o := range objs {
		offsets[o.num] = buf.Len()
		buf.Write(o.data)
	}

	xrefStart := buf.Len()
	total := next
	fmt.Fprintf(&buf, "xref\n0 %d\n", total)
	buf.WriteString("0000000000 65535 f \n")
	for n := 1; n < total; n++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", total, xrefStart)

	return buf.Bytes(), nil
}

// contentStream lays out one page: title, body lines, and the image
// scaled to fit the lower band while keeping its aspect ratio.
func contentStream(p page, pageIdx, imgNum, imgW, imgH int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "BT /F1 28 Tf 40 %.0f Td (%s) Tj ET\n", pageHeightPt-60, pdfEscape(p.title))

	body := p.body
	if p.note != "" {
		if body != "" {
			body += "\n"
		}
		body += p.note
	}
	if body != "" {
		fmt.Fprintf(&sb, "BT /F1 14 Tf 40 %.0f Td 18 TL\n", pageHeightPt-100)
		for i, line := range strings.Split(body, "\n") {
			if i > 0 {
				sb.WriteString("T*\n")
			}
			fmt.Fprintf(&sb, "(%s) Tj\n", pdfEscape(line))
		}
		sb.WriteString("ET\n")
	}

	if p.placeholder {
		// Frame the page so a failed slide is visibly a placeholder.
		fmt.Fprintf(&sb, "1 w 40 40 %.0f %.0f re S\n", pageWidthPt-80, pageHeightPt-120)
	}

	if imgNum != 0 && imgW > 0 && imgH > 0 {
		const boxW, boxH, boxX, boxY = 880.0, 300.0, 40.0, 40.0
		scale := boxW / float64(imgW)
		if s := boxH / float64(imgH); s < scale {
			scale = s
		}
		w := float64(imgW) * scale
		h := float64(imgH) * scale
		fmt.Fprintf(&sb, "q %.2f 0 0 %.2f %.2f %.2f cm /Im%d Do Q\n", w, h, boxX, boxY, pageIdx)
	}

	return sb.String()
}

// winAnsiSpecials maps the typographic runes Windows-1252 places in
// 0x80-0x9F, the ones models emit constantly (curly quotes, dashes).
var winAnsiSpecials = map[rune]byte{
	'€': 0x80, '‚': 0x82, 'ƒ': 0x83, '„': 0x84, '…': 0x85, '†': 0x86,
	'‡': 0x87, '‰': 0x89, '‹': 0x8b, '‘': 0x91, '’': 0x92, '“': 0x93,
	'”': 0x94, '•': 0x95, '–': 0x96, '—': 0x97, '™': 0x99, '›': 0x9b,
}

// pdfEscape encodes a string for a PDF literal. The writer's only font
// is Helvetica with WinAnsiEncoding, so runes outside that code page
// cannot be represented and degrade to '?'. CJK decks keep their text
// in the slide image and in the PPTX export.
func pdfEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\\' || r == '(' || r == ')':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\r' || r == '\n':
			b.WriteByte(' ')
		case r >= 0x20 && r < 0x7f:
			b.WriteRune(r)
		case r >= 0xa0 && r <= 0xff:
			fmt.Fprintf(&b, `\%03o`, r)
		default:
			if c, ok := winAnsiSpecials[r]; ok {
				fmt.Fprintf(&b, `\%03o`, c)
			} else {
				b.WriteByte('?')
			}
		}
	}
	return b.String()
}

// toJPEG returns JPEG bytes plus pixel dimensions. JPEG input passes
// through untouched; anything else image can decode is re-encoded.
func toJPEG(data []byte) ([]byte, int, int, error) {
	if imageExt(data) == "jpeg" {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("decode jpeg config: %w", err)
		}
		return data, cfg.Width, cfg.Height, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}
	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	bounds := img.Bounds()
	return out.Bytes(), bounds.Dx(), bounds.Dy(), nil
}
