package certificate

import (
	"bytes"
	"fmt"
	"image/color"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	canvasWidth  = 1600
	canvasHeight = 1130
)

var (
	paperColor  = color.NRGBA{R: 0xFB, G: 0xF8, B: 0xF1, A: 0xFF}
	borderColor = color.NRGBA{R: 0x1F, G: 0x3A, B: 0x5F, A: 0xFF}
	inkColor    = color.NRGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xFF}
	mutedColor  = color.NRGBA{R: 0x6B, G: 0x6B, B: 0x6B, A: 0xFF}
)

// Content is what gets printed on a certificate.
type Content struct {
	Number          string
	StudentName     string
	CourseTitle     string
	InstructorName  string
	CompletionDate  time.Time
	IssueDate       time.Time
	VerificationURL string
}

// Renderer draws certificates as PNG images using the embedded Go fonts.
type Renderer struct {
	heading font.Face
	name    font.Face
	body    font.Face
	small   font.Face
}

func NewRenderer() (*Renderer, error) {
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	return &Renderer{
		heading: truetype.NewFace(bold, &truetype.Options{Size: 64}),
		name:    truetype.NewFace(bold, &truetype.Options{Size: 56}),
		body:    truetype.NewFace(regular, &truetype.Options{Size: 32}),
		small:   truetype.NewFace(regular, &truetype.Options{Size: 22}),
	}, nil
}

func (r *Renderer) Render(c Content) ([]byte, error) {
	dc := gg.NewContext(canvasWidth, canvasHeight)
	w, h := float64(canvasWidth), float64(canvasHeight)
	cx := w / 2

	dc.SetColor(paperColor)
	dc.Clear()

	dc.SetColor(borderColor)
	dc.SetLineWidth(12)
	dc.DrawRectangle(40, 40, w-80, h-80)
	dc.Stroke()
	dc.SetLineWidth(2)
	dc.DrawRectangle(64, 64, w-128, h-128)
	dc.Stroke()

	dc.SetFontFace(r.heading)
	dc.DrawStringAnchored("Certificate of Completion", cx, 220, 0.5, 0.5)

	dc.SetColor(mutedColor)
	dc.SetFontFace(r.body)
	dc.DrawStringAnchored("This certifies that", cx, 360, 0.5, 0.5)

	dc.SetColor(inkColor)
	dc.SetFontFace(r.name)
	dc.DrawStringAnchored(c.StudentName, cx, 460, 0.5, 0.5)

	dc.SetColor(mutedColor)
	dc.SetFontFace(r.body)
	dc.DrawStringAnchored("has successfully completed the course", cx, 560, 0.5, 0.5)

	dc.SetColor(inkColor)
	dc.SetFontFace(r.name)
	dc.DrawStringWrapped(c.CourseTitle, cx, 660, 0.5, 0.5, w-320, 1.3, gg.AlignCenter)

	dc.SetFontFace(r.body)
	dc.DrawStringAnchored("Completed on "+c.CompletionDate.Format("January 2, 2006"), cx, 790, 0.5, 0.5)
	if c.InstructorName != "" {
		dc.DrawStringAnchored("Instructor: "+c.InstructorName, cx, 850, 0.5, 0.5)
	}

	dc.SetColor(mutedColor)
	dc.SetFontFace(r.small)
	dc.DrawStringAnchored("Certificate "+c.Number+"  ·  issued "+c.IssueDate.Format("2006-01-02"), cx, h-170, 0.5, 0.5)
	dc.DrawStringAnchored("Verify at "+c.VerificationURL, cx, h-130, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
