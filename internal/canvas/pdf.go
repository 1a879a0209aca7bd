package canvas

import (
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/ayusman/airsketch/internal/stroke"
)

// ExportPDF writes segments as vector lines to a single-page PDF sized to the
// surface, one point per pixel.
func ExportPDF(path string, width, height int, segments []stroke.Segment) error {
	if path == "" {
		return &SaveError{Kind: KindInvalidPath, Path: path, Err: ErrEmptyPath}
	}

	// Portrait keeps Wd/Ht as given; gofpdf swaps them for landscape.
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: float64(width), Ht: float64(height)},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pdf.SetLineJoinStyle("round")

	for _, seg := range segments {
		pdf.SetDrawColor(int(seg.Color.R), int(seg.Color.G), int(seg.Color.B))
		pdf.SetLineWidth(float64(seg.Width))
		pdf.SetLineCapStyle(seg.Cap.String())
		pdf.Line(seg.Start.X, seg.Start.Y, seg.End.X, seg.End.Y)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return &SaveError{Kind: classify(err), Path: path, Err: fmt.Errorf("write pdf: %w", err)}
	}
	return nil
}
