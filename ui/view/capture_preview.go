package view

import (
	"image"

	"github.com/soocke/facegate-go/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// CapturePreview shows the live camera feed or the frozen capture.
type CapturePreview interface {
	UpdatePreview(img image.Image)
	Reset()
}

// Max preview dimensions. Presenters scale to these before pushing.
const (
	PreviewMaxW = 480
	PreviewMaxH = 360
)

type capturePreview struct {
	label     *LabelWidget
	prevPhoto *Img // disposed before replacement so old pixel data is not retained
}

// NewCapturePreview creates the preview label spanning columns 0-3 of row.
func NewCapturePreview(row int) CapturePreview {
	photo := NewPhoto(Data(placeholderPNG()))
	lbl := Label(Image(photo), Borderwidth(1), Relief("sunken"))
	Grid(lbl, Row(row), Column(0), Columnspan(4), Sticky("nw"), Padx("0.4m"), Pady("0.4m"))
	return &capturePreview{label: lbl, prevPhoto: photo}
}

func (v *capturePreview) UpdatePreview(img image.Image) {
	if v.label == nil || img == nil {
		return
	}
	pngBytes := images.EncodePNG(images.ScaleToFit(img, PreviewMaxW, PreviewMaxH))
	v.replace(NewPhoto(Data(pngBytes)))
}

func (v *capturePreview) Reset() {
	if v.label == nil {
		return
	}
	v.replace(NewPhoto(Data(placeholderPNG())))
}

func (v *capturePreview) replace(photo *Img) {
	if v.prevPhoto != nil {
		v.prevPhoto.Delete()
	}
	v.prevPhoto = photo
	v.label.Configure(Image(photo))
}

func placeholderPNG() []byte {
	return images.EncodePNG(image.NewRGBA(image.Rect(0, 0, PreviewMaxW, PreviewMaxH)))
}
