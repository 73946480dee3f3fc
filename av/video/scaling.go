package video

import "fmt"

// Scaler resizes packed frames with bilinear interpolation. Each channel
// is interpolated independently.
type Scaler struct{}

// NewScaler creates a new frame scaler.
func NewScaler() *Scaler {
	return &Scaler{}
}

// Scale returns frame resized to targetWidth x targetHeight. Equal
// dimensions return a copy.
func (s *Scaler) Scale(frame *Frame, targetWidth, targetHeight int) (*Frame, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	if targetWidth <= 0 || targetHeight <= 0 {
		return nil, fmt.Errorf("%w: target dimensions %dx%d", ErrInvalidFrame, targetWidth, targetHeight)
	}
	if frame.Width == 0 || frame.Height == 0 {
		return nil, fmt.Errorf("%w: cannot scale empty frame", ErrInvalidFrame)
	}
	if !s.IsScalingRequired(frame.Width, frame.Height, targetWidth, targetHeight) {
		return frame.Clone(), nil
	}

	result := NewFrame(targetWidth, targetHeight, frame.Channels)
	s.scalePacked(frame, result)
	return result, nil
}

// scalePacked fills dst from src using bilinear interpolation.
func (s *Scaler) scalePacked(src, dst *Frame) {
	xRatio := float64(src.Width) / float64(dst.Width)
	yRatio := float64(src.Height) / float64(dst.Height)
	ch := src.Channels
	srcStride := src.Stride()
	dstStride := dst.Stride()

	for y := 0; y < dst.Height; y++ {
		srcY := float64(y) * yRatio
		y1 := int(srcY)
		y2 := min(y1+1, src.Height-1)
		fy := srcY - float64(y1)

		for x := 0; x < dst.Width; x++ {
			srcX := float64(x) * xRatio
			x1 := int(srcX)
			x2 := min(x1+1, src.Width-1)
			fx := srcX - float64(x1)

			for c := 0; c < ch; c++ {
				p11 := float64(src.Data[y1*srcStride+x1*ch+c])
				p12 := float64(src.Data[y1*srcStride+x2*ch+c])
				p21 := float64(src.Data[y2*srcStride+x1*ch+c])
				p22 := float64(src.Data[y2*srcStride+x2*ch+c])

				top := p11*(1-fx) + p12*fx
				bottom := p21*(1-fx) + p22*fx
				dst.Data[y*dstStride+x*ch+c] = byte(top*(1-fy) + bottom*fy + 0.5)
			}
		}
	}
}

// FitWithin returns the largest dimensions with the aspect ratio of
// width x height that fit in maxWidth x maxHeight. Frames that already fit
// are returned unchanged. A non-positive bound is ignored.
func (s *Scaler) FitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return width, height
	}
	scale := 1.0
	if maxWidth > 0 && width > maxWidth {
		scale = float64(maxWidth) / float64(width)
	}
	if maxHeight > 0 && float64(height)*scale > float64(maxHeight) {
		scale = float64(maxHeight) / float64(height)
	}
	if scale == 1.0 {
		return width, height
	}
	return max(1, int(float64(width)*scale)), max(1, int(float64(height)*scale))
}

// IsScalingRequired checks if scaling is needed for given dimensions.
func (s *Scaler) IsScalingRequired(srcWidth, srcHeight, dstWidth, dstHeight int) bool {
	return srcWidth != dstWidth || srcHeight != dstHeight
}
