package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaler_Scale_DownScaling(t *testing.T) {
	scaler := NewScaler()
	src := NewFrame(640, 480, 3)
	for i := 0; i < len(src.Data); i += 3 {
		src.Data[i], src.Data[i+1], src.Data[i+2] = 10, 20, 30
	}

	result, err := scaler.Scale(src, 320, 240)
	require.NoError(t, err)
	assert.Equal(t, 320, result.Width)
	assert.Equal(t, 240, result.Height)
	assert.Equal(t, 3, result.Channels)
	require.Len(t, result.Data, 320*240*3)

	// A flat image stays flat in every channel.
	for i := 0; i < len(result.Data); i += 3 {
		if result.Data[i] != 10 || result.Data[i+1] != 20 || result.Data[i+2] != 30 {
			t.Fatalf("pixel %d = %v", i/3, result.Data[i:i+3])
		}
	}
}

func TestScaler_Scale_UpScalingInterpolates(t *testing.T) {
	scaler := NewScaler()
	src := &Frame{Width: 2, Height: 1, Channels: 1, Data: []byte{0, 200}}

	result, err := scaler.Scale(src, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 100, 200, 200}, result.Data)
}

func TestScaler_Scale_SameDimensions(t *testing.T) {
	scaler := NewScaler()
	src := createTestFrame(8, 6, 3)

	result, err := scaler.Scale(src, 8, 6)
	require.NoError(t, err)
	assert.Equal(t, src.Data, result.Data)

	result.Data[0]++
	assert.NotEqual(t, src.Data[0], result.Data[0], "result must be a copy")
}

func TestScaler_Scale_Errors(t *testing.T) {
	scaler := NewScaler()

	_, err := scaler.Scale(nil, 4, 4)
	assert.ErrorIs(t, err, ErrNilFrame)

	_, err = scaler.Scale(createTestFrame(4, 4, 3), 0, 4)
	assert.ErrorIs(t, err, ErrInvalidFrame)

	_, err = scaler.Scale(NewFrame(0, 0, 3), 4, 4)
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestScaler_FitWithin(t *testing.T) {
	scaler := NewScaler()
	tests := []struct {
		name                  string
		w, h, maxW, maxH      int
		wantWidth, wantHeight int
	}{
		{"fits", 320, 240, 640, 480, 320, 240},
		{"width bound", 1280, 720, 640, 0, 640, 360},
		{"height bound", 640, 960, 640, 480, 320, 480},
		{"both bounds", 1920, 1080, 640, 240, 426, 240},
		{"unbounded", 4000, 3000, 0, 0, 4000, 3000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := scaler.FitWithin(tt.w, tt.h, tt.maxW, tt.maxH)
			assert.Equal(t, tt.wantWidth, w)
			assert.Equal(t, tt.wantHeight, h)
		})
	}
}

func TestScaler_IsScalingRequired(t *testing.T) {
	scaler := NewScaler()
	assert.False(t, scaler.IsScalingRequired(640, 480, 640, 480))
	assert.True(t, scaler.IsScalingRequired(640, 480, 320, 480))
}
