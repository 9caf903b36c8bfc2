package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuantizedRotationRoundTrip(t *testing.T) {
	const tolerance = 2 * math.Pi / 0xFFFF

	for deg := -180; deg <= 180; deg++ {
		r := float32(deg) * math.Pi / 180
		got := DequantizeRotation(QuantizeRotation(r))
		diff := math.Abs(float64(got - r))
		require.LessOrEqualf(t, diff, tolerance+1e-6, "rotation %v quantized to %v, diff %v", r, got, diff)
	}
}

func TestPackedFloatRoundTrip(t *testing.T) {
	for _, v := range []float32{-1000, -500, 0, 0.5, 123.456, 999.99} {
		got := UnpackFloat(PackFloat(v))
		require.InDelta(t, v, got, 0.05)
	}
}

func TestObjectIdValid(t *testing.T) {
	require.False(t, InvalidObjectId.Valid())
	require.False(t, NoneObjectId.Valid())
	require.True(t, ObjectId(1).Valid())
}
