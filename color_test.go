package regionqt

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestColor(t *testing.T) {
	gray := Gray()
	require.False(t, gray.Resolved())
	_, ok := gray.Value()
	require.False(t, ok)
	require.Equal(t, "gray", gray.String())

	c := Data(1, 2, 3, 255)
	require.True(t, c.Resolved())
	v, ok := c.Value()
	require.True(t, ok)
	require.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 255}, v)
	require.Equal(t, "#010203ff", c.String())

	require.True(t, c.Equal(DataOf(color.NRGBA{R: 1, G: 2, B: 3, A: 255})))
	require.False(t, c.Equal(Data(1, 2, 3, 254)))
	require.False(t, c.Equal(gray))

	// A transparent black leaf is still resolved.
	require.False(t, Data(0, 0, 0, 0).Equal(gray))
}

func TestNodeColors(t *testing.T) {
	leaf := &Leaf{Box: Rect(1, 1), Value: red}
	require.Equal(t, DataOf(red), leaf.Color())

	interior := &Interior{Box: Rect(2, 2)}
	require.Equal(t, Gray(), interior.Color())
}
