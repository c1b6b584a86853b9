package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDemo(t *testing.T) {
	tl := Demo()
	assert.Equal(t, 108000, tl.TotalFrames)
	assert.Len(t, tl.Detections, 4)

	tl.Detections[0].Condition = "changed"
	assert.Equal(t, "Mucosal ulcer", Demo().Detections[0].Condition)
}

func TestTimelineAt(t *testing.T) {
	tl := Demo()
	assert.Empty(t, tl.At(0))
	assert.Len(t, tl.At(11), 1) // 11880 frames
	assert.Len(t, tl.At(50), 2)
	assert.Len(t, tl.At(100), 4)
	assert.Len(t, tl.At(250), 4)
}
