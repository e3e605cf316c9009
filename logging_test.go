package spheres

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufferedLogger(prefix string, debug bool) (*DefaultLogger, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	l := NewDefaultLogger(prefix, debug)
	l.SetOutput(log.New(&out, "", 0), log.New(&errOut, "", 0))
	return l, &out, &errOut
}

func TestDefaultLogger_Levels(t *testing.T) {
	l, out, errOut := newBufferedLogger("spheres", false)

	l.Debugf("hidden %d", 1)
	l.Infof("frame %d", 7)
	l.Warnf("surface %s", "lost")
	l.Errorf("boom")

	assert.Equal(t, "[spheres] INFO: frame 7\n", out.String())
	assert.Equal(t, "[spheres] WARN: surface lost\n[spheres] ERROR: boom\n", errOut.String())
}

func TestDefaultLogger_DebugToggle(t *testing.T) {
	l, out, _ := newBufferedLogger("", false)
	assert.False(t, l.DebugEnabled())

	l.SetDebug(true)
	l.Debugf("visible")
	assert.True(t, l.DebugEnabled())
	assert.Equal(t, "DEBUG: visible\n", out.String())
}

func TestDefaultLogger_WithPrefix(t *testing.T) {
	l, out, _ := newBufferedLogger("a", true)
	child := l.WithPrefix("b")
	child.Debugf("x")
	assert.Equal(t, "[b] DEBUG: x\n", out.String())
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := NewDefaultLogger("", false)
	assert.Same(t, l, OrNop(l))
}
