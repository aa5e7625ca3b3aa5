package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phpmtseed/phpmtseed/internal/shard"
)

func TestPrinterPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.Progress(shard.Progress{Completed: 1, Total: shard.Count})
	p.Line("seed = %#x = %d (PHP 7.1.0+)", 256, 256)
	p.Progress(shard.Progress{Completed: 2, Total: shard.Count})
	p.Finish()

	assert.Equal(t, "progress: 001 / 256\nseed = 0x100 = 256 (PHP 7.1.0+)\nprogress: 002 / 256\n", buf.String())
}

func TestPrinterInPlace(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{w: &buf, inPlace: true}
	p.Progress(shard.Progress{Completed: 1, Total: shard.Count})
	p.Line("seed = %#x = %d (PHP 7.1.0+)", 0, 0)
	p.Progress(shard.Progress{Completed: 2, Total: shard.Count})
	p.Finish()
	p.Finish()

	assert.Equal(t, "\rprogress: 001 / 256\rseed = 0x0 = 0 (PHP 7.1.0+)\n\rprogress: 002 / 256\n", buf.String())
}
