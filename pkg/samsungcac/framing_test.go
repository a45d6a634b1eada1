package samsungcac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineDecoder_SingleFrame(t *testing.T) {
	var d LineDecoder

	frames := d.Feed([]byte("<Update Type=\"InvalidateAccount\"/>\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, `<Update Type="InvalidateAccount"/>`, string(frames[0]))
	assert.Zero(t, d.Buffered())
}

func TestLineDecoder_TrimsCRLF(t *testing.T) {
	var d LineDecoder

	frames := d.Feed([]byte("  <Response Type=\"AuthToken\"/>\r\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, `<Response Type="AuthToken"/>`, string(frames[0]))
}

func TestLineDecoder_PartialLineIsBuffered(t *testing.T) {
	var d LineDecoder

	assert.Empty(t, d.Feed([]byte("<Response Type=")))
	assert.Equal(t, len("<Response Type="), d.Buffered())

	frames := d.Feed([]byte("\"DeviceList\"/>\n<Upd"))
	require.Len(t, frames, 1)
	assert.Equal(t, `<Response Type="DeviceList"/>`, string(frames[0]))
	assert.Equal(t, len("<Upd"), d.Buffered())
}

func TestLineDecoder_DropsNonXMLLines(t *testing.T) {
	var d LineDecoder

	frames := d.Feed([]byte("DRC-1.00\n\n   \n<Update Type=\"InvalidateAccount\"/>\nhello\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, 2, d.Dropped())
}

func TestLineDecoder_MultipleFramesInOneChunk(t *testing.T) {
	var d LineDecoder

	frames := d.Feed([]byte("<a/>\n<b/>\n<c/>\n"))
	require.Len(t, frames, 3)
	assert.Equal(t, "<a/>", string(frames[0]))
	assert.Equal(t, "<b/>", string(frames[1]))
	assert.Equal(t, "<c/>", string(frames[2]))
}

func TestLineDecoder_FramesDoNotAliasBuffer(t *testing.T) {
	var d LineDecoder

	first := d.Feed([]byte("<a/>\n<b"))
	require.Len(t, first, 1)
	d.Feed([]byte("/>\n"))
	assert.Equal(t, "<a/>", string(first[0]))
}

// Any split of the input into chunks must produce the same frames as
// feeding it whole.
func TestLineDecoder_SplitBoundaries(t *testing.T) {
	input := []byte("junk\r\n<Update Type=\"InvalidateAccount\"/>\r\n<Response Type=\"AuthToken\" Status=\"Okay\"/>\n\n<x/>\n")

	var whole LineDecoder
	want := whole.Feed(input)
	require.Len(t, want, 3)

	for i := 0; i <= len(input); i++ {
		for j := i; j <= len(input); j++ {
			var d LineDecoder
			var got [][]byte
			got = append(got, d.Feed(input[:i])...)
			got = append(got, d.Feed(input[i:j])...)
			got = append(got, d.Feed(input[j:])...)

			require.Equal(t, want, got, "split at %d/%d", i, j)
			require.Equal(t, whole.Dropped(), d.Dropped(), "split at %d/%d", i, j)
		}
	}
}
