package energy_test

import (
	"testing"

	"github.com/mdonmez/autoso/internal/vad"
	"github.com/mdonmez/autoso/internal/vad/energy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentFrame(n int) []int16 { return make([]int16, n) }

func loudFrame(n int) []int16 {
	f := make([]int16, n)
	for i := range f {
		f[i] = 20000
	}
	return f
}

func TestFeed_SilenceBeforeSpeechIsSilenceFrame(t *testing.T) {
	e := energy.New()
	sess, err := e.NewSession(vad.Config{HangoverFrames: 2})
	require.NoError(t, err)

	ev, err := sess.Feed(silentFrame(160))
	require.NoError(t, err)
	assert.Equal(t, vad.EventSilenceFrame, ev.Type)
}

func TestFeed_SpeechThenHangoverEmitsUtteranceEnd(t *testing.T) {
	e := energy.New()
	sess, err := e.NewSession(vad.Config{HangoverFrames: 2})
	require.NoError(t, err)

	ev, err := sess.Feed(loudFrame(160))
	require.NoError(t, err)
	assert.Equal(t, vad.EventSpeechFrame, ev.Type)

	ev, err = sess.Feed(silentFrame(160))
	require.NoError(t, err)
	assert.Equal(t, vad.EventSilenceFrame, ev.Type, "first silent frame after speech should not yet end the utterance")

	ev, err = sess.Feed(silentFrame(160))
	require.NoError(t, err)
	require.Equal(t, vad.EventUtteranceEnd, ev.Type)
	assert.NotEmpty(t, ev.Audio)
}

func TestFeed_SustainedSpeechNeverEndsUtterance(t *testing.T) {
	e := energy.New()
	sess, err := e.NewSession(vad.Config{HangoverFrames: 1})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		ev, err := sess.Feed(loudFrame(160))
		require.NoError(t, err)
		assert.Equal(t, vad.EventSpeechFrame, ev.Type)
	}
}

func TestFeed_CustomThreshold(t *testing.T) {
	e := energy.New(energy.WithThreshold(100000))
	sess, err := e.NewSession(vad.Config{HangoverFrames: 1})
	require.NoError(t, err)

	ev, err := sess.Feed(loudFrame(160))
	require.NoError(t, err)
	assert.Equal(t, vad.EventSilenceFrame, ev.Type, "threshold raised above the loud frame's RMS")
}
