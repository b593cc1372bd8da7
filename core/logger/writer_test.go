package logger

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAsyncWriterFanOut(t *testing.T) {
	var a, b bytes.Buffer
	w := newAsyncWriter([]io.Writer{&a, &b})

	require.NoError(t, w.Write([]byte("one\n")))
	require.NoError(t, w.Write([]byte("two\n")))
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())

	require.Equal(t, "one\ntwo\n", a.String())
	require.Equal(t, a.String(), b.String())
	require.ErrorIs(t, w.Write([]byte("late\n")), errWriterClosed)
	require.NoError(t, w.Close())
}

func TestSampler(t *testing.T) {
	s := newSampler(1, 3)
	var kept int
	for i := 0; i < 9; i++ {
		if s.Allow() {
			kept++
		}
	}
	require.Equal(t, 3, kept)

	s.Set(0, 0)
	require.True(t, s.Allow())
}

func TestParseRatio(t *testing.T) {
	cases := []struct {
		in       string
		keep, of int
		ok       bool
	}{
		{"1/50", 1, 50, true},
		{" 2 / 10 ", 2, 10, true},
		{"20", 1, 20, true},
		{"off", 0, 0, true},
		{"0", 0, 0, true},
		{"x/y", 0, 0, false},
		{"-3", 0, 0, false},
	}
	for _, tc := range cases {
		keep, of, ok := parseRatio(tc.in)
		require.Equal(t, tc.ok, ok, tc.in)
		require.Equal(t, tc.keep, keep, tc.in)
		require.Equal(t, tc.of, of, tc.in)
	}
}

func TestRedactAndLimit(t *testing.T) {
	err := `Post "https://api.telegram.org/bot123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw/sendMessage": EOF`
	got := SanitizeLimit(err, 512)
	require.NotContains(t, got, "AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw")
	require.Contains(t, got, "bot123456789:***")

	require.Equal(t, "ab", SanitizeLimit("a\x00b\u200b", 10))
	require.Equal(t, "héll", SanitizeLimit("héllo", 4))
}

func TestJoinLimit(t *testing.T) {
	require.Equal(t, "a, b", JoinLimit([]string{"a", "b"}, 5))
	require.Equal(t, "a, b (+2 more)", JoinLimit([]string{"a", "b", "c", "d"}, 2))
}

func TestUpdateRID(t *testing.T) {
	require.Equal(t, "16.9.7", UpdateRID(42, 9, 7))
	require.Equal(t, "0.-1.1", UpdateRID(0, -1, 1))
}
