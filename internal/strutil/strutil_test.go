package strutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrimWS(t *testing.T) {
	require.Equal(t, "value", TrimWS("  \t value \t  "))
	require.Equal(t, "a b", TrimWS("a b"))
	require.Empty(t, TrimWS(" \t \t "))
	require.Empty(t, TrimWS(""))
}

func TestCmpFold(t *testing.T) {
	require.True(t, CmpFold("Content-Length", "content-length"))
	require.True(t, CmpFold("CLOSE", "close"))
	require.True(t, CmpFold("", ""))
	require.False(t, CmpFold("close", "clos"))
	require.False(t, CmpFold("close", "clase"))
}
