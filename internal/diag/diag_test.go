package diag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogger_SeparatesOutAndErrSinks(t *testing.T) {
	var out, errw bytes.Buffer
	l := New(&out, &errw)

	l.Infof("hello %d", 1)
	l.Warnf("careful")
	l.Errorf("bad")
	l.Abortf("stop")
	l.End("success")

	require.Contains(t, out.String(), "hello 1")
	require.Contains(t, out.String(), "END: success")
	require.Contains(t, errw.String(), string(SeverityWarning)+" careful")
	require.Contains(t, errw.String(), string(SeverityError)+" bad")
	require.Contains(t, errw.String(), string(SeverityAbort)+" stop")
}
