package rulec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	out, err := Compile("(I x) = x", false)
	require.NoError(t, err)
	assert.Contains(t, out, "#define _I_ (1)")
}

func TestCompileToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.c")
	require.NoError(t, CompileToFile("(I x) = x", path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "#define _I_ (1)")
}

func TestCompileSurfacesSyntaxErrors(t *testing.T) {
	_, err := Compile("(I x", false)
	require.Error(t, err)
}
