package macro

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFile(t *testing.T) {
	src := `
def key(*cols):
    """Hash key over business key columns.

    Columns are cast to text first.
    """
    return ""

def rec_src(system, default="'UNKNOWN'", *, upper=False, **opts):
    pass

def window(days=-7, cols=[], opts={}, start=None, fmt="%Y" + "-%m"):
    pass

def _quote(s):
    pass

LIMIT = 10
`
	ns, err := ParseFile("macros/hash.star", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, "hash", ns.Name)
	assert.Equal(t, "macros/hash.star", ns.FilePath)
	require.Len(t, ns.Functions, 3, "private functions and constants are skipped")

	key := ns.Functions[0]
	assert.Equal(t, "key(*cols)", key.Signature())
	assert.Equal(t, 2, key.Line)
	assert.True(t, key.HasDocstring())
	assert.Equal(t, "Hash key over business key columns.\n\n    Columns are cast to text first.", key.Docstring)

	recSrc := ns.Functions[1]
	assert.Equal(t, []string{"system", `default="'UNKNOWN'"`, "*", "upper=False", "**opts"}, recSrc.Args)
	assert.False(t, recSrc.HasDocstring())

	assert.Equal(t, `window(days=-7, cols=[], opts={}, start=None, fmt=...)`, ns.Functions[2].Signature())
}

func TestParseFile_Errors(t *testing.T) {
	_, err := ParseFile("macros/hash.star", []byte("def key(:\n"))
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Contains(t, err.Error(), "macro hash.star: macros/hash.star:1:")

	_, err = ParseFile("macros/rec-src.star", []byte(""))
	assert.EqualError(t, err, `macro rec-src.star: namespace "rec-src" is not a valid identifier`)
}

func TestParseDir(t *testing.T) {
	dir := writeMacros(t, map[string]string{
		"sources.star": recSrcMacros,
		"hash.star":    hashMacros,
	})

	namespaces, err := ParseDir(dir)
	require.NoError(t, err)
	require.Len(t, namespaces, 2)
	assert.Equal(t, "hash", namespaces[0].Name)
	assert.Equal(t, filepath.Join(dir, "hash.star"), namespaces[0].FilePath)
	require.Len(t, namespaces[0].Functions, 2)
	assert.Equal(t, "Hash key over business key columns.", namespaces[0].Functions[0].Docstring)
	assert.Equal(t, "rec_src(system)", namespaces[1].Functions[0].Signature())

	namespaces, err = ParseDir(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, namespaces)
}
