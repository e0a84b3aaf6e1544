// Package testutil provides a fixture project and output assertions for the
// CLI tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vaultgen/internal/cli/output"
)

// Fixture files of the test project, relative to its root.
var projectFiles = map[string]string{
	"vaultgen.yaml": "schema: dv\nvars:\n  owner: analytics\n",

	"metadata/db/src.csv":         "name,type\nid,text\nvalue,text\nvalue2,text\nload_dts,numeric\n",
	"metadata/dv/example1_h.csv":  "name,type\nexample1_key,text\nid,text\nload_dts,numeric\nrec_src,text\n",
	"metadata/dv/example1_s.csv":  "name,type\nexample1_key,text\nvalue,text\nload_dts,numeric\nrec_src,text\n",
	"metadata/dv/example11_s.csv": "name,type\nexample1_key,text\nvalue2,text\nload_dts,numeric\nrec_src,text\n",

	"metadata/dv/example_1_11_vp.csv": "name,type\nexample1_m_key,text\nexample11_c_key,text\n" +
		"example11_c_load_dts,numeric\nload_dts,numeric\n",

	"mappings/table_mappings/mappings.csv": "source_schema,source_table,target_schema,target_table\n" +
		"db,src,dv,example1_h\n" +
		"db,src,dv,example1_s\n" +
		"db,src,dv,example11_s\n" +
		"dv,example1_s,dv,example_1_11_vp\n" +
		"dv,example11_s,dv,example_1_11_vp\n",

	"mappings/column_mappings/mappings.csv": "src_schema,src_table,src_column,transformation,tgt_schema,tgt_table,tgt_column\n" +
		"db,src,id,,dv,example1_h,example1_key\n" +
		"db,src,id,,dv,example1_h,id\n" +
		"db,src,load_dts,,dv,example1_h,load_dts\n" +
		"db,src,,'db',dv,example1_h,rec_src\n" +
		"db,src,id,,dv,example1_s,example1_key\n" +
		"db,src,value,,dv,example1_s,value\n" +
		"db,src,load_dts,,dv,example1_s,load_dts\n" +
		"db,src,,'db',dv,example1_s,rec_src\n" +
		"db,src,id,,dv,example11_s,example1_key\n" +
		"db,src,value2,,dv,example11_s,value2\n" +
		"db,src,load_dts,,dv,example11_s,load_dts\n" +
		"db,src,,'db',dv,example11_s,rec_src\n" +
		"dv,example1_s,example1_key,,dv,example_1_11_vp,example1_m_key\n" +
		"dv,example11_s,example1_key,,dv,example_1_11_vp,example11_c_key\n" +
		"dv,example11_s,load_dts,,dv,example_1_11_vp,example11_c_load_dts\n" +
		"dv,example1_s,load_dts,,dv,example_1_11_vp,load_dts\n",

	"macros/utils.star": "def quoted(s):\n    \"\"\"Wraps s in single quotes.\"\"\"\n    return \"'\" + s + \"'\"\n",
}

// ProjectTargets are the targets of the test project, sorted by name.
var ProjectTargets = []string{"dv.example11_s", "dv.example1_h", "dv.example1_s", "dv.example_1_11_vp"}

// VersionPointer is the version pointer of the test project.
const VersionPointer = "dv.example_1_11_vp"

// SetupTestProject creates a temporary project with a hub, two satellites
// and a version pointer between them, all fed from db.src.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	for rel, content := range projectFiles {
		WriteFile(t, filepath.Join(tmpDir, filepath.FromSlash(rel)), content)
	}
	return tmpDir
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// Renderer is an output.Renderer writing to buffers.
type Renderer struct {
	*output.Renderer
	Out    bytes.Buffer
	ErrOut bytes.Buffer
}

// NewRenderer returns a Renderer in mode that is not attached to a terminal.
func NewRenderer(mode output.OutputMode) *Renderer {
	r := &Renderer{}
	r.Renderer = output.NewRendererWithTTY(&r.Out, &r.ErrOut, false, mode)
	return r
}

// Reset empties both buffers.
func (r *Renderer) Reset() {
	r.Out.Reset()
	r.ErrOut.Reset()
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI fails when s holds terminal escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	assert.False(t, ansiPattern.MatchString(s), "unexpected ANSI escape codes in %q", s)
}

// AssertValidMarkdown fails on unbalanced code fences and headers without
// text.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()
	assert.Zero(t, strings.Count(md, "```")%2, "unbalanced code fences in:\n%s", md)
	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			assert.NotEmpty(t, strings.TrimLeft(trimmed, "# "), "empty header at line %d", i+1)
		}
	}
}
