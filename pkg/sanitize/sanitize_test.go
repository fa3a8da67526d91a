package sanitize

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		allowSpaces bool
		want        string
	}{
		{"alphanumeric untouched", "abc123", false, "abc123"},
		{"dashes and underscores kept", "a-b_c", false, "a-b_c"},
		{"slash replaced", "a/b", false, "a_b"},
		{"spaces replaced when not allowed", "a b", false, "a_b"},
		{"spaces kept when allowed", "a b", true, "a b"},
		{"surrounding whitespace trimmed", " ab ", true, "ab"},
		{"unicode replaced", "héllo", false, "h_llo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Segment(tt.input, tt.allowSpaces))
		})
	}
}

func TestComponentFallback(t *testing.T) {
	assert.Equal(t, "workflow", Component("///", true, "workflow"))
	assert.Equal(t, "My Flow", Component("My Flow", true, "workflow"))
}

func TestWorkflowID(t *testing.T) {
	assert.Equal(t, "New Workflow 1700000000", WorkflowID("New Workflow 1700000000"))
	assert.Equal(t, "a_b", WorkflowID("a/b"))
	assert.Equal(t, "workflow", WorkflowID("!!!"))
}

func TestFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{"weird name?.tar.gz", "weird name__tar.gz"},
		{"noext", "noext"},
		{"", "file"},
		{".hidden", "file.hidden"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.input))
		})
	}
}

func TestRelativePath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a/b/c", filepath.Join("a", "b", "c")},
		{"../escape", "escape"},
		{"a\\b", filepath.Join("a", "b")},
		{"./a/./b", filepath.Join("a", "b")},
		{"..", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativePath(tt.input))
		})
	}
}

func TestMaskPhoneNumber(t *testing.T) {
	assert.Equal(t, "***4567", MaskPhoneNumber("+1 (555) 123-4567"))
	assert.Equal(t, "***", MaskPhoneNumber("1234"))
	assert.Equal(t, "***", MaskPhoneNumber(""))
	assert.Equal(t, "***5678", MaskPhoneNumber("12345678"))
}
