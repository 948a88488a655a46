package sanitize_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iron-dillo/cybersandbox/internal/sanitize"
)

func TestTextRedactsIdentifiers(t *testing.T) {
	in := "contact analyst@example.com or 555-123-4567, ssn 123-45-6789"
	out := sanitize.Text(in)
	require.Contains(t, out, "<EMAIL>")
	require.Contains(t, out, "<PHONE>")
	require.Contains(t, out, "<SSN>")
	require.NotContains(t, out, "analyst@example.com")
	require.NotContains(t, out, "555-123-4567")
	require.NotContains(t, out, "123-45-6789")
}

func TestTextRedactsNames(t *testing.T) {
	out := sanitize.Text("report prepared by Alice Johnson for the board")
	require.Contains(t, out, "CLIENT_NAME")
	require.NotContains(t, out, "Alice Johnson")
}

func TestTextLeavesTechnicalContentAlone(t *testing.T) {
	in := "CVE-2024-3400 exploited over port 443 with curl"
	require.Equal(t, in, sanitize.Text(in))
}

func TestPreviewCapsAtLimit(t *testing.T) {
	long := strings.Repeat("a", 500)
	out := sanitize.Preview(long, 280)
	require.Len(t, []rune(out), 280)

	require.Equal(t, "short", sanitize.Preview("short", 280))
	require.Equal(t, long, sanitize.Preview(long, 0))
}
