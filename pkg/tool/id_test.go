package tool

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateTicketCode_Format(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	code := GenerateTicketCode(now)
	require.Regexp(t, regexp.MustCompile(`^FA-20260830-[0-9A-F]{6}$`), code)
}

func TestGenerateUUIDV7_IsValid(t *testing.T) {
	id := GenerateUUIDV7()
	require.Len(t, id, 36)
	require.NotEqual(t, id, GenerateUUIDV7())
}
