package tool

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GenerateTicketCode produces a human-readable analysis ticket code,
// e.g. "FA-20260830-7C1A2F". Uniqueness is enforced by the store.
func GenerateTicketCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("FA-%s-%s", now.Format("20060102"), suffix)
}
