package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// idGenerator produces human-readable ids: PREFIX-<unix millis>-<random>.
type idGenerator struct {
	now func() time.Time
}

func (g idGenerator) batchID() string {
	return g.id("HERB", 6)
}

func (g idGenerator) eventID(prefix string) string {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "EVT"
	}
	return g.id(prefix, 8)
}

func (g idGenerator) id(prefix string, n int) string {
	now := time.Now
	if g.now != nil {
		now = g.now
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
	return fmt.Sprintf("%s-%d-%s", prefix, now().UnixMilli(), strings.ToUpper(suffix))
}
