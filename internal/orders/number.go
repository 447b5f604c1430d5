package orders

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber returns a human-readable order number such as
// DWC-20250114-3F2A9C01. The random suffix is collision-resistant, not
// collision-free; the repo retries the insert on a uniqueness violation.
func NewOrderNumber(now time.Time) string {
	u := uuid.New()
	suffix := strings.ToUpper(hex.EncodeToString(u[:4]))
	return fmt.Sprintf("DWC-%s-%s", now.UTC().Format("20060102"), suffix)
}
