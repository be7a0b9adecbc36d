package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yunusmujadidi/purchase-order/models"
)

// FormatOrderNumber renders ORD-<year>-<sequence padded to 4 digits>
func FormatOrderNumber(year, sequence int) string {
	return fmt.Sprintf("ORD-%d-%04d", year, sequence)
}

// OrderNumberPrefix is the prefix shared by every order number of a year
func OrderNumberPrefix(year int) string {
	return fmt.Sprintf("ORD-%d-", year)
}

// ParseOrderSequence extracts the sequence from an order number of the given year
func ParseOrderSequence(orderNumber string, year int) (int, bool) {
	rest, ok := strings.CutPrefix(orderNumber, OrderNumberPrefix(year))
	if !ok || rest == "" {
		return 0, false
	}
	seq, err := strconv.Atoi(rest)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

// AssignOrderNumbers numbers the drafts contiguously from start, in input order
func AssignOrderNumbers(drafts []models.Order, year, start int) {
	for i := range drafts {
		drafts[i].OrderNumber = FormatOrderNumber(year, start+i)
	}
}
