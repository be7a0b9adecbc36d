package ingest

import (
	"regexp"
	"strings"
	"time"

	"github.com/yunusmujadidi/purchase-order/models"
)

// DefaultProductName is used when a row names no product and no size
const DefaultProductName = "Unnamed Product"

// clientPattern splits "Yophie 2" into the client name and a numeric project suffix
var clientPattern = regexp.MustCompile(`^([^0-9]+)\s*(\d+)?`)

// Row is one data record keyed by normalized header name
type Row struct {
	Line   int
	values map[string]string
}

// NewRow binds a record's cells to a resolved header. Missing trailing cells read as empty.
func NewRow(line int, header Header, cells []string) Row {
	values := make(map[string]string, len(header))
	for name, idx := range header {
		if idx < len(cells) {
			values[name] = cells[idx]
		}
	}
	return Row{Line: line, values: values}
}

// Get returns the trimmed value of the first alias present in the row's header
func (r Row) Get(aliases ...string) string {
	for _, alias := range aliases {
		if v, ok := r.values[normalizeHeader(alias)]; ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// ParseRow converts a spreadsheet row into an order draft. It reports false when the
// row has no client and must be skipped. Row defects never fail: bad dates become
// absent, a bad quantity becomes 1, a missing product becomes DefaultProductName.
func ParseRow(row Row, layout Layout, loc *time.Location) (models.Order, bool) {
	rawClient := row.Get(layout.Client...)
	if rawClient == "" {
		return models.Order{}, false
	}

	order := models.Order{
		ClientName: rawClient,
		Quantity:   1,
		Priority:   models.PriorityStandard,
	}
	if m := clientPattern.FindStringSubmatch(rawClient); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			order.ClientName = name
		}
		order.ClientProject = optional(m[2])
	}

	size := row.Get(layout.Size...)
	order.Size = optional(size)
	switch product := row.Get(layout.Product...); {
	case product != "":
		order.ProductName = product
	case size != "":
		order.ProductName = size
	default:
		order.ProductName = DefaultProductName
	}

	if qty, ok := leadingInt(row.Get(layout.Quantity...)); ok && qty >= 1 {
		order.Quantity = qty
	}

	description := row.Get(layout.Description...)
	order.Description = optional(description)
	order.Materials = ExtractMaterials(description)

	order.SWCode = optional(row.Get(layout.SWCode...))
	order.PictureRef = optional(row.Get(layout.Picture...))
	order.POApprovalDate = ParseDate(row.Get(layout.POApprovalDate...), loc)
	order.DeliveryDate = ParseDate(row.Get(layout.DeliveryDate...), loc)
	order.DeliveryAddress = optional(row.Get(layout.DeliveryAddress...))

	for i, stage := range models.ProductionStages {
		cols := layout.Stages[i]
		order.SetStageTimes(stage,
			ParseDate(row.Get(cols.In), loc),
			ParseDate(row.Get(cols.Out), loc),
		)
	}

	return order, true
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
