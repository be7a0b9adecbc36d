package ingest

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/yunusmujadidi/purchase-order/models"
	"gopkg.in/yaml.v3"
)

// StageColumns names the In/Out header pair for one production stage
type StageColumns struct {
	In  string `yaml:"in"`
	Out string `yaml:"out"`
}

// Layout describes where each order field lives in the spreadsheet.
// Field columns are alias lists (first present header wins); the five stage
// pairs are positional, in models.ProductionStages order.
type Layout struct {
	Client          []string
	SWCode          []string
	Product         []string
	Quantity        []string
	Size            []string
	Description     []string
	Picture         []string
	POApprovalDate  []string
	DeliveryDate    []string
	DeliveryAddress []string
	Stages          [5]StageColumns
}

// DefaultLayout matches the legacy delivery spreadsheet export
func DefaultLayout() Layout {
	return Layout{
		Client:          []string{"Client"},
		SWCode:          []string{"SW"},
		Product:         []string{"Product", "Product Name"},
		Quantity:        []string{"Qty", "Quantity"},
		Size:            []string{"Size"},
		Description:     []string{"Description"},
		Picture:         []string{"Picture"},
		POApprovalDate:  []string{"PO/ APPROVAL GB", "PO Approval", "PO Approval Date"},
		DeliveryDate:    []string{"Delivery Date"},
		DeliveryAddress: []string{"Delivery Address"},
		Stages: [5]StageColumns{
			{In: "IN", Out: "OUT"},
			{In: "IN.1", Out: "OUT.1"},
			{In: "IN.2", Out: "OUT.2"},
			{In: "IN.3", Out: "OUT.3"},
			{In: "IN.4", Out: "OUT.4"},
		},
	}
}

// StageColumnsFor returns the header pair for a production stage
func (l Layout) StageColumnsFor(stage models.Stage) (StageColumns, bool) {
	for i, s := range models.ProductionStages {
		if s == stage {
			return l.Stages[i], true
		}
	}
	return StageColumns{}, false
}

// layoutFile is the YAML shape of a layout override; omitted keys keep the defaults
type layoutFile struct {
	Client          []string       `yaml:"client"`
	SWCode          []string       `yaml:"sw_code"`
	Product         []string       `yaml:"product"`
	Quantity        []string       `yaml:"quantity"`
	Size            []string       `yaml:"size"`
	Description     []string       `yaml:"description"`
	Picture         []string       `yaml:"picture"`
	POApprovalDate  []string       `yaml:"po_approval_date"`
	DeliveryDate    []string       `yaml:"delivery_date"`
	DeliveryAddress []string       `yaml:"delivery_address"`
	Stages          []StageColumns `yaml:"stages"`
}

// LoadLayout reads a YAML layout override. An empty path returns DefaultLayout.
func LoadLayout(path string) (Layout, error) {
	layout := DefaultLayout()
	if path == "" {
		return layout, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return layout, fmt.Errorf("failed to read layout file: %w", err)
	}
	return ParseLayout(data)
}

// ParseLayout applies a YAML layout override on top of DefaultLayout
func ParseLayout(data []byte) (Layout, error) {
	layout := DefaultLayout()

	var file layoutFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return layout, fmt.Errorf("failed to parse layout file: %w", err)
	}

	override := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	override(&layout.Client, file.Client)
	override(&layout.SWCode, file.SWCode)
	override(&layout.Product, file.Product)
	override(&layout.Quantity, file.Quantity)
	override(&layout.Size, file.Size)
	override(&layout.Description, file.Description)
	override(&layout.Picture, file.Picture)
	override(&layout.POApprovalDate, file.POApprovalDate)
	override(&layout.DeliveryDate, file.DeliveryDate)
	override(&layout.DeliveryAddress, file.DeliveryAddress)

	if len(file.Stages) > 0 {
		if len(file.Stages) != len(layout.Stages) {
			return layout, fmt.Errorf("layout must define exactly %d stage column pairs, got %d", len(layout.Stages), len(file.Stages))
		}
		for i, pair := range file.Stages {
			if strings.TrimSpace(pair.In) == "" || strings.TrimSpace(pair.Out) == "" {
				return layout, fmt.Errorf("stage %s needs both in and out columns", models.ProductionStages[i])
			}
			layout.Stages[i] = pair
		}
	}

	return layout, nil
}

// Header maps normalized header names to column positions
type Header map[string]int

// ResolveHeader indexes a header row. Repeated names get spreadsheet-export
// suffixes (IN, IN.1, IN.2 ...) so raw duplicate headers and pre-suffixed
// headers resolve to the same keys.
func ResolveHeader(cells []string) Header {
	header := make(Header, len(cells))
	seen := make(map[string]int, len(cells))
	for i, cell := range cells {
		name := normalizeHeader(cell)
		if name == "" {
			continue
		}
		key := name
		if n := seen[name]; n > 0 {
			key = name + "." + strconv.Itoa(n)
		}
		seen[name]++
		if _, exists := header[key]; !exists {
			header[key] = i
		}
	}
	return header
}

// Index returns the column of the first alias present in the header
func (h Header) Index(aliases ...string) (int, bool) {
	for _, alias := range aliases {
		if idx, ok := h[normalizeHeader(alias)]; ok {
			return idx, true
		}
	}
	return 0, false
}

// Has reports whether any alias is present
func (h Header) Has(aliases ...string) bool {
	_, ok := h.Index(aliases...)
	return ok
}

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
