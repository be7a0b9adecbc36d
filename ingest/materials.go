package ingest

import "strings"

// Canonical material tags produced by ExtractMaterials
const (
	MaterialSolidWood = "Solid Wood"
	MaterialVeneer    = "Veneer"
	MaterialMetal     = "Metal/SS"
	MaterialFabric    = "Fabric"
	MaterialMarble    = "Marble"
	MaterialLeather   = "Leather"
	MaterialPlywood   = "Plywood"
	MaterialGlass     = "Glass"
)

type materialRule struct {
	tag      string
	keywords []string
}

// materialRules is checked in order; each rule contributes its tag at most once.
var materialRules = []materialRule{
	{MaterialSolidWood, []string{"solid wood", "solid teak"}},
	{MaterialVeneer, []string{"veneer"}},
	{MaterialMetal, []string{"metal", "stainless"}},
	{MaterialFabric, []string{"fabric"}},
	{MaterialMarble, []string{"marble", "marmer"}},
	{MaterialLeather, []string{"leather"}},
	{MaterialPlywood, []string{"plywood"}},
	{MaterialGlass, []string{"glass"}},
}

// ExtractMaterials tags a free-text description with the canonical materials it mentions.
// A description with no known material yields an empty, non-nil slice.
func ExtractMaterials(description string) []string {
	materials := []string{}
	desc := strings.ToLower(description)
	if strings.TrimSpace(desc) == "" {
		return materials
	}

	for _, rule := range materialRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(desc, keyword) {
				materials = append(materials, rule.tag)
				break
			}
		}
	}
	return materials
}
