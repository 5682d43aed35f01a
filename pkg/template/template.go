// Package template generates starter powermand.toml configurations for
// common filament materials.
package template

import (
	"fmt"
	"strings"
)

// Material selects a preset temperature profile.
type Material string

const (
	MaterialPLA  Material = "pla"
	MaterialPETG Material = "petg"
	MaterialABS  Material = "abs"
)

// Profile holds one material's working temperatures in degrees Celsius.
// Park is the standby temperature used while waiting out an outage.
type Profile struct {
	Material Material `json:"material"`
	Extruder int      `json:"extruder"`
	Bed      int      `json:"bed"`
	Park     int      `json:"park"`
}

// Generator provides config generation for material presets.
type Generator struct{}

// NewGenerator creates a new config generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns the temperature profile for the given material.
// Material names are matched case-insensitively.
func (g *Generator) Generate(material Material) (*Profile, error) {
	switch Material(strings.ToLower(string(material))) {
	case MaterialPLA:
		return &Profile{Material: MaterialPLA, Extruder: 200, Bed: 60, Park: 40}, nil
	case MaterialPETG:
		return &Profile{Material: MaterialPETG, Extruder: 245, Bed: 80, Park: 40}, nil
	case MaterialABS:
		return &Profile{Material: MaterialABS, Extruder: 240, Bed: 100, Park: 40}, nil
	default:
		return nil, fmt.Errorf("unknown material: %s (supported: pla, petg, abs)", material)
	}
}

// GenerateTOML renders a complete powermand.toml for the material.
func (g *Generator) GenerateTOML(material Material) ([]byte, error) {
	p, err := g.Generate(material)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf(configTemplate, p.Material, p.Extruder, p.Bed, p.Park)), nil
}

// SupportedMaterials returns all material names Generate accepts.
func (g *Generator) SupportedMaterials() []string {
	return []string{
		string(MaterialPLA),
		string(MaterialPETG),
		string(MaterialABS),
	}
}

const configTemplate = `# powermand configuration - %s preset

[moonraker]
base_url = "http://127.0.0.1:7125"

[outage]
api_url = "https://app.yasno.ua/api/blackout-service/public/shutdowns/regions/25/dsos/902/planned-outages"
group = "1.1"
check_interval = "60s"
wait_before = "5m"
wait_after = "10m"

[temps]
extruder = %d
bed = %d
park = %d

[log]
level = "info"
# file = "/var/log/powermand/powermand.log"

[observe]
# listen = "127.0.0.1:9925"
`
