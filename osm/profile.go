package osm

import (
	"fmt"
	"os"

	"github.com/perimeterx/marshmallow"

	"github.com/vesavlad/tiles/tile"
)

// ElementKind is the OSM element class a rule applies to.
type ElementKind string

const (
	KindNode ElementKind = "node"
	KindWay  ElementKind = "way"
	KindArea ElementKind = "area"
)

// Rule classifies elements carrying a matching tag into a layer.
type Rule struct {
	Layer    string            `json:"layer"`
	Match    map[string]string `json:"match"` // value "*" matches any
	Kinds    []ElementKind     `json:"kinds"`
	MinZoom  uint32            `json:"min_zoom"`
	MaxZoom  *uint32           `json:"max_zoom"`
	KeepTags []string          `json:"keep_tags"`
}

// Profile is the ordered rule list deciding which OSM elements become
// features. The first matching rule wins.
type Profile struct {
	Rules []Rule `json:"rules"`
}

// DefaultProfile covers the usual base map layers.
func DefaultProfile() *Profile {
	return &Profile{Rules: []Rule{
		{Layer: "water", Match: map[string]string{"natural": "water", "waterway": "riverbank"}, Kinds: []ElementKind{KindArea}, MinZoom: 4, KeepTags: []string{"name"}},
		{Layer: "waterway", Match: map[string]string{"waterway": "*"}, Kinds: []ElementKind{KindWay}, MinZoom: 8, KeepTags: []string{"name", "waterway"}},
		{Layer: "landuse", Match: map[string]string{"landuse": "*", "leisure": "park"}, Kinds: []ElementKind{KindArea}, MinZoom: 10, KeepTags: []string{"landuse"}},
		{Layer: "building", Match: map[string]string{"building": "*"}, Kinds: []ElementKind{KindArea}, MinZoom: 14, KeepTags: []string{"name"}},
		{Layer: "road", Match: map[string]string{"highway": "*"}, Kinds: []ElementKind{KindWay}, MinZoom: 6, KeepTags: []string{"name", "highway", "ref"}},
		{Layer: "rail", Match: map[string]string{"railway": "*"}, Kinds: []ElementKind{KindWay}, MinZoom: 8, KeepTags: []string{"railway"}},
		{Layer: "place", Match: map[string]string{"place": "*"}, Kinds: []ElementKind{KindNode}, MinZoom: 2, KeepTags: []string{"name", "place", "population"}},
		{Layer: "poi", Match: map[string]string{"amenity": "*", "shop": "*", "tourism": "*"}, Kinds: []ElementKind{KindNode}, MinZoom: 14, KeepTags: []string{"name", "amenity", "shop", "tourism"}},
	}}
}

// LoadProfile reads a profile from JSON, tolerating unknown fields so
// profiles can carry their own annotations.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("osm: read profile: %w", err)
	}
	var p Profile
	if _, err := marshmallow.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("osm: parse profile %s: %w", path, err)
	}
	if len(p.Rules) == 0 {
		return nil, fmt.Errorf("osm: profile %s has no rules", path)
	}
	return &p, nil
}

// Classification is the outcome of matching an element against the profile.
type Classification struct {
	Layer      string
	MinZ, MaxZ uint32
	KeepTags   []string
}

// Classify finds the first rule matching the element's tags and kind.
func (p *Profile) Classify(tags map[string]string, kind ElementKind) (Classification, bool) {
	for _, rule := range p.Rules {
		if !kindMatches(rule.Kinds, kind) {
			continue
		}
		for key, want := range rule.Match {
			have, ok := tags[key]
			if !ok || (want != "*" && want != have) {
				continue
			}
			maxZ := uint32(tile.InvalidZ)
			if rule.MaxZoom != nil {
				maxZ = *rule.MaxZoom
			}
			return Classification{
				Layer:    rule.Layer,
				MinZ:     rule.MinZoom,
				MaxZ:     maxZ,
				KeepTags: rule.KeepTags,
			}, true
		}
	}
	return Classification{}, false
}

func kindMatches(kinds []ElementKind, kind ElementKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
