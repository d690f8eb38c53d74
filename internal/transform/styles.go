package transform

import "errors"

var ErrUnknownStyle = errors.New("unknown style")

const DefaultStyle = "Realistic"

type style struct {
	name string
	tag  string
}

// catalog keeps display order. An empty tag means no style layer.
var catalog = []style{
	{name: "Realistic"},
	{name: "Ghibli Style", tag: "anime"},
	{name: "Arcane Style", tag: "arcane"},
	{name: "Photorealistic Real Estate Render", tag: "realistic"},
	{name: "LoRA-AnimeFusion", tag: "anime"},
	{name: "Cyberpunk Tokyo Neon", tag: "cyberpunk"},
	{name: "Luxury Interior AI Render", tag: "luxury"},
	{name: "AI Fashion Editorial Style", tag: "fashion"},
	{name: "Dark Fantasy Realism", tag: "darkfantasy"},
	{name: "Pixel Art Generator Trend", tag: "pixel"},
	{name: "Synthwave Grid Style", tag: "synthwave"},
}

var catalogIndex = func() map[string]string {
	idx := make(map[string]string, len(catalog))
	for _, s := range catalog {
		idx[s.name] = s.tag
	}
	return idx
}()

type Style struct {
	Name string `json:"name"`
	Tag  string `json:"tag,omitempty"`
}

func Styles() []Style {
	out := make([]Style, 0, len(catalog))
	for _, s := range catalog {
		out = append(out, Style{Name: s.name, Tag: s.tag})
	}
	return out
}

func StyleNames() []string {
	names := make([]string, 0, len(catalog))
	for _, s := range catalog {
		names = append(names, s.name)
	}
	return names
}

// LookupStyle reports the tag for name, whether it has one, and whether the
// name is in the catalog at all.
func LookupStyle(name string) (tag string, hasTag bool, known bool) {
	tag, known = catalogIndex[name]
	return tag, tag != "", known
}
