package transform

import (
	"fmt"
	"strconv"
	"strings"
)

type LayerKind string

const (
	LayerStyle   LayerKind = "style"
	LayerPrompt  LayerKind = "prompt"
	LayerReplace LayerKind = "replace"

	// PromptJoin replaces whitespace in prompt text; the descriptor grammar is
	// whitespace-delimited.
	PromptJoin = "_"

	componentDelimiter = "/"
)

// Layer is one entry in the ordered transformation chain. Quality is zero when
// the layer does not carry one.
type Layer struct {
	Kind    LayerKind `json:"kind"`
	Effect  string    `json:"effect"`
	Quality int       `json:"quality,omitempty"`
}

// Component renders the layer as a delivery URL path component.
func (l Layer) Component() string {
	var b strings.Builder
	b.WriteString("e_")
	b.WriteString(l.Effect)
	if l.Quality > 0 {
		b.WriteString(",q_")
		b.WriteString(strconv.Itoa(l.Quality))
	}
	return b.String()
}

func (l Layer) String() string {
	return l.Component()
}

// BuildLayers returns style and prompt layers (when present) followed by
// exactly one replacement layer. Inputs are passed through unvalidated apart
// from the style lookup.
func BuildLayers(subject, replacement, styleName, detail string, quality int) ([]Layer, error) {
	tag, hasTag, known := LookupStyle(styleName)
	if !known {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStyle, styleName)
	}

	layers := make([]Layer, 0, 3)
	if hasTag {
		layers = append(layers, StyleLayer(tag))
	}
	if strings.TrimSpace(detail) != "" {
		layers = append(layers, PromptLayer(detail))
	}
	layers = append(layers, ReplaceLayer(subject, replacement, quality))
	return layers, nil
}

func StyleLayer(tag string) Layer {
	return Layer{Kind: LayerStyle, Effect: "style:" + tag}
}

func PromptLayer(detail string) Layer {
	return Layer{Kind: LayerPrompt, Effect: "prompt:" + JoinWords(detail)}
}

func ReplaceLayer(subject, replacement string, quality int) Layer {
	return Layer{
		Kind:    LayerReplace,
		Effect:  "gen_replace:from_" + subject + ";to_" + replacement,
		Quality: quality,
	}
}

// JoinWords collapses every whitespace run to PromptJoin.
func JoinWords(text string) string {
	return strings.Join(strings.Fields(text), PromptJoin)
}

// Chain joins layer components in order.
func Chain(layers []Layer) string {
	parts := make([]string, 0, len(layers))
	for _, l := range layers {
		parts = append(parts, l.Component())
	}
	return strings.Join(parts, componentDelimiter)
}
