// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package preferences persists the reader's theme and typography settings.

All settings live in one JSON object under [StorageKey]. Unknown values found
in storage are rejected as a whole and the defaults are used instead.
*/
package preferences

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/taibuivan/storyweaver/internal/storage/binding"
	"github.com/taibuivan/storyweaver/internal/storage/kvstore"
)

// StorageKey is the only store key written by the [Store].
const StorageKey = "preferences"

// Font size bounds, as a multiple of the base size.
const (
	MinFontSize  = 0.8
	MaxFontSize  = 2.0
	FontSizeStep = 0.1
)

// ErrInvalidPreference is returned for values outside the accepted set.
var ErrInvalidPreference = errors.New("preferences: invalid value")

var (
	// Themes lists the accepted colour themes.
	Themes = []string{"light", "dark", "sepia"}
	// Fonts lists the accepted reading fonts.
	Fonts = []string{"sans", "serif", "merriweather", "lato"}
	// TextAligns lists the accepted paragraph alignments.
	TextAligns = []string{"left", "justify"}
)

// Preferences are the persisted reader settings.
type Preferences struct {
	Theme       string  `json:"theme"`
	Font        string  `json:"font"`
	FontSize    float64 `json:"fontSize"`
	LineHeight  float64 `json:"lineHeight"`
	ColumnWidth string  `json:"columnWidth"`
	TextAlign   string  `json:"textAlign"`
}

// Defaults returns the settings of a fresh profile.
func Defaults() Preferences {
	return Preferences{
		Theme:       "dark",
		Font:        "serif",
		FontSize:    1.0,
		LineHeight:  1.7,
		ColumnWidth: "max-w-3xl",
		TextAlign:   "left",
	}
}

var preferencesSchema = jsonschema.MustCompileString("preferences.json", `{
	"type": "object",
	"required": ["theme", "font", "fontSize", "lineHeight", "columnWidth", "textAlign"],
	"properties": {
		"theme": {"enum": ["light", "dark", "sepia"]},
		"font": {"enum": ["sans", "serif", "merriweather", "lato"]},
		"fontSize": {"type": "number", "minimum": 0.8, "maximum": 2.0},
		"lineHeight": {"type": "number", "exclusiveMinimum": 0},
		"columnWidth": {"type": "string", "minLength": 1},
		"textAlign": {"enum": ["left", "justify"]}
	}
}`)

// Store manages one profile's preferences.
type Store struct {
	binding *binding.Binding[Preferences]
}

// New constructs a preferences store over kv.
func New(kv kvstore.Store, logger *slog.Logger) *Store {
	return &Store{
		binding: binding.New(kv, StorageKey, Defaults(),
			binding.WithLogger(logger),
			binding.WithSchema(preferencesSchema),
		),
	}
}

// Start begins asynchronous hydration.
func (store *Store) Start(context context.Context) { store.binding.Start(context) }

// WaitReady blocks until hydration has been attempted or context is done.
func (store *Store) WaitReady(context context.Context) error {
	return store.binding.WaitReady(context)
}

// IsReady reports whether stored preferences have been loaded.
func (store *Store) IsReady() bool { return store.binding.IsReady() }

// Get returns the current preferences.
func (store *Store) Get() Preferences { return store.binding.Value() }

// Patch is a partial update of [Preferences]. Nil fields are left unchanged.
type Patch struct {
	Theme       *string
	Font        *string
	FontSize    *float64
	LineHeight  *float64
	ColumnWidth *string
	TextAlign   *string
}

// validate checks every present field before anything is applied.
func (patch Patch) validate() error {
	switch {
	case patch.Theme != nil && !slices.Contains(Themes, *patch.Theme),
		patch.Font != nil && !slices.Contains(Fonts, *patch.Font),
		patch.TextAlign != nil && !slices.Contains(TextAligns, *patch.TextAlign),
		patch.ColumnWidth != nil && *patch.ColumnWidth == "",
		patch.LineHeight != nil && (!(*patch.LineHeight > 0) || math.IsInf(*patch.LineHeight, 0)),
		patch.FontSize != nil && (math.IsNaN(*patch.FontSize) || math.IsInf(*patch.FontSize, 0)):
		return ErrInvalidPreference
	}
	return nil
}

// merge returns previous with every present field of patch applied.
func (patch Patch) merge(previous Preferences) Preferences {
	next := previous
	if patch.Theme != nil {
		next.Theme = *patch.Theme
	}
	if patch.Font != nil {
		next.Font = *patch.Font
	}
	if patch.FontSize != nil {
		next.FontSize = clampFontSize(*patch.FontSize)
	}
	if patch.LineHeight != nil {
		next.LineHeight = *patch.LineHeight
	}
	if patch.ColumnWidth != nil {
		next.ColumnWidth = *patch.ColumnWidth
	}
	if patch.TextAlign != nil {
		next.TextAlign = *patch.TextAlign
	}
	return next
}

/*
Apply validates patch and applies all of its fields in one update.

Description: Either every field is applied or, on ErrInvalidPreference, none
is. The result is persisted at most once and not at all when nothing changes.
Font sizes are clamped to [MinFontSize, MaxFontSize].
*/
func (store *Store) Apply(patch Patch) error {
	if err := patch.validate(); err != nil {
		return err
	}
	store.binding.UpdateIf(func(previous Preferences) (Preferences, bool) {
		next := patch.merge(previous)
		return next, next != previous
	})
	return nil
}

// SetTheme selects one of [Themes].
func (store *Store) SetTheme(theme string) error {
	return store.Apply(Patch{Theme: &theme})
}

// SetFont selects one of [Fonts].
func (store *Store) SetFont(font string) error {
	return store.Apply(Patch{Font: &font})
}

// SetTextAlign selects one of [TextAligns].
func (store *Store) SetTextAlign(align string) error {
	return store.Apply(Patch{TextAlign: &align})
}

// SetColumnWidth stores the reading column width class.
func (store *Store) SetColumnWidth(width string) error {
	return store.Apply(Patch{ColumnWidth: &width})
}

// SetLineHeight stores a positive line height.
func (store *Store) SetLineHeight(height float64) error {
	return store.Apply(Patch{LineHeight: &height})
}

// SetFontSize stores size clamped to [MinFontSize, MaxFontSize].
func (store *Store) SetFontSize(size float64) error {
	return store.Apply(Patch{FontSize: &size})
}

// IncreaseFontSize grows the font by one step, up to [MaxFontSize].
func (store *Store) IncreaseFontSize() {
	store.binding.Update(func(previous Preferences) Preferences {
		previous.FontSize = clampFontSize(previous.FontSize + FontSizeStep)
		return previous
	})
}

// DecreaseFontSize shrinks the font by one step, down to [MinFontSize].
func (store *Store) DecreaseFontSize() {
	store.binding.Update(func(previous Preferences) Preferences {
		previous.FontSize = clampFontSize(previous.FontSize - FontSizeStep)
		return previous
	})
}

// clampFontSize bounds size and rounds it to one decimal so repeated steps
// do not accumulate floating point drift.
func clampFontSize(size float64) float64 {
	rounded := math.Round(size*10) / 10
	return math.Max(MinFontSize, math.Min(MaxFontSize, rounded))
}
