// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daqcfg

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ChannelConfig selects which channels of a board are enabled: either all
// of them (a bare bool) or an explicit index list. It generalizes
// original_source/src/config.rs's `ChannelConfig` (Rust's
// `#[serde(untagged)] enum { All(bool), List(Vec<u32>) }`) to yaml.v3,
// which has no built-in untagged-union support: UnmarshalYAML tries each
// shape in turn.
type ChannelConfig struct {
	All  bool
	List []int // only meaningful when All's shape did not match
	isList bool
}

func (c *ChannelConfig) UnmarshalYAML(node *yaml.Node) error {
	var all bool
	if err := node.Decode(&all); err == nil {
		*c = ChannelConfig{All: all}
		return nil
	}
	var list []int
	if err := node.Decode(&list); err == nil {
		*c = ChannelConfig{List: list, isList: true}
		return nil
	}
	return fmt.Errorf("channels: expected a bool or a list of channel indices, got %v", node.Value)
}

// Enabled reports whether channel ch (0-based) is enabled under cfg, given
// the board's total channel count n.
func (c ChannelConfig) Enabled(ch, n int) bool {
	if !c.isList && len(c.List) == 0 {
		return c.All
	}
	for _, idx := range c.List {
		if idx == ch {
			return true
		}
	}
	return false
}

// DCOffsetConfig is a board's DC offset: either a single value applied to
// every channel, or a per-channel map. Generalizes
// original_source/src/config.rs's `DCOffsetConfig` enum.
type DCOffsetConfig struct {
	Global     float64
	PerChannel map[string]float64
	isMap      bool
}

func (c *DCOffsetConfig) UnmarshalYAML(node *yaml.Node) error {
	var g float64
	if err := node.Decode(&g); err == nil {
		*c = DCOffsetConfig{Global: g}
		return nil
	}
	var m map[string]float64
	if err := node.Decode(&m); err == nil {
		*c = DCOffsetConfig{PerChannel: m, isMap: true}
		return nil
	}
	return fmt.Errorf("dc_offset: expected a float or a per-channel map, got %v", node.Value)
}

// For returns the DC offset to apply to channel key (the string key used
// in the per-channel map, typically the decimal channel index).
func (c DCOffsetConfig) For(key string) float64 {
	if !c.isMap {
		return c.Global
	}
	return c.PerChannel[key]
}

// ConnectConfig selects which channels feed the internal-trigger-logic
// majority, in the same global-or-per-channel shape as DCOffsetConfig.
type ConnectConfig struct {
	Global     bool
	PerChannel map[string]bool
	isMap      bool
}

func (c *ConnectConfig) UnmarshalYAML(node *yaml.Node) error {
	var g bool
	if err := node.Decode(&g); err == nil {
		*c = ConnectConfig{Global: g}
		return nil
	}
	var m map[string]bool
	if err := node.Decode(&m); err == nil {
		*c = ConnectConfig{PerChannel: m, isMap: true}
		return nil
	}
	return fmt.Errorf("itl_connect: expected a bool or a per-channel map, got %v", node.Value)
}

// For returns whether channel key feeds the majority.
func (c ConnectConfig) For(key string) bool {
	if !c.isMap {
		return c.Global
	}
	return c.PerChannel[key]
}
