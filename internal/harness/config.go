// Package harness describes the external node under test to whatever
// process supervisor launches it. Launching, stopping, and materialising
// the node's own config format are all out of scope here — this package is
// purely the data contract a supervisor and the synthetic-peer layer share.
package harness

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// NodeKind names a supported full-node implementation.
type NodeKind string

const (
	NodeKindZebra  NodeKind = "zebra"
	NodeKindZcashd NodeKind = "zcashd"
)

// NodeConfig names the node under test and how a supervisor should run it.
// Fields mirror the original setup config's table exactly; optional fields
// are pointers so "absent" and "empty string" stay distinguishable through
// a round trip.
type NodeConfig struct {
	Kind         NodeKind `json:"kind" yaml:"kind"`
	Path         string   `json:"path" yaml:"path"`
	StartCommand string   `json:"start_command" yaml:"start_command"`
	StopCommand  *string  `json:"stop_command,omitempty" yaml:"stop_command,omitempty"`
	LocalIP      *string  `json:"local_ip,omitempty" yaml:"local_ip,omitempty"`
	LocalAddr    *string  `json:"local_addr,omitempty" yaml:"local_addr,omitempty"`
	ExternalAddr *string  `json:"external_addr,omitempty" yaml:"external_addr,omitempty"`
	PeerIP       *string  `json:"peer_ip,omitempty" yaml:"peer_ip,omitempty"`
}

// Validate reports whether cfg names a supported node kind and the minimum
// fields a supervisor needs to launch it.
func (c NodeConfig) Validate() error {
	switch c.Kind {
	case NodeKindZebra, NodeKindZcashd:
	default:
		return errInvalidKind(c.Kind)
	}
	if c.Path == "" {
		return errMissingField("path")
	}
	if c.StartCommand == "" {
		return errMissingField("start_command")
	}
	return nil
}

// DecodeJSON parses a NodeConfig from JSON bytes.
func DecodeJSON(data []byte) (NodeConfig, error) {
	var c NodeConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return NodeConfig{}, err
	}
	return c, c.Validate()
}

// DecodeYAML parses a NodeConfig from YAML bytes.
func DecodeYAML(data []byte) (NodeConfig, error) {
	var c NodeConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return NodeConfig{}, err
	}
	return c, c.Validate()
}
