/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vcx

import (
	"encoding/json"
	"net/url"

	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// Version of the engine.
const Version = "0.1.0"

// AriesProtocolVersion is the only protocol version spoken by the engine.
const AriesProtocolVersion = "3.0"

// Config is the institution configuration the engine is initialized with.
type Config struct {
	InstitutionDID     string `json:"institution_did,omitempty"`
	InstitutionVerkey  string `json:"institution_verkey,omitempty"`
	InstitutionName    string `json:"institution_name"`
	InstitutionLogoURL string `json:"institution_logo_url,omitempty"`
	AgencyEndpoint     string `json:"agency_endpoint"`
	WebhookURL         string `json:"webhook_url,omitempty"`
	PaymentMethod      string `json:"payment_method,omitempty"`
	ProtocolVersion    string `json:"protocol_version,omitempty"`
}

// ParseConfig reads and validates a JSON configuration.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config

	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, vcxerr.Wrap(vcxerr.ValidationFailure, err, "invalid config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required keys and fills defaults.
func (c *Config) Validate() error {
	if c.InstitutionName == "" {
		return vcxerr.New(vcxerr.ValidationFailure, "config: institution_name is required")
	}

	if err := checkURL("agency_endpoint", c.AgencyEndpoint); err != nil {
		return err
	}

	if c.WebhookURL != "" {
		if err := checkURL("webhook_url", c.WebhookURL); err != nil {
			return err
		}
	}

	if (c.InstitutionDID == "") != (c.InstitutionVerkey == "") {
		return vcxerr.New(vcxerr.ValidationFailure, "config: institution_did and institution_verkey go together")
	}

	switch c.ProtocolVersion {
	case "":
		c.ProtocolVersion = AriesProtocolVersion
	case AriesProtocolVersion:
	default:
		return vcxerr.New(vcxerr.UnsupportedVersion, "config: protocol_version %q is not supported", c.ProtocolVersion)
	}

	return nil
}

func checkURL(key, value string) error {
	if value == "" {
		return vcxerr.New(vcxerr.ValidationFailure, "config: %s is required", key)
	}

	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return vcxerr.New(vcxerr.ValidationFailure, "config: %s %q is not an http url", key, value)
	}

	return nil
}
