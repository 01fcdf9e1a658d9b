/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package decorator

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Thread thread data
type Thread struct {
	ID             string         `json:"thid,omitempty"`
	PID            string         `json:"pthid,omitempty"`
	SenderOrder    int            `json:"sender_order,omitempty"`
	ReceivedOrders map[string]int `json:"received_orders,omitempty"`
}

// Timing keeps expiration time
type Timing struct {
	OutTime     time.Time `json:"out_time,omitempty"`
	ExpiresTime time.Time `json:"expires_time,omitempty"`
}

// PleaseAck requests an ack for the message carrying it.
type PleaseAck struct {
	On []string `json:"on,omitempty"`
}

// Attachment is intended to provide the possibility to include files, links or even JSON payload to the message.
type Attachment struct {
	ID          string         `json:"@id,omitempty"`
	MimeType    string         `json:"mime-type,omitempty"`
	LastModTime time.Time      `json:"lastmod_time,omitempty"`
	ByteCount   int64          `json:"byte_count,omitempty"`
	Data        AttachmentData `json:"data,omitempty"`
}

// AttachmentData contains attachment payload.
type AttachmentData struct {
	// Base64 is the base64 encoded payload.
	Base64 string `json:"base64,omitempty"`
	// JSON is a directly embedded JSON payload.
	JSON interface{} `json:"json,omitempty"`
}

// Fetch returns the raw payload of the attachment.
func (d *AttachmentData) Fetch() ([]byte, error) {
	if d.JSON != nil {
		bits, err := json.Marshal(d.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal json contents : %w", err)
		}

		return bits, nil
	}

	if d.Base64 != "" {
		bits, err := base64.StdEncoding.DecodeString(d.Base64)
		if err != nil {
			return nil, fmt.Errorf("failed to base64 decode attachment contents : %w", err)
		}

		return bits, nil
	}

	return nil, errors.New("no contents in this attachment")
}

// NewJSONAttachment returns an attachment carrying v encoded as base64 JSON.
func NewJSONAttachment(id string, v interface{}) (Attachment, error) {
	bits, err := json.Marshal(v)
	if err != nil {
		return Attachment{}, fmt.Errorf("marshal attachment %s: %w", id, err)
	}

	return Attachment{
		ID:       id,
		MimeType: "application/json",
		Data:     AttachmentData{Base64: base64.StdEncoding.EncodeToString(bits)},
	}, nil
}

// DecodeAttachment decodes the JSON payload of the attachment with the given id into v.
func DecodeAttachment(attachments []Attachment, id string, v interface{}) error {
	for i := range attachments {
		if attachments[i].ID != id {
			continue
		}

		bits, err := attachments[i].Data.Fetch()
		if err != nil {
			return err
		}

		return json.Unmarshal(bits, v)
	}

	return fmt.Errorf("attachment %s not found", id)
}
