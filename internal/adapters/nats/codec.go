package natsadapter

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Event subjects.
const (
	SubjectAll              = "canopy.>"
	SubjectLayerRegistered  = "canopy.layer.registered"
	SubjectThumbnailCreated = "canopy.thumbnail.created"
)

// Events travel as a binary google.protobuf.Struct:
//
//	{"type": <subject>, "occurred_at": <RFC 3339>, "data": <payload>}
//
// so consumers in any language can decode them without generated code.

// EncodeEvent wraps payload in an event envelope.
func EncodeEvent(subject string, payload any, at time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}

	s, err := structpb.NewStruct(map[string]any{
		"type":        subject,
		"occurred_at": at.UTC().Format(time.RFC3339Nano),
		"data":        data,
	})
	if err != nil {
		return nil, fmt.Errorf("build event: %w", err)
	}
	return proto.Marshal(s)
}

// DecodeEvent unpacks an envelope, decoding its payload into out.
func DecodeEvent(msg []byte, out any) (subject string, err error) {
	var s structpb.Struct
	if err := proto.Unmarshal(msg, &s); err != nil {
		return "", fmt.Errorf("unmarshal event: %w", err)
	}
	fields := s.GetFields()
	subject = fields["type"].GetStringValue()

	data := fields["data"].GetStructValue()
	if data == nil {
		return subject, fmt.Errorf("event %q has no data", subject)
	}
	raw, err := protojson.Marshal(data)
	if err != nil {
		return subject, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return subject, fmt.Errorf("decode %s payload: %w", subject, err)
	}
	return subject, nil
}

// EventJSON renders an encoded envelope as JSON for browser clients.
func EventJSON(msg []byte) ([]byte, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(msg, &s); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return protojson.Marshal(&s)
}
