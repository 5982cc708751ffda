package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Coord is a pixel coordinate as reported by the vision API.
// The API encodes int64 fields as JSON strings, so both "10" and 10 decode.
type Coord int64

func (c *Coord) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*c = 0
		return nil
	}
	if v, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*c = Coord(v)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %q: %w", data, err)
	}
	*c = Coord(int64(f)) // truncate toward zero
	return nil
}

// Vertex is one corner of a bounding polygon
type Vertex struct {
	X Coord `json:"x"`
	Y Coord `json:"y"`
}

// Polygon is the ordered vertex list describing one detected face
type Polygon []Vertex

// FaceMessage is the queue message published by the detector, one per face
type FaceMessage struct {
	ObjectKey string  `json:"object_key"`
	Face      Polygon `json:"face"`
}

// CropRecord links an original object to one of its face crops
type CropRecord struct {
	ID         int64     `json:"id"`
	OriginalID string    `json:"original_id"`
	FaceID     string    `json:"face_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// UploadEvent is the storage trigger delivered to the detector
type UploadEvent struct {
	Messages []UploadMessage `json:"messages"`
}

type UploadMessage struct {
	Details struct {
		BucketID string `json:"bucket_id"`
		ObjectID string `json:"object_id"`
	} `json:"details"`
}

// TriggerBatch is the queue trigger delivered to the cropper service
type TriggerBatch struct {
	Messages []TriggerMessage `json:"messages"`
}

type TriggerMessage struct {
	Details struct {
		Message struct {
			Body string `json:"body"`
		} `json:"message"`
	} `json:"details"`
}

// TriggerEnvelope is the trigger body with its messages left undecoded, so
// one malformed message cannot reject the others.
type TriggerEnvelope struct {
	Messages []json.RawMessage `json:"messages"`
}

// DecodeTriggerMessage decodes one entry of a TriggerEnvelope
func DecodeTriggerMessage(raw json.RawMessage) (TriggerMessage, error) {
	var m TriggerMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return TriggerMessage{}, err
	}
	return m, nil
}

// NewTriggerMessage wraps a raw queue body the way the trigger delivers it
func NewTriggerMessage(body string) TriggerMessage {
	var m TriggerMessage
	m.Details.Message.Body = body
	return m
}

// NewUploadMessage builds the trigger entry for one stored object
func NewUploadMessage(bucket, key string) UploadMessage {
	var m UploadMessage
	m.Details.BucketID = bucket
	m.Details.ObjectID = key
	return m
}

// DecodeFaceMessage parses a queue body into a FaceMessage
func DecodeFaceMessage(body string) (FaceMessage, error) {
	var msg FaceMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return FaceMessage{}, err
	}
	return msg, nil
}
