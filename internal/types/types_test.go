package types

import (
	"encoding/json"
	"testing"
)

func TestCoordUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    Coord
		wantErr bool
	}{
		{`10`, 10, false},
		{`"10"`, 10, false},
		{`"-3"`, -3, false},
		{`12.9`, 12, false},
		{`null`, 0, false},
		{`"abc"`, 0, true},
	}

	for _, tt := range tests {
		var c Coord
		err := json.Unmarshal([]byte(tt.in), &c)
		if (err != nil) != tt.wantErr {
			t.Errorf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && c != tt.want {
			t.Errorf("Unmarshal(%s) = %d, want %d", tt.in, c, tt.want)
		}
	}
}

func TestFaceMessageRoundTrip(t *testing.T) {
	// Vision API style: string coordinates, y omitted when zero
	raw := `{"object_key":"cat.jpg","face":[{"x":"10","y":"20"},{"x":"50"}]}`

	msg, err := DecodeFaceMessage(raw)
	if err != nil {
		t.Fatalf("DecodeFaceMessage failed: %v", err)
	}
	if msg.ObjectKey != "cat.jpg" || len(msg.Face) != 2 {
		t.Fatalf("Unexpected message: %+v", msg)
	}
	if msg.Face[1] != (Vertex{X: 50, Y: 0}) {
		t.Errorf("Expected {50 0}, got %+v", msg.Face[1])
	}

	out, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"object_key":"cat.jpg","face":[{"x":10,"y":20},{"x":50,"y":0}]}`
	if string(out) != want {
		t.Errorf("Marshal = %s, want %s", out, want)
	}
}

func TestDecodeFaceMessage_Invalid(t *testing.T) {
	if _, err := DecodeFaceMessage("not json"); err == nil {
		t.Error("Expected error for invalid body")
	}
}
