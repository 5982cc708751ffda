package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andresmejia3/facecrop/internal/types"
)

const DefaultEndpoint = "https://vision.api.cloud.yandex.net/vision/v1/batchAnalyze"

// maxErrorBody caps how much of a failed response is echoed into the error.
const maxErrorBody = 512

// Client calls the batchAnalyze endpoint with FACE_DETECTION.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type analyzeRequest struct {
	AnalyzeSpecs []analyzeSpec `json:"analyze_specs"`
}

type analyzeSpec struct {
	Content  string    `json:"content"`
	Features []feature `json:"features"`
}

type feature struct {
	Type string `json:"type"`
}

// Every level is a pointer or slice so a missing element can be told apart
// from an empty one.
type analyzeResponse struct {
	Results []struct {
		Results []struct {
			FaceDetection *struct {
				Faces []struct {
					BoundingBox *struct {
						Vertices *types.Polygon `json:"vertices"`
					} `json:"boundingBox"`
				} `json:"faces"`
			} `json:"faceDetection"`
		} `json:"results"`
	} `json:"results"`
}

// DetectFaces returns one bounding polygon per face found in image.
// A response that lacks the expected result path means "no faces" and is
// not an error. Transport failures, non-2xx statuses and malformed JSON are.
func (c *Client) DetectFaces(ctx context.Context, image []byte) ([]types.Polygon, error) {
	payload, err := json.Marshal(analyzeRequest{
		AnalyzeSpecs: []analyzeSpec{{
			Content:  base64.StdEncoding.EncodeToString(image),
			Features: []feature{{Type: "FACE_DETECTION"}},
		}},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Api-Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read vision response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("vision api returned %s: %s", resp.Status, body)
	}

	return ParseFaces(body)
}

// ParseFaces extracts results[0].results[0].faceDetection.faces[*].boundingBox.vertices.
// If any element of that path is absent the whole image counts as faceless.
func ParseFaces(body []byte) ([]types.Polygon, error) {
	var res analyzeResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("invalid vision response: %w", err)
	}

	if len(res.Results) == 0 || len(res.Results[0].Results) == 0 {
		return nil, nil
	}
	fd := res.Results[0].Results[0].FaceDetection
	if fd == nil {
		return nil, nil
	}

	faces := make([]types.Polygon, 0, len(fd.Faces))
	for _, f := range fd.Faces {
		if f.BoundingBox == nil || f.BoundingBox.Vertices == nil {
			return nil, nil
		}
		faces = append(faces, *f.BoundingBox.Vertices)
	}
	return faces, nil
}
