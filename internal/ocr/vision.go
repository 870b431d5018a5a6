package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const visionEndpoint = "https://vision.googleapis.com/v1/images:annotate"

// VisionExtractor calls the Google Cloud Vision text-detection API and
// parses the returned text into bill fields.
type VisionExtractor struct {
	apiKey  string
	client  *http.Client
	log     *zap.Logger
	timeout time.Duration
}

func NewVisionExtractor(apiKey string, timeout time.Duration, log *zap.Logger) *VisionExtractor {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &VisionExtractor{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		log:     log.Named("ocr.vision"),
		timeout: timeout,
	}
}

type visionRequest struct {
	Requests []visionAnnotateRequest `json:"requests"`
}

type visionAnnotateRequest struct {
	Image    visionImage     `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionImage struct {
	Source visionImageSource `json:"source"`
}

type visionImageSource struct {
	ImageURI string `json:"imageUri"`
}

type visionFeature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

type visionResponse struct {
	Responses []struct {
		TextAnnotations []struct {
			Description string `json:"description"`
		} `json:"textAnnotations"`
		FullTextAnnotation *struct {
			Text  string `json:"text"`
			Pages []struct {
				Confidence float64 `json:"confidence"`
			} `json:"pages"`
		} `json:"fullTextAnnotation"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

func (e *VisionExtractor) Extract(ctx context.Context, imageURL string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req := visionRequest{
		Requests: []visionAnnotateRequest{{
			Image: visionImage{Source: visionImageSource{ImageURI: imageURL}},
			Features: []visionFeature{
				{Type: "TEXT_DETECTION", MaxResults: 1},
				{Type: "DOCUMENT_TEXT_DETECTION", MaxResults: 1},
			},
		}},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s?key=%s", visionEndpoint, e.apiKey), bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return Result{Success: false, Err: err.Error()}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Success: false, Err: fmt.Sprintf("vision api status %d", resp.StatusCode)}, nil
	}

	var parsed visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{Success: false, Err: err.Error()}, nil
	}
	if len(parsed.Responses) == 0 {
		return Result{Success: false, Err: "empty vision response"}, nil
	}

	annotations := parsed.Responses[0]
	if annotations.Error != nil {
		return Result{Success: false, Err: annotations.Error.Message}, nil
	}

	var rawText string
	if annotations.FullTextAnnotation != nil {
		rawText = annotations.FullTextAnnotation.Text
	}
	if rawText == "" && len(annotations.TextAnnotations) > 0 {
		rawText = annotations.TextAnnotations[0].Description
	}
	if rawText == "" {
		return Result{Success: false, Err: "no text detected in image"}, nil
	}

	data, parsedConfidence := ParseReceiptText(rawText)

	confidence := parsedConfidence
	if annotations.FullTextAnnotation != nil && len(annotations.FullTextAnnotation.Pages) > 0 {
		if c := annotations.FullTextAnnotation.Pages[0].Confidence; c > 0 {
			confidence = c
		}
	}

	return Result{
		Success:    true,
		Data:       data,
		Confidence: confidence,
		RawText:    rawText,
	}, nil
}
