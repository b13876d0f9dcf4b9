package moderation

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/aws/aws-sdk-go/service/rekognition/rekognitioniface"
)

// DefaultMinConfidence keeps low-confidence labels in the response so they can
// be banded instead of silently dropped by the service default of 50.
const DefaultMinConfidence = 10

var rekognitionCategories = map[string]string{
	// v6 taxonomy
	"Explicit Nudity":     "adult",
	"Suggestive":          "racy",
	"Violence":            "violence",
	"Visually Disturbing": "violence",
	// v7 taxonomy
	"Explicit": "adult",
	"Non-Explicit Nudity of Intimate parts and Kissing": "racy",
	"Swimwear or Underwear":                             "racy",
	"Graphic Violence":                                  "violence",
}

// Rekognition classifies images with AWS Rekognition DetectModerationLabels.
type Rekognition struct {
	API           rekognitioniface.RekognitionAPI
	MinConfidence float64
}

func NewRekognition(api rekognitioniface.RekognitionAPI) *Rekognition {
	return &Rekognition{API: api, MinConfidence: DefaultMinConfidence}
}

func (r *Rekognition) Classify(ctx context.Context, image []byte) (SafeSearch, error) {
	minConfidence := r.MinConfidence
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	output, err := r.API.DetectModerationLabelsWithContext(ctx, &rekognition.DetectModerationLabelsInput{
		Image:         &rekognition.Image{Bytes: image},
		MinConfidence: aws.Float64(minConfidence),
	})
	if err != nil {
		return SafeSearch{}, fmt.Errorf("failed to detect moderation labels: %w", err)
	}

	confidence := map[string]float64{}
	for _, label := range output.ModerationLabels {
		category, ok := rekognitionCategories[aws.StringValue(label.Name)]
		if !ok {
			category, ok = rekognitionCategories[aws.StringValue(label.ParentName)]
		}
		if !ok {
			continue
		}
		if c := aws.Float64Value(label.Confidence); c > confidence[category] {
			confidence[category] = c
		}
	}

	return SafeSearch{
		Adult:    Band(confidence["adult"]),
		Violence: Band(confidence["violence"]),
		Racy:     Band(confidence["racy"]),
	}, nil
}

// Band converts a 0-100 confidence into a likelihood band.
func Band(confidence float64) Likelihood {
	switch {
	case confidence >= 90:
		return VeryLikely
	case confidence >= 75:
		return Likely
	case confidence >= 50:
		return Possible
	case confidence >= 25:
		return Unlikely
	default:
		return VeryUnlikely
	}
}
