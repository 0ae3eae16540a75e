package api

import (
	"fmt"
	"math"

	"github.com/tidwall/gjson"
)

// DetectedObject is one object found in the image
type DetectedObject struct {
	Name       string
	Confidence float64
}

// Face is one face found in the image
type Face struct {
	Age    string
	Gender string
}

// Analysis is the normalized result of the analyze endpoint.
//
// The backend is loose about shapes: tags may be strings or {name} objects,
// objects may use "name" or "object", and text may be a string, an object
// with a "text" field, or a list of either. Everything is flattened here.
type Analysis struct {
	Description string
	Tags        []string
	Objects     []DetectedObject
	Faces       []Face
	Text        []string
}

// ParseAnalysis reads an analyze response ({"analysis": {...}})
func ParseAnalysis(data []byte) (*Analysis, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("failed to decode analysis response: invalid JSON")
	}

	root := gjson.GetBytes(data, "analysis")
	if !root.Exists() {
		return nil, fmt.Errorf("failed to decode analysis response: missing analysis")
	}

	a := &Analysis{
		Description: descriptionText(root.Get("description")),
	}

	root.Get("tags").ForEach(func(_, tag gjson.Result) bool {
		if name := nameOf(tag, "name"); name != "" {
			a.Tags = append(a.Tags, name)
		}
		return true
	})

	root.Get("objects").ForEach(func(_, obj gjson.Result) bool {
		name := obj.Get("name").String()
		if name == "" {
			name = obj.Get("object").String()
		}
		a.Objects = append(a.Objects, DetectedObject{
			Name:       name,
			Confidence: obj.Get("confidence").Float(),
		})
		return true
	})

	root.Get("faces").ForEach(func(_, face gjson.Result) bool {
		a.Faces = append(a.Faces, Face{
			Age:    face.Get("age").String(),
			Gender: face.Get("gender").String(),
		})
		return true
	})

	a.Text = extractText(root.Get("text"))

	return a, nil
}

// descriptionText accepts a plain string or an object carrying captions
func descriptionText(v gjson.Result) string {
	switch {
	case !v.Exists():
		return ""
	case v.Type == gjson.String:
		return v.String()
	case v.Get("captions.0.text").Exists():
		return v.Get("captions.0.text").String()
	default:
		return v.Get("text").String()
	}
}

func extractText(v gjson.Result) []string {
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return nil
	case v.Type == gjson.String:
		if v.String() == "" {
			return nil
		}
		return []string{v.String()}
	case v.IsArray():
		var out []string
		v.ForEach(func(_, item gjson.Result) bool {
			if s := nameOf(item, "text"); s != "" {
				out = append(out, s)
			}
			return true
		})
		return out
	case v.Get("text").Exists():
		return extractText(v.Get("text"))
	default:
		return nil
	}
}

// nameOf returns a string value or the given field of an object
func nameOf(v gjson.Result, field string) string {
	if v.Type == gjson.String {
		return v.String()
	}
	return v.Get(field).String()
}

// ConfidencePercent converts a 0-1 confidence into a rounded percentage
func ConfidencePercent(confidence float64) int {
	return int(math.Round(confidence * 100))
}

// FaceCount renders "1 face detected" / "N faces detected"
func FaceCount(n int) string {
	if n == 1 {
		return "1 face detected"
	}
	return fmt.Sprintf("%d faces detected", n)
}
