package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadAndAnalyze(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == UploadPath:
			file, header, err := r.FormFile("image")
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			defer file.Close()
			data, _ := io.ReadAll(file)
			if header.Filename != "cat.png" || string(data) != "PNGDATA" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `{"imageId":"img-42"}`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/images/img-42/analyze":
			fmt.Fprint(w, `{"analysis":{
				"description":"a cat on a sofa",
				"tags":["cat",{"name":"indoor"}],
				"objects":[{"name":"cat","confidence":0.934},{"object":"sofa","confidence":0.5}],
				"faces":[{"age":34,"gender":"female"}],
				"text":[{"text":"HELLO"},"WORLD"]
			}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL+"/", time.Second)
	defer client.Close()

	upload, err := client.Upload(context.Background(), "/tmp/photos/cat.png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)
	require.Equal(t, "img-42", upload.ImageID)

	analysis, err := client.Analyze(context.Background(), upload.ImageID)
	require.NoError(t, err)

	assert.Equal(t, "a cat on a sofa", analysis.Description)
	assert.Equal(t, []string{"cat", "indoor"}, analysis.Tags)
	require.Len(t, analysis.Objects, 2)
	assert.Equal(t, "cat", analysis.Objects[0].Name)
	assert.Equal(t, "sofa", analysis.Objects[1].Name)
	assert.Equal(t, 93, ConfidencePercent(analysis.Objects[0].Confidence))
	require.Len(t, analysis.Faces, 1)
	assert.Equal(t, "34", analysis.Faces[0].Age)
	assert.Equal(t, "female", analysis.Faces[0].Gender)
	assert.Equal(t, []string{"HELLO", "WORLD"}, analysis.Text)
}

func TestUploadFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, time.Second)
	defer client.Close()

	_, err := client.Upload(context.Background(), "big.jpg", strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, "Upload failed: Request Entity Too Large", err.Error())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusErr.StatusCode)
}

func TestAnalyzeFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, time.Second)
	defer client.Close()

	_, err := client.Analyze(context.Background(), "missing")
	require.EqualError(t, err, "Analysis failed: Internal Server Error")
}

func TestStats(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != StatsPath || r.URL.Query().Get("days_back") != "7" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{
			"summary":{"total_images_analyzed":1200,"images_with_faces":300,"total_objects_detected":4521,
			           "images_with_text":90,"average_confidence":0.873,"total_faces_detected":410},
			"percentages":{"faces":25.0,"objects":80.5,"text":7.5}
		}`)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, time.Second)
	defer client.Close()

	stats, err := client.Stats(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 7, stats.DaysBack)
	assert.EqualValues(t, 1200, stats.Summary.TotalImagesAnalyzed)
	assert.EqualValues(t, 410, stats.Summary.TotalFacesDetected)
	assert.InDelta(t, 0.873, stats.Summary.AverageConfidence, 1e-9)
	assert.InDelta(t, 80.5, stats.Percentages.Objects, 1e-9)
}

func TestStatsAcceptsFloatCounters(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"summary":{"total_images_analyzed":12.0,"images_with_faces":3,"total_objects_detected":4521.0,
			           "images_with_text":0,"average_confidence":0.5,"total_faces_detected":1234567.0},
			"percentages":{"faces":25,"objects":80.5,"text":0}
		}`)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, time.Second)
	defer client.Close()

	stats, err := client.Stats(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, "12", FormatCount(stats.Summary.TotalImagesAnalyzed))
	assert.Equal(t, "4,521", FormatCount(stats.Summary.TotalObjectsDetected))
	assert.Equal(t, "1,234,567", FormatCount(stats.Summary.TotalFacesDetected))
	assert.Equal(t, "3", FormatCount(stats.Summary.ImagesWithFaces))
}

func TestParseAnalysisShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		text []string
		desc string
	}{
		{"plain text", `{"analysis":{"text":"STOP"}}`, []string{"STOP"}, ""},
		{"text object", `{"analysis":{"text":{"text":"EXIT"}}}`, []string{"EXIT"}, ""},
		{"no text", `{"analysis":{"text":null,"description":"empty room"}}`, nil, "empty room"},
		{"captions", `{"analysis":{"description":{"captions":[{"text":"a dog"}]}}}`, nil, "a dog"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAnalysis([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.text, a.Text)
			assert.Equal(t, tt.desc, a.Description)
		})
	}

	_, err := ParseAnalysis([]byte(`{"result":{}}`))
	require.Error(t, err)

	_, err = ParseAnalysis([]byte(`not json`))
	require.Error(t, err)
}

func TestFaceCount(t *testing.T) {
	assert.Equal(t, "0 faces detected", FaceCount(0))
	assert.Equal(t, "1 face detected", FaceCount(1))
	assert.Equal(t, "3 faces detected", FaceCount(3))
}
