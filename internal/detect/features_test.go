package detect

import (
	"image"
	"testing"
)

func TestDetectKeypointsRespectsCap(t *testing.T) {
	img := Grayscale(noiseGray(128, 128, 10))

	few := DetectKeypoints(img, 20)
	if len(few) > 20 {
		t.Errorf("got %d keypoints, cap was 20", len(few))
	}
	many := DetectKeypoints(img, 500)
	if len(many) < len(few) {
		t.Errorf("raising the cap reduced keypoints: %d -> %d", len(few), len(many))
	}
}

func TestDetectKeypointsNoneOnFlatImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 100
	}
	if kps := DetectKeypoints(img, 100); len(kps) != 0 {
		t.Errorf("flat image produced %d keypoints, want 0", len(kps))
	}
}

func TestDetectKeypointsDeterministic(t *testing.T) {
	img := Grayscale(noiseGray(96, 96, 11))

	a := DetectKeypoints(img, 200)
	b := DetectKeypoints(img, 200)
	if len(a) != len(b) {
		t.Fatalf("keypoint counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("keypoint %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestDescriptorsSelfMatch(t *testing.T) {
	img := Grayscale(noiseGray(96, 96, 12))
	kps := DetectKeypoints(img, 100)
	if len(kps) == 0 {
		t.Skip("no keypoints on this pattern")
	}
	descs := ComputeDescriptors(img, kps)

	for i := range descs {
		if hamming(descs[i], descs[i]) != 0 {
			t.Fatalf("descriptor %d does not self-match", i)
		}
	}
}

func TestFeatureMatcherFindsPastedTemplate(t *testing.T) {
	cfg := testConfig()

	tmplImg := noiseGray(96, 96, 13)
	tmpl := NewTemplateFromImage("marker", tmplImg, cfg)
	if len(tmpl.Keypoints) < cfg.MinFeatureMatches {
		t.Fatalf("test pattern too weak: only %d template keypoints", len(tmpl.Keypoints))
	}

	frame := noiseGray(256, 256, 14)
	pasteAt(frame, tmplImg, 120, 100)

	scene := Preprocess(frame, cfg)
	res, ok := FeatureMatcher(scene, tmpl, cfg)
	if !ok || !res.Found {
		t.Fatal("expected feature matcher to locate the pasted template")
	}
	if res.Method != MethodFeature {
		t.Errorf("method = %s, want %s", res.Method, MethodFeature)
	}
	if res.Confidence <= 0 || res.Confidence > 1 {
		t.Errorf("confidence = %v, want (0,1]", res.Confidence)
	}

	// The inlier centroid must land inside the pasted area.
	pasted := image.Rect(120, 100, 216, 196)
	if !res.Location.In(pasted) {
		t.Errorf("location %v outside pasted area %v", res.Location, pasted)
	}
}

func TestFeatureMatcherRejectsAbsentTemplate(t *testing.T) {
	cfg := testConfig()

	tmpl := NewTemplateFromImage("marker", noiseGray(96, 96, 15), cfg)
	frame := image.NewRGBA(image.Rect(0, 0, 256, 256))
	for i := range frame.Pix {
		frame.Pix[i] = 200
	}

	scene := Preprocess(frame, cfg)
	if res, ok := FeatureMatcher(scene, tmpl, cfg); ok {
		t.Errorf("expected rejection on a blank scene, got %+v", res)
	}
}
