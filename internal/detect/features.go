package detect

import (
	"image"
	"math/bits"
	"math/rand"
	"sort"
)

// Keypoint is a corner location with its detection response.
type Keypoint struct {
	X, Y     int
	Response int
}

// Descriptor is a 256-bit binary patch descriptor compared by Hamming
// distance.
type Descriptor [4]uint64

const (
	// fastRadius is the Bresenham circle radius of the segment test.
	fastRadius = 3
	// fastArc is the number of contiguous circle pixels that must all be
	// brighter or all darker than the center.
	fastArc = 9
	// fastThreshold is the minimum intensity difference for a circle pixel
	// to count.
	fastThreshold = 20
	// patchRadius bounds the descriptor sampling pattern; keypoints closer
	// than this to the image border are discarded.
	patchRadius = 15
	// suppressRadius enforces a minimum spacing between kept keypoints.
	suppressRadius = 4
	// ratioNum/ratioDen encode the 0.8 nearest-neighbor distance ratio.
	ratioNum = 4
	ratioDen = 5
	// consensusTolerance is the allowed deviation, in pixels, from the
	// median displacement for a match to count as consistent.
	consensusTolerance = 12
)

// circleOffsets is the 16-point Bresenham circle of radius 3.
var circleOffsets = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1},
	{3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1},
	{-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// samplePattern holds the 256 pixel-pair tests of the binary descriptor.
// Generated once from a fixed seed so descriptors are identical across runs
// and processes.
var samplePattern [256][4]int

func init() {
	rng := rand.New(rand.NewSource(0x5A17))
	for i := range samplePattern {
		for j := 0; j < 4; j++ {
			samplePattern[i][j] = rng.Intn(2*patchRadius-3) - (patchRadius - 2)
		}
	}
}

// DetectKeypoints finds corner keypoints via a segment test on the radius-3
// circle around each pixel, with spatial suppression, keeping the maxCount
// strongest.
func DetectKeypoints(img *image.Gray, maxCount int) []Keypoint {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	margin := patchRadius
	if margin < fastRadius {
		margin = fastRadius
	}

	var found []Keypoint
	for y := margin; y < h-margin; y++ {
		for x := margin; x < w-margin; x++ {
			if resp := cornerResponse(img, x, y); resp > 0 {
				found = append(found, Keypoint{X: x, Y: y, Response: resp})
			}
		}
	}

	// Strongest first, then grid suppression so keypoints spread out
	// instead of clustering on one edge.
	sort.Slice(found, func(i, j int) bool {
		if found[i].Response != found[j].Response {
			return found[i].Response > found[j].Response
		}
		if found[i].Y != found[j].Y {
			return found[i].Y < found[j].Y
		}
		return found[i].X < found[j].X
	})

	kept := make([]Keypoint, 0, minInt(maxCount, len(found)))
	for _, kp := range found {
		if len(kept) >= maxCount {
			break
		}
		ok := true
		for _, other := range kept {
			dx, dy := kp.X-other.X, kp.Y-other.Y
			if dx*dx+dy*dy < suppressRadius*suppressRadius {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, kp)
		}
	}
	return kept
}

// cornerResponse runs the segment test at (x, y) and returns a response
// score (sum of absolute differences over the circle), or 0 for
// non-corners.
func cornerResponse(img *image.Gray, x, y int) int {
	center := int(img.Pix[y*img.Stride+x])

	// Classify each circle pixel: +1 brighter, -1 darker, 0 similar.
	var class [16]int
	for i, off := range circleOffsets {
		v := int(img.Pix[(y+off[1])*img.Stride+(x+off[0])])
		if v >= center+fastThreshold {
			class[i] = 1
		} else if v <= center-fastThreshold {
			class[i] = -1
		}
	}

	// Look for a contiguous arc of fastArc same-sign pixels, wrapping.
	for _, want := range []int{1, -1} {
		run := 0
		for i := 0; i < 16+fastArc; i++ {
			if class[i%16] == want {
				run++
				if run >= fastArc {
					resp := 0
					for _, off := range circleOffsets {
						v := int(img.Pix[(y+off[1])*img.Stride+(x+off[0])])
						d := v - center
						if d < 0 {
							d = -d
						}
						resp += d
					}
					return resp
				}
			} else {
				run = 0
			}
		}
	}
	return 0
}

// ComputeDescriptors builds the binary descriptor for each keypoint.
func ComputeDescriptors(img *image.Gray, kps []Keypoint) []Descriptor {
	descs := make([]Descriptor, len(kps))
	for i, kp := range kps {
		var d Descriptor
		for t, p := range samplePattern {
			a := img.Pix[(kp.Y+p[1])*img.Stride+(kp.X+p[0])]
			b := img.Pix[(kp.Y+p[3])*img.Stride+(kp.X+p[2])]
			if a < b {
				d[t/64] |= 1 << uint(t%64)
			}
		}
		descs[i] = d
	}
	return descs
}

func hamming(a, b Descriptor) int {
	return bits.OnesCount64(a[0]^b[0]) + bits.OnesCount64(a[1]^b[1]) +
		bits.OnesCount64(a[2]^b[2]) + bits.OnesCount64(a[3]^b[3])
}

// correspondence pairs a template keypoint index with a scene keypoint
// index.
type correspondence struct {
	tmplIdx  int
	sceneIdx int
	dist     int
}

// matchDescriptors runs mutual nearest-neighbor matching with a distance
// ratio test to reject ambiguous correspondences.
func matchDescriptors(tmplDescs, sceneDescs []Descriptor) []correspondence {
	if len(tmplDescs) == 0 || len(sceneDescs) == 0 {
		return nil
	}

	// Nearest scene descriptor per template descriptor, with second-best
	// for the ratio test.
	type nn struct{ best, second, bestIdx int }
	forward := make([]nn, len(tmplDescs))
	for i, td := range tmplDescs {
		forward[i] = nn{best: 257, second: 257, bestIdx: -1}
		for j, sd := range sceneDescs {
			d := hamming(td, sd)
			if d < forward[i].best {
				forward[i].second = forward[i].best
				forward[i].best = d
				forward[i].bestIdx = j
			} else if d < forward[i].second {
				forward[i].second = d
			}
		}
	}

	// Nearest template descriptor per scene descriptor, for cross-checking.
	backward := make([]int, len(sceneDescs))
	for j, sd := range sceneDescs {
		bestD, bestI := 257, -1
		for i, td := range tmplDescs {
			d := hamming(td, sd)
			if d < bestD {
				bestD = d
				bestI = i
			}
		}
		backward[j] = bestI
	}

	var out []correspondence
	for i, f := range forward {
		if f.bestIdx < 0 || backward[f.bestIdx] != i {
			continue
		}
		// Lowe ratio test; exact matches pass unconditionally.
		if f.best > 0 && f.best*ratioDen >= f.second*ratioNum {
			continue
		}
		out = append(out, correspondence{tmplIdx: i, sceneIdx: f.bestIdx, dist: f.best})
	}
	return out
}

// matchFeatures locates the template in the scene by descriptor matching.
// Correspondences must agree on a common translation: displacements further
// than consensusTolerance from the median are discarded, and at least
// cfg.MinFeatureMatches inliers must remain. The detected location is the
// centroid of the inlier scene keypoints; confidence is the inlier count
// relative to the template keypoint count, saturating at 1.
func matchFeatures(scene *image.Gray, tmpl *Template, cfg Config) MatchResult {
	none := MatchResult{Method: MethodFeature}
	if len(tmpl.Keypoints) == 0 {
		return none
	}

	sceneKps := DetectKeypoints(scene, cfg.MaxFeatures)
	if len(sceneKps) < cfg.MinFeatureMatches {
		return none
	}
	sceneDescs := ComputeDescriptors(scene, sceneKps)

	matches := matchDescriptors(tmpl.Descriptors, sceneDescs)
	if len(matches) < cfg.MinFeatureMatches {
		return none
	}

	// Median displacement as the translation hypothesis.
	dxs := make([]int, len(matches))
	dys := make([]int, len(matches))
	for i, m := range matches {
		dxs[i] = sceneKps[m.sceneIdx].X - tmpl.Keypoints[m.tmplIdx].X
		dys[i] = sceneKps[m.sceneIdx].Y - tmpl.Keypoints[m.tmplIdx].Y
	}
	sort.Ints(dxs)
	sort.Ints(dys)
	medDX := dxs[len(dxs)/2]
	medDY := dys[len(dys)/2]

	var inliers []Keypoint
	minX, minY := scene.Rect.Dx(), scene.Rect.Dy()
	maxX, maxY := 0, 0
	for _, m := range matches {
		kp := sceneKps[m.sceneIdx]
		dx := kp.X - tmpl.Keypoints[m.tmplIdx].X - medDX
		dy := kp.Y - tmpl.Keypoints[m.tmplIdx].Y - medDY
		if dx*dx+dy*dy > consensusTolerance*consensusTolerance {
			continue
		}
		inliers = append(inliers, kp)
		minX = minInt(minX, kp.X)
		minY = minInt(minY, kp.Y)
		if kp.X > maxX {
			maxX = kp.X
		}
		if kp.Y > maxY {
			maxY = kp.Y
		}
	}
	if len(inliers) < cfg.MinFeatureMatches {
		return none
	}

	var sumX, sumY int
	for _, kp := range inliers {
		sumX += kp.X
		sumY += kp.Y
	}
	centroid := image.Point{X: sumX / len(inliers), Y: sumY / len(inliers)}

	// Inlier count relative to template keypoints, capped so dense
	// templates stay reachable.
	denom := minInt(len(tmpl.Keypoints), 100)
	confidence := float64(len(inliers)) / float64(denom)
	if confidence > 1 {
		confidence = 1
	}

	sizeX := maxX - minX
	sizeY := maxY - minY
	scale := 0.0
	if tmpl.Width > 0 && tmpl.Height > 0 {
		scale = (float64(sizeX)/float64(tmpl.Width) + float64(sizeY)/float64(tmpl.Height)) / 2
	}

	return MatchResult{
		Found:      true,
		Location:   centroid,
		Confidence: confidence,
		Scale:      scale,
		Size:       image.Point{X: sizeX, Y: sizeY},
		Method:     MethodFeature,
	}
}
