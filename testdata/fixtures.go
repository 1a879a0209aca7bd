// Package testdata embeds recorded landmark sequences for end-to-end tests.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/ayusman/airsketch/internal/detector"
)

//go:embed sequences/*.json
var sequencesFS embed.FS

// Frame is one detector result. Either Points holds a full landmark list or
// Pose names one of the synthetic hands: point (at X, Y), fist, pinky, palm
// or none.
type Frame struct {
	Pose   string             `json:"pose,omitempty"`
	X      float64            `json:"x,omitempty"`
	Y      float64            `json:"y,omitempty"`
	Points []detector.Point3D `json:"points,omitempty"`
}

// Expect describes the engine state after the whole sequence.
type Expect struct {
	Segments   int    `json:"segments"`
	PenUp      bool   `json:"pen_up"`
	LastIntent string `json:"last_intent"`
}

// Sequence is a named list of frames with its expected outcome.
type Sequence struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Frames      []Frame `json:"frames"`
	Expect      Expect  `json:"expect"`
}

// Sequences lists the embedded sequence names.
func Sequences() ([]string, error) {
	entries, err := sequencesFS.ReadDir("sequences")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
	}
	return names, nil
}

// LoadSequence loads a landmark sequence by name.
func LoadSequence(name string) (*Sequence, error) {
	data, err := sequencesFS.ReadFile("sequences/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load sequence %s: %w", name, err)
	}

	var seq Sequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("decode sequence %s: %w", name, err)
	}
	return &seq, nil
}

// Hands converts every frame into detector output, one entry per frame.
// A "none" frame yields nil.
func (s *Sequence) Hands() ([][]detector.HandLandmarks, error) {
	out := make([][]detector.HandLandmarks, 0, len(s.Frames))
	for i, f := range s.Frames {
		hands, err := f.hands()
		if err != nil {
			return nil, fmt.Errorf("sequence %s frame %d: %w", s.Name, i, err)
		}
		out = append(out, hands)
	}
	return out, nil
}

func (f Frame) hands() ([]detector.HandLandmarks, error) {
	if len(f.Points) > 0 {
		hand, err := detector.HandFromPoints(f.Points, "Right", 1)
		if err != nil {
			return nil, err
		}
		return []detector.HandLandmarks{hand}, nil
	}

	var hand detector.HandLandmarks
	switch f.Pose {
	case "none":
		return nil, nil
	case "point":
		hand = detector.IndexPointingLandmarks(f.X, f.Y)
	case "fist":
		hand = detector.FistLandmarks()
	case "pinky":
		hand = detector.PinkyUpLandmarks()
	case "palm":
		hand = detector.OpenPalmLandmarks()
	default:
		return nil, fmt.Errorf("unknown pose %q", f.Pose)
	}
	return []detector.HandLandmarks{hand}, nil
}
