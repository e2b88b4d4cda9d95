// Package classify turns normalised motion windows into typed stroke labels
// behind a small interface so the concrete inference engine stays swappable.
package classify

// StrokeType identifies the swing variant. The numeric order of the known
// types is the model's class index order and must stay in lock-step with the
// model artifact.
type StrokeType int

const (
	Unknown StrokeType = iota
	ForehandDrive
	BackhandDrive
	ForehandTopspin
	BackhandTopspin
	ForehandSlice
	BackhandSlice
	ForehandVolley
	BackhandVolley
	ForehandSmash
	BackhandSmash
	ForehandLob
	BackhandLob
	Serve
	DropShot
)

// NumClasses is the model output width. Unknown is not a model class; it is
// the gate/failure result.
const NumClasses = 14

var strokeNames = map[StrokeType]string{
	Unknown:         "unknown",
	ForehandDrive:   "forehand_drive",
	BackhandDrive:   "backhand_drive",
	ForehandTopspin: "forehand_topspin",
	BackhandTopspin: "backhand_topspin",
	ForehandSlice:   "forehand_slice",
	BackhandSlice:   "backhand_slice",
	ForehandVolley:  "forehand_volley",
	BackhandVolley:  "backhand_volley",
	ForehandSmash:   "forehand_smash",
	BackhandSmash:   "backhand_smash",
	ForehandLob:     "forehand_lob",
	BackhandLob:     "backhand_lob",
	Serve:           "serve",
	DropShot:        "drop_shot",
}

func (t StrokeType) String() string {
	if name, ok := strokeNames[t]; ok {
		return name
	}
	return "unknown"
}

// FromName maps a stored stroke name back to its type. Unrecognised names map
// to Unknown.
func FromName(name string) StrokeType {
	for t, n := range strokeNames {
		if n == name {
			return t
		}
	}
	return Unknown
}

// FromClassIndex maps a model output index (0..NumClasses-1) to its stroke
// type. Out-of-range indices map to Unknown.
func FromClassIndex(i int) StrokeType {
	if i < 0 || i >= NumClasses {
		return Unknown
	}
	return StrokeType(i + 1)
}

// ClassIndex returns the model output index for a known stroke type, or -1
// for Unknown.
func (t StrokeType) ClassIndex() int {
	if t == Unknown {
		return -1
	}
	return int(t) - 1
}
