package score

import "github.com/racketlab/swingtrace/internal/classify"

// Band buckets a score for feedback lookup.
type Band int

const (
	BandPoor      Band = iota // score < 5
	BandAverage               // 5-6
	BandGood                  // 7-8
	BandExcellent             // 9-10
)

// BandForScore maps a 1-10 score onto its feedback band.
func BandForScore(score int) Band {
	switch {
	case score >= 9:
		return BandExcellent
	case score >= 7:
		return BandGood
	case score >= 5:
		return BandAverage
	default:
		return BandPoor
	}
}

// fallbackFeedback is returned whenever the table has no entry for a
// (stroke, band) pair. The lookup never fails loudly.
const fallbackFeedback = "Keep practicing - consistency comes with repetition."

type feedbackKey struct {
	stroke classify.StrokeType
	band   Band
}

var feedbackTable = map[feedbackKey]string{
	{classify.ForehandDrive, BandExcellent}: "Textbook forehand drive - great acceleration through contact.",
	{classify.ForehandDrive, BandGood}:      "Solid forehand drive. Drive through the ball a touch longer.",
	{classify.ForehandDrive, BandAverage}:   "Decent forehand drive, but the swing decelerates before contact.",
	{classify.ForehandDrive, BandPoor}:      "Forehand drive needs work - focus on a full, relaxed follow-through.",

	{classify.BackhandDrive, BandExcellent}: "Excellent backhand drive - compact and fast.",
	{classify.BackhandDrive, BandGood}:      "Good backhand drive. Keep the elbow leading into contact.",
	{classify.BackhandDrive, BandAverage}:   "Backhand drive is landing, but add more forearm snap.",
	{classify.BackhandDrive, BandPoor}:      "Shorten the backswing on that backhand drive and stay balanced.",

	{classify.ForehandTopspin, BandExcellent}: "Heavy forehand topspin - superb brush and racket speed.",
	{classify.ForehandTopspin, BandGood}:      "Good forehand topspin. Finish higher for more arc.",
	{classify.ForehandTopspin, BandAverage}:   "Topspin is there, but accelerate harder at contact.",
	{classify.ForehandTopspin, BandPoor}:      "Slow down and exaggerate the low-to-high path on the forehand topspin.",

	{classify.BackhandTopspin, BandExcellent}: "Great backhand topspin - wrist snap is doing the work.",
	{classify.BackhandTopspin, BandGood}:      "Good backhand topspin. Open the shoulder a little earlier.",
	{classify.BackhandTopspin, BandAverage}:   "Backhand topspin needs more brush, less push.",
	{classify.BackhandTopspin, BandPoor}:      "Start the backhand topspin from the knee, not the hip.",

	{classify.ForehandSmash, BandExcellent}: "Thunderous smash - timing and transfer were spot on.",
	{classify.ForehandSmash, BandGood}:      "Strong smash. Get under the ball slightly earlier.",
	{classify.ForehandSmash, BandAverage}:   "Smash connected, but the body stayed behind the arm.",
	{classify.ForehandSmash, BandPoor}:      "Reset your feet before smashing - power starts from the legs.",

	{classify.BackhandSmash, BandExcellent}: "Rare and ruthless - that backhand smash was clean.",
	{classify.BackhandSmash, BandGood}:      "Good backhand smash. Square the paddle face a touch more.",

	{classify.Serve, BandExcellent}: "Serve motion is crisp and repeatable - keep that rhythm.",
	{classify.Serve, BandGood}:      "Good serve. Vary the contact point to disguise spin.",
	{classify.Serve, BandAverage}:   "Serve is steady but predictable - add wrist variation.",
	{classify.Serve, BandPoor}:      "Slow the serve toss and let the paddle do the work.",

	{classify.ForehandVolley, BandExcellent}: "Sharp forehand volley - minimal swing, maximal control.",
	{classify.ForehandVolley, BandGood}:      "Good volley. Keep the paddle in front of the body.",
	{classify.BackhandVolley, BandExcellent}: "Clean backhand volley - nice firm wrist.",
	{classify.BackhandVolley, BandGood}:      "Good backhand volley. Step in rather than reaching.",

	{classify.ForehandLob, BandGood}: "Useful lob. Add more height under pressure.",
	{classify.BackhandLob, BandGood}: "Good defensive lob - buy time and recover position.",

	{classify.DropShot, BandExcellent}: "Beautiful drop shot - soft hands and perfect disguise.",
	{classify.DropShot, BandGood}:      "Nice drop shot. Shorten the backswing to hide it better.",
}

// Feedback returns the coaching string for a stroke and score. Missing table
// entries (including every Unknown classification) fall back to a generic
// message.
func Feedback(stroke classify.StrokeType, score int) string {
	if msg, ok := feedbackTable[feedbackKey{stroke, BandForScore(score)}]; ok {
		return msg
	}
	return fallbackFeedback
}
