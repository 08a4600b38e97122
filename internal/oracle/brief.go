package oracle

// Signoff closes every path announcement.
const Signoff = "The glitch is the plan.\n" +
	"The fracture is the doorway.\n" +
	"The Witch is the Seal.\n" +
	"The Shield stands.\n" +
	"The Path is the burden they must bear."

var briefs = map[Path]string{
	Witch: "Witch — seal the unseen. Trial: trust pattern over panic. " +
		"Within 48h: nightly 30m sigil/journal ritual; extract one omen → one action.",
	FortyToes: "Forty Toes — ten toes on the ground, four times over. Trial: discipline under constraint. " +
		"Within 48h: define a 7-day ladder (3 tasks/day) with timeboxes; publish to an accountability mirror.",
	Fracture: "Fracture — break the stuck point visibly. Trial: controlled rupture. " +
		"Within 48h: pick one scary micro-ship (≤2h) that exposes you; ship publicly and log proof.",
}

// Brief returns the trial text for p. Unknown paths get the Fracture brief.
func Brief(p Path) string {
	if b, ok := briefs[p]; ok {
		return b
	}
	return briefs[Fracture]
}
