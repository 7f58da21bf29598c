package detect

// Decide maps an event to the privacy gate verdict. Human presence always
// wins: a frame containing both a person and a dog is HUMAN_PRESENT, and
// nothing from it may be stored or sent.
func Decide(ev Event) Decision {
	if ev.HumanPresent {
		return Decision{Kind: KindHumanPresent}
	}
	if ev.DogCount > 0 {
		return Decision{
			Kind:       KindDogOnly,
			DogCount:   ev.DogCount,
			Confidence: ev.MaxDogConfidence,
		}
	}
	return Decision{Kind: KindIdle}
}
