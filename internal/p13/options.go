package p13

// NewOptionState seeds option value from the initial available set:
// min(len(available) * 2, OptionValueMax).
func NewOptionState(available []string) OptionState {
	return OptionState{
		AvailableOptions: append([]string(nil), available...),
		OptionValue:      initialOptionValue(len(available)),
	}
}

func initialOptionValue(available int) int {
	v := available * 2
	if v > OptionValueMax {
		return OptionValueMax
	}
	return v
}

// CommitOption moves optionID from available to locked and recomputes
// option value from the shrunken available set. Returns the state
// unchanged if optionID is not currently available. The input state is
// never mutated.
func CommitOption(state OptionState, optionID string) OptionState {
	idx := -1
	for i, id := range state.AvailableOptions {
		if id == optionID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return state.Clone()
	}

	next := state.Clone()
	next.AvailableOptions = append(next.AvailableOptions[:idx], next.AvailableOptions[idx+1:]...)
	if !containsString(next.LockedOptions, optionID) {
		next.LockedOptions = append(next.LockedOptions, optionID)
	}
	next.OptionValue = initialOptionValue(len(next.AvailableOptions))
	return next
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
