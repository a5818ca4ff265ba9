package sched

// FindByIndex returns the slot at index i of the offered list.
// Out-of-range indices (including i == len(slots)) report ErrSlotNotFound.
func FindByIndex(slots []Slot, i int) (Slot, error) {
	if i < 0 || i >= len(slots) {
		return Slot{}, ErrSlotNotFound
	}
	return slots[i], nil
}

// FindByStart returns the offered slot whose StartISO exactly equals
// startISO. There is no fuzzy time parsing at this layer: the
// conversational agent is responsible for producing exact ISO values when
// the user's phrasing implies one of the previously offered options.
func FindByStart(slots []Slot, startISO string) (Slot, error) {
	if startISO == "" {
		return Slot{}, ErrSlotNotFound
	}
	for _, s := range slots {
		if s.StartISO == startISO {
			return s, nil
		}
	}
	return Slot{}, ErrSlotNotFound
}
