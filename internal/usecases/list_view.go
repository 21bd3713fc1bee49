package usecases

// ListView is what a feature list renders: its rows, or the empty state
// with a call to action.
type ListView[T any] struct {
	Items        []T    `json:"items"`
	Empty        bool   `json:"empty"`
	CallToAction string `json:"callToAction,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

func newListView[T any](items []T, cta string, limit int) ListView[T] {
	out := make([]T, len(items))
	copy(out, items)
	v := ListView[T]{Items: out, Limit: limit}
	if len(out) == 0 {
		v.Empty = true
		v.CallToAction = cta
	}
	return v
}

// Confirmation carries the user's answer to "are you sure?" before a delete
type Confirmation struct {
	Confirmed bool
}

func requireConfirmation(c Confirmation) error {
	if !c.Confirmed {
		return ErrNotConfirmed
	}
	return nil
}

func checkIndex(index, length int) error {
	if index < 0 || index >= length {
		return ErrIndexOutOfRange
	}
	return nil
}
