//go:build !unix

package privilege

const supported = false

func defaultSetter(int) error { return nil }

// Capture returns an empty snapshot; group identities do not exist here.
func Capture() Snapshot { return Snapshot{} }
