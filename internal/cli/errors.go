package cli

import "fmt"

type needsConfirmError struct {
	uid string
}

func (e needsConfirmError) Error() string {
	return fmt.Sprintf("refusing to delete %s without --yes", e.uid)
}

type checkFailedError struct {
	errors int
}

func (e checkFailedError) Error() string {
	return fmt.Sprintf("check failed: %d error(s)", e.errors)
}
