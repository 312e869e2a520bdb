package logging

import (
	"os"
)

func newStdout() *os.File { return os.Stdout }
