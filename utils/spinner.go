package utils

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
)

var progress *spinner.Spinner

// StartSpinner shows a progress indicator on w until StopSpinner is called
func StartSpinner(w io.Writer, suffix string) {
	if progress != nil {
		progress.Stop()
	}

	progress = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	progress.Suffix = " " + suffix
	progress.Start()
}

func StopSpinner() {
	if progress == nil {
		return
	}
	progress.Stop()
	progress = nil
}
