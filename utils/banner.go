package utils

import (
	"fmt"
	"io"

	"github.com/common-nighthawk/go-figure"
)

func DrawBanner(w io.Writer) {
	fmt.Fprintln(w, figure.NewFigure("AWS SPOT", "", true).String())
}
