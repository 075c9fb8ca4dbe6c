package cmd

import (
	"io"
	"runtime"

	"grimm.is/firegate/internal/brand"
)

// RunVersion prints build information.
func RunVersion(w io.Writer) {
	Printer.Fprintf(w, "%s %s (%s) %s %s/%s\n", brand.Name, brand.Version, brand.GitCommit,
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
