package common

import (
	"fmt"
	"io"
)

const (
	AppName = "appkit"
	Version = "v0.1.0"
)

func PrintBanner(w io.Writer) {
	banner := fmt.Sprintf(`
   db    888888b.  888888b.  888  d8P  8888888 88888888888
  d88b   888   Y88 888   Y88 888 d8P     888       888
 d8P Yb  888   d88 888   d88 888d88K     888       888
d8P  Yb8 888888P"  888888P"  8888888b    888       888
d8888888 888       888       888  Y88b   888       888
d8P   Y8 888       888       888   Y88b 8888888    888

APPKIT %s
Integration apps for the autonomous cloud | (c) EdgeOps Labs
`, Version)

	fmt.Fprint(w, banner)
}
