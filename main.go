// Command hgana runs grid-based host-guest Monte Carlo simulations.
// CLI handling lives in the Cobra commands of package cmd.
package main

import (
	"github.com/hgana/hgana/cmd"
)

func main() {
	cmd.Execute()
}
