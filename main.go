// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/thecrown/packgen/cmd/packgen"

func main() {
	cmd.Execute()
}
