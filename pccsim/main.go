// Package main runs a PCC controller against the simulated command queue.
package main

import "github.com/sarchlab/pcc/pccsim/cmd"

func main() {
	cmd.Execute()
}
