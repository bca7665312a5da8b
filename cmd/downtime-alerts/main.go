package main

import "github.com/oshokin/downtime-alerts/cmd/downtime-alerts/cmd"

func main() {
	cmd.Execute()
}
